// Package notify delivers reminder notifications.
//
// It holds the delivery ledger used to suppress duplicate sends, the
// dispatcher that talks to the email and push transports, the rules that
// classify per-token push failures, and the localized message catalog.
//
// Transports are reached through the EmailSender and PushSender interfaces;
// concrete adapters live under internal/platform.
package notify
