// Package domain contains the core entities of the care scheduler: schedule
// rules and their occurrences, the delivery ledger record, notification
// preferences and push device tokens. It is independent of any storage or
// transport mechanism.
package domain
