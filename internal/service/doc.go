// Package service groups the application services that sit between the HTTP
// layer and the stores.
//
//   - schedule: care rules and their pending occurrences, including the
//     transactional completion path.
//   - devices: the push token registry used by the API and the dispatcher.
//   - preferences: per-owner reminder settings with get-or-create defaults.
//   - auth: bearer token verification.
//
// Services depend on the interfaces in internal/store and never on a concrete
// backend.
package service
