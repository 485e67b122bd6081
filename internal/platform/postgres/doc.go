// Package postgres provides PostgreSQL implementations of the store
// interfaces: schedule rules and occurrences, the delivery ledger,
// notification preferences, device tokens and recipients. It also embeds
// the goose migrations that create the schema.
//
// Dates are bound as ISO strings and scanned as time.Time, then converted
// to civil.Date, so no session time zone can shift a calendar day.
package postgres
