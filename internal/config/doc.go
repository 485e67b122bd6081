// Package config handles configuration loading, parsing, and validation
// from environment variables (prefixed SPROUT_) and an optional config.yaml.
// It provides type-safe access to settings for the HTTP server, database,
// reminder tick and delivery transports.
package config
