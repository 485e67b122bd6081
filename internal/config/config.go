package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Tick     TickConfig     `mapstructure:"tick" validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify" validate:"required"`
	Ledger   LedgerConfig   `mapstructure:"ledger" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AuthConfig contains all authentication and authorization settings.
// Tokens are normally issued by the account service; TokenLifetime applies
// to tokens minted locally for operators and tests.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// TickConfig controls the per-minute reminder job.
type TickConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Cron is a standard five-field cron expression.
	Cron string `mapstructure:"cron" validate:"required"`
	// Workers bounds how many owners are evaluated concurrently within one tick.
	Workers int `mapstructure:"workers" validate:"gt=0,lte=256"`
	// DefaultTimezone is used when an owner's stored zone is missing or unknown.
	DefaultTimezone string `mapstructure:"default_timezone" validate:"required,timezone"`
	// CatchUpMinutes keeps a slot eligible for this many local minutes after
	// its send time so a failed send can be retried. 1 is exact matching.
	CatchUpMinutes int `mapstructure:"catch_up_minutes" validate:"gte=1,lte=120"`
}

// NotifyConfig contains delivery transport settings.
// An empty SendGrid key or Firebase credential disables that channel.
type NotifyConfig struct {
	SendTimeout             time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
	EmailRatePerSecond      float64       `mapstructure:"email_rate_per_second" validate:"gt=0"`
	EmailBurst              int           `mapstructure:"email_burst" validate:"gt=0"`
	FromEmail               string        `mapstructure:"from_email" validate:"required,email"`
	FromName                string        `mapstructure:"from_name"`
	SendGridAPIKey          string        `mapstructure:"sendgrid_api_key"`
	FirebaseCredentialsFile string        `mapstructure:"firebase_credentials_file" validate:"omitempty,file"`
	FirebaseCredentialsJSON string        `mapstructure:"firebase_credentials_json" validate:"omitempty,json"`
}

// LedgerConfig selects the delivery ledger backend.
type LedgerConfig struct {
	Backend       string        `mapstructure:"backend" validate:"required,oneof=postgres redis"`
	RedisAddr     string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
	Retention     time.Duration `mapstructure:"retention" validate:"gte=48h"`
}
