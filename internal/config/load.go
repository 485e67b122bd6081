package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SPROUT_SERVER_PORT.
const EnvPrefix = "SPROUT"

// requiredKeys have no default and must be bound explicitly so that
// Unmarshal picks them up from the environment.
var requiredKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"notify.sendgrid_api_key",
	"notify.firebase_credentials_file",
	"notify.firebase_credentials_json",
	"ledger.redis_addr",
	"ledger.redis_password",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("auth.token_lifetime", time.Hour)

	v.SetDefault("tick.enabled", true)
	v.SetDefault("tick.cron", "* * * * *")
	v.SetDefault("tick.workers", 8)
	v.SetDefault("tick.default_timezone", "Europe/Warsaw")
	v.SetDefault("tick.catch_up_minutes", 1)

	v.SetDefault("notify.send_timeout", 10*time.Second)
	v.SetDefault("notify.email_rate_per_second", 10.0)
	v.SetDefault("notify.email_burst", 5)
	v.SetDefault("notify.from_email", "reminders@sprout.local")
	v.SetDefault("notify.from_name", "Sprout")

	v.SetDefault("ledger.backend", "postgres")
	v.SetDefault("ledger.redis_db", 0)
	v.SetDefault("ledger.retention", 72*time.Hour)
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the file. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
