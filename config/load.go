package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Env var names for the secrets spec.md section 6 requires at boot.
// Config files are expected to omit these so secrets never sit in a
// checked-in TOML file; a non-empty environment value overrides
// whatever the file sets.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvRabbitmqURL = "RABBITMQ_URL"
	EnvRedisURL    = "REDIS_URL"
	EnvJwtSecret   = "JWT_SECRET_KEY"
	EnvConfigPath  = "VOTECORE_CONFIG"
)

// Load reads path as TOML over Default(), then overlays the
// environment-sourced secrets. path may be empty, in which case only
// defaults + environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv(EnvRabbitmqURL); v != "" {
		cfg.Rabbitmq.URL = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv(EnvJwtSecret); v != "" {
		cfg.Jwt.SecretKey = v
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv is a convenience wrapper: it reads VOTECORE_CONFIG (a
// path to an optional TOML file) and loads on top of Default(). The
// cmd/ binaries call Load directly with a -config flag that defaults
// to the same variable.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}
