package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration has the fields every
// component needs before any daemon starts. It does not attempt to
// dial Postgres/RabbitMQ/Redis — each binary does that after Load
// returns (store.Open, broker.NewPublisher, broker.Consumer.Start).
func Validate(cfg *Config) error {
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("config: %s is required", EnvDatabaseURL)
	}
	if cfg.Rabbitmq.URL == "" {
		return fmt.Errorf("config: %s is required", EnvRabbitmqURL)
	}
	if cfg.Redis.URL == "" {
		return fmt.Errorf("config: %s is required", EnvRedisURL)
	}
	if len(cfg.Jwt.SecretKey) < 32 {
		return fmt.Errorf("config: %s must be at least 32 bytes", EnvJwtSecret)
	}
	if !strings.EqualFold(cfg.Jwt.Algorithm, "HS256") {
		return fmt.Errorf("config: unsupported jwt algorithm %q, only HS256 is supported", cfg.Jwt.Algorithm)
	}
	if cfg.Rabbitmq.QueueName == "" || cfg.Rabbitmq.DLXExchange == "" || cfg.Rabbitmq.DLQQueue == "" {
		return fmt.Errorf("config: rabbitmq queue/DLX/DLQ names are required")
	}
	if cfg.RateLimit.MaxRequests <= 0 || cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("config: rate limit max requests and window must be positive")
	}
	if cfg.Postgres.MaxRetries <= 0 {
		return fmt.Errorf("config: postgres max retries must be positive")
	}
	if cfg.Rabbitmq.PublishMaxRetries <= 0 {
		return fmt.Errorf("config: rabbitmq publish max retries must be positive")
	}
	if cfg.Worker.ReconcileEnabled && cfg.Worker.ReconcileEvery <= 0 {
		return fmt.Errorf("config: worker reconcile interval must be positive when reconciliation is enabled")
	}
	return nil
}
