package config

import (
	"testing"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Postgres.DSN = "postgres://localhost/votecore"
	cfg.Rabbitmq.URL = "amqp://localhost"
	cfg.Redis.URL = "redis://localhost"
	cfg.Jwt.SecretKey = "12345678901234567890123456789012"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing database url", func(c *Config) { c.Postgres.DSN = "" }, true},
		{"missing rabbitmq url", func(c *Config) { c.Rabbitmq.URL = "" }, true},
		{"missing redis url", func(c *Config) { c.Redis.URL = "" }, true},
		{"short jwt secret", func(c *Config) { c.Jwt.SecretKey = "short" }, true},
		{"unsupported jwt algorithm", func(c *Config) { c.Jwt.Algorithm = "RS256" }, true},
		{"missing dlq queue", func(c *Config) { c.Rabbitmq.DLQQueue = "" }, true},
		{"zero rate limit window", func(c *Config) { c.RateLimit.Window = 0 }, true},
		{"zero postgres max retries", func(c *Config) { c.Postgres.MaxRetries = 0 }, true},
		{"zero publish max retries", func(c *Config) { c.Rabbitmq.PublishMaxRetries = 0 }, true},
		{"reconcile enabled with zero interval", func(c *Config) {
			c.Worker.ReconcileEnabled = true
			c.Worker.ReconcileEvery = 0
		}, true},
		{"reconcile disabled with zero interval is fine", func(c *Config) {
			c.Worker.ReconcileEnabled = false
			c.Worker.ReconcileEvery = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProviderGetUpdate(t *testing.T) {
	cfg := validConfig()
	p := NewProvider(cfg)

	if got := p.Get(); got != cfg {
		t.Errorf("Get() = %v, want %v", got, cfg)
	}

	updated := validConfig()
	updated.RateLimit.MaxRequests = 500
	p.Update(updated)

	if got := p.Get().RateLimit.MaxRequests; got != 500 {
		t.Errorf("after Update, MaxRequests = %d, want 500", got)
	}
}
