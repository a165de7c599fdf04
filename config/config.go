// Package config defines votecore's runtime configuration and the
// atomic-swap Provider that lets the results cache settings be
// hot-tuned without a restart.
package config

import (
	"sync/atomic"
	"time"
)

// Provider holds the current configuration and allows atomic updates
// (mirrors the teacher's config.Provider atomic-swap wrapper). An
// Update takes effect only for components that call Get per request,
// such as results.Service reading ResultsCache; values copied at
// construction, such as RateLimit into ratelimit.New, do not change.
type Provider struct {
	value atomic.Value // holds *Config
}

// NewProvider creates a Provider seeded with the given config. Panics
// if cfg is nil.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		panic("initial config cannot be nil")
	}
	p := &Provider{}
	p.value.Store(cfg)
	return p
}

// Get returns the current configuration snapshot. Safe for concurrent use.
func (p *Provider) Get() *Config {
	return p.value.Load().(*Config)
}

// Update atomically swaps the current configuration with newCfg.
func (p *Provider) Update(newCfg *Config) {
	if newCfg == nil {
		return
	}
	p.value.Store(newCfg)
}

// Postgres holds the system-of-record connection settings.
type Postgres struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	MaxRetries      int
	RetryMinWait    time.Duration
	RetryMaxWait    time.Duration
}

// Rabbitmq holds the durable queue connection and topology settings.
type Rabbitmq struct {
	URL               string
	QueueName         string
	DLXExchange       string
	DLQQueue          string
	PrefetchCount     int
	PublishMaxRetries int
	PublishRetryWait  time.Duration
	ReconnectDelay    time.Duration
}

// Redis holds the counter store / results cache / rate-limit store settings.
type Redis struct {
	URL               string
	ResultsCacheKey   string
	CandidateVotesKey string
	RateLimitPrefix   string
}

// Jwt holds the HMAC signing secret and the ingest/worker algorithm
// constraint (HS256-only, see SPEC_FULL.md section 0).
type Jwt struct {
	SecretKey string
	Algorithm string // validated, fixed to HS256
}

// RateLimit controls the fixed-window limiter applied at ingest. Its
// values are passed to ratelimit.New once at boot; a later
// Provider.Update does not change a running Limiter.
type RateLimit struct {
	MaxRequests int
	Window      time.Duration
}

// ResultsCache controls the results service's full-list cache.
// Hot-swappable via Provider.Update.
type ResultsCache struct {
	TTL time.Duration
	// MinLimitForFullCache is the heuristic threshold from
	// original_source/api/services/vote_service.py: only cache the
	// full unpaginated result set when a request's limit exceeds this
	// and it asked for page 1 with no candidate filter.
	MinLimitForFullCache int
}

// Worker holds worker-process settings. Only ReconcileEnabled and
// ReconcileEvery are read (by reconcile.Reconciler); the consumer's
// reconnect delay comes from Rabbitmq.ReconnectDelay and the store's
// retry settings from Postgres, so ReconnectDelay and the DB* fields
// here have no effect.
type Worker struct {
	ReconnectDelay   time.Duration
	DBMaxRetries     int
	DBRetryMinWait   time.Duration
	DBRetryMaxWait   time.Duration
	ReconcileEnabled bool
	ReconcileEvery   time.Duration
}

// Server holds the HTTP edge's listen/timeout settings.
type Server struct {
	Addr                    string
	ShutdownGracefulTimeout time.Duration
	ReadTimeout             time.Duration
	ReadHeaderTimeout       time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	ClientIpProxyHeader     string
	EnableTestAuth          bool
}

// Log controls structured log output.
type Log struct {
	Format string // "text" or "json"
	Level  string // slog level name
}

// Config is the root configuration for all three votecore binaries.
// Each binary only reads the sections it needs.
type Config struct {
	Postgres     Postgres
	Rabbitmq     Rabbitmq
	Redis        Redis
	Jwt          Jwt
	RateLimit    RateLimit
	ResultsCache ResultsCache
	Worker       Worker
	Server       Server
	Log          Log
}
