// Package ratelimit implements the fixed-window request limiter
// spec.md section 4.2 calls for: an INCR against a per-principal Redis
// key with a TTL armed on first use, failing open on any Redis error.
// Grounded on
// original_source/api/services/cache_service.py's is_rate_limited and
// on the VSA rate-limiter demo's fail-soft API shape
// (other_examples/61a70b01_etalazz-vsa__cmd-ratelimiter-api-main.go.go).
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// store is the behavior Limiter needs from Redis, declared at the
// level of the round trip rather than the raw command so the
// incr+ttl-read pairing stays one round trip without leaking pipeline
// mechanics into Limiter itself. Keeping it as an interface lets
// tests substitute an in-memory fake instead of requiring a live
// Redis instance, the same shape the teacher's db.Db interface gives
// db/mock.go.
type store interface {
	// IncrWithTTL increments key and reads its remaining TTL in the
	// same Redis round trip, the same pipelined incr+ttl pairing
	// original_source/api/services/cache_service.py's is_rate_limited
	// does. The pipeline is not a MULTI/EXEC transaction, so two
	// concurrent first requests can both observe no TTL and both call
	// Expire; both set the same window length.
	IncrWithTTL(ctx context.Context, key string) (count int64, ttl time.Duration, err error)
	Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd
}

// redisStore adapts a *redis.Client to store, pipelining the
// Incr+TTL pair via Pipeline().
type redisStore struct {
	client *redis.Client
}

func (r *redisStore) IncrWithTTL(ctx context.Context, key string) (int64, time.Duration, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

func (r *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	return r.client.Expire(ctx, key, ttl)
}

// Limiter checks and applies a fixed-window rate limit per principal.
// The principal is whatever string the caller passes; ingest.PostVote
// passes the verified user identifier and has no source-IP fallback.
type Limiter struct {
	store       store
	keyPrefix   string
	maxRequests int
	window      time.Duration
}

// New builds a Limiter over a live Redis client. client may be shared
// with other Redis-backed components (results cache, counters) since
// they use disjoint key prefixes.
func New(client *redis.Client, keyPrefix string, maxRequests int, window time.Duration) *Limiter {
	return newWithStore(&redisStore{client: client}, keyPrefix, maxRequests, window)
}

func newWithStore(s store, keyPrefix string, maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		store:       s,
		keyPrefix:   keyPrefix,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Allow reports whether principal is still within its window. On any
// Redis error it returns allowed=true, failedOpen=true — fail-open, the same
// decision cache_service.py's is_rate_limited makes, and the fail-open
// cell of spec.md section 7's error table for this component. The
// caller is expected to log the near-miss itself if it wants
// visibility into a degraded limiter.
func (l *Limiter) Allow(ctx context.Context, principal string) (allowed bool, failedOpen bool) {
	key := l.keyPrefix + principal

	count, ttl, err := l.store.IncrWithTTL(ctx, key)
	if err != nil {
		return true, true
	}

	if ttl < 0 {
		// First request in this window (key has no expiry yet); arm it.
		// A failure here only affects memory (the key never expires
		// until a later write resets it), not correctness, so it does
		// not count as a fail-open event.
		l.store.Expire(ctx, key, l.window)
	}

	return count <= int64(l.maxRequests), false
}
