package config

import "time"

// Default returns a Config seeded with the same defaults
// original_source/api/core/config.py's Settings class ships,
// translated to Go durations.
func Default() *Config {
	return &Config{
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        2,
			ConnMaxLifetime: 30 * time.Minute,
			MaxRetries:      5,
			RetryMinWait:    time.Second,
			RetryMaxWait:    10 * time.Second,
		},
		Rabbitmq: Rabbitmq{
			QueueName:         "votes",
			DLXExchange:       "vote_dlx",
			DLQQueue:          "vote_dlq",
			PrefetchCount:     10,
			PublishMaxRetries: 3,
			PublishRetryWait:  1 * time.Second,
			ReconnectDelay:    5 * time.Second,
		},
		Redis: Redis{
			ResultsCacheKey:   "voting_results",
			CandidateVotesKey: "candidate_votes",
			RateLimitPrefix:   "rate_limit:",
		},
		Jwt: Jwt{
			Algorithm: "HS256",
		},
		RateLimit: RateLimit{
			MaxRequests: 100,
			Window:      60 * time.Second,
		},
		ResultsCache: ResultsCache{
			TTL:                  60 * time.Second,
			MinLimitForFullCache: 50,
		},
		Worker: Worker{
			ReconnectDelay:   5 * time.Second,
			DBMaxRetries:     5,
			DBRetryMinWait:   1 * time.Second,
			DBRetryMaxWait:   10 * time.Second,
			ReconcileEnabled: true,
			ReconcileEvery:   5 * time.Minute,
		},
		Server: Server{
			Addr:                    ":8080",
			ShutdownGracefulTimeout: 15 * time.Second,
			ReadTimeout:             2 * time.Second,
			ReadHeaderTimeout:       2 * time.Second,
			WriteTimeout:            3 * time.Second,
			IdleTimeout:             1 * time.Minute,
			EnableTestAuth:          false,
		},
		Log: Log{
			Format: "text",
			Level:  "info",
		},
	}
}
