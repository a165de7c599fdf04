// Command voteapi runs the ingest-and-results HTTP edge: POST /vote
// (auth, rate limit, durable publish) and GET /results (cache-first
// tally read). It owns no database writes of its own — those belong
// to cmd/voteworker.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/caasmo/votecore/broker"
	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/ingest"
	"github.com/caasmo/votecore/log"
	"github.com/caasmo/votecore/ratelimit"
	"github.com/caasmo/votecore/results"
	"github.com/caasmo/votecore/router"
	"github.com/caasmo/votecore/server"
	"github.com/caasmo/votecore/store"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Exit(1)
	}
	configProvider := config.NewProvider(cfg)
	logger := log.New(cfg.Log.Format, cfg.Log.Level)
	banner := log.NewMessageFormatter().WithComponent("voteapi", "📨")
	logger.Info(banner.Start("booting ingest and results API"))

	ctx := context.Background()

	pgStore, err := store.Open(ctx, cfg.Postgres)
	if err != nil {
		logger.Error(banner.Fail("failed to open postgres"), "err", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error(banner.Fail("invalid redis url"), "err", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)

	publisher, err := broker.NewPublisher(cfg.Rabbitmq, logger)
	if err != nil {
		logger.Error(banner.Fail("failed to connect to rabbitmq"), "err", err)
		os.Exit(1)
	}

	limiter := ratelimit.New(redisClient, cfg.Redis.RateLimitPrefix, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	resultsService := results.New(configProvider, pgStore, redisClient, logger)
	ingestHandler := ingest.New(configProvider, limiter, publisher, logger)

	r := router.New()
	ingestHandler.RegisterRoutes(r, cfg)
	r.Get(ingest.APIPrefix+"/results", resultsService)

	srv := server.New(configProvider, r, logger)
	srv.AddDaemon(publisher)
	logger.Info(banner.Ok("ready"))
	srv.Run()
}
