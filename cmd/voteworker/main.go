// Command voteworker runs the materializer: it consumes the durable
// vote queue, casts each vote into Postgres and advances the Redis
// candidate_votes hash GET /results reads from. No HTTP edge — the
// server.Server it builds runs daemons only.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/caasmo/votecore/broker"
	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/log"
	"github.com/caasmo/votecore/materialize"
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
	banner := log.NewMessageFormatter().WithComponent("voteworker", "🗳️")
	logger.Info(banner.Start("booting vote materializer"))

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

	handler := materialize.New(configProvider, pgStore, redisClient, logger)
	consumer := broker.NewConsumer(cfg.Rabbitmq, handler, logger)

	srv := server.New(configProvider, nil, logger)
	srv.AddDaemon(consumer)
	logger.Info(banner.Ok("ready"))
	srv.Run()
}
