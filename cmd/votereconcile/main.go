// Command votereconcile runs the drift-correction daemon that
// periodically overwrites the Redis candidate_votes hash with the
// Postgres-authoritative per-candidate count. No HTTP edge.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/log"
	"github.com/caasmo/votecore/reconcile"
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
	banner := log.NewMessageFormatter().WithComponent("votereconcile", "🔄")
	logger.Info(banner.Start("booting counter reconciler"))

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

	reconciler := reconcile.New(configProvider, pgStore, redisClient, logger)

	srv := server.New(configProvider, nil, logger)
	srv.AddDaemon(reconciler)
	logger.Info(banner.Ok("ready"))
	srv.Run()
}
