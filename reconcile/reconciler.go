// Package reconcile periodically corrects drift between the
// authoritative vote counts in Postgres and the advisory Redis
// candidate_votes hash results.Service reads from. Grounded on the
// teacher's queue/scheduler.Scheduler (ticker-driven Start/Stop, a
// single context canceled on Stop, shutdownDone channel) generalized
// from job-claiming to a fixed reconciliation tick, since this
// component has no per-item work queue to claim from.
package reconcile

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/caasmo/votecore/config"
)

// counter is the subset of store.Store this package needs: the
// authoritative per-candidate tally direct from the votes table.
type counter interface {
	CountVotes(ctx context.Context) (map[uuid.UUID]int64, error)
}

// hashStore is the Redis methods needed to read and correct the
// candidate_votes hash.
type hashStore interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Reconciler is a server.Daemon that ticks on
// config.Worker.ReconcileEvery and overwrites every drifted Redis
// counter field with the Postgres-authoritative count.
type Reconciler struct {
	configProvider *config.Provider
	store          counter
	redis          hashStore
	logger         *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Reconciler over a live store.Store and Redis client.
func New(configProvider *config.Provider, st counter, redisClient *redis.Client, logger *slog.Logger) *Reconciler {
	return &Reconciler{configProvider: configProvider, store: st, redis: redisClient, logger: logger}
}

// Name implements server.Daemon.
func (r *Reconciler) Name() string { return "reconcile.reconciler" }

// Start implements server.Daemon. It is a no-op — and never ticks —
// when config.Worker.ReconcileEnabled is false, so a deployment can
// disable the background sweep without removing it from the binary.
func (r *Reconciler) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	if !r.configProvider.Get().Worker.ReconcileEnabled {
		r.logger.Info("reconcile: disabled, reconciler will not tick")
		close(r.done)
		return nil
	}

	go r.run(ctx)
	return nil
}

// Stop implements server.Daemon.
func (r *Reconciler) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	interval := r.configProvider.Get().Worker.ReconcileEvery
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick reads the authoritative counts, compares them against the
// Redis hash, and HSETs every field whose cached value has drifted.
// A candidate with zero authoritative votes but no existing Redis
// field is left untouched rather than seeded with a zero — it only
// needs correcting once the materializer has written something for
// it to disagree with.
func (r *Reconciler) tick(ctx context.Context) {
	authoritative, err := r.store.CountVotes(ctx)
	if err != nil {
		r.logger.Error("reconcile: failed to read authoritative vote counts", "err", err)
		return
	}

	key := r.configProvider.Get().Redis.CandidateVotesKey
	cached, err := r.redis.HGetAll(ctx, key).Result()
	if err != nil {
		r.logger.Error("reconcile: failed to read cached vote counts", "err", err)
		return
	}

	var corrected int
	for id, count := range authoritative {
		field := id.String()
		cachedStr, ok := cached[field]
		if ok && cachedStr == formatCount(count) {
			continue
		}
		if err := r.redis.HSet(ctx, key, field, count).Err(); err != nil {
			r.logger.Error("reconcile: failed to correct counter", "candidate_id", id, "err", err)
			continue
		}
		corrected++
	}

	// Fields for candidates with no valid votes in Postgres do not
	// appear in authoritative; their correct count is zero.
	for field, cachedStr := range cached {
		id, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		if _, ok := authoritative[id]; ok || cachedStr == "0" {
			continue
		}
		if err := r.redis.HSet(ctx, key, field, int64(0)).Err(); err != nil {
			r.logger.Error("reconcile: failed to correct counter", "candidate_id", id, "err", err)
			continue
		}
		corrected++
	}

	if corrected > 0 {
		r.logger.Warn("reconcile: corrected drifted vote counters", "count", corrected)
	}
}

func formatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}
