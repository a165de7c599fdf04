// Package materialize is the consumer-side delivery handler that turns
// a queued votecore.VoteMessage into a durable vote row and a Redis
// counter increment. Grounded on
// original_source/workers/message_consumer.py's on_message (decode,
// call the DB handler, HINCRBY on a newly processed vote, settle
// accordingly) and on db_handler.py's execute_transaction for the
// processed/duplicate/failed outcomes it branches on.
package materialize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/caasmo/votecore/broker"
	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/store"
	"github.com/caasmo/votecore/voteerr"
	"github.com/caasmo/votecore/votecore"
)

// caster is the single store.Store method this package calls, kept
// narrow the same way ingest and results narrow their store/broker
// dependencies so handler_test.go can run against storetest.Fake.
type caster interface {
	CastVote(ctx context.Context, msg votecore.VoteMessage) (store.VoteResult, error)
}

// counters is the Redis method needed to increment the per-candidate
// vote-count hash that results.Service reads.
type counters interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
}

// Handler implements broker.DeliveryHandler: it is the only component
// that writes to Postgres and increments the Redis vote-count hash.
type Handler struct {
	configProvider *config.Provider
	store          caster
	counters       counters
	logger         *slog.Logger
}

// New builds a Handler over a live store.Store and Redis client.
func New(configProvider *config.Provider, st caster, redisClient *redis.Client, logger *slog.Logger) *Handler {
	return &Handler{configProvider: configProvider, store: st, counters: redisClient, logger: logger}
}

var _ broker.DeliveryHandler = (*Handler)(nil)

// Handle decodes body into a votecore.VoteMessage, casts the vote, and
// reports how the consumer should settle the delivery. A body that
// does not decode, or lacks candidate_id or user_identifier, rejects
// straight to the DLQ. store.Store.CastVote already
// exhausts its own exponential-backoff retry loop before ever
// returning voteerr.ErrDBTransient, so by the time Handle sees one
// there is nothing left to gain from a broker-level requeue — it
// rejects to the DLQ exactly like a persistent error, matching
// spec.md section 4.5's "transient failure raised after materializer's
// own retries rejects without requeue" (requeue-in-place would just
// retrigger the same five attempts in a tight loop against a database
// that is still down). A newly processed vote increments the Redis
// counter (fail-soft — a Redis outage here never blocks the ack,
// matching message_consumer.py's explicit "do NOT NACK just because
// Redis failed" comment) before being acked. A detected duplicate is
// acked without touching the counter.
func (h *Handler) Handle(ctx context.Context, body []byte) broker.Outcome {
	var msg votecore.VoteMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		wrapped := fmt.Errorf("%w: %v", voteerr.ErrBadMessage, err)
		h.logger.Error("materialize: malformed vote message, rejecting to DLQ", "err", wrapped)
		return broker.OutcomeRejectNoRequeue
	}
	if msg.CandidateID == uuid.Nil || msg.UserIdentifier == "" {
		wrapped := fmt.Errorf("%w: candidate_id and user_identifier are required", voteerr.ErrBadMessage)
		h.logger.Error("materialize: incomplete vote message, rejecting to DLQ", "err", wrapped)
		return broker.OutcomeRejectNoRequeue
	}

	result, err := h.store.CastVote(ctx, msg)
	if err != nil {
		switch {
		case errors.Is(err, voteerr.ErrDBTransient):
			h.logger.Error("materialize: transient database error survived retries, rejecting to DLQ", "err", err)
			return broker.OutcomeRejectNoRequeue
		case errors.Is(err, voteerr.ErrDBPersistent):
			h.logger.Error("materialize: persistent database error, rejecting to DLQ", "err", err)
			return broker.OutcomeRejectNoRequeue
		default:
			h.logger.Error("materialize: unexpected error casting vote, rejecting to DLQ", "err", err)
			return broker.OutcomeRejectNoRequeue
		}
	}

	if result.NewVote {
		h.incrementCounter(ctx, msg)
	} else {
		h.logger.Info("materialize: duplicate vote acked", "candidate_id", msg.CandidateID, "user_identifier", msg.UserIdentifier)
	}

	return broker.OutcomeAck
}

func (h *Handler) incrementCounter(ctx context.Context, msg votecore.VoteMessage) {
	key := h.configProvider.Get().Redis.CandidateVotesKey
	if _, err := h.counters.HIncrBy(ctx, key, msg.CandidateID.String(), 1).Result(); err != nil {
		h.logger.Error("materialize: counter increment failed, vote recorded in database", "candidate_id", msg.CandidateID, "err", err)
		return
	}
	h.logger.Info("materialize: vote processed", "candidate_id", msg.CandidateID)
}
