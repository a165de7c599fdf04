// Package store is the Postgres persistence layer: the idempotent
// user/vote upsert the materializer calls for every delivery, and the
// candidate/count reads the results service and reconciler call.
// Grounded on original_source/workers/db_handler.py's
// execute_transaction (exact upsert SQL, retry shape) and on the
// teacher's db.Db convention of a small interface in front of the
// concrete client so callers can be tested against a fake.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/caasmo/votecore/votecore"
)

// VoteResult reports what execute against a single vote casting
// produced: a newly processed vote, a detected duplicate (spec.md
// invariant I5 — acked, not an error), or an error.
type VoteResult struct {
	Status  votecore.ProcessingStatus
	VoteID  uuid.UUID
	NewVote bool
}

// CandidateCount pairs a candidate with its current tally. No Store
// method returns it; results and reconcile use their own shapes.
type CandidateCount struct {
	Candidate votecore.Candidate
	Count     int64
}

// Store is the subset of persistence operations the pipeline needs.
// Kept narrow and interface-shaped the same way db.Db is in the
// teacher, so tests can run against storetest.Fake (as materialize's
// do) or a narrower in-package fake instead of a live Postgres instance.
type Store interface {
	// CastVote upserts the user by UserIdentifier and inserts the vote,
	// relying on the (user_id, candidate_id) unique constraint to
	// detect duplicates atomically (no read-then-write race).
	CastVote(ctx context.Context, msg votecore.VoteMessage) (VoteResult, error)

	// Candidates lists all candidates, for the results service to join
	// names onto counts.
	Candidates(ctx context.Context) ([]votecore.Candidate, error)

	// CountVotes returns the authoritative COUNT(*) of valid votes per
	// candidate directly from the votes table, bypassing any cache —
	// the source of truth cmd/votereconcile reconciles the Redis
	// counters against.
	CountVotes(ctx context.Context) (map[uuid.UUID]int64, error)

	Close()
}
