package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/voteerr"
	"github.com/caasmo/votecore/votecore"
)

// upsertUserSQL returns the existing user row's id if one already
// carries this user_identifier, or creates one — reproducing
// db_handler.py's "dummy update to return existing row" upsert
// verbatim, translated from SQLAlchemy's text() to pgx's positional
// placeholders.
const upsertUserSQL = `
INSERT INTO users (id, user_identifier)
VALUES (gen_random_uuid(), $1)
ON CONFLICT (user_identifier)
DO UPDATE SET user_identifier = users.user_identifier
RETURNING id`

// insertVoteSQL relies on the uq_votes_user_candidate unique
// constraint to make duplicate detection atomic: a conflicting insert
// returns no row rather than raising, so the caller tells a fresh vote
// from a duplicate by whether RETURNING produced a row.
const insertVoteSQL = `
INSERT INTO votes (id, user_id, candidate_id, vote_timestamp, source_ip, user_agent, is_valid, processing_status)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, TRUE, $6)
ON CONFLICT ON CONSTRAINT uq_votes_user_candidate
DO NOTHING
RETURNING id`

// PGStore is the pgx/v5-backed Store implementation.
type PGStore struct {
	pool       *pgxpool.Pool
	maxRetries int
	minWait    time.Duration
	maxWait    time.Duration
}

// Open connects a pooled Postgres client per cfg and returns a ready
// PGStore. Retry parameters (attempt count, exponential backoff range)
// are grounded on db_handler.py's tenacity decorator
// (stop_after_attempt(5), wait_random_exponential(min=1, max=10)).
func Open(ctx context.Context, cfg config.Postgres) (*PGStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &PGStore{
		pool:       pool,
		maxRetries: cfg.MaxRetries,
		minWait:    cfg.RetryMinWait,
		maxWait:    cfg.RetryMaxWait,
	}, nil
}

// Close releases the pool.
func (s *PGStore) Close() { s.pool.Close() }

// CastVote runs the user-upsert-then-vote-insert sequence inside a
// single transaction, retrying the whole transaction on a transient
// error per the teacher's tenacity-equivalent backoff. A constraint
// violation other than the expected duplicate conflict (e.g. a
// candidate_id with no matching candidates row, which the votes
// foreign key rejects) is classified persistent and never retried, matching
// db_handler.py's IntegrityError-vs-SQLAlchemyError split.
func (s *PGStore) CastVote(ctx context.Context, msg votecore.VoteMessage) (VoteResult, error) {
	var result VoteResult
	wait := s.minWait

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		result, lastErr = s.castVoteOnce(ctx, msg)
		if lastErr == nil {
			return result, nil
		}
		if errors.Is(lastErr, voteerr.ErrDBPersistent) {
			return VoteResult{}, lastErr
		}
		if attempt == s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return VoteResult{}, ctx.Err()
		case <-time.After(jittered(wait)):
		}
		wait *= 2
		if wait > s.maxWait {
			wait = s.maxWait
		}
	}
	return VoteResult{}, fmt.Errorf("%w: %v", voteerr.ErrDBTransient, lastErr)
}

// jittered returns a random duration in [d/2, d), the "equal jitter"
// variant of db_handler.py's wait_random_exponential: it keeps the
// exponential progression d follows but stops concurrent retrying
// transactions from all waking on the same tick and retrying in
// lockstep.
func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + rand.N(d-half)
}

func (s *PGStore) castVoteOnce(ctx context.Context, msg votecore.VoteMessage) (VoteResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return VoteResult{}, classify(err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	if err := tx.QueryRow(ctx, upsertUserSQL, msg.UserIdentifier).Scan(&userID); err != nil {
		return VoteResult{}, classify(err)
	}

	var voteID uuid.UUID
	err = tx.QueryRow(ctx, insertVoteSQL,
		userID, msg.CandidateID, msg.VoteTimestamp, msg.SourceIP, msg.UserAgent,
		votecore.ProcessingProcessed,
	).Scan(&voteID)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// ON CONFLICT DO NOTHING fired: a duplicate, not a failure.
		if err := tx.Commit(ctx); err != nil {
			return VoteResult{}, classify(err)
		}
		return VoteResult{Status: votecore.ProcessingProcessed, NewVote: false}, nil
	case err != nil:
		return VoteResult{}, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return VoteResult{}, classify(err)
	}
	return VoteResult{Status: votecore.ProcessingProcessed, VoteID: voteID, NewVote: true}, nil
}

// Candidates lists every candidate.
func (s *PGStore) Candidates(ctx context.Context) ([]votecore.Candidate, error) {
	const q = `SELECT id, name, description, created, updated FROM candidates ORDER BY name`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []votecore.Candidate
	for rows.Next() {
		var c votecore.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Created, &c.Updated); err != nil {
			return nil, classify(err)
		}
		out = append(out, c)
	}
	return out, classify(rows.Err())
}

// CountVotes returns the authoritative per-candidate vote count,
// straight from COUNT(*) — this is the value cmd/votereconcile trusts
// over the Redis counters when the two disagree.
func (s *PGStore) CountVotes(ctx context.Context) (map[uuid.UUID]int64, error) {
	const q = `SELECT candidate_id, COUNT(*) FROM votes WHERE is_valid GROUP BY candidate_id`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, classify(err)
		}
		counts[id] = n
	}
	return counts, classify(rows.Err())
}

// classify maps a pgx/pgconn error to voteerr.ErrDBTransient or
// voteerr.ErrDBPersistent, the same transient-vs-persistent split
// db_handler.py draws between SQLAlchemyError (retry) and
// IntegrityError (re-raise, no retry). Connection failures and
// serialization/deadlock errors are transient; constraint violations
// (SQLSTATE class 23) other than the duplicate-vote case handled above,
// schema errors (class 42) and invalid input text are persistent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", voteerr.ErrDBTransient, err)
		case "23502", "23503", "22P02": // not_null_violation, fk_violation, invalid_text_representation
			return fmt.Errorf("%w: %v", voteerr.ErrDBPersistent, err)
		}
		if strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "42") {
			return fmt.Errorf("%w: %v", voteerr.ErrDBPersistent, err)
		}
	}
	return fmt.Errorf("%w: %v", voteerr.ErrDBTransient, err)
}
