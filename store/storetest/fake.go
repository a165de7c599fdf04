// Package storetest provides an in-memory Store double for unit tests
// (materialize's handler tests use it), the same role
// db/mock.go plays for the teacher's db.Db interface.
package storetest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/caasmo/votecore/store"
	"github.com/caasmo/votecore/voteerr"
	"github.com/caasmo/votecore/votecore"
)

// Fake implements store.Store over plain maps, guarded by a mutex so
// tests can exercise the concurrent paths (e.g. broker.Consumer's
// worker pool) without a race.
type Fake struct {
	mu sync.Mutex

	Candidates_ map[uuid.UUID]votecore.Candidate
	votesByKey  map[voteKey]uuid.UUID

	// CastVoteErr, when set, is returned by every CastVote call instead
	// of performing the upsert — lets a test force a transient/persistent
	// failure path.
	CastVoteErr error
}

type voteKey struct {
	user      string
	candidate uuid.UUID
}

// New builds an empty Fake.
func New() *Fake {
	return &Fake{
		Candidates_: map[uuid.UUID]votecore.Candidate{},
		votesByKey:  map[voteKey]uuid.UUID{},
	}
}

// AddCandidate seeds a candidate row.
func (f *Fake) AddCandidate(c votecore.Candidate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Candidates_[c.ID] = c
}

func (f *Fake) CastVote(ctx context.Context, msg votecore.VoteMessage) (store.VoteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CastVoteErr != nil {
		return store.VoteResult{}, f.CastVoteErr
	}

	key := voteKey{user: msg.UserIdentifier, candidate: msg.CandidateID}
	if existing, ok := f.votesByKey[key]; ok {
		return store.VoteResult{Status: votecore.ProcessingProcessed, VoteID: existing, NewVote: false}, nil
	}

	id := uuid.New()
	f.votesByKey[key] = id
	return store.VoteResult{Status: votecore.ProcessingProcessed, VoteID: id, NewVote: true}, nil
}

func (f *Fake) Candidates(ctx context.Context) ([]votecore.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]votecore.Candidate, 0, len(f.Candidates_))
	for _, c := range f.Candidates_ {
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) CountVotes(ctx context.Context) (map[uuid.UUID]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[uuid.UUID]int64)
	for key := range f.votesByKey {
		counts[key.candidate]++
	}
	return counts, nil
}

func (f *Fake) Close() {}

var _ store.Store = (*Fake)(nil)

// ErrTransient and ErrPersistent are convenience sentinels tests can
// assign to Fake.CastVoteErr to exercise the two retry-classification
// branches materialize.Handler must handle.
var (
	ErrTransient = voteerr.ErrDBTransient
	ErrPersistent = voteerr.ErrDBPersistent
)
