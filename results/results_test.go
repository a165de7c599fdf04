package results

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/voteerr"
	"github.com/caasmo/votecore/votecore"
)

type fakeCandidates struct {
	list []votecore.Candidate
	err  error
}

func (f fakeCandidates) Candidates(ctx context.Context) ([]votecore.Candidate, error) {
	return f.list, f.err
}

type fakeRedis struct {
	blob        string
	blobExists  bool
	getErr      error
	setBody     string
	setErr      error
	hash        map[string]string
	hgetAllErr  error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	if !f.blobExists {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(f.blob)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		f.setBody = string(v)
	case string:
		f.setBody = v
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	cmd := redis.NewMapStringStringCmd(ctx)
	if f.hgetAllErr != nil {
		cmd.SetErr(f.hgetAllErr)
		return cmd
	}
	cmd.SetVal(f.hash)
	return cmd
}

func testService(t *testing.T, candidates fakeCandidates, redis *fakeRedis) *Service {
	t.Helper()
	cfg := config.Default()
	provider := config.NewProvider(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Service{configProvider: provider, candidates: candidates, cache: redis, counters: redis, logger: logger}
}

func TestQueryComputesFromCounterHashOnCacheMiss(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	candidates := fakeCandidates{list: []votecore.Candidate{
		{ID: alice, Name: "Alice"},
		{ID: bob, Name: "Bob"},
	}}
	redisFake := &fakeRedis{hash: map[string]string{alice.String(): "10", bob.String(): "25"}}

	s := testService(t, candidates, redisFake)
	resp, err := s.Query(context.Background(), nil, 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Name != "Bob" || resp.Results[0].VoteCount != 25 {
		t.Errorf("expected Bob (25 votes) first, got %+v", resp.Results[0])
	}
}

func TestQueryFiltersByCandidateID(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	candidates := fakeCandidates{list: []votecore.Candidate{{ID: alice, Name: "Alice"}, {ID: bob, Name: "Bob"}}}
	redisFake := &fakeRedis{hash: map[string]string{alice.String(): "10", bob.String(): "25"}}

	s := testService(t, candidates, redisFake)
	resp, err := s.Query(context.Background(), &alice, 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].CandidateID != alice {
		t.Fatalf("expected only alice's result, got %+v", resp.Results)
	}
}

func TestQueryUsesCacheWhenPresent(t *testing.T) {
	cached := Response{Results: []CandidateResult{{CandidateID: uuid.New(), Name: "Cached", VoteCount: 99}}}
	body, _ := json.Marshal(cached)
	redisFake := &fakeRedis{blobExists: true, blob: string(body)}

	s := testService(t, fakeCandidates{}, redisFake)
	resp, err := s.Query(context.Background(), nil, 1, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Name != "Cached" {
		t.Fatalf("expected cached result to be served, got %+v", resp.Results)
	}
}

func TestQueryRefillsCacheOnLargeUnfilteredFirstPage(t *testing.T) {
	alice := uuid.New()
	candidates := fakeCandidates{list: []votecore.Candidate{{ID: alice, Name: "Alice"}}}
	redisFake := &fakeRedis{hash: map[string]string{alice.String(): "5"}}

	s := testService(t, candidates, redisFake)
	cfg := s.configProvider.Get()
	if _, err := s.Query(context.Background(), nil, 1, cfg.ResultsCache.MinLimitForFullCache+1); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if redisFake.setBody == "" {
		t.Error("expected the cache to be refilled on a large unfiltered first-page request")
	}
}

func TestQueryDoesNotRefillCacheForFilteredOrSmallRequests(t *testing.T) {
	alice := uuid.New()
	candidates := fakeCandidates{list: []votecore.Candidate{{ID: alice, Name: "Alice"}}}
	redisFake := &fakeRedis{hash: map[string]string{alice.String(): "5"}}

	s := testService(t, candidates, redisFake)
	if _, err := s.Query(context.Background(), &alice, 1, 100); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if redisFake.setBody != "" {
		t.Error("a candidate-filtered request should not trigger a full-list cache refill")
	}

	cfg := s.configProvider.Get()
	if _, err := s.Query(context.Background(), nil, 1, cfg.ResultsCache.MinLimitForFullCache); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if redisFake.setBody != "" {
		t.Error("an unfiltered request with limit <= MinLimitForFullCache should not trigger a full-list cache refill")
	}
}

func TestQueryReturnsCounterUnavailableOnRedisOutage(t *testing.T) {
	redisFake := &fakeRedis{hgetAllErr: errors.New("connection refused")}
	s := testService(t, fakeCandidates{}, redisFake)

	_, err := s.Query(context.Background(), nil, 1, 10)
	if err == nil {
		t.Fatal("expected an error when the counter hash is unreadable")
	}
	if !errors.Is(err, voteerr.ErrCounterUnavailable) {
		t.Errorf("err = %v, want ErrCounterUnavailable", err)
	}
}
