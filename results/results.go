// Package results is the read path for GET /results: a Redis-cached,
// Postgres-backed aggregation of per-candidate vote counts. Grounded
// on original_source/api/services/vote_service.py's get_vote_results
// (cache-first, counts-from-Redis-names-from-Postgres fallback,
// conditional cache refill) and cache_service.py's get_results/
// set_results (cache body shape, filter/sort/paginate-after-decode).
package results

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/voteerr"
	"github.com/caasmo/votecore/votecore"
)

// CandidateResult pairs a candidate with its vote count, the shape
// served on the wire.
type CandidateResult struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Name        string    `json:"name"`
	VoteCount   int64     `json:"vote_count"`
}

// Response is the full GET /results body.
type Response struct {
	Results     []CandidateResult `json:"results"`
	LastUpdated time.Time         `json:"last_updated"`
}

// candidateSource is the subset of store.Store this package reads:
// only candidate metadata, never votes directly — counts always come
// from the Redis hash materialize.Handler maintains.
type candidateSource interface {
	Candidates(ctx context.Context) ([]votecore.Candidate, error)
}

// cache is the Redis methods the full-results blob cache needs.
type cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// counters is the Redis method needed to read the materializer's
// per-candidate vote-count hash.
type counters interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Service answers GET /results.
type Service struct {
	configProvider *config.Provider
	candidates     candidateSource
	cache          cache
	counters       counters
	logger         *slog.Logger
}

// New builds a Service over a live Redis client (satisfying both
// cache and counters) and a Store.
func New(configProvider *config.Provider, candidates candidateSource, redisClient *redis.Client, logger *slog.Logger) *Service {
	return &Service{configProvider: configProvider, candidates: candidates, cache: redisClient, counters: redisClient, logger: logger}
}

// Query returns the results view for candidateID (nil for all
// candidates), sorted by vote count descending and paginated
// (page is 1-indexed). It tries the full-results cache first; on a
// miss it recomputes from the Redis counter hash joined with
// candidate names from Postgres, and — per the same heuristic
// get_vote_results uses — refills the cache when the request looks
// like it wants the whole unfiltered list (no candidate filter, first
// page, a limit large enough that the caller is probably a dashboard
// rather than paging through a handful of rows).
func (s *Service) Query(ctx context.Context, candidateID *uuid.UUID, page, limit int) (Response, error) {
	if cached, ok := s.tryCache(ctx, candidateID, page, limit); ok {
		return cached, nil
	}

	full, err := s.computeFull(ctx)
	if err != nil {
		return Response{}, err
	}

	if candidateID == nil && page == 1 && limit > s.configProvider.Get().ResultsCache.MinLimitForFullCache {
		s.refillCache(ctx, full)
	}

	return paginate(full, candidateID, page, limit), nil
}

func (s *Service) tryCache(ctx context.Context, candidateID *uuid.UUID, page, limit int) (Response, bool) {
	key := s.configProvider.Get().Redis.ResultsCacheKey

	raw, err := s.cache.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Response{}, false
	}
	if err != nil {
		s.logger.Warn("results: cache read failed, falling back to live aggregation", "err", err)
		return Response{}, false
	}

	var cached Response
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		s.logger.Warn("results: cache payload corrupt, invalidating", "err", err)
		s.cache.Del(ctx, key)
		return Response{}, false
	}

	return paginate(cached.Results, candidateID, page, limit), true
}

// computeFull rebuilds the unfiltered, unpaginated result set from the
// Redis counter hash joined with Postgres candidate names. It is the
// single source of truth a cache refill or miss falls back to.
func (s *Service) computeFull(ctx context.Context) ([]CandidateResult, error) {
	cfg := s.configProvider.Get()

	counts, err := s.counters.HGetAll(ctx, cfg.Redis.CandidateVotesKey).Result()
	if err != nil {
		return nil, voteerr.ErrCounterUnavailable
	}

	candidates, err := s.candidates.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.Name
	}

	out := make([]CandidateResult, 0, len(counts))
	for idStr, countStr := range counts {
		id, err := uuid.Parse(idStr)
		if err != nil {
			s.logger.Warn("results: invalid candidate id in counter hash", "id", idStr)
			continue
		}
		count, err := strconv.ParseInt(countStr, 10, 64)
		if err != nil {
			s.logger.Warn("results: invalid count in counter hash", "candidate_id", idStr, "value", countStr)
			continue
		}
		name, ok := names[id]
		if !ok {
			name = "Unknown Candidate"
		}
		out = append(out, CandidateResult{CandidateID: id, Name: name, VoteCount: count})
	}

	return out, nil
}

func (s *Service) refillCache(ctx context.Context, full []CandidateResult) {
	cfg := s.configProvider.Get()
	body, err := json.Marshal(Response{Results: full, LastUpdated: time.Now().UTC()})
	if err != nil {
		s.logger.Error("results: marshal cache refill failed", "err", err)
		return
	}
	if err := s.cache.Set(ctx, cfg.Redis.ResultsCacheKey, body, cfg.ResultsCache.TTL).Err(); err != nil {
		s.logger.Warn("results: cache refill failed", "err", err)
	}
}

func paginate(results []CandidateResult, candidateID *uuid.UUID, page, limit int) Response {
	filtered := results
	if candidateID != nil {
		filtered = make([]CandidateResult, 0, 1)
		for _, r := range results {
			if r.CandidateID == *candidateID {
				filtered = append(filtered, r)
			}
		}
	}

	sorted := make([]CandidateResult, len(filtered))
	copy(sorted, filtered)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VoteCount > sorted[j].VoteCount })

	start := (page - 1) * limit
	if start > len(sorted) {
		start = len(sorted)
	}
	end := start + limit
	if end > len(sorted) {
		end = len(sorted)
	}

	return Response{Results: sorted[start:end], LastUpdated: time.Now().UTC()}
}
