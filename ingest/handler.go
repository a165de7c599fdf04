// Package ingest is the vote intake API: POST /vote (authenticate,
// rate-limit, publish to the durable queue, 202 Accepted) and, when
// enabled, POST /auth/{provider} (issue a short-lived test token).
// Grounded on original_source/api/routers/vote.py +
// api/services/vote_service.py's process_vote_request for flow and
// status-code choices, and on the teacher's core/ handler style
// (App-as-receiver, precomputed-shape JSON responses, middleware
// chain) for idiom.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/caasmo/votecore/auth"
	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/voteerr"
	"github.com/caasmo/votecore/votecore"
)

// limiter is the one ratelimit.Limiter method Handler needs.
type limiter interface {
	Allow(ctx context.Context, principal string) (allowed bool, failedOpen bool)
}

// voteBroker is the one broker.Publisher method Handler needs.
type voteBroker interface {
	Publish(ctx context.Context, msg votecore.VoteMessage) error
}

// Handler serves the ingest API's routes. It holds no per-request
// state — every call is independent — matching the teacher's
// App-as-receiver pattern without needing a full App in this binary.
type Handler struct {
	configProvider *config.Provider
	limiter        limiter
	broker         voteBroker
	logger         *slog.Logger
}

// New builds a Handler.
func New(configProvider *config.Provider, limiter limiter, broker voteBroker, logger *slog.Logger) *Handler {
	return &Handler{configProvider: configProvider, limiter: limiter, broker: broker, logger: logger}
}

// PostVote implements POST /vote. Authentication happens before rate
// limiting (an invalid token should never consume rate-limit budget,
// matching decode_user_token raising before is_rate_limited runs in
// process_vote_request).
func (h *Handler) PostVote(w http.ResponseWriter, r *http.Request) {
	var payload votePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "The request body is not valid JSON", "")
		return
	}

	candidateID, err := uuid.Parse(payload.CandidateID)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidCandidate, "candidate_id must be a valid UUID", "")
		return
	}

	cfg := h.configProvider.Get()

	claims, err := auth.VerifyIngest(payload.UserToken, []byte(cfg.Jwt.SecretKey))
	if err != nil {
		h.respondError(w, fmt.Errorf("%w: %v", voteerr.ErrAuthInvalid, err))
		return
	}

	allowed, failedOpen := h.limiter.Allow(r.Context(), claims.UserID)
	if failedOpen {
		h.logger.Warn("ingest: rate limiter failed open", "user_id", claims.UserID)
	}
	if !allowed {
		h.respondError(w, voteerr.ErrRateLimited)
		return
	}

	msg := votecore.VoteMessage{
		CandidateID:    candidateID,
		UserIdentifier: claims.UserID,
		VoteTimestamp:  time.Now().UTC(),
		SourceIP:       sourceIP(r),
		UserAgent:      r.UserAgent(),
	}

	if err := h.broker.Publish(r.Context(), msg); err != nil {
		wrapped := fmt.Errorf("%w: %v", voteerr.ErrPublishUnavailable, err)
		h.logger.Error("ingest: publish failed", "err", wrapped)
		h.respondError(w, wrapped)
		return
	}

	writeVoteAccepted(w, msg.VoteTimestamp)
}

// respondError maps a voteerr sentinel to the HTTP status and body
// process_vote_request returns for the matching FastAPI exception,
// branching with errors.Is per voteerr's own package doc rather than
// threading status codes through each call site.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, voteerr.ErrAuthInvalid):
		writeError(w, http.StatusUnauthorized, codeAuthInvalid, "Could not validate credentials", "")
	case errors.Is(err, voteerr.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, "Too many requests. Please try again later.", "")
	case errors.Is(err, voteerr.ErrPublishUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeQueueUnavailable,
			"Voting system is temporarily unavailable due to messaging queue issues. Please try again.", "")
	default:
		h.logger.Error("ingest: unmapped error", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "An unexpected error occurred", "")
	}
}

func sourceIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// testAuthProviders is the allow-list original_source/api/routers/auth.py
// hard-codes. Kept fixed rather than pulled from config since it is
// test-only scaffolding gated entirely behind Server.EnableTestAuth.
var testAuthProviders = map[string]bool{
	"google":    true,
	"apple":     true,
	"facebook":  true,
	"instagram": true,
}

// PostTestToken implements POST /auth/{provider}: issues a 24h HS256
// token carrying user_identifier "test_user_<provider>", the same
// shape auth_service.py's generate_test_token produces. Registered
// only when Server.EnableTestAuth is set — this has no place in a
// production deployment, only in integration tests and demos that
// need a token without a real OAuth provider.
func (h *Handler) PostTestToken(w http.ResponseWriter, r *http.Request, provider string) {
	if !testAuthProviders[provider] {
		writeError(w, http.StatusBadRequest, codeInvalidProvider,
			"Unsupported auth provider. Supported providers: google, apple, facebook, instagram", "")
		return
	}

	cfg := h.configProvider.Get()
	token, _, err := auth.CreateTestToken("test_user_"+provider, []byte(cfg.Jwt.SecretKey))
	if err != nil {
		h.logger.Error("ingest: test token generation failed", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "Failed to generate authentication token", "")
		return
	}

	writeToken(w, token)
}
