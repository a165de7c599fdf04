package ingest

import (
	"encoding/json"
	"net/http"
	"time"
)

// Wire schemas, field-for-field from original_source/api/models/schemas.py.
type (
	// votePayload is the POST /vote request body.
	votePayload struct {
		CandidateID string `json:"candidate_id"`
		UserToken   string `json:"user_token"`
	}

	// voteResponse is the POST /vote 202 body.
	voteResponse struct {
		Status    string    `json:"status"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}

	// errorResponse is the body for every non-2xx response.
	errorResponse struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
		Details   string `json:"details,omitempty"`
	}

	// tokenResponse is the POST /auth/{provider} 200 body.
	tokenResponse struct {
		Token string `json:"token"`
	}
)

var jsonHeaders = map[string]string{
	"Content-Type":           "application/json; charset=utf-8",
	"X-Content-Type-Options": "nosniff",
	"Cache-Control":          "no-store, no-cache, must-revalidate",
}

func setJSONHeaders(w http.ResponseWriter) {
	for k, v := range jsonHeaders {
		w.Header()[k] = []string{v}
	}
}

// Error codes, named the same way core/response.go names its Code*
// constants.
const (
	codeInvalidRequest      = "invalid_input"
	codeInvalidCandidate    = "invalid_candidate"
	codeAuthInvalid         = "invalid_token"
	codeRateLimited         = "too_many_requests"
	codeQueueUnavailable    = "service_unavailable"
	codeInternal            = "internal_error"
	codeInvalidProvider     = "invalid_oauth2_provider"
	codeResultsUnavailable  = "results_unavailable"
)

// writeError writes a precomputed-shape JSON error response. Unlike
// core/response.go's fully precomputed bytes (fixed message, no
// per-request data), these bodies carry a details string that varies
// per request, so they are marshaled per call rather than cached —
// the one-time cost of an error path is an acceptable trade for that
// flexibility.
func writeError(w http.ResponseWriter, status int, code, message, details string) {
	setJSONHeaders(w)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{ErrorCode: code, Message: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	setJSONHeaders(w)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeVoteAccepted(w http.ResponseWriter, now time.Time) {
	writeJSON(w, http.StatusAccepted, voteResponse{
		Status:    "accepted",
		Message:   "Vote accepted for processing",
		Timestamp: now,
	})
}

func writeToken(w http.ResponseWriter, token string) {
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
