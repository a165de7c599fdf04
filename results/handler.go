package results

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/caasmo/votecore/voteerr"
)

// errorBody carries the error_code/message fields of ingest's
// errorResponse so both APIs present the same error envelope to
// clients, without results importing ingest. It has no details field;
// ingest omits details when empty, which every ingest error path does.
type errorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{ErrorCode: code, Message: message})
}

// ServeHTTP implements GET /results: candidate_id (optional UUID),
// page (default 1, >=1) and limit (default 100, 1-100), matching the
// validation original_source/api/routers/vote.py's get_results
// performs before calling into the service layer.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var candidateID *uuid.UUID
	if raw := q.Get("candidate_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "candidate_id must be a valid UUID")
			return
		}
		candidateID = &id
	}

	page := parseIntDefault(q.Get("page"), 1)
	if page < 1 {
		writeError(w, http.StatusBadRequest, "invalid_input", "Page number must be 1 or greater.")
		return
	}

	limit := parseIntDefault(q.Get("limit"), 100)
	if limit < 1 || limit > 100 {
		writeError(w, http.StatusBadRequest, "invalid_input", "Limit must be between 1 and 100.")
		return
	}

	resp, err := s.Query(r.Context(), candidateID, page, limit)
	if err != nil {
		if errors.Is(err, voteerr.ErrCounterUnavailable) {
			writeError(w, http.StatusServiceUnavailable,
				"results_unavailable", "Vote results are temporarily unavailable due to data aggregation issues.")
			return
		}
		s.logger.Error("results: query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "An internal server error occurred while fetching results.")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
