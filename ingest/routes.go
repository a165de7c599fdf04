package ingest

import (
	"net/http"
	"time"

	"github.com/caasmo/votecore/config"
	"github.com/caasmo/votecore/router"
)

// APIPrefix is the versioned mount point spec.md section 6 puts every
// ingest/results route under.
const APIPrefix = "/api/v1"

// RegisterRoutes wires this Handler's routes onto r, composing each
// one through a router.Chain so every ingest endpoint gets the same
// request-logging middleware applied in the same order. POST /auth/*
// is only registered when cfg.Server.EnableTestAuth is set — it has
// no place in a production deployment.
func (h *Handler) RegisterRoutes(r *router.Router, cfg *config.Config) {
	voteChain := router.NewChain(http.HandlerFunc(h.PostVote)).
		WithMiddleware(h.requestLogger)
	r.Post(APIPrefix+"/vote", voteChain.Handler())

	if cfg.Server.EnableTestAuth {
		authChain := router.NewChain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			provider := router.ParamsFromContext(req.Context()).ByName("provider")
			h.PostTestToken(w, req, provider)
		})).WithMiddleware(h.requestLogger)
		r.Post(APIPrefix+"/auth/:provider", authChain.Handler())
	}
}

// requestLogger logs method, path and latency for every request,
// adapted from the teacher's core/middleware.go Logger middleware
// onto structured slog output instead of the standard log package.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Info("ingest: request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
