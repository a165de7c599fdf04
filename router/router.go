// Package router wraps github.com/julienschmidt/httprouter with a
// thin Get/Post surface and a context-based param accessor, so
// ingest/results handlers read path parameters without importing
// httprouter directly.
package router

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Router registers handlers by method and path pattern.
type Router struct {
	*httprouter.Router
}

// New builds an empty Router.
func New() *Router {
	return &Router{httprouter.New()}
}

func (r *Router) Get(path string, handler http.Handler) {
	r.Handler(http.MethodGet, path, handler)
}

func (r *Router) Post(path string, handler http.Handler) {
	r.Handler(http.MethodPost, path, handler)
}

// Param is one named path parameter, e.g. {Key: "provider", Value: "google"}.
type Param struct {
	Key   string
	Value string
}

// Params is the full set of named parameters matched for a request.
type Params []Param

// ByName returns the value of the first parameter named key, or "" if
// absent — mirrors httprouter.Params.ByName so callers don't need to
// know the underlying router library.
func (p Params) ByName(key string) string {
	for _, v := range p {
		if v.Key == key {
			return v.Value
		}
	}
	return ""
}

// ParamsFromContext extracts the matched path parameters from a
// request's context. Handlers call this instead of reaching into
// httprouter.ParamsKey directly.
func ParamsFromContext(ctx context.Context) Params {
	pms, _ := ctx.Value(httprouter.ParamsKey).(httprouter.Params)

	params := make(Params, 0, len(pms))
	for _, v := range pms {
		params = append(params, Param{Key: v.Key, Value: v.Value})
	}
	return params
}
