package server

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Route is a single handler together with where and how it is mounted.
type Route interface {
	http.Handler

	// Pattern reports the path at which this is registered.
	Pattern() string
	Method() string
}

// NewRouter mounts every route under a method-qualified pattern ("GET /api/following").
// The mux then answers HEAD on GET routes and replies 405 with an Allow header when the
// path matches but the method does not.
func NewRouter(
	routes []Route,
	logger *zerolog.Logger,
) http.Handler {
	router := http.NewServeMux()
	for _, route := range routes {
		pattern := route.Method() + " " + route.Pattern()
		logger.Info().Msgf("Registering route: %s", pattern)
		router.Handle(pattern, route)
	}

	return router
}

type basicRoute struct {
	method  string
	pattern string
	fn      http.HandlerFunc
}

func NewBasicRoute(method, pattern string, fn http.HandlerFunc) Route {
	return &basicRoute{
		method, pattern, fn,
	}
}

func (r *basicRoute) Method() string {
	return r.method
}

func (r *basicRoute) Pattern() string {
	return r.pattern
}

func (r *basicRoute) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.fn(w, req)
}
