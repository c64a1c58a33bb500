package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const RequestIDHeader = "X-Request-Id"

// AccessLog wraps next so that every request gets a request id and produces one
// compact line: method, url, status, response size and latency.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().Msgf(
			"%s %s %d %d - %.3f ms",
			r.Method,
			r.URL.RequestURI(),
			status,
			size,
			float64(duration.Microseconds())/1000,
		)
	})
	return func(next http.Handler) http.Handler {
		return hlog.NewHandler(logger)(requestID(access(next)))
	}
}

// requestID reuses an inbound X-Request-Id or mints one, echoes it on the
// response and attaches it to the request logger.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("req_id", id)
		})
		next.ServeHTTP(w, r)
	})
}
