package middleware

import (
	"net/http"
	"time"

	"github.com/tracewell-io/tracewell/internal/metrics"
)

// Prometheus instruments a handler's request duration under the given route
// label, via metrics.QueryRequestDuration (shared by the ingestd and queryd
// routers).
func Prometheus(route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next(w, r)
			metrics.ObserveDuration(metrics.QueryRequestDuration.WithLabelValues(route), start)
		}
	}
}

// Adapt converts a func(http.HandlerFunc) http.HandlerFunc middleware into
// chi's func(http.Handler) http.Handler, so the same middleware can be unit
// tested directly against net/http and wired into chi's r.Use().
func Adapt(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
