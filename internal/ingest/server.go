package ingest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracewell-io/tracewell/internal/middleware"
	"github.com/tracewell-io/tracewell/internal/queue"
)

// ingestRateLimit bounds ingest traffic per source IP; a single misbehaving
// SDK client shouldn't be able to starve the queue for other callers.
const (
	ingestRateLimitRequests = 200
	ingestRateLimitWindow   = time.Second
)

// NewRouter builds the ingestd HTTP surface, grounded on the teacher's
// chi_router.go global-middleware-then-routes layout.
func NewRouter(q queue.Adapter) http.Handler {
	h := NewHandler(q)
	limiter := middleware.NewRateLimiter(ingestRateLimitRequests, ingestRateLimitWindow)

	r := chi.NewRouter()
	r.Use(middleware.Adapt(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","timestamp":%q}`, time.Now().UTC().Format(time.RFC3339))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.With(
		middleware.Adapt(middleware.Prometheus("ingest")),
		middleware.RateLimit(limiter),
	).Post("/ingest", h.Ingest)

	return r
}
