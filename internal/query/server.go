package query

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracewell-io/tracewell/internal/analytics"
	"github.com/tracewell-io/tracewell/internal/blobstore"
	"github.com/tracewell-io/tracewell/internal/middleware"
)

// NewRouter builds the queryd HTTP surface (§4.9).
func NewRouter(store *analytics.Store, blobs blobstore.Store) http.Handler {
	h := NewHandler(store, blobs)

	r := chi.NewRouter()
	r.Use(middleware.Adapt(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.Adapt(middleware.Prometheus("runs"))).Get("/runs", h.ListRuns)
	r.With(middleware.Adapt(middleware.Prometheus("run"))).Get("/runs/{id}", h.GetRun)
	r.With(middleware.Adapt(middleware.Prometheus("step_details"))).Get("/steps/{id}/details", h.GetStepDetails)

	return r
}
