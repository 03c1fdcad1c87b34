package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tracewell-io/tracewell/internal/metrics"
)

func TestPrometheus_RecordsDuration(t *testing.T) {
	metrics.QueryRequestDuration.Reset()

	handler := Prometheus("runs")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, 1, testutil.CollectAndCount(metrics.QueryRequestDuration))
}

func TestAdapt_WrapsHandler(t *testing.T) {
	var called bool
	mw := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			called = true
			next(w, r)
		}
	}

	h := Adapt(mw)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, called)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
