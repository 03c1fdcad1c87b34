package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tracewell-io/tracewell/internal/analytics"
	"github.com/tracewell-io/tracewell/internal/blobstore"
)

func newTestHandler(t *testing.T) (http.Handler, *analytics.Store, *blobstore.FS) {
	t.Helper()
	store, err := analytics.Open(filepath.Join(t.TempDir(), "test.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobs, err := blobstore.NewFS(t.TempDir())
	require.NoError(t, err)

	return NewRouter(store, blobs), store, blobs
}

func seedRun(t *testing.T, store *analytics.Store, runID string, ratio float64, status string) {
	t.Helper()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertRun(context.Background(), analytics.RunRow{
		RunID: runID, PipelineID: "p1", Status: status, StartedAt: now,
		OverallEliminationRatio: ratio, UpdatedAt: now,
	}))
}

func TestListRuns_ReturnsSeededRuns(t *testing.T) {
	h, store, _ := newTestHandler(t)
	seedRun(t, store, "r1", 0.5, "completed")
	seedRun(t, store, "r2", 0.9, "failed")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "r1")
	require.Contains(t, rec.Body.String(), "r2")
}

func TestListRuns_BadFilter(t *testing.T) {
	h, store, _ := newTestHandler(t)
	seedRun(t, store, "good", 0.2, "completed")
	seedRun(t, store, "bad", 0.9, "completed")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?bad_filter=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bad")
	require.NotContains(t, rec.Body.String(), `"runId":"good"`)
}

func TestGetRun_NotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRun_IncludesSteps(t *testing.T) {
	h, store, _ := newTestHandler(t)
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	seedRun(t, store, "r1", 0.5, "completed")
	require.NoError(t, store.UpsertStep(context.Background(), analytics.StepRow{
		StepID: "s1", RunID: "r1", Type: "filter", Name: "f", StartedAt: now, UpdatedAt: now,
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/r1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "s1")
}

func TestGetStepDetails_WithDecisionEvents(t *testing.T) {
	h, store, _ := newTestHandler(t)
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertStep(context.Background(), analytics.StepRow{
		StepID: "s1", RunID: "r1", Type: "filter", Name: "f", StartedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.InsertDecisionEvent(context.Background(), analytics.DecisionEventRow{
		RunID: "r1", StepID: "s1", Timestamp: now, EventID: "e1", Outcome: "kept", ItemID: "a",
		BlobKey: "decisions/2026/03/05/e1.json", UpdatedAt: now,
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/steps/s1/details", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "e1")
	require.NotContains(t, rec.Body.String(), `"raw"`)
}

func TestGetStepDetails_IncludeRawHydratesBlob(t *testing.T) {
	h, store, blobs := newTestHandler(t)
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertStep(context.Background(), analytics.StepRow{
		StepID: "s1", RunID: "r1", Type: "filter", Name: "f", StartedAt: now, UpdatedAt: now,
	}))
	key := "decisions/2026/03/05/e1.json"
	require.NoError(t, blobs.Put(context.Background(), key, []byte(`{"eventId":"e1"}`), blobstore.Metadata{EventID: "e1"}))
	require.NoError(t, store.InsertDecisionEvent(context.Background(), analytics.DecisionEventRow{
		RunID: "r1", StepID: "s1", Timestamp: now, EventID: "e1", Outcome: "kept", ItemID: "a",
		BlobKey: key, UpdatedAt: now,
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/steps/s1/details?include_raw=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"raw"`)
}

func TestListRuns_CachesWithinTTL(t *testing.T) {
	h, store, _ := newTestHandler(t)
	seedRun(t, store, "r1", 0.5, "completed")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Contains(t, rec.Body.String(), "r1")

	seedRun(t, store, "r2", 0.3, "completed")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Contains(t, rec.Body.String(), "r1")
	require.NotContains(t, rec.Body.String(), "r2")
}
