// Package query implements the read-side HTTP API (C10): run and step
// lookups over the analytical store, with opt-in blob hydration. Default
// responses never touch the blob store (§4.9).
package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tracewell-io/tracewell/internal/analytics"
	"github.com/tracewell-io/tracewell/internal/blobstore"
	"github.com/tracewell-io/tracewell/internal/cache"
	"github.com/tracewell-io/tracewell/internal/httpapi"
	"github.com/tracewell-io/tracewell/internal/logging"
)

// listRunsCacheTTL bounds how stale a cached run listing may be; workerd
// writes runs continuously, so a short TTL trades a little freshness for
// materially fewer DuckDB scans under list-heavy traffic.
const listRunsCacheTTL = 30 * time.Second

// Handler serves the query API's HTTP surface.
type Handler struct {
	store *analytics.Store
	blobs blobstore.Store

	listCache *cache.Cache
}

// NewHandler constructs a Handler over the given analytical store and blob
// store (used only when a request opts into raw hydration).
func NewHandler(store *analytics.Store, blobs blobstore.Store) *Handler {
	return &Handler{store: store, blobs: blobs, listCache: cache.New(listRunsCacheTTL)}
}

// ListRuns handles GET /runs?bad_filter=&limit=&offset= (§4.9).
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	rw := httpapi.NewWriter(w, r)
	q := r.URL.Query()

	badFilter := q.Get("bad_filter") == "true"
	limit := queryInt(q, "limit", 50)
	offset := queryInt(q, "offset", 0)

	cacheKey := fmt.Sprintf("runs:bad_filter=%t:limit=%d:offset=%d", badFilter, limit, offset)
	if cached, ok := h.listCache.Get(cacheKey); ok {
		page := cached.(runsPage)
		rw.SuccessWithMeta(page.Runs, &httpapi.Meta{Count: page.Count})
		return
	}

	runs, err := h.store.ListRuns(rw.Context(), badFilter, limit, offset)
	if err != nil {
		rw.InternalError("failed to list runs")
		return
	}
	page := runsPage{Runs: runSummaries(runs), Count: len(runs)}
	h.listCache.Set(cacheKey, page)
	rw.SuccessWithMeta(page.Runs, &httpapi.Meta{Count: page.Count})
}

// runsPage is the cached unit for ListRuns: the rendered summaries plus the
// count metadata, so a cache hit skips both the store query and re-rendering.
type runsPage struct {
	Runs  []runView
	Count int
}

// GetRun handles GET /runs/:id[?include_raw=] (§4.9).
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rw := httpapi.NewWriter(w, r)
	ctx := rw.Context()
	runID := chi.URLParam(r, "id")

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		rw.NotFound("run not found")
		return
	}
	steps, err := h.store.ListStepsByRun(ctx, runID)
	if err != nil {
		rw.InternalError("failed to list steps")
		return
	}

	resp := map[string]interface{}{
		"run":   runSummary(run),
		"steps": stepSummaries(steps),
	}
	if includeRaw(r) {
		if raw, ok := h.fetchRaw(ctx, blobstore.RunKey(run.RunID, run.StartedAt)); ok {
			resp["raw"] = raw
		}
	}
	rw.Success(resp)
}

// GetStepDetails handles GET /steps/:id/details[?include_raw=&decision_limit=] (§4.9).
func (h *Handler) GetStepDetails(w http.ResponseWriter, r *http.Request) {
	rw := httpapi.NewWriter(w, r)
	ctx := rw.Context()
	stepID := chi.URLParam(r, "id")

	step, err := h.store.GetStep(ctx, stepID)
	if err != nil {
		rw.NotFound("step not found")
		return
	}

	limit := queryInt(r.URL.Query(), "decision_limit", 100)
	events, err := h.store.ListDecisionEventsByStep(ctx, stepID, limit)
	if err != nil {
		rw.InternalError("failed to list decision events")
		return
	}

	refs := decisionEventRefs(events)
	if includeRaw(r) {
		h.hydrateDecisionEvents(ctx, refs)
	}

	rw.Success(map[string]interface{}{
		"step":           stepSummary(step),
		"decisionEvents": refs,
	})
}

// fetchRaw returns the decoded blob payload for key, logging and omitting
// the field on a miss rather than failing the request (§4.9 "missing blobs
// degrade gracefully").
func (h *Handler) fetchRaw(ctx context.Context, key string) (interface{}, bool) {
	data, err := h.blobs.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("blob fetch failed")
		}
		return nil, false
	}
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("blob payload malformed")
		return nil, false
	}
	return payload, true
}

// hydrateDecisionEvents attaches the fetched blob payload to each reference
// whose blob is still present, leaving the field absent otherwise.
func (h *Handler) hydrateDecisionEvents(ctx context.Context, refs []decisionEventRef) {
	for i := range refs {
		if raw, ok := h.fetchRaw(ctx, refs[i].BlobKey); ok {
			refs[i].Raw = raw
		}
	}
}

func includeRaw(r *http.Request) bool {
	return r.URL.Query().Get("include_raw") == "true"
}

func queryInt(q interface{ Get(string) string }, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
