package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tracewell-io/tracewell/internal/queue"
)

func newTestServer(t *testing.T) (http.Handler, *queue.Memory) {
	t.Helper()
	q := queue.NewMemory(64)
	t.Cleanup(func() { q.Close() })
	return NewRouter(q), q
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIngest_RejectsMissingTypeOrData(t *testing.T) {
	h, _ := newTestServer(t)
	rec := post(t, h, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_RejectsUnknownType(t *testing.T) {
	h, _ := newTestServer(t)
	rec := post(t, h, `{"type":"mystery","data":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_AcceptsValidDecision(t *testing.T) {
	h, q := newTestServer(t)
	body := `{"type":"decision","data":{"eventId":"e1","stepId":"s1","runId":"r1","outcome":"kept","itemId":"a","timestamp":"2026-03-05T12:00:00Z"}}`
	rec := post(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)

	msgs, err := q.Poll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "decision", msgs[0].Type)
}

func TestIngest_RejectsInvalidOutcome(t *testing.T) {
	h, _ := newTestServer(t)
	body := `{"type":"decision","data":{"eventId":"e1","stepId":"s1","runId":"r1","outcome":"bogus","itemId":"a"}}`
	rec := post(t, h, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_BatchPartialAcceptance(t *testing.T) {
	h, q := newTestServer(t)
	body := `{"type":"decisions","data":[
		{"eventId":"e1","stepId":"s1","runId":"r1","outcome":"kept","itemId":"a","timestamp":"2026-03-05T12:00:00Z"},
		{"eventId":"e2","stepId":"s1","runId":"r1","outcome":"bogus","itemId":"b"}
	]}`
	rec := post(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"partial":true`)

	msgs, err := q.Poll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestIngest_BatchAllInvalidReturns400(t *testing.T) {
	h, _ := newTestServer(t)
	body := `{"type":"decisions","data":[{"eventId":"e1","stepId":"s1","runId":"r1","outcome":"bogus","itemId":"a"}]}`
	rec := post(t, h, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
