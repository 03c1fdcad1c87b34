package processor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/tracewell-io/tracewell/internal/analytics"
	"github.com/tracewell-io/tracewell/internal/blobstore"
	"github.com/tracewell-io/tracewell/internal/cache"
	"github.com/tracewell-io/tracewell/internal/queue"
)

func newTestProcessor(t *testing.T) (*Processor, *queue.Memory, *analytics.Store, *blobstore.FS) {
	t.Helper()
	q := queue.NewMemory(64)
	t.Cleanup(func() { q.Close() })

	blobs, err := blobstore.NewFS(t.TempDir())
	require.NoError(t, err)

	store, err := analytics.Open(filepath.Join(t.TempDir(), "test.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := New(q, blobs, store, Config{PollInterval: 10 * time.Millisecond, BatchSize: 10}, time.Minute)
	return p, q, store, blobs
}

func TestNewDedupCache_SelectsStrategy(t *testing.T) {
	_, ok := newDedupCache("exact", time.Minute).(*cache.ExactLRU)
	require.True(t, ok, "default strategy should be exact")

	_, ok = newDedupCache("bloom", time.Minute).(*cache.BloomLRU)
	require.True(t, ok, "bloom strategy should select BloomLRU")

	_, ok = newDedupCache("unknown", time.Minute).(*cache.ExactLRU)
	require.True(t, ok, "unknown strategy should fall back to exact")
}

func marshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestProcessor_HandlesFullRunLifecycle(t *testing.T) {
	p, q, store, _ := newTestProcessor(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	completed := now.Add(time.Second)

	run := runPayload{RunID: "r1", PipelineID: "p1", Status: "running", StartedAt: now}
	require.NoError(t, q.PushRun(ctx, "run-r1", marshalJSON(t, run)))

	step := stepPayload{StepID: "s1", RunID: "r1", Type: "filter", Name: "score-filter", StartedAt: now}
	require.NoError(t, q.PushStep(ctx, "step-s1-start", marshalJSON(t, step)))

	events := []decisionEventPayload{
		{EventID: "e1", StepID: "s1", RunID: "r1", Outcome: "kept", ItemID: "a", Timestamp: now},
		{EventID: "e2", StepID: "s1", RunID: "r1", Outcome: "eliminated", ItemID: "b", Timestamp: now},
	}
	require.NoError(t, q.PushDecisionEvents(ctx, []string{"e1", "e2"}, [][]byte{marshalJSON(t, events[0]), marshalJSON(t, events[1])}))

	msgs, err := q.Poll(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	for _, m := range msgs {
		p.handle(ctx, m)
	}

	stepDone := stepPayload{StepID: "s1", RunID: "r1", Type: "filter", Name: "score-filter", StartedAt: now, CompletedAt: &completed}
	require.NoError(t, q.PushStep(ctx, "step-s1-done", marshalJSON(t, stepDone)))
	runDone := runPayload{RunID: "r1", PipelineID: "p1", Status: "completed", StartedAt: now, CompletedAt: &completed}
	require.NoError(t, q.PushRun(ctx, "run-r1-done", marshalJSON(t, runDone)))

	msgs, err = q.Poll(ctx, 10)
	require.NoError(t, err)
	for _, m := range msgs {
		p.handle(ctx, m)
	}

	stepRow, err := store.GetStep(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, int64(2), stepRow.InputCount)
	require.Equal(t, int64(1), stepRow.KeptCount)
	require.Equal(t, int64(1), stepRow.EliminatedCount)
	require.InDelta(t, 0.5, stepRow.EliminationRatio, 0.001)

	runRow, err := store.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, 1, runRow.TotalSteps)
	require.Equal(t, int64(2), runRow.TotalInputCount)
}

func TestProcessor_DuplicateMessageIsSkipped(t *testing.T) {
	p, q, _, _ := newTestProcessor(t)
	ctx := context.Background()

	run := runPayload{RunID: "r1", PipelineID: "p1", Status: "running", StartedAt: time.Now()}
	require.NoError(t, q.PushRun(ctx, "dup-id", marshalJSON(t, run)))

	msgs, err := q.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	p.handle(ctx, msgs[0])

	require.NoError(t, q.PushRun(ctx, "dup-id", marshalJSON(t, run)))
	msgs, err = q.Poll(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.True(t, p.seen.Contains("dup-id"))
}

func TestProcessor_UnknownTypeIsNoop(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)
	ctx := context.Background()
	msg := &queue.Message{ID: "x1", Type: "mystery", Data: []byte(`{}`)}
	require.NoError(t, p.dispatch(ctx, msg))
}

func TestProcessor_StopsOnContextCancel(t *testing.T) {
	p, _, _, _ := newTestProcessor(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)
}
