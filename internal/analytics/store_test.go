package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.duckdb")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
}

func TestStore_UpsertAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	run := RunRow{
		RunID:            "r1",
		PipelineID:       "p1",
		Status:           "completed",
		StartedAt:        now,
		TotalSteps:       1,
		TotalInputCount:  4,
		TotalOutputCount: 2,
		Metadata:         map[string]interface{}{"k": "v"},
		UpdatedAt:        now,
	}
	require.NoError(t, s.UpsertRun(ctx, run))

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "p1", got.PipelineID)
	require.Equal(t, int64(4), got.TotalInputCount)
	require.Equal(t, "v", got.Metadata["k"])
}

func TestStore_UpsertRunOlderUpdateIsIgnored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertRun(ctx, RunRow{RunID: "r1", Status: "running", StartedAt: now, UpdatedAt: now}))
	require.NoError(t, s.UpsertRun(ctx, RunRow{RunID: "r1", Status: "completed", StartedAt: now, UpdatedAt: now.Add(time.Second)}))
	require.NoError(t, s.UpsertRun(ctx, RunRow{RunID: "r1", Status: "failed", StartedAt: now, UpdatedAt: now.Add(-time.Hour)}))

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "completed", got.Status)
}

func TestStore_ListRunsBadFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertRun(ctx, RunRow{RunID: "good", Status: "completed", StartedAt: now, OverallEliminationRatio: 0.3, UpdatedAt: now}))
	require.NoError(t, s.UpsertRun(ctx, RunRow{RunID: "bad", Status: "failed", StartedAt: now.Add(time.Minute), UpdatedAt: now}))

	all, err := s.ListRuns(ctx, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	bad, err := s.ListRuns(ctx, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	require.Equal(t, "bad", bad[0].RunID)
}

func TestStore_UpsertAndListStepsByRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	step := StepRow{
		StepID: "s1", RunID: "r1", Type: "filter", Name: "score-filter",
		InputCount: 4, OutputCount: 2, EliminationRatio: 0.5, KeptCount: 2, EliminatedCount: 2,
		StartedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.UpsertStep(ctx, step))

	got, err := s.GetStep(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, int64(2), got.KeptCount)

	byRun, err := s.ListStepsByRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, byRun, 1)
}

func TestStore_InsertDecisionEventDeduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	score := 0.9

	event := DecisionEventRow{
		RunID: "r1", StepID: "s1", Timestamp: now, EventID: "e1",
		Outcome: "kept", ItemID: "a", Score: &score, BlobKey: "decisions/2026/03/05/e1.json", UpdatedAt: now,
	}
	require.NoError(t, s.InsertDecisionEvent(ctx, event))
	require.NoError(t, s.InsertDecisionEvent(ctx, event))

	events, err := s.ListDecisionEventsByStep(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestStore_ListDecisionEventsByItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertDecisionEvent(ctx, DecisionEventRow{RunID: "r1", StepID: "s1", Timestamp: now, EventID: "e1", ItemID: "a", Outcome: "kept", UpdatedAt: now}))
	require.NoError(t, s.InsertDecisionEvent(ctx, DecisionEventRow{RunID: "r1", StepID: "s2", Timestamp: now.Add(time.Minute), EventID: "e2", ItemID: "a", Outcome: "scored", UpdatedAt: now}))
	require.NoError(t, s.InsertDecisionEvent(ctx, DecisionEventRow{RunID: "r1", StepID: "s1", Timestamp: now, EventID: "e3", ItemID: "b", Outcome: "eliminated", UpdatedAt: now}))

	trajectory, err := s.ListDecisionEventsByItem(ctx, "r1", "a")
	require.NoError(t, err)
	require.Len(t, trajectory, 2)
	require.Equal(t, "e1", trajectory[0].EventID)
	require.Equal(t, "e2", trajectory[1].EventID)
}
