package query

import (
	"time"

	"github.com/tracewell-io/tracewell/internal/analytics"
)

type runView struct {
	RunID                   string                 `json:"runId"`
	PipelineID              string                 `json:"pipelineId"`
	Status                  string                 `json:"status"`
	StartedAt               time.Time              `json:"startedAt"`
	CompletedAt             *time.Time             `json:"completedAt,omitempty"`
	Error                   *string                `json:"error,omitempty"`
	TotalSteps              int                    `json:"totalSteps"`
	TotalInputCount         int64                  `json:"totalInputCount"`
	TotalOutputCount        int64                  `json:"totalOutputCount"`
	OverallEliminationRatio float64                `json:"overallEliminationRatio"`
	Metadata                map[string]interface{} `json:"metadata,omitempty"`
}

func runSummary(r analytics.RunRow) runView {
	return runView{
		RunID: r.RunID, PipelineID: r.PipelineID, Status: r.Status,
		StartedAt: r.StartedAt, CompletedAt: r.CompletedAt, Error: r.Error,
		TotalSteps: r.TotalSteps, TotalInputCount: r.TotalInputCount, TotalOutputCount: r.TotalOutputCount,
		OverallEliminationRatio: r.OverallEliminationRatio, Metadata: r.Metadata,
	}
}

func runSummaries(rows []analytics.RunRow) []runView {
	views := make([]runView, len(rows))
	for i, r := range rows {
		views[i] = runSummary(r)
	}
	return views
}

type stepMetricsView struct {
	InputCount       int64   `json:"inputCount"`
	OutputCount      int64   `json:"outputCount"`
	EliminationRatio float64 `json:"eliminationRatio"`
	KeptCount        int64   `json:"keptCount"`
	EliminatedCount  int64   `json:"eliminatedCount"`
	ScoredCount      int64   `json:"scoredCount"`
}

type stepView struct {
	StepID      string          `json:"stepId"`
	RunID       string          `json:"runId"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Metrics     stepMetricsView `json:"metrics"`
}

func stepSummary(s analytics.StepRow) stepView {
	return stepView{
		StepID: s.StepID, RunID: s.RunID, Type: s.Type, Name: s.Name,
		StartedAt: s.StartedAt, CompletedAt: s.CompletedAt,
		Metrics: stepMetricsView{
			InputCount: s.InputCount, OutputCount: s.OutputCount, EliminationRatio: s.EliminationRatio,
			KeptCount: s.KeptCount, EliminatedCount: s.EliminatedCount, ScoredCount: s.ScoredCount,
		},
	}
}

func stepSummaries(rows []analytics.StepRow) []stepView {
	views := make([]stepView, len(rows))
	for i, s := range rows {
		views[i] = stepSummary(s)
	}
	return views
}

// decisionEventRef is a pointer to a decision event; Raw is populated only
// when the request opts into blob hydration and the blob is still present.
type decisionEventRef struct {
	EventID   string      `json:"eventId"`
	StepID    string      `json:"stepId"`
	RunID     string      `json:"runId"`
	Outcome   string      `json:"outcome"`
	ItemID    string      `json:"itemId"`
	Score     *float64    `json:"score,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	BlobKey   string      `json:"blobKey"`
	Raw       interface{} `json:"raw,omitempty"`
}

func decisionEventRefs(rows []analytics.DecisionEventRow) []decisionEventRef {
	refs := make([]decisionEventRef, len(rows))
	for i, r := range rows {
		refs[i] = decisionEventRef{
			EventID: r.EventID, StepID: r.StepID, RunID: r.RunID, Outcome: r.Outcome,
			ItemID: r.ItemID, Score: r.Score, Timestamp: r.Timestamp, BlobKey: r.BlobKey,
		}
	}
	return refs
}
