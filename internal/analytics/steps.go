package analytics

import (
	"context"
	"time"
)

// StepRow is one row of the steps table: the step record plus its
// per-step decision aggregates (§3, §4.6 "Step").
type StepRow struct {
	StepID           string
	RunID            string
	PipelineID       string
	Type             string
	Name             string
	InputCount       int64
	OutputCount      int64
	EliminationRatio float64
	KeptCount        int64
	EliminatedCount  int64
	ScoredCount      int64
	StartedAt        time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}

const upsertStepQuery = `
INSERT INTO steps (
	step_id, run_id, pipeline_id, type, name,
	input_count, output_count, elimination_ratio, kept_count, eliminated_count, scored_count,
	started_at, completed_at, partition_month, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (step_id, run_id) DO UPDATE SET
	pipeline_id = excluded.pipeline_id,
	type = excluded.type,
	name = excluded.name,
	input_count = excluded.input_count,
	output_count = excluded.output_count,
	elimination_ratio = excluded.elimination_ratio,
	kept_count = excluded.kept_count,
	eliminated_count = excluded.eliminated_count,
	scored_count = excluded.scored_count,
	started_at = excluded.started_at,
	completed_at = excluded.completed_at,
	partition_month = excluded.partition_month,
	updated_at = excluded.updated_at
WHERE excluded.updated_at >= steps.updated_at`

// UpsertStep inserts or replaces the step-metrics row, deduplicating on
// (step_id, run_id).
func (s *Store) UpsertStep(ctx context.Context, r StepRow) error {
	return withQueryMetrics("upsert", "steps", func() error {
		stmt, err := s.stmt(ctx, upsertStepQuery)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			r.StepID, r.RunID, r.PipelineID, r.Type, r.Name,
			r.InputCount, r.OutputCount, r.EliminationRatio, r.KeptCount, r.EliminatedCount, r.ScoredCount,
			r.StartedAt, r.CompletedAt, partitionMonth(r.StartedAt), r.UpdatedAt,
		)
		return err
	})
}

const selectStepByIDQuery = `
SELECT step_id, run_id, pipeline_id, type, name,
	input_count, output_count, elimination_ratio, kept_count, eliminated_count, scored_count,
	started_at, completed_at, updated_at
FROM steps WHERE step_id = ?`

// GetStep looks up a step by id, returning sql.ErrNoRows if absent.
func (s *Store) GetStep(ctx context.Context, stepID string) (StepRow, error) {
	var r StepRow
	err := withQueryMetrics("get", "steps", func() error {
		stmt, err := s.stmt(ctx, selectStepByIDQuery)
		if err != nil {
			return err
		}
		return stmt.QueryRowContext(ctx, stepID).Scan(
			&r.StepID, &r.RunID, &r.PipelineID, &r.Type, &r.Name,
			&r.InputCount, &r.OutputCount, &r.EliminationRatio, &r.KeptCount, &r.EliminatedCount, &r.ScoredCount,
			&r.StartedAt, &r.CompletedAt, &r.UpdatedAt,
		)
	})
	return r, err
}

const selectStepsByRunQuery = `
SELECT step_id, run_id, pipeline_id, type, name,
	input_count, output_count, elimination_ratio, kept_count, eliminated_count, scored_count,
	started_at, completed_at, updated_at
FROM steps WHERE run_id = ? ORDER BY started_at ASC`

// ListStepsByRun returns every step row belonging to runID, in start order.
func (s *Store) ListStepsByRun(ctx context.Context, runID string) ([]StepRow, error) {
	var rows []StepRow
	err := withQueryMetrics("list", "steps", func() error {
		result, err := s.conn.QueryContext(ctx, selectStepsByRunQuery, runID)
		if err != nil {
			return err
		}
		defer result.Close()

		for result.Next() {
			var r StepRow
			if err := result.Scan(
				&r.StepID, &r.RunID, &r.PipelineID, &r.Type, &r.Name,
				&r.InputCount, &r.OutputCount, &r.EliminationRatio, &r.KeptCount, &r.EliminatedCount, &r.ScoredCount,
				&r.StartedAt, &r.CompletedAt, &r.UpdatedAt,
			); err != nil {
				return err
			}
			rows = append(rows, r)
		}
		return result.Err()
	})
	return rows, err
}
