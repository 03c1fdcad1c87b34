package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// RunRow is one row of the runs table: the run record plus the processor's
// derived aggregates (§4.6 "Run").
type RunRow struct {
	RunID                   string
	PipelineID              string
	Status                  string
	StartedAt               time.Time
	CompletedAt             *time.Time
	Error                   *string
	TotalSteps              int
	TotalInputCount         int64
	TotalOutputCount        int64
	OverallEliminationRatio float64
	Metadata                map[string]interface{}
	UpdatedAt               time.Time
}

const upsertRunQuery = `
INSERT INTO runs (
	run_id, pipeline_id, status, started_at, completed_at, error,
	total_steps, total_input_count, total_output_count, overall_elimination_ratio,
	metadata, partition_month, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
	pipeline_id = excluded.pipeline_id,
	status = excluded.status,
	started_at = excluded.started_at,
	completed_at = excluded.completed_at,
	error = excluded.error,
	total_steps = excluded.total_steps,
	total_input_count = excluded.total_input_count,
	total_output_count = excluded.total_output_count,
	overall_elimination_ratio = excluded.overall_elimination_ratio,
	metadata = excluded.metadata,
	partition_month = excluded.partition_month,
	updated_at = excluded.updated_at
WHERE excluded.updated_at >= runs.updated_at`

// UpsertRun inserts or, on a newer updated_at, replaces the run row,
// deduplicating on run_id (§4.6 "latest-writer-wins merge").
func (s *Store) UpsertRun(ctx context.Context, r RunRow) error {
	return withQueryMetrics("upsert", "runs", func() error {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshal run metadata: %w", err)
		}
		stmt, err := s.stmt(ctx, upsertRunQuery)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			r.RunID, r.PipelineID, r.Status, r.StartedAt, r.CompletedAt, r.Error,
			r.TotalSteps, r.TotalInputCount, r.TotalOutputCount, r.OverallEliminationRatio,
			string(meta), partitionMonth(r.StartedAt), r.UpdatedAt,
		)
		return err
	})
}

const selectRunByIDQuery = `
SELECT run_id, pipeline_id, status, started_at, completed_at, error,
	total_steps, total_input_count, total_output_count, overall_elimination_ratio,
	metadata, updated_at
FROM runs WHERE run_id = ?`

// GetRun looks up a run by id, returning sql.ErrNoRows if absent.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRow, error) {
	var r RunRow
	err := withQueryMetrics("get", "runs", func() error {
		stmt, err := s.stmt(ctx, selectRunByIDQuery)
		if err != nil {
			return err
		}
		var meta string
		if err := stmt.QueryRowContext(ctx, runID).Scan(
			&r.RunID, &r.PipelineID, &r.Status, &r.StartedAt, &r.CompletedAt, &r.Error,
			&r.TotalSteps, &r.TotalInputCount, &r.TotalOutputCount, &r.OverallEliminationRatio,
			&meta, &r.UpdatedAt,
		); err != nil {
			return err
		}
		return json.Unmarshal([]byte(meta), &r.Metadata)
	})
	return r, err
}

// ListRuns returns run summaries ordered by started_at desc, optionally
// restricted to the "bad" predicate (§4.7, §6).
func (s *Store) ListRuns(ctx context.Context, badFilter bool, limit, offset int) ([]RunRow, error) {
	var rows []RunRow
	err := withQueryMetrics("list", "runs", func() error {
		query := `
SELECT run_id, pipeline_id, status, started_at, completed_at, error,
	total_steps, total_input_count, total_output_count, overall_elimination_ratio,
	metadata, updated_at
FROM runs`
		if badFilter {
			query += ` WHERE overall_elimination_ratio > 0.8 OR status = 'failed' OR error IS NOT NULL`
		}
		query += ` ORDER BY started_at DESC LIMIT ? OFFSET ?`

		result, err := s.conn.QueryContext(ctx, query, limit, offset)
		if err != nil {
			return err
		}
		defer result.Close()

		for result.Next() {
			var r RunRow
			var meta string
			if err := result.Scan(
				&r.RunID, &r.PipelineID, &r.Status, &r.StartedAt, &r.CompletedAt, &r.Error,
				&r.TotalSteps, &r.TotalInputCount, &r.TotalOutputCount, &r.OverallEliminationRatio,
				&meta, &r.UpdatedAt,
			); err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
				return err
			}
			rows = append(rows, r)
		}
		return result.Err()
	})
	return rows, err
}
