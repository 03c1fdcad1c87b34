package analytics

import (
	"context"
	"time"
)

// DecisionEventRow is one row of the decision_events table: a pointer to the
// full event payload held in the blob store, not the payload itself (§4.7
// denormalization note, §4.9 "default responses never touch the blob store").
type DecisionEventRow struct {
	RunID      string
	StepID     string
	Timestamp  time.Time
	EventID    string
	PipelineID string
	Outcome    string
	ItemID     string
	Score      *float64
	BlobKey    string
	UpdatedAt  time.Time
}

const insertDecisionEventQuery = `
INSERT INTO decision_events (
	run_id, step_id, "timestamp", event_id, pipeline_id, outcome, item_id, score, blob_key,
	partition_month, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id, step_id, "timestamp", event_id) DO NOTHING`

// InsertDecisionEvent inserts one decision-event row, deduplicating on
// (run_id, step_id, timestamp, event_id) so a redelivered message is a no-op.
func (s *Store) InsertDecisionEvent(ctx context.Context, r DecisionEventRow) error {
	return withQueryMetrics("insert", "decision_events", func() error {
		stmt, err := s.stmt(ctx, insertDecisionEventQuery)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			r.RunID, r.StepID, r.Timestamp, r.EventID, r.PipelineID, r.Outcome, r.ItemID, r.Score, r.BlobKey,
			partitionMonth(r.Timestamp), r.UpdatedAt,
		)
		return err
	})
}

const selectDecisionEventsByStepQuery = `
SELECT run_id, step_id, "timestamp", event_id, pipeline_id, outcome, item_id, score, blob_key, updated_at
FROM decision_events WHERE step_id = ? ORDER BY "timestamp" ASC LIMIT ?`

// ListDecisionEventsByStep returns up to limit decision events for stepID,
// oldest first (§4.9 "decision_limit").
func (s *Store) ListDecisionEventsByStep(ctx context.Context, stepID string, limit int) ([]DecisionEventRow, error) {
	return s.queryDecisionEvents(ctx, selectDecisionEventsByStepQuery, stepID, limit)
}

const selectDecisionEventsByItemQuery = `
SELECT run_id, step_id, "timestamp", event_id, pipeline_id, outcome, item_id, score, blob_key, updated_at
FROM decision_events WHERE run_id = ? AND item_id = ? ORDER BY "timestamp" ASC`

// ListDecisionEventsByItem returns every decision event for itemID within
// runID, in chronological order, for item-trajectory queries (§4.7).
func (s *Store) ListDecisionEventsByItem(ctx context.Context, runID, itemID string) ([]DecisionEventRow, error) {
	var rows []DecisionEventRow
	err := withQueryMetrics("list_by_item", "decision_events", func() error {
		result, err := s.conn.QueryContext(ctx, selectDecisionEventsByItemQuery, runID, itemID)
		if err != nil {
			return err
		}
		defer result.Close()
		rows, err = scanDecisionEvents(result)
		return err
	})
	return rows, err
}

func (s *Store) queryDecisionEvents(ctx context.Context, query string, args ...interface{}) ([]DecisionEventRow, error) {
	var rows []DecisionEventRow
	err := withQueryMetrics("list", "decision_events", func() error {
		stmt, err := s.stmt(ctx, query)
		if err != nil {
			return err
		}
		result, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		defer result.Close()
		rows, err = scanDecisionEvents(result)
		return err
	})
	return rows, err
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanDecisionEvents(result rowsScanner) ([]DecisionEventRow, error) {
	var rows []DecisionEventRow
	for result.Next() {
		var r DecisionEventRow
		if err := result.Scan(
			&r.RunID, &r.StepID, &r.Timestamp, &r.EventID, &r.PipelineID, &r.Outcome, &r.ItemID, &r.Score, &r.BlobKey,
			&r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, result.Err()
}
