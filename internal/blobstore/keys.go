// Package blobstore implements the content-addressed, date-partitioned
// payload store for raw Run/Step/DecisionEvent JSON (§4.8).
package blobstore

import (
	"fmt"
	"time"
)

// DecisionKey returns decisions/YYYY/MM/DD/<eventId>.json for the given
// event id and its timestamp (§4.8).
func DecisionKey(eventID string, ts time.Time) string {
	return dateKey("decisions", eventID, ts)
}

// RunKey returns runs/YYYY/MM/DD/<runId>.json.
func RunKey(runID string, ts time.Time) string {
	return dateKey("runs", runID, ts)
}

// StepKey returns steps/YYYY/MM/DD/<stepId>.json.
func StepKey(stepID string, ts time.Time) string {
	return dateKey("steps", stepID, ts)
}

func dateKey(prefix, id string, ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.json", prefix, ts.Year(), ts.Month(), ts.Day(), id)
}
