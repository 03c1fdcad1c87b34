// Package tracewell is a non-blocking, in-process decision-capture library.
//
// Applications wrap their pipeline step functions with Client.Step; the client
// derives per-item decisions by diffing step input against step output, samples
// them adaptively, and ships them to a remote collector without ever adding
// observable latency or error modes to the wrapped code.
package tracewell

import (
	"time"

	"github.com/goccy/go-json"
)

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// StepType identifies the kind of pipeline node a Step represents.
type StepType string

const (
	StepFilter    StepType = "filter"
	StepRank      StepType = "rank"
	StepLLM       StepType = "llm"
	StepTransform StepType = "transform"
	StepScore     StepType = "score"
)

// Outcome is the per-item decision recorded by a DecisionEvent.
type Outcome string

const (
	OutcomeKept       Outcome = "kept"
	OutcomeEliminated Outcome = "eliminated"
	OutcomeScored     Outcome = "scored"
)

// Run is one pipeline execution.
type Run struct {
	RunID       string                 `json:"runId"`
	PipelineID  string                 `json:"pipelineId"`
	Status      RunStatus              `json:"status"`
	Input       interface{}            `json:"input,omitempty"`
	Output      interface{}            `json:"output,omitempty"`
	StartedAt   time.Time              `json:"startedAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
	Error       *string                `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Step is one node within a run.
type Step struct {
	StepID      string                 `json:"stepId"`
	RunID       string                 `json:"runId"`
	Type        StepType               `json:"type"`
	Name        string                 `json:"name"`
	Config      map[string]interface{} `json:"config,omitempty"`
	StartedAt   time.Time              `json:"startedAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// DecisionEvent is one decision about one item at one step.
type DecisionEvent struct {
	EventID   string                 `json:"eventId"`
	StepID    string                 `json:"stepId"`
	RunID     string                 `json:"runId"`
	Outcome   Outcome                `json:"outcome"`
	ItemID    string                 `json:"itemId"`
	Input     interface{}            `json:"input,omitempty"`
	Output    interface{}            `json:"output,omitempty"`
	Reason    string                 `json:"reason"`
	Score     *float64               `json:"score,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Envelope is the heterogeneous wire format accepted by the ingestion boundary:
// {"type": "decision"|"decisions"|"run"|"step", "data": <payload>}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EnvelopeType enumerates the closed set of envelope variants (§4.5).
const (
	EnvelopeDecision  = "decision"
	EnvelopeDecisions = "decisions"
	EnvelopeRun       = "run"
	EnvelopeStep      = "step"
)

// NewEnvelope marshals data into an Envelope of the given type.
func NewEnvelope(typ string, data interface{}) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typ, Data: raw}, nil
}
