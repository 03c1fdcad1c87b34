package processor

import "time"

// decisionEventPayload mirrors tracewell.DecisionEvent's wire shape.
// pipelineId is not carried on the wire; it is denormalized from the run
// cache when available (§4.7 "runId lives in both steps and decisionEvents").
type decisionEventPayload struct {
	EventID   string                 `json:"eventId"`
	StepID    string                 `json:"stepId"`
	RunID     string                 `json:"runId"`
	Outcome   string                 `json:"outcome"`
	ItemID    string                 `json:"itemId"`
	Input     interface{}            `json:"input,omitempty"`
	Output    interface{}            `json:"output,omitempty"`
	Reason    string                 `json:"reason"`
	Score     *float64               `json:"score,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// runPayload mirrors tracewell.Run's wire shape.
type runPayload struct {
	RunID       string                 `json:"runId"`
	PipelineID  string                 `json:"pipelineId"`
	Status      string                 `json:"status"`
	Input       interface{}            `json:"input,omitempty"`
	Output      interface{}            `json:"output,omitempty"`
	StartedAt   time.Time              `json:"startedAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
	Error       *string                `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// stepPayload mirrors tracewell.Step's wire shape.
type stepPayload struct {
	StepID      string                 `json:"stepId"`
	RunID       string                 `json:"runId"`
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Config      map[string]interface{} `json:"config,omitempty"`
	StartedAt   time.Time              `json:"startedAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}
