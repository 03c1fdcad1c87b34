package tracewell

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracewell-io/tracewell/buffer"
	"github.com/tracewell-io/tracewell/sampler"
	"github.com/tracewell-io/tracewell/transport"
)

// Client is the capture façade applications embed in their pipeline code. It
// is safe for concurrent use and adds no errors of its own: transport failures
// are swallowed, and Step returns exactly the error fn returned (§4.4, §7.2).
// Decision events are buffered and sent in the background, but Run and Step
// records are not: StartRun, Step and EndRun each wait for the transport,
// including its retries, to finish sending them before returning.
type Client struct {
	cfg       Config
	transport *transport.Transport
	buf       *buffer.Buffer[DecisionEvent]

	mu   sync.Mutex
	runs map[string]*Run
}

// transportSender adapts *transport.Transport to buffer.Sender[DecisionEvent]
// without the buffer package depending on either the transport or root
// packages' concrete types.
type transportSender struct {
	t *transport.Transport
}

func (s transportSender) SendDecisionEvents(events []DecisionEvent) {
	s.t.SendDecisionEvents(events)
}

// NewClient wires the sampler, buffer, and transport into a ready-to-use
// Client.
func NewClient(cfg Config) *Client {
	t := transport.New(transport.Config{
		IngestionURL: cfg.IngestionURL,
		Timeout:      cfg.TransportTimeout,
		MaxRetries:   cfg.TransportMaxRetries,
		RetryDelay:   cfg.TransportRetryDelay,
	})
	b := buffer.New[DecisionEvent](buffer.Config{
		MaxSize:       cfg.BufferMaxSize,
		BatchSize:     cfg.BufferBatchSize,
		FlushInterval: cfg.BufferFlushInterval,
	}, transportSender{t: t})

	return &Client{
		cfg:       cfg,
		transport: t,
		buf:       b,
		runs:      make(map[string]*Run),
	}
}

// New builds a Client from LoadConfig's environment-derived Config.
func New() *Client {
	return NewClient(LoadConfig())
}

// StartRun begins a Run and returns its generated RunID.
func (c *Client) StartRun(pipelineID string, input interface{}, metadata map[string]interface{}) string {
	run := &Run{
		RunID:      uuid.New().String(),
		PipelineID: pipelineID,
		Status:     RunRunning,
		Input:      input,
		StartedAt:  time.Now().UTC(),
		Metadata:   metadata,
	}

	c.mu.Lock()
	c.runs[run.RunID] = run
	c.mu.Unlock()

	c.transport.SendRun(run)
	return run.RunID
}

// EndRun completes a Run, recording its output and, if non-nil, err's
// message. Calling EndRun for an unknown RunID is a no-op.
func (c *Client) EndRun(runID string, output interface{}, err error) {
	c.mu.Lock()
	run, ok := c.runs[runID]
	if ok {
		delete(c.runs, runID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Output = output
	if err != nil {
		msg := err.Error()
		run.Error = &msg
		run.Status = RunFailed
	} else {
		run.Status = RunCompleted
	}

	c.transport.SendRun(run)
}

// stepOptions carries the variadic configuration for Step.
type stepOptions struct {
	config           map[string]interface{}
	decisionCallback DecisionCallback
}

// StepOption configures an individual Step call.
type StepOption func(*stepOptions)

// WithStepConfig attaches step configuration metadata recorded on the
// emitted Step record.
func WithStepConfig(config map[string]interface{}) StepOption {
	return func(o *stepOptions) { o.config = config }
}

// WithDecisionCallback overrides automatic structural decision derivation:
// the callback is invoked once per input item and its return value is used
// verbatim, or the item is skipped entirely if it returns nil (§4.4).
func WithDecisionCallback(cb DecisionCallback) StepOption {
	return func(o *stepOptions) { o.decisionCallback = cb }
}

// Step wraps the execution of a single pipeline node. fn is invoked exactly
// once, synchronously, with input; its return value and error are passed
// through to the caller unmodified — Step adds no observable behavior to fn
// itself (§7.2). Decision capture happens around the call, not inside it.
func (c *Client) Step(runID string, stepType StepType, name string, input interface{}, fn func(interface{}) (interface{}, error), opts ...StepOption) (interface{}, error) {
	so := &stepOptions{}
	for _, opt := range opts {
		opt(so)
	}

	step := &Step{
		StepID:    uuid.New().String(),
		RunID:     runID,
		Type:      stepType,
		Name:      name,
		Config:    so.config,
		StartedAt: time.Now().UTC(),
	}
	c.transport.SendStep(step)

	output, err := fn(input)

	now := time.Now().UTC()
	step.CompletedAt = &now
	c.transport.SendStep(step)

	if c.cfg.CaptureLevel != CaptureMetricsOnly && err == nil {
		for _, e := range c.deriveDecisions(step.StepID, runID, stepType, input, output, so.config, so.decisionCallback) {
			c.buf.Add(e)
		}
	}

	return output, err
}

// Flush synchronously drains any buffered DecisionEvents. Intended for use
// at graceful shutdown.
func (c *Client) Flush() {
	c.buf.ForceFlush()
}

// deriveDecisions implements the structural decision derivation described in
// §4.4: sequence inputs are diffed item-by-item against the output sequence
// by identity, with adaptive sampling applied under CaptureSampled; a
// non-sequence input yields a single decision for the whole step.
func (c *Client) deriveDecisions(stepID, runID string, stepType StepType, input, output interface{}, config map[string]interface{}, cb DecisionCallback) []DecisionEvent {
	inputs, isSeq := asSequence(input)
	if !isSeq {
		d := classifySingle(stepType, input, output, config, cb)
		if d == nil {
			return nil
		}
		return []DecisionEvent{c.buildEvent(stepID, runID, input, output, "single-item", d, 1, 1, false)}
	}

	outputs, _ := asSequence(output)
	outputIndex := buildIdentityIndex(outputs)

	n := len(inputs)
	m := len(outputs)
	target := sampler.TargetSize(n)

	events := make([]DecisionEvent, 0, target)
	for i, item := range inputs {
		sampled := c.cfg.CaptureLevel == CaptureSampled
		if sampled && !sampler.ShouldSample(i, n, target) {
			continue
		}

		id := itemIdentity(item, i)
		var itemOutput interface{}
		present := false
		if idx, ok := outputIndex[id]; ok {
			itemOutput = outputs[idx]
			present = true
		}

		var d *Decision
		if cb != nil {
			d = cb(i, item, itemOutput)
		} else {
			d = classifyStructural(stepType, item, itemOutput, present, config)
		}
		if d == nil {
			continue
		}
		events = append(events, c.buildEvent(stepID, runID, item, itemOutput, id, d, n, m, sampled && 0 < i && i < n-1))
	}
	return events
}

func (c *Client) buildEvent(stepID, runID string, input, output interface{}, itemID string, d *Decision, inputCount, outputCount int, sampled bool) DecisionEvent {
	return DecisionEvent{
		EventID: uuid.New().String(),
		StepID:  stepID,
		RunID:   runID,
		Outcome: d.Outcome,
		ItemID:  itemID,
		Input:   input,
		Output:  output,
		Reason:  d.Reason,
		Score:   d.Score,
		Metadata: map[string]interface{}{
			"inputCount":  inputCount,
			"outputCount": outputCount,
			"sampled":     sampled,
		},
		Timestamp: time.Now().UTC(),
	}
}

// buildIdentityIndex maps each output item's identity to its position, so
// presence-in-output can be tested in O(1) per input item.
func buildIdentityIndex(outputs []interface{}) map[string]int {
	idx := make(map[string]int, len(outputs))
	for i, o := range outputs {
		idx[itemIdentity(o, i)] = i
	}
	return idx
}

// classifyStructural derives an Outcome for one item of a sequence step with
// no explicit DecisionCallback, based on the step's declared type (§4.4).
func classifyStructural(stepType StepType, item, itemOutput interface{}, present bool, config map[string]interface{}) *Decision {
	switch stepType {
	case StepRank, StepScore:
		d := &Decision{Outcome: OutcomeScored}
		if score, ok := itemScore(itemOutput); ok {
			d.Score = &score
		} else if score, ok := itemScore(item); ok {
			d.Score = &score
		}
		d.Reason = scoredReason(d.Score)
		return d
	default: // StepFilter, StepLLM, StepTransform
		if present {
			return &Decision{Outcome: OutcomeKept, Reason: keptReason(stepType)}
		}
		return &Decision{Outcome: OutcomeEliminated, Reason: eliminatedReason(stepType, config)}
	}
}

// classifySingle derives an Outcome for a non-sequence step invocation.
func classifySingle(stepType StepType, input, output interface{}, config map[string]interface{}, cb DecisionCallback) *Decision {
	if cb != nil {
		return cb(0, input, output)
	}
	switch stepType {
	case StepRank, StepScore:
		d := &Decision{Outcome: OutcomeScored}
		if score, ok := itemScore(output); ok {
			d.Score = &score
		}
		d.Reason = scoredReason(d.Score)
		return d
	default:
		if output == nil {
			return &Decision{Outcome: OutcomeEliminated, Reason: eliminatedReason(stepType, config)}
		}
		return &Decision{Outcome: OutcomeKept, Reason: keptReason(stepType)}
	}
}

// scoredReason formats the §4.4 reason template for OutcomeScored decisions.
// score is nil when the step's output carried no extractable numeric score.
func scoredReason(score *float64) string {
	if score == nil {
		return "Item scored: unknown"
	}
	return fmt.Sprintf("Item scored: %v", *score)
}

// keptReason formats the §4.4 reason template for OutcomeKept decisions.
func keptReason(stepType StepType) string {
	return fmt.Sprintf("Item passed %s step", stepType)
}

// eliminatedReason formats the §4.4 reason template for OutcomeEliminated
// decisions, preferring the step's declared threshold or matchType when
// present in its config and falling back to a generic reason otherwise.
func eliminatedReason(stepType StepType, config map[string]interface{}) string {
	if config != nil {
		if threshold, ok := config["threshold"]; ok {
			return fmt.Sprintf("Item eliminated: did not meet threshold %v", threshold)
		}
		if matchType, ok := config["matchType"]; ok {
			return fmt.Sprintf("Item eliminated: did not match %v", matchType)
		}
	}
	return fmt.Sprintf("Item eliminated by %s step", stepType)
}
