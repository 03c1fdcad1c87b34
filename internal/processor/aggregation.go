package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tracewell-io/tracewell/internal/analytics"
	"github.com/tracewell-io/tracewell/internal/blobstore"
)

// aggregationState holds the per-step decision-event lists and per-run/step
// caches the worker needs to compute derived aggregates on completion (§3,
// §4.6). It is process-local: a restart loses in-flight (not yet completed)
// aggregation state, which is acceptable because the underlying events are
// durably queued and will be redelivered.
type aggregationState struct {
	mu sync.Mutex

	runs        map[string]runPayload
	stepEvents  map[string][]decisionEventPayload
	stepMetrics map[string]analytics.StepRow // keyed by stepId, populated once a step completes
}

func newAggregationState() *aggregationState {
	return &aggregationState{
		runs:        make(map[string]runPayload),
		stepEvents:  make(map[string][]decisionEventPayload),
		stepMetrics: make(map[string]analytics.StepRow),
	}
}

func (p *Processor) handleDecision(ctx context.Context, event decisionEventPayload) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	key := blobstore.DecisionKey(event.EventID, event.Timestamp)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal decision event: %w", err)
	}
	if err := p.blobs.Put(ctx, key, data, blobstore.Metadata{EventID: event.EventID, RunID: event.RunID, StepID: event.StepID}); err != nil {
		return fmt.Errorf("put decision event blob: %w", err)
	}

	p.state.mu.Lock()
	pipelineID := p.state.runs[event.RunID].PipelineID
	p.state.stepEvents[event.StepID] = append(p.state.stepEvents[event.StepID], event)
	p.state.mu.Unlock()

	row := analytics.DecisionEventRow{
		RunID:      event.RunID,
		StepID:     event.StepID,
		Timestamp:  event.Timestamp,
		EventID:    event.EventID,
		PipelineID: pipelineID,
		Outcome:    event.Outcome,
		ItemID:     event.ItemID,
		Score:      event.Score,
		BlobKey:    key,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := p.analytics.InsertDecisionEvent(ctx, row); err != nil {
		return fmt.Errorf("insert decision event: %w", err)
	}
	return nil
}

func (p *Processor) handleStep(ctx context.Context, step stepPayload) error {
	key := blobstore.StepKey(step.StepID, step.StartedAt)
	data, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("marshal step: %w", err)
	}
	if err := p.blobs.Put(ctx, key, data, blobstore.Metadata{StepID: step.StepID, RunID: step.RunID}); err != nil {
		return fmt.Errorf("put step blob: %w", err)
	}

	if step.CompletedAt == nil {
		return nil
	}

	p.state.mu.Lock()
	events := append([]decisionEventPayload(nil), p.state.stepEvents[step.StepID]...)
	pipelineID := p.state.runs[step.RunID].PipelineID
	p.state.mu.Unlock()

	metricsRow := computeStepMetrics(step, events, pipelineID)

	if err := p.analytics.UpsertStep(ctx, metricsRow); err != nil {
		return fmt.Errorf("upsert step metrics: %w", err)
	}

	p.state.mu.Lock()
	p.state.stepMetrics[step.StepID] = metricsRow
	p.state.mu.Unlock()
	return nil
}

// computeStepMetrics derives the step-metrics row per §4.6 "Step":
// inputCount is preferred from config.inputCount, then the first decision
// event's metadata.inputCount, then the number of captured events;
// outputCount is preferred from config.outputCount, then the first event's
// metadata.outputCount, then kept+scored.
func computeStepMetrics(step stepPayload, events []decisionEventPayload, pipelineID string) analytics.StepRow {
	var kept, eliminated, scored int64
	for _, e := range events {
		switch e.Outcome {
		case "kept":
			kept++
		case "eliminated":
			eliminated++
		case "scored":
			scored++
		}
	}

	inputCount := intFromMetadata(step.Config, "inputCount")
	if inputCount == nil && len(events) > 0 {
		inputCount = intFromMetadata(events[0].Metadata, "inputCount")
	}
	input := int64(len(events))
	if inputCount != nil {
		input = *inputCount
	}

	outputCount := intFromMetadata(step.Config, "outputCount")
	if outputCount == nil && len(events) > 0 {
		outputCount = intFromMetadata(events[0].Metadata, "outputCount")
	}
	output := kept + scored
	if outputCount != nil {
		output = *outputCount
	}

	ratio := eliminationRatio(input, output)

	return analytics.StepRow{
		StepID:           step.StepID,
		RunID:            step.RunID,
		PipelineID:       pipelineID,
		Type:             step.Type,
		Name:             step.Name,
		InputCount:       input,
		OutputCount:      output,
		EliminationRatio: ratio,
		KeptCount:        kept,
		EliminatedCount:  eliminated,
		ScoredCount:      scored,
		StartedAt:        step.StartedAt,
		CompletedAt:      step.CompletedAt,
		UpdatedAt:        time.Now().UTC(),
	}
}

// eliminationRatio implements §3's formula, clamped to [0,1] and defined as
// 0 when inputCount is 0 (§4.7 edge case).
func eliminationRatio(input, output int64) float64 {
	if input <= 0 {
		return 0
	}
	ratio := 1 - float64(output)/float64(input)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func intFromMetadata(m map[string]interface{}, key string) *int64 {
	if m == nil {
		return nil
	}
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		i := int64(n)
		return &i
	case int:
		i := int64(n)
		return &i
	case int64:
		return &n
	default:
		return nil
	}
}

func (p *Processor) handleRun(ctx context.Context, run runPayload) error {
	key := blobstore.RunKey(run.RunID, run.StartedAt)
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := p.blobs.Put(ctx, key, data, blobstore.Metadata{RunID: run.RunID}); err != nil {
		return fmt.Errorf("put run blob: %w", err)
	}

	p.state.mu.Lock()
	p.state.runs[run.RunID] = run
	p.state.mu.Unlock()

	if run.Status != "completed" && run.Status != "failed" {
		return nil
	}

	p.state.mu.Lock()
	var totalInput, totalOutput int64
	steps := 0
	for _, m := range p.state.stepMetrics {
		if m.RunID != run.RunID {
			continue
		}
		steps++
		totalInput += m.InputCount
		totalOutput += m.OutputCount
	}
	p.state.mu.Unlock()

	row := analytics.RunRow{
		RunID:                   run.RunID,
		PipelineID:              run.PipelineID,
		Status:                  run.Status,
		StartedAt:               run.StartedAt,
		CompletedAt:             run.CompletedAt,
		Error:                   run.Error,
		TotalSteps:              steps,
		TotalInputCount:         totalInput,
		TotalOutputCount:        totalOutput,
		OverallEliminationRatio: eliminationRatio(totalInput, totalOutput),
		Metadata:                run.Metadata,
		UpdatedAt:               time.Now().UTC(),
	}
	if err := p.analytics.UpsertRun(ctx, row); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}
