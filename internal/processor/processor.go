// Package processor implements the cooperative batch worker (C7): it polls
// the queue, dispatches each envelope by type, writes payloads to the blob
// store, maintains per-run and per-step in-memory aggregation state, and
// inserts rows into the analytical store.
package processor

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tracewell-io/tracewell/internal/analytics"
	"github.com/tracewell-io/tracewell/internal/blobstore"
	"github.com/tracewell-io/tracewell/internal/cache"
	"github.com/tracewell-io/tracewell/internal/logging"
	"github.com/tracewell-io/tracewell/internal/metrics"
	"github.com/tracewell-io/tracewell/internal/queue"
)

// Config controls the worker loop's pacing.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	// DedupStrategy selects the idempotency set's cache: "exact" (default)
	// or "bloom". See cache.DeduplicationCache.
	DedupStrategy string
}

// DefaultConfig matches the defaults named in §4.6.
func DefaultConfig() Config {
	return Config{PollInterval: time.Second, BatchSize: 10, DedupStrategy: "exact"}
}

// bloomFalsePositiveRate is the accepted rate for the "bloom" dedup
// strategy; see cache.NewBloomLRU.
const bloomFalsePositiveRate = 0.01

// Processor polls queue for envelopes and materializes them into the blob
// and analytical stores, using a bounded dedup cache to enforce idempotent
// handling of redelivered messages.
type Processor struct {
	queue     queue.Adapter
	blobs     blobstore.Store
	analytics *analytics.Store
	cfg       Config
	logger    *logging.EventLogger

	seen cache.DeduplicationCache

	state *aggregationState
}

// idempotencySetCapacity bounds the dedup set's memory under sustained
// ingestion; the LRU evicts the coldest message ids once full rather than
// growing without limit.
const idempotencySetCapacity = 200000

// New constructs a Processor. seenTTL bounds how long a message id is
// remembered for dedup purposes (§4.6 "idempotency set").
func New(q queue.Adapter, blobs blobstore.Store, store *analytics.Store, cfg Config, seenTTL time.Duration) *Processor {
	return &Processor{
		queue:     q,
		blobs:     blobs,
		analytics: store,
		cfg:       cfg,
		logger:    logging.NewEventLogger(),
		seen:      newDedupCache(cfg.DedupStrategy, seenTTL),
		state:     newAggregationState(),
	}
}

// newDedupCache selects the idempotency cache backing strategy. Unknown
// values fall back to the zero-false-positive exact cache.
func newDedupCache(strategy string, ttl time.Duration) cache.DeduplicationCache {
	if strategy == "bloom" {
		return cache.NewBloomLRU(idempotencySetCapacity, ttl, bloomFalsePositiveRate)
	}
	return cache.NewExactLRU(idempotencySetCapacity, ttl)
}

// Run polls and processes batches until ctx is cancelled, implementing
// suture.Service so it can be supervised (§5, §8).
func (p *Processor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// Serve implements suture.Service.
func (p *Processor) Serve(ctx context.Context) error {
	return p.Run(ctx)
}

func (p *Processor) pollOnce(ctx context.Context) {
	messages, err := p.queue.Poll(ctx, p.cfg.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "poll failed", "error", err.Error())
		return
	}
	for _, msg := range messages {
		p.handle(ctx, msg)
	}
}

// handle dispatches one message; per-message failures are isolated (§4.6
// "per-message try/catch") and never halt the batch.
func (p *Processor) handle(ctx context.Context, msg *queue.Message) {
	start := time.Now()

	if p.seen.Contains(msg.ID) {
		p.logger.LogDuplicate(ctx, msg.ID, "already seen")
		metrics.ProcessorDuplicatesSkipped.Inc()
		msg.Ack()
		return
	}

	err := p.dispatch(ctx, msg)
	metrics.ObserveDuration(metrics.ProcessorMessageDuration.WithLabelValues(msg.Type), start)

	if err != nil {
		metrics.ProcessorMessagesTotal.WithLabelValues(msg.Type, "failed").Inc()
		p.logger.LogEventFailed(ctx, msg.ID, err)
		msg.Nack()
		return
	}

	p.seen.Record(msg.ID)
	metrics.ProcessorMessagesTotal.WithLabelValues(msg.Type, "processed").Inc()
	p.logger.LogEventProcessed(ctx, msg.ID, time.Since(start).Milliseconds())
	msg.Ack()
}

func (p *Processor) dispatch(ctx context.Context, msg *queue.Message) error {
	switch msg.Type {
	case "decision":
		var event decisionEventPayload
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return err
		}
		return p.handleDecision(ctx, event)
	case "decisions":
		var events []decisionEventPayload
		if err := json.Unmarshal(msg.Data, &events); err != nil {
			return err
		}
		for _, event := range events {
			if err := p.handleDecision(ctx, event); err != nil {
				return err
			}
		}
		return nil
	case "run":
		var run runPayload
		if err := json.Unmarshal(msg.Data, &run); err != nil {
			return err
		}
		return p.handleRun(ctx, run)
	case "step":
		var step stepPayload
		if err := json.Unmarshal(msg.Data, &step); err != nil {
			return err
		}
		return p.handleStep(ctx, step)
	default:
		return nil
	}
}
