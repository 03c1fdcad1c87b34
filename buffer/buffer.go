// Package buffer implements the bounded, drop-oldest, size+time-flushed event
// batcher used by the capture façade to decouple decision emission from
// network I/O (§4.2).
//
// Buffer is generic over the event type so it carries no dependency on the
// root tracewell package's DecisionEvent type; the façade instantiates
// Buffer[tracewell.DecisionEvent] and supplies a Sender that forwards to the
// transport package.
package buffer

import (
	"sync"
	"time"
)

// Sender delivers a batch of events. Implementations must never block the
// caller beyond the call itself and must never panic — the transport
// package's Transport already swallows its own errors (§4.3).
type Sender[T any] interface {
	SendDecisionEvents(events []T)
}

// Config configures a Buffer.
type Config struct {
	MaxSize       int
	BatchSize     int
	FlushInterval time.Duration
}

// Buffer is a bounded FIFO of events that flushes to a Sender on three
// triggers: reaching BatchSize, a periodic timer, or an explicit ForceFlush.
// It never blocks Add and never surfaces errors (§4.2, §7.2).
type Buffer[T any] struct {
	cfg    Config
	sender Sender[T]

	mu     sync.Mutex
	events []T

	flushing   atomicBool
	timer      *time.Timer
	timerStop  chan struct{}
	timerOnce  sync.Once
	flushGroup sync.WaitGroup
}

// atomicBool is a minimal mutex-guarded flag; avoids pulling in sync/atomic's
// generic Bool type so the package stays close to the teacher's plain-mutex
// style for small pieces of shared state.
type atomicBool struct {
	mu sync.Mutex
	v  bool
}

func (b *atomicBool) trySet(val bool) (swapped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.v == val {
		return false
	}
	b.v = val
	return true
}

// New creates a Buffer and starts its periodic flush timer.
func New[T any](cfg Config, sender Sender[T]) *Buffer[T] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	b := &Buffer[T]{
		cfg:       cfg,
		sender:    sender,
		timerStop: make(chan struct{}),
	}
	b.timer = time.NewTimer(cfg.FlushInterval)
	go b.runTimer()
	return b
}

func (b *Buffer[T]) runTimer() {
	for {
		select {
		case <-b.timer.C:
			b.scheduleFlush()
			b.timer.Reset(b.cfg.FlushInterval)
		case <-b.timerStop:
			b.timer.Stop()
			return
		}
	}
}

// Add appends an event, dropping the oldest event first if the buffer is at
// MaxSize. Non-blocking and total: it never returns an error and never
// panics. If the batch size threshold is crossed, a flush is scheduled
// fire-and-forget.
func (b *Buffer[T]) Add(e T) {
	b.mu.Lock()
	if len(b.events) >= b.cfg.MaxSize {
		// Drop oldest: bounded memory is the invariant, loss is preferred to blocking.
		b.events = b.events[1:]
	}
	b.events = append(b.events, e)
	shouldFlush := len(b.events) >= b.cfg.BatchSize
	b.mu.Unlock()

	if shouldFlush {
		b.scheduleFlush()
	}
}

// scheduleFlush starts a fire-and-forget flush unless one is already in
// flight, in which case the trigger is coalesced into a no-op.
func (b *Buffer[T]) scheduleFlush() {
	if !b.flushing.trySet(true) {
		return
	}
	b.flushGroup.Add(1)
	go func() {
		defer b.flushGroup.Done()
		defer b.flushing.trySet(false)
		b.drainAndSend()
	}()
}

func (b *Buffer[T]) drainAndSend() {
	b.mu.Lock()
	batch := b.events
	b.events = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	// A flush that fails at the transport drops its batch; the transport has
	// already done bounded retry internally, so there is nothing more to do
	// here than let the batch go (§4.2).
	b.sender.SendDecisionEvents(batch)
}

// ForceFlush drains all remaining events synchronously and cancels the
// periodic timer. It is the only Buffer operation that may block the caller,
// and is intended for graceful shutdown.
func (b *Buffer[T]) ForceFlush() {
	b.timerOnce.Do(func() { close(b.timerStop) })

	// Wait for any in-flight fire-and-forget flush to finish so its drain
	// doesn't race with ours, then drain whatever is left directly.
	b.flushGroup.Wait()
	b.drainAndSend()
}

// Len returns the current number of buffered events, for tests and metrics.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
