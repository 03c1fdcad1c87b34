// Package queue implements the durable FIFO broker adapters between the
// ingestion boundary and the processor worker (§4.5, §4.6, §6 "Queue
// contract"): in-memory, HTTP-fronted, and NATS JetStream.
package queue

import "context"

// Message is one enqueued envelope, opaque to the adapter beyond its
// deliver/ack lifecycle. ID is used by the processor's idempotency set.
type Message struct {
	ID   string
	Type string
	Data []byte

	ackFunc  func()
	nackFunc func()
}

// Ack acknowledges successful processing.
func (m *Message) Ack() {
	if m.ackFunc != nil {
		m.ackFunc()
	}
}

// Nack signals failed processing; the broker is expected to redeliver.
func (m *Message) Nack() {
	if m.nackFunc != nil {
		m.nackFunc()
	}
}

// Adapter is the queue contract every backend implements: durable FIFO,
// at-least-once delivery, manual ack/nack, and a bounded poll for the
// processor's batch loop.
type Adapter interface {
	PushDecisionEvent(ctx context.Context, id string, data []byte) error
	PushDecisionEvents(ctx context.Context, ids []string, data [][]byte) error
	PushRun(ctx context.Context, id string, data []byte) error
	PushStep(ctx context.Context, id string, data []byte) error

	// Poll returns up to batchSize messages currently available, or an empty
	// slice if none are ready. It never blocks longer than an internal short
	// timeout, so an empty broker never stalls the worker loop.
	Poll(ctx context.Context, batchSize int) ([]*Message, error)

	Close() error
}
