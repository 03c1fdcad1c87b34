package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tracewell-io/tracewell/internal/metrics"
)

// Memory is a channel-backed Adapter for QUEUE_TYPE=memory: tests and
// single-process deployments where a real broker would be overkill.
type Memory struct {
	ch     chan *Message
	closed chan struct{}
	once   sync.Once
}

// NewMemory creates a Memory adapter with the given channel capacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Memory{
		ch:     make(chan *Message, capacity),
		closed: make(chan struct{}),
	}
}

func (m *Memory) push(id, typ string, data []byte) error {
	if id == "" {
		id = uuid.New().String()
	}
	msg := &Message{ID: id, Type: typ, Data: data}
	select {
	case m.ch <- msg:
		metrics.QueuePushTotal.WithLabelValues("memory", "ok").Inc()
		return nil
	case <-m.closed:
		metrics.QueuePushTotal.WithLabelValues("memory", "closed").Inc()
		return errClosed
	}
}

func (m *Memory) PushDecisionEvent(ctx context.Context, id string, data []byte) error {
	return m.push(id, "decision", data)
}

func (m *Memory) PushDecisionEvents(ctx context.Context, ids []string, data [][]byte) error {
	for i, d := range data {
		id := ""
		if i < len(ids) {
			id = ids[i]
		}
		if err := m.push(id, "decisions", d); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) PushRun(ctx context.Context, id string, data []byte) error {
	return m.push(id, "run", data)
}

func (m *Memory) PushStep(ctx context.Context, id string, data []byte) error {
	return m.push(id, "step", data)
}

func (m *Memory) Poll(ctx context.Context, batchSize int) ([]*Message, error) {
	out := make([]*Message, 0, batchSize)
	for len(out) < batchSize {
		select {
		case msg := <-m.ch:
			out = append(out, msg)
		default:
			metrics.QueuePollBatchSize.Observe(float64(len(out)))
			return out, nil
		}
	}
	metrics.QueuePollBatchSize.Observe(float64(len(out)))
	return out, nil
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}
