package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tracewell-io/tracewell/internal/errs"
	"github.com/tracewell-io/tracewell/internal/logging"
	"github.com/tracewell-io/tracewell/internal/metrics"
)

// HTTP fronts a remote queue service over plain HTTP POST/GET, for
// QUEUE_TYPE=http (local/dev use), wrapped in a circuit breaker so a stalled
// remote queue degrades to fast failure rather than blocking pushes.
type HTTP struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewHTTP creates an HTTP-fronted adapter targeting baseURL.
func NewHTTP(baseURL string) *HTTP {
	settings := gobreaker.Settings{
		Name:        "queue-http",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &HTTP{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

type httpEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data []byte `json:"data"`
}

func (h *HTTP) push(ctx context.Context, id, typ string, data []byte) error {
	body, err := json.Marshal(httpEnvelope{ID: id, Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	_, err = h.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/push", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.client.Do(req)
		if err != nil {
			metrics.QueuePushTotal.WithLabelValues("http", "error").Inc()
			return nil, errs.NewRetryable("push queue message", err, errs.CategoryConnection)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			metrics.QueuePushTotal.WithLabelValues("http", "error").Inc()
			return nil, errs.NewRetryable("queue backend returned "+resp.Status, nil, errs.CategoryConnection)
		}
		if resp.StatusCode >= 400 {
			metrics.QueuePushTotal.WithLabelValues("http", "rejected").Inc()
			return nil, errs.NewPermanent("queue backend rejected message: "+resp.Status, nil, errs.CategoryValidation)
		}
		metrics.QueuePushTotal.WithLabelValues("http", "ok").Inc()
		return nil, nil
	})
	if err != nil {
		log := logging.Logger()
		log.Debug().Err(err).Str("type", typ).Msg("http queue push failed")
	}
	return err
}

func (h *HTTP) PushDecisionEvent(ctx context.Context, id string, data []byte) error {
	return h.push(ctx, id, "decision", data)
}

func (h *HTTP) PushDecisionEvents(ctx context.Context, ids []string, data [][]byte) error {
	for i, d := range data {
		if err := h.push(ctx, ids[i], "decisions", d); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTP) PushRun(ctx context.Context, id string, data []byte) error {
	return h.push(ctx, id, "run", data)
}

func (h *HTTP) PushStep(ctx context.Context, id string, data []byte) error {
	return h.push(ctx, id, "step", data)
}

// Poll fetches up to batchSize pending messages from the remote queue's
// GET /poll?batch=N endpoint. Acked/nacked via subsequent POST /ack/{id} and
// POST /nack/{id} calls keyed by message ID.
func (h *HTTP) Poll(ctx context.Context, batchSize int) ([]*Message, error) {
	url := fmt.Sprintf("%s/poll?batch=%d", h.baseURL, batchSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, nil // empty poll on transient failure; caller retries next tick
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelopes []httpEnvelope
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}

	msgs := make([]*Message, 0, len(envelopes))
	for _, e := range envelopes {
		id := e.ID
		msgs = append(msgs, &Message{
			ID:       id,
			Type:     e.Type,
			Data:     e.Data,
			ackFunc:  func() { h.ackRemote(ctx, id) },
			nackFunc: func() { h.nackRemote(ctx, id) },
		})
	}
	metrics.QueuePollBatchSize.Observe(float64(len(msgs)))
	return msgs, nil
}

func (h *HTTP) ackRemote(ctx context.Context, id string) {
	h.notifyRemote(ctx, "/ack/"+id)
}

func (h *HTTP) nackRemote(ctx context.Context, id string) {
	h.notifyRemote(ctx, "/nack/"+id)
}

func (h *HTTP) notifyRemote(ctx context.Context, path string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, nil)
	if err != nil {
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		log := logging.Logger()
		log.Debug().Err(err).Str("path", path).Msg("http queue ack/nack failed")
		return
	}
	resp.Body.Close()
}

func (h *HTTP) Close() error {
	return nil
}
