package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tracewell-io/tracewell/internal/errs"
	"github.com/tracewell-io/tracewell/internal/httpapi"
	"github.com/tracewell-io/tracewell/internal/metrics"
	"github.com/tracewell-io/tracewell/internal/queue"
)

// Handler serves POST /ingest, grounded on the teacher's validate-then-push
// handler shape (handlers.go's decode/validate/respond sequence).
type Handler struct {
	queue queue.Adapter
}

// NewHandler constructs a Handler backed by the given queue adapter.
func NewHandler(q queue.Adapter) *Handler {
	return &Handler{queue: q}
}

type envelopeRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Ingest handles POST /ingest: {"type": "decision"|"decisions"|"run"|"step", "data": <payload>} (§4.5).
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	rw := httpapi.NewWriter(w, r)

	var env envelopeRequest
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		metrics.IngestRequestsTotal.WithLabelValues("unknown", "bad_request").Inc()
		rw.BadRequest("request body must be a JSON object with type and data")
		return
	}
	if env.Type == "" || len(env.Data) == 0 {
		metrics.IngestRequestsTotal.WithLabelValues("unknown", "bad_request").Inc()
		rw.BadRequest("type and data are required")
		return
	}

	start := time.Now()
	defer func() {
		metrics.ObserveDuration(metrics.IngestRequestDuration.WithLabelValues(env.Type), start)
	}()

	ctx := rw.Context()
	switch env.Type {
	case "decisions":
		h.ingestBatch(ctx, rw, env.Data)
	case "decision", "run", "step":
		h.ingestOne(ctx, rw, env.Type, env.Data)
	default:
		metrics.IngestRequestsTotal.WithLabelValues(env.Type, "bad_request").Inc()
		rw.BadRequest("unknown envelope type")
	}
}

func (h *Handler) ingestOne(ctx context.Context, rw *httpapi.Writer, typ string, data json.RawMessage) {
	_, encoded, err := validateEnvelopeData(typ, data)
	if err != nil {
		metrics.IngestRequestsTotal.WithLabelValues(typ, "validation_failed").Inc()
		rw.ValidationError(err.Error(), nil)
		return
	}

	id := uuid.NewString()
	if err := h.push(ctx, typ, id, encoded); err != nil {
		metrics.IngestRequestsTotal.WithLabelValues(typ, "enqueue_failed").Inc()
		rw.InternalError("failed to enqueue payload")
		return
	}

	metrics.IngestRequestsTotal.WithLabelValues(typ, "accepted").Inc()
	rw.Success(map[string]interface{}{"queued": 1})
}

// ingestBatch validates each element of a decisions array independently;
// partial batches are accepted (§4.5 scenario 4).
func (h *Handler) ingestBatch(ctx context.Context, rw *httpapi.Writer, data json.RawMessage) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		metrics.IngestRequestsTotal.WithLabelValues("decisions", "bad_request").Inc()
		rw.BadRequest("data must be an array for type=decisions")
		return
	}

	var ids []string
	var payloads [][]byte
	for _, item := range raw {
		_, encoded, err := validateEnvelopeData("decision", item)
		if err != nil {
			continue
		}
		ids = append(ids, uuid.NewString())
		payloads = append(payloads, encoded)
	}

	total := len(raw)
	queued := len(payloads)
	if queued == 0 {
		metrics.IngestRequestsTotal.WithLabelValues("decisions", "validation_failed").Inc()
		rw.ValidationError("no valid elements in decisions batch", map[string]interface{}{"total": total})
		return
	}

	if err := h.queue.PushDecisionEvents(ctx, ids, payloads); err != nil {
		metrics.IngestRequestsTotal.WithLabelValues("decisions", "enqueue_failed").Inc()
		rw.InternalError("failed to enqueue batch")
		return
	}

	partial := queued < total
	if partial {
		metrics.IngestBatchPartial.Inc()
	}
	metrics.IngestRequestsTotal.WithLabelValues("decisions", "accepted").Inc()
	rw.SuccessWithMeta(map[string]interface{}{"queued": queued, "total": total, "partial": partial}, nil)
}

func (h *Handler) push(ctx context.Context, typ, id string, data []byte) error {
	switch typ {
	case "decision":
		return h.queue.PushDecisionEvent(ctx, id, data)
	case "run":
		return h.queue.PushRun(ctx, id, data)
	case "step":
		return h.queue.PushStep(ctx, id, data)
	default:
		return errs.NewPermanent("unknown envelope type", nil, errs.CategoryValidation)
	}
}
