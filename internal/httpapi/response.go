// Package httpapi provides the standardized {success, data, error, meta}
// response envelope shared by the ingestion and query HTTP surfaces.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tracewell-io/tracewell/internal/logging"
	"github.com/tracewell-io/tracewell/internal/middleware"
)

// Response is the standardized response wrapper for all HTTP endpoints.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Error represents an error response.
type Error struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Meta contains optional response metadata.
type Meta struct {
	RequestID  string      `json:"request_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	DurationMs int64       `json:"duration_ms,omitempty"`
	Count      int         `json:"count,omitempty"`
	Total      int64       `json:"total,omitempty"`
	Partial    bool        `json:"partial,omitempty"`
	Queued     interface{} `json:"queued,omitempty"`
}

const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

// Writer writes standardized responses for a single request.
type Writer struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewWriter creates a Writer bound to one request/response pair.
func NewWriter(w http.ResponseWriter, r *http.Request) *Writer {
	return &Writer{w: w, r: r, startTime: time.Now()}
}

// Context returns the bound request's context, so handlers can thread it
// into downstream calls without holding onto the request directly.
func (rw *Writer) Context() context.Context {
	return rw.r.Context()
}

// Success writes a 200 response with data.
func (rw *Writer) Success(data interface{}) {
	rw.SuccessWithMeta(data, nil)
}

// SuccessWithMeta writes a 200 response with data and metadata.
func (rw *Writer) SuccessWithMeta(data interface{}, meta *Meta) {
	if meta == nil {
		meta = &Meta{}
	}
	meta.Timestamp = time.Now()
	meta.DurationMs = time.Since(rw.startTime).Milliseconds()
	meta.RequestID = middleware.GetRequestID(rw.r.Context())

	rw.writeJSON(http.StatusOK, Response{Success: true, Data: data, Meta: meta})
}

// Error writes an error response with the given status code.
func (rw *Writer) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error response with additional details.
func (rw *Writer) ErrorWithDetails(statusCode int, code, message string, details interface{}) {
	requestID := middleware.GetRequestID(rw.r.Context())

	rw.writeJSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
		Meta: &Meta{
			Timestamp:  time.Now(),
			DurationMs: time.Since(rw.startTime).Milliseconds(),
			RequestID:  requestID,
		},
	})
}

// BadRequest writes a 400 error.
func (rw *Writer) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// ValidationError writes a 400 error carrying validation details.
func (rw *Writer) ValidationError(message string, details interface{}) {
	rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, message, details)
}

// NotFound writes a 404 error.
func (rw *Writer) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError writes a 500 error.
func (rw *Writer) InternalError(message string) {
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, message)
}

func (rw *Writer) writeJSON(statusCode int, data interface{}) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)
	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("failed to encode JSON response")
	}
}
