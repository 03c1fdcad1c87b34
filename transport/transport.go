// Package transport implements the capture façade's error wall: a bounded
// retry HTTP sender that never surfaces a failure to its caller (§4.3, §7.2).
//
// It is deliberately decoupled from the root tracewell package's event types
// — it accepts an already-shaped envelope type name and any JSON-marshalable
// payload — so it can be unit tested and reused without an import cycle back
// to the façade that owns it.
package transport

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Logger is the minimal logging surface the transport needs. A nil Logger is
// valid and silences all diagnostic output — the transport's public contract
// never depends on logging (§7.2).
type Logger interface {
	Debugf(format string, args ...interface{})
}

// Config configures a Transport.
type Config struct {
	// IngestionURL is the base URL of the ingestion boundary; requests go to
	// {IngestionURL}/ingest.
	IngestionURL string
	// Timeout is the per-attempt HTTP timeout.
	Timeout time.Duration
	// MaxRetries is the number of bounded retry attempts after the first try.
	MaxRetries int
	// RetryDelay is the base delay; the Nth retry waits RetryDelay * 2^N.
	RetryDelay time.Duration
	// Logger receives debug-level diagnostics for otherwise-silent failures.
	Logger Logger
}

// envelope mirrors the wire format {"type": ..., "data": ...} without
// depending on the root package's Envelope type.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Transport sends envelopes to the ingestion boundary's POST /ingest endpoint
// with bounded exponential-backoff retry. Every public method is total: it
// returns nothing observable on failure (§4.3).
type Transport struct {
	cfg    Config
	client *http.Client
}

// New creates a Transport. Defaults are applied for any zero-valued Config field.
func New(cfg Config) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Transport{
		cfg: cfg,
		client: &http.Client{
			// Per-attempt timeout is enforced via context, not this client
			// timeout, so a slow attempt is abandoned without affecting the
			// next attempt's own budget.
		},
	}
}

// SendDecisionEvents best-effort-sends a batch of decision events.
func (t *Transport) SendDecisionEvents(events interface{}) {
	t.send("decisions", events)
}

// SendRun best-effort-sends a Run.
func (t *Transport) SendRun(run interface{}) {
	t.send("run", run)
}

// SendStep best-effort-sends a Step.
func (t *Transport) SendStep(step interface{}) {
	t.send("step", step)
}

// send performs the bounded retry loop and swallows every failure mode: DNS,
// connection refused, timeout, non-2xx status, and marshal errors all
// resolve to silence, per the transport's role as the SDK's error wall.
func (t *Transport) send(typ string, data interface{}) {
	body, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		t.debugf("marshal envelope type=%s: %v", typ, err)
		return
	}

	url := t.cfg.IngestionURL + "/ingest"

	for attempt := 0; attempt <= t.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := t.cfg.RetryDelay * time.Duration(1<<uint(attempt))
			time.Sleep(delay)
		}

		ok, retryable := t.attempt(url, body)
		if ok {
			return
		}
		if !retryable {
			// Timeouts are treated as non-retryable to respect upstream
			// latency budgets (§4.3): the attempt is abandoned outright.
			return
		}
	}
}

// attempt performs a single HTTP POST. It returns (success, retryable).
// Non-2xx responses and transport-level errors other than a timeout are
// retryable; a timed-out attempt is not (it has already spent its
// per-attempt budget), nor is a request that cannot be built.
func (t *Transport) attempt(url string, body []byte) (ok bool, retryable bool) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.debugf("build request: %v", err)
		return false, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			t.debugf("attempt timed out: %v", err)
			return false, false
		}
		t.debugf("attempt failed: %v", err)
		return false, true
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, false
	}
	t.debugf("non-2xx response: %d", resp.StatusCode)
	return false, true
}

func (t *Transport) debugf(format string, args ...interface{}) {
	if t.cfg.Logger != nil {
		t.cfg.Logger.Debugf(format, args...)
	}
}
