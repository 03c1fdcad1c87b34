package tracewell

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type capturedEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestClient(t *testing.T, capture *[]capturedEnvelope, mu *sync.Mutex) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env capturedEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		mu.Lock()
		*capture = append(*capture, env)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))

	cfg := DefaultConfig()
	cfg.IngestionURL = srv.URL
	cfg.BufferBatchSize = 1
	cfg.BufferFlushInterval = time.Hour
	c := NewClient(cfg)
	return c, srv.Close
}

func TestClient_StartAndEndRun(t *testing.T) {
	var captured []capturedEnvelope
	var mu sync.Mutex
	c, closeSrv := newTestClient(t, &captured, &mu)
	defer closeSrv()

	runID := c.StartRun("pipeline-1", []int{1, 2, 3}, nil)
	require.NotEmpty(t, runID)

	c.EndRun(runID, []int{1, 2}, nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(captured) >= 2
	}, time.Second, time.Millisecond)
}

func TestClient_EndRunUnknownIsNoop(t *testing.T) {
	var captured []capturedEnvelope
	var mu sync.Mutex
	c, closeSrv := newTestClient(t, &captured, &mu)
	defer closeSrv()

	require.NotPanics(t, func() {
		c.EndRun("does-not-exist", nil, nil)
	})
}

func TestClient_StepFilterEmitsDecisions(t *testing.T) {
	var captured []capturedEnvelope
	var mu sync.Mutex
	c, closeSrv := newTestClient(t, &captured, &mu)
	defer closeSrv()

	runID := c.StartRun("pipeline-1", nil, nil)

	input := []map[string]interface{}{
		{"id": "a"}, {"id": "b"}, {"id": "c"},
	}
	output, err := c.Step(runID, StepFilter, "dedupe", input, func(in interface{}) (interface{}, error) {
		items := in.([]map[string]interface{})
		return []map[string]interface{}{items[0], items[2]}, nil
	})
	require.NoError(t, err)
	require.Len(t, output, 2)

	c.Flush()

	mu.Lock()
	defer mu.Unlock()
	var decisionsEnvelope *capturedEnvelope
	for i := range captured {
		if captured[i].Type == "decisions" {
			decisionsEnvelope = &captured[i]
		}
	}
	require.NotNil(t, decisionsEnvelope)

	var events []DecisionEvent
	require.NoError(t, json.Unmarshal(decisionsEnvelope.Data, &events))
	require.Len(t, events, 3)

	outcomes := map[string]Outcome{}
	for _, e := range events {
		outcomes[e.ItemID] = e.Outcome
	}
	require.Equal(t, OutcomeKept, outcomes["a"])
	require.Equal(t, OutcomeEliminated, outcomes["b"])
	require.Equal(t, OutcomeKept, outcomes["c"])
}

func TestClient_StepPropagatesFunctionError(t *testing.T) {
	var captured []capturedEnvelope
	var mu sync.Mutex
	c, closeSrv := newTestClient(t, &captured, &mu)
	defer closeSrv()

	runID := c.StartRun("pipeline-1", nil, nil)
	_, err := c.Step(runID, StepTransform, "boom", 1, func(in interface{}) (interface{}, error) {
		return nil, errBoom
	})
	require.Error(t, err)
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestClient_DecisionCallbackOverridesStructural(t *testing.T) {
	var captured []capturedEnvelope
	var mu sync.Mutex
	c, closeSrv := newTestClient(t, &captured, &mu)
	defer closeSrv()

	runID := c.StartRun("pipeline-1", nil, nil)
	input := []int{1, 2, 3}
	_, err := c.Step(runID, StepFilter, "custom", input, func(in interface{}) (interface{}, error) {
		return in, nil
	}, WithDecisionCallback(func(index int, in, out interface{}) *Decision {
		reason := "custom"
		return &Decision{Outcome: OutcomeKept, Reason: reason}
	}))
	require.NoError(t, err)

	c.Flush()

	mu.Lock()
	defer mu.Unlock()
	var found bool
	for _, env := range captured {
		if env.Type == "decisions" {
			var events []DecisionEvent
			require.NoError(t, json.Unmarshal(env.Data, &events))
			for _, e := range events {
				require.Equal(t, "custom", e.Reason)
			}
			found = len(events) > 0
		}
	}
	require.True(t, found)
}

func TestClient_MetricsOnlySkipsDecisionEvents(t *testing.T) {
	var captured []capturedEnvelope
	var mu sync.Mutex
	c, closeSrv := newTestClient(t, &captured, &mu)
	defer closeSrv()
	c.cfg.CaptureLevel = CaptureMetricsOnly

	runID := c.StartRun("pipeline-1", nil, nil)
	_, err := c.Step(runID, StepFilter, "noop", []int{1, 2}, func(in interface{}) (interface{}, error) {
		return in, nil
	})
	require.NoError(t, err)

	c.Flush()

	mu.Lock()
	defer mu.Unlock()
	for _, env := range captured {
		require.NotEqual(t, "decisions", env.Type)
	}
}
