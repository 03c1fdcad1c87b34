package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTP_PushSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/push", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL)
	err := h.PushRun(context.Background(), "r1", []byte(`{"runId":"r1"}`))
	require.NoError(t, err)
}

func TestHTTP_PushRejectedIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL)
	err := h.PushStep(context.Background(), "s1", []byte(`{}`))
	require.Error(t, err)
}

func TestHTTP_PollParsesEnvelopes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/poll", r.URL.Path)
		payload, _ := json.Marshal([]httpEnvelope{
			{ID: "e1", Type: "decision", Data: []byte(`{"eventId":"e1"}`)},
		})
		w.Write(payload)
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL)
	msgs, err := h.Poll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "e1", msgs[0].ID)
	require.NotPanics(t, msgs[0].Ack)
}
