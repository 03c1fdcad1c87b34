//go:build nats

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"
)

// startEmbeddedNATS boots an in-process JetStream-enabled server for
// integration testing, grounded on the teacher's eventprocessor embedded
// server helper. Gated behind the "nats" build tag since it needs the full
// nats-server binary dependency, not just the client.
func startEmbeddedNATS(t *testing.T) string {
	t.Helper()

	opts := &server.Options{
		ServerName: "tracewell-test",
		Host:       "127.0.0.1",
		Port:       -1, // random free port
		JetStream:  true,
		StoreDir:   t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(10*time.Second), "embedded NATS server did not become ready")

	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns.ClientURL()
}

func TestNATSJetStream_PushAndPoll(t *testing.T) {
	url := startEmbeddedNATS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adapter, err := NewNATSJetStream(ctx, NATSJetStreamConfig{
		URL:         url,
		DurableName: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	require.NoError(t, adapter.PushRun(ctx, "run-1", []byte(`{"runId":"run-1"}`)))

	var msgs []*Message
	require.Eventually(t, func() bool {
		polled, err := adapter.Poll(ctx, 10)
		require.NoError(t, err)
		msgs = append(msgs, polled...)
		return len(msgs) >= 1
	}, 5*time.Second, 50*time.Millisecond)

	require.Equal(t, "run", msgs[0].Type)
	require.Equal(t, []byte(`{"runId":"run-1"}`), msgs[0].Data)
	msgs[0].Ack()
}
