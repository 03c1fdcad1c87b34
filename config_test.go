package tracewell

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, CaptureFull, cfg.CaptureLevel)
	require.Equal(t, 1000, cfg.BufferMaxSize)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	for _, kv := range []struct{ k, v string }{
		{"CAPTURE_LEVEL", "sampled"},
		{"INGESTION_URL", "http://example.com"},
		{"BUFFER_MAX_SIZE", "42"},
		{"BUFFER_BATCH_SIZE", "7"},
		{"BUFFER_FLUSH_MS", "250"},
		{"TRANSPORT_TIMEOUT_MS", "100"},
		{"TRANSPORT_MAX_RETRIES", "9"},
		{"TRANSPORT_RETRY_DELAY_MS", "50"},
	} {
		t.Setenv(kv.k, kv.v)
	}
	defer func() {
		for _, k := range []string{
			"CAPTURE_LEVEL", "INGESTION_URL", "BUFFER_MAX_SIZE", "BUFFER_BATCH_SIZE",
			"BUFFER_FLUSH_MS", "TRANSPORT_TIMEOUT_MS", "TRANSPORT_MAX_RETRIES", "TRANSPORT_RETRY_DELAY_MS",
		} {
			require.NoError(t, os.Unsetenv(k))
		}
	}()

	cfg := LoadConfig()
	require.Equal(t, CaptureSampled, cfg.CaptureLevel)
	require.Equal(t, "http://example.com", cfg.IngestionURL)
	require.Equal(t, 42, cfg.BufferMaxSize)
	require.Equal(t, 7, cfg.BufferBatchSize)
	require.Equal(t, 250*time.Millisecond, cfg.BufferFlushInterval)
	require.Equal(t, 100*time.Millisecond, cfg.TransportTimeout)
	require.Equal(t, 9, cfg.TransportMaxRetries)
	require.Equal(t, 50*time.Millisecond, cfg.TransportRetryDelay)
}

func TestLoadConfig_IgnoresInvalidCaptureLevel(t *testing.T) {
	t.Setenv("CAPTURE_LEVEL", "not-a-real-level")
	cfg := LoadConfig()
	require.Equal(t, CaptureFull, cfg.CaptureLevel)
}
