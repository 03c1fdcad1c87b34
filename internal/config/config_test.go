package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadWithKoanf_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadWithKoanf()
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Queue.Type)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithKoanf_EnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUEUE_TYPE", "broker")
	t.Setenv("BROKER_URL", "nats://127.0.0.1:4222")
	t.Setenv("PORT", "9090")
	t.Setenv("BLOB_LOCAL_PATH", "/tmp/blobs")

	cfg, err := LoadWithKoanf()
	require.NoError(t, err)
	require.Equal(t, "broker", cfg.Queue.Type)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.Queue.BrokerURL)
	require.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadWithKoanf_RejectsIncompleteBroker(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUEUE_TYPE", "broker")
	t.Setenv("BLOB_LOCAL_PATH", "/tmp/blobs")

	_, err := LoadWithKoanf()
	require.Error(t, err)
}

func TestValidate_RejectsMissingBlobTarget(t *testing.T) {
	cfg := defaultConfig()
	cfg.Blob.LocalPath = ""
	cfg.Worker.BatchSize = 100
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidate_RejectsUnknownQueueType(t *testing.T) {
	cfg := defaultConfig()
	cfg.Queue.Type = "carrier-pigeon"
	cfg.Blob.LocalPath = "/tmp/blobs"
	err := cfg.Validate()
	require.Error(t, err)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for k := range envMappings {
		require.NoError(t, os.Unsetenv(strings.ToUpper(k)))
	}
}
