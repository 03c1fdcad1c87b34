// Package config loads the shared configuration for the ingestion, worker,
// and query binaries: layered defaults, optional YAML file, and environment
// variables, unmarshaled into a single Config tree.
package config

import (
	"fmt"
	"time"
)

// QueueConfig configures the event queue adapter shared by ingestd and workerd.
type QueueConfig struct {
	// Type selects the adapter: memory, http, or broker.
	Type string `koanf:"type"`
	// URL is the target for the http adapter.
	URL string `koanf:"url"`
	// BrokerURL is the NATS JetStream connection string for the broker adapter.
	BrokerURL string `koanf:"broker_url"`
}

// AnalyticsConfig configures the embedded DuckDB file shared by workerd
// (writer) and queryd (reader). Both processes open the same path; DuckDB's
// single-writer model means only one workerd replica may run against it.
type AnalyticsConfig struct {
	Path string `koanf:"path"`
}

// BlobConfig configures the blob store backend shared by workerd and queryd.
type BlobConfig struct {
	Endpoint  string `koanf:"endpoint"`
	Region    string `koanf:"region"`
	ProjectID string `koanf:"project_id"`
	Bucket    string `koanf:"bucket"`
	// LocalPath, when set, selects the filesystem backend instead of GCS/S3.
	LocalPath string `koanf:"local_path"`
}

// WorkerConfig configures workerd's poll loop.
type WorkerConfig struct {
	PollInterval time.Duration `koanf:"poll_interval_ms"`
	BatchSize    int           `koanf:"batch_size"`
	// DedupStrategy selects the idempotency set's backing cache: "exact"
	// (default, zero false positives) or "bloom" (bounded memory at a small
	// false-positive cost, for very high message-id cardinality).
	DedupStrategy string `koanf:"dedup_strategy"`
}

// ServerConfig configures one binary's HTTP listener.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
}

// LoggingConfig configures the shared zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Config is the full configuration tree loaded by each binary. Not every
// field is relevant to every binary: ingestd reads Queue, workerd reads Queue,
// Analytics, Blob, and Worker, and queryd reads Analytics and Blob. All three
// read Server and Logging.
type Config struct {
	Queue     QueueConfig     `koanf:"queue"`
	Analytics AnalyticsConfig `koanf:"analytical"`
	Blob      BlobConfig      `koanf:"blob"`
	Worker    WorkerConfig    `koanf:"worker"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

func defaultConfig() *Config {
	return &Config{
		Queue: QueueConfig{
			Type: "memory",
		},
		Analytics: AnalyticsConfig{
			Path: "tracewell.duckdb",
		},
		Blob: BlobConfig{
			LocalPath: "./blobs",
		},
		Worker: WorkerConfig{
			PollInterval:  1 * time.Second,
			BatchSize:     100,
			DedupStrategy: "exact",
		},
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate rejects configuration combinations that would fail at runtime
// rather than at startup: an unknown queue type, a queue adapter selected
// without the URL it needs, a blob store with neither a local path nor a
// bucket, or a non-positive worker batch size.
func (c *Config) Validate() error {
	switch c.Queue.Type {
	case "memory":
	case "http":
		if c.Queue.URL == "" {
			return fmt.Errorf("queue type %q requires QUEUE_URL", c.Queue.Type)
		}
	case "broker":
		if c.Queue.BrokerURL == "" {
			return fmt.Errorf("queue type %q requires BROKER_URL", c.Queue.Type)
		}
	default:
		return fmt.Errorf("unknown queue type %q", c.Queue.Type)
	}

	if c.Blob.LocalPath == "" && c.Blob.Bucket == "" {
		return fmt.Errorf("blob store requires either BLOB_LOCAL_PATH or BLOB_BUCKET")
	}

	if c.Worker.BatchSize <= 0 {
		return fmt.Errorf("worker batch size must be positive, got %d", c.Worker.BatchSize)
	}

	return nil
}
