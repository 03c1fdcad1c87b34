package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for, in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tracewell/config.yaml",
	"/etc/tracewell/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envMappings maps recognised environment variable names to koanf config
// paths. Unmapped variables are ignored so unrelated process environment
// does not leak into the config tree.
var envMappings = map[string]string{
	"queue_type":       "queue.type",
	"queue_url":        "queue.url",
	"broker_url":       "queue.broker_url",
	"analytical_path":  "analytical.path",
	"blob_endpoint":    "blob.endpoint",
	"blob_region":      "blob.region",
	"blob_project_id":  "blob.project_id",
	"blob_bucket":      "blob.bucket",
	"blob_local_path":  "blob.local_path",
	"poll_interval_ms": "worker.poll_interval_ms",
	"batch_size":       "worker.batch_size",
	"dedup_strategy":   "worker.dedup_strategy",
	"port":             "server.port",
	"host":             "server.host",
	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
}

// LoadWithKoanf loads configuration with layered precedence: built-in
// defaults, then an optional YAML config file, then environment variables
// (highest priority).
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a fresh Koanf instance for advanced use (testing
// with layered overrides, future hot-reload support).
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}
