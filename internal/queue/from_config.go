package queue

import (
	"context"
	"fmt"

	"github.com/tracewell-io/tracewell/internal/config"
)

// NewFromConfig selects and constructs the Adapter named by cfg.Type. Memory
// is the zero-dependency default for local/dev runs; http and broker require
// their respective URL fields, already enforced by config.Config.Validate.
func NewFromConfig(ctx context.Context, cfg config.QueueConfig) (Adapter, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(1024), nil
	case "http":
		return NewHTTP(cfg.URL), nil
	case "broker":
		return NewNATSJetStream(ctx, NATSJetStreamConfig{URL: cfg.BrokerURL})
	default:
		return nil, fmt.Errorf("queue: unknown adapter type %q", cfg.Type)
	}
}
