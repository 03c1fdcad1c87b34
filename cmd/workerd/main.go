// Package main is the entry point for workerd, the cooperative batch worker
// (C7) that polls the queue and materializes decision events, runs, and
// steps into the blob store and analytical store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tracewell-io/tracewell/internal/analytics"
	"github.com/tracewell-io/tracewell/internal/blobstore"
	"github.com/tracewell-io/tracewell/internal/config"
	"github.com/tracewell-io/tracewell/internal/logging"
	"github.com/tracewell-io/tracewell/internal/processor"
	"github.com/tracewell-io/tracewell/internal/queue"
	"github.com/tracewell-io/tracewell/internal/supervisor"
	"github.com/tracewell-io/tracewell/internal/supervisor/services"
)

const idempotencySetTTL = 24 * time.Hour

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := queue.NewFromConfig(ctx, cfg.Queue)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct queue adapter")
	}
	defer func() {
		if err := q.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing queue adapter")
		}
	}()

	blobs, err := blobstore.NewFromConfig(ctx, cfg.Blob)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to construct blob store")
	}

	store, err := analytics.Open(cfg.Analytics.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open analytical store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing analytical store")
		}
	}()
	logging.Info().Str("path", cfg.Analytics.Path).Msg("analytical store opened")

	proc := processor.New(q, blobs, store, processor.Config{
		PollInterval:  cfg.Worker.PollInterval,
		BatchSize:     cfg.Worker.BatchSize,
		DedupStrategy: cfg.Worker.DedupStrategy,
	}, idempotencySetTTL)

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}
	tree.AddProcessingService(proc)

	healthServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      healthRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	tree.AddIngestService(services.NewHTTPServerService(healthServer, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting workerd supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
	}

	logging.Info().Msg("workerd stopped")
}

// healthRouter serves /healthz and /metrics; workerd has no domain HTTP
// surface, only liveness and Prometheus scraping.
func healthRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
