// Package main is the entry point for ingestd, the validate-and-forward HTTP
// boundary (C6) that accepts decision events, runs, and steps and pushes them
// onto the queue for workerd to materialize.
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

	"github.com/tracewell-io/tracewell/internal/config"
	"github.com/tracewell-io/tracewell/internal/ingest"
	"github.com/tracewell-io/tracewell/internal/logging"
	"github.com/tracewell-io/tracewell/internal/queue"
)

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
	logging.Info().Str("queue_type", cfg.Queue.Type).Msg("queue adapter ready")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      ingest.NewRouter(q),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("ingestd listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("ingestd server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}

	logging.Info().Msg("ingestd stopped")
}
