// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package supervisor provides process supervision for workerd using suture v4.

This package implements a two-layer supervisor tree managing the lifecycle of
workerd's long-running services: Erlang/OTP-style supervision with automatic
restart, failure isolation, and graceful shutdown.

# Overview

	RootSupervisor ("tracewell-workerd")
	├── IngestSupervisor ("ingest-layer")
	│   └── queue consumer loop(s)
	└── ProcessingSupervisor ("processing-layer")
	    └── decision processor

A crash in the queue consumer doesn't take the processor down, and vice
versa; each layer restarts independently.

# Usage Example

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    log.Fatal(err)
	}

	tree.AddProcessingService(proc)

	ctx := context.Background()
	if err := tree.Serve(ctx); err != nil {
	    log.Printf("supervisor stopped: %v", err)
	}

# Configuration

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,
	    FailureDecay:     30.0,
	    FailureBackoff:   15 * time.Second,
	    ShutdownTimeout:  10 * time.Second,
	}

# What Is NOT Supervised

DuckDB is intentionally not supervised: it's an embedded library, not a
long-running service, and its connection lifecycle is owned by
internal/analytics.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service didn't stop: %v", svc)
	}

# See Also

  - internal/supervisor/services: Service wrappers
  - github.com/thejerf/suture/v4: Underlying library
*/
package supervisor
