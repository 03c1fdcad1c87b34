// Package metrics provides Prometheus metrics collection and export for the
// ingestion, processor, and query services.
//
// Metrics are registered at package init via promauto and exposed by each
// binary's /metrics endpoint through promhttp.Handler().
package metrics
