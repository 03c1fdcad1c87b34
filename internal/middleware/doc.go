// Package middleware provides HTTP middleware for the ingestion, processor,
// and query services: request-ID propagation and Prometheus instrumentation.
//
// Middleware is written against the plain func(http.HandlerFunc) http.HandlerFunc
// shape and adapted to chi's func(http.Handler) http.Handler via Adapt, so the
// same handlers can be unit tested without a router.
package middleware
