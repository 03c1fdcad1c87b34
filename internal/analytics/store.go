// Package analytics implements the embedded columnar analytical store (C9):
// three idempotently-created DuckDB tables and the query contract consumed
// by the query engine (C10).
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tracewell-io/tracewell/internal/metrics"
)

// Store wraps a DuckDB connection and prepared-statement cache, grounded on
// the teacher's database.DB.
type Store struct {
	conn *sql.DB

	stmtCache   map[string]*sql.Stmt
	stmtCacheMu sync.RWMutex
}

// Open opens (creating if necessary) the DuckDB file at path and runs the
// idempotent DDL for runs/steps/decisionEvents.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping duckdb %s: %w", path, err)
	}

	s := &Store{conn: conn, stmtCache: make(map[string]*sql.Stmt)}
	if err := s.createSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	s.stmtCacheMu.Lock()
	for _, stmt := range s.stmtCache {
		stmt.Close()
	}
	s.stmtCache = nil
	s.stmtCacheMu.Unlock()
	return s.conn.Close()
}

// createSchema runs the CREATE TABLE IF NOT EXISTS statements for the three
// tables (§4.7), grounded on database_schema.go's getTableCreationQueries.
func (s *Store) createSchema() error {
	for _, q := range tableCreationQueries() {
		if _, err := s.conn.Exec(q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			pipeline_id VARCHAR,
			status VARCHAR,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			error VARCHAR,
			total_steps INTEGER,
			total_input_count BIGINT,
			total_output_count BIGINT,
			overall_elimination_ratio DOUBLE,
			metadata VARCHAR,
			partition_month VARCHAR,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS steps (
			step_id VARCHAR,
			run_id VARCHAR,
			pipeline_id VARCHAR,
			type VARCHAR,
			name VARCHAR,
			input_count BIGINT,
			output_count BIGINT,
			elimination_ratio DOUBLE,
			kept_count BIGINT,
			eliminated_count BIGINT,
			scored_count BIGINT,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			partition_month VARCHAR,
			updated_at TIMESTAMP,
			PRIMARY KEY (step_id, run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS decision_events (
			run_id VARCHAR,
			step_id VARCHAR,
			"timestamp" TIMESTAMP,
			event_id VARCHAR,
			pipeline_id VARCHAR,
			outcome VARCHAR,
			item_id VARCHAR,
			score DOUBLE,
			blob_key VARCHAR,
			partition_month VARCHAR,
			updated_at TIMESTAMP,
			PRIMARY KEY (run_id, step_id, "timestamp", event_id)
		)`,
	}
}

func partitionMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// stmt returns a cached prepared statement for query, preparing it on first
// use, grounded on database.go's stmtCache pattern.
func (s *Store) stmt(ctx context.Context, query string) (*sql.Stmt, error) {
	s.stmtCacheMu.RLock()
	cached, ok := s.stmtCache[query]
	s.stmtCacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	s.stmtCacheMu.Lock()
	defer s.stmtCacheMu.Unlock()
	if cached, ok := s.stmtCache[query]; ok {
		return cached, nil
	}
	prepared, err := s.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	s.stmtCache[query] = prepared
	return prepared, nil
}

func withQueryMetrics(operation, table string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveDuration(metrics.AnalyticsQueryDuration.WithLabelValues(operation, table), start)
	if err != nil {
		metrics.AnalyticsQueryErrors.WithLabelValues(operation, table).Inc()
	}
	return err
}
