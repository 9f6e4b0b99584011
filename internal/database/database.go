// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

// Package database wraps DuckDB and provides all data access for Visitgrid:
// visit CRUD and identity lookups, the reaper's bulk deactivation, the
// admin listing, and the dashboard aggregation pipeline.
//
// All aggregation runs inside DuckDB's native GROUP BY pipeline; no query
// in this package materializes raw rows to aggregate in process memory.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/visitgrid/visitgrid/internal/config"
	"github.com/visitgrid/visitgrid/internal/logging"
	"github.com/visitgrid/visitgrid/internal/metrics"
	"github.com/visitgrid/visitgrid/internal/models"
)

// defaultQueryTimeout bounds queries whose callers pass a context without
// a deadline.
const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the DuckDB database at cfg.Path and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// The parent directory may not exist on first start.
	if dbDir := filepath.Dir(cfg.Path); dbDir != "" && dbDir != "." && cfg.Path != ":memory:" {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}

	// DuckDB is an embedded single-writer engine; a small pool avoids
	// write contention while still letting reads overlap.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(0)

	if err := db.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Conn exposes the underlying sql.DB for collaborators (export, health).
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// observeQuery returns a hook for deferred use that records one query's
// duration and error state. Not-found results are misses, not failures,
// so they are excluded from the error count.
func observeQuery(operation string, errp *error) func() {
	start := time.Now()
	return func() {
		err := *errp
		if errors.Is(err, models.ErrIdentityNotFound) {
			err = nil
		}
		metrics.RecordDBQuery(operation, time.Since(start), err)
	}
}

// storeErr tags a low-level engine failure so callers can match
// models.ErrStoreUnavailable without parsing messages.
func storeErr(msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, models.ErrStoreUnavailable, err)
}

// ensureContext guarantees queries run with a deadline.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing database connection")
	}
}
