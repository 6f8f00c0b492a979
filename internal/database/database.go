// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Package database stores the catalog and purchase history in DuckDB.
//
// The CSV files remain the source of truth: every load replaces the table
// contents from disk inside a transaction, so a failed load leaves the
// previous rows in place. On top of the tables the package serves the
// recommend.DataProvider contract and the analytics queries used by the
// dashboard endpoints.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/storelens/internal/config"
	"github.com/tomtom215/storelens/internal/logging"
)

// queryTimeout bounds every analytics query.
const queryTimeout = 30 * time.Second

// DB wraps the DuckDB connection.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// One lock per table so the catalog and purchases can be reloaded
	// concurrently while reloads of the same table queue up.
	catalogMu   sync.Mutex
	purchasesMu sync.Mutex
	booksMu     sync.Mutex
}

// New opens the database and creates the schema. An empty cfg.Path opens
// an in-memory database.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg == nil {
		cfg = &config.DatabaseConfig{}
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", connectionString(path, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.createTables(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Debug().Str("path", path).Msg("DuckDB opened")
	return db, nil
}

func connectionString(path string, cfg *config.DatabaseConfig) string {
	// Extensions are never needed; disabling autoload keeps startup offline.
	connStr := path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false"
	if cfg.Threads > 0 {
		connStr += fmt.Sprintf("&threads=%d", cfg.Threads)
	}
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}
	return connStr
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		product_id INTEGER NOT NULL,
		name VARCHAR NOT NULL,
		category VARCHAR NOT NULL,
		price DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		user_id INTEGER NOT NULL,
		product_id INTEGER NOT NULL,
		ts TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		book_id INTEGER NOT NULL,
		author VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		average_rating DOUBLE NOT NULL,
		ratings_count BIGINT NOT NULL,
		image_url VARCHAR NOT NULL
	)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Conn exposes the underlying connection for tests and ad-hoc queries.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// closeQuietly closes a resource on an error path where the Close error
// is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// closeWithLog closes rows or statements and logs a failure.
func closeWithLog(closer io.Closer, resource string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resource).Err(err).Msg("Failed to close resource")
	}
}
