//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoETL.
//
// GoETL is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoETL is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoETL. If not, see https://www.gnu.org/licenses/.

package writers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/schema"
)

// This file implements the warehouse loader: each table is mirrored into a
// PostgreSQL table of the same name, replaced atomically per load.

// PostgresWriterError wraps PostgreSQL-specific write errors with context about the operation.
type PostgresWriterError struct {
	Op    string // The operation being performed (e.g., "connect", "create_table", "copy", "commit")
	Table string // Target table, empty for connection errors
	Err   error  // The underlying error
}

// Error returns the error string for PostgresWriterError.
func (e *PostgresWriterError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("postgres writer %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("postgres writer %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error for PostgresWriterError.
func (e *PostgresWriterError) Unwrap() error {
	return e.Err
}

// PostgresWriterStats holds PostgreSQL load statistics.
type PostgresWriterStats struct {
	RecordsWritten   int64            // Total rows copied
	TablesLoaded     int64            // Number of successful loads
	TransactionCount int64            // Number of transactions committed
	WriteDuration    time.Duration    // Total time spent loading
	ConnectionTime   time.Duration    // Time spent establishing connection
	NullValueCounts  map[string]int64 // Count of null values per table.column
}

// PostgresWriterOptions configures the PostgreSQL writer.
type PostgresWriterOptions struct {
	DSN             string        // PostgreSQL connection string
	Schema          string        // Optional schema the tables live in
	CreateTable     bool          // Create tables if they do not exist
	ConnMaxLifetime time.Duration // Max connection lifetime
	MaxOpenConns    int           // Max open connections
	MaxIdleConns    int           // Max idle connections
	QueryTimeout    time.Duration // Timeout for one table load
}

// PostgresWriterOption represents a configuration function for PostgresWriterOptions.
type PostgresWriterOption func(*PostgresWriterOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.DSN = dsn
	}
}

// WithPostgresSchema places the tables in the named schema.
func WithPostgresSchema(name string) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.Schema = name
	}
}

// WithCreateTable enables or disables table creation.
func WithCreateTable(create bool) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.CreateTable = create
	}
}

// WithPostgresConnectionPool configures the connection pool.
func WithPostgresConnectionPool(maxOpen, maxIdle int, maxLifetime time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.MaxOpenConns = maxOpen
		opts.MaxIdleConns = maxIdle
		opts.ConnMaxLifetime = maxLifetime
	}
}

// WithPostgresQueryTimeout sets the timeout for one table load.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresWriterOption {
	return func(opts *PostgresWriterOptions) {
		opts.QueryTimeout = timeout
	}
}

// PostgresWriter loads whole tables into PostgreSQL. Safe for concurrent use;
// loads of different tables may run in parallel.
type PostgresWriter struct {
	db      *sql.DB
	options PostgresWriterOptions
	stats   PostgresWriterStats
	mu      sync.Mutex
}

// NewPostgresWriter connects to PostgreSQL with the given options.
func NewPostgresWriter(ctx context.Context, opts ...PostgresWriterOption) (*PostgresWriter, error) {
	options := (&PostgresWriterOptions{CreateTable: true}).withDefaults()
	for _, opt := range opts {
		opt(options)
	}

	if err := validateOptions(options); err != nil {
		return nil, &PostgresWriterError{Op: "validate", Err: err}
	}

	w := &PostgresWriter{
		options: *options,
		stats:   PostgresWriterStats{NullValueCounts: make(map[string]int64)},
	}
	if err := w.connect(ctx); err != nil {
		return nil, &PostgresWriterError{Op: "connect", Err: err}
	}
	return w, nil
}

// withDefaults applies default values to PostgresWriterOptions.
func (opts *PostgresWriterOptions) withDefaults() *PostgresWriterOptions {
	if opts.QueryTimeout == 0 {
		opts.QueryTimeout = 10 * time.Minute
	}
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = 5 * time.Minute
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 5
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 2
	}
	return opts
}

// validateOptions validates the PostgreSQL writer options.
func validateOptions(opts *PostgresWriterOptions) error {
	if opts.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if opts.QueryTimeout < 0 {
		return fmt.Errorf("query timeout must not be negative")
	}
	return nil
}

// connect establishes the database connection and configures the connection pool.
func (w *PostgresWriter) connect(ctx context.Context) error {
	start := time.Now()

	db, err := sql.Open("postgres", w.options.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(w.options.MaxOpenConns)
	db.SetMaxIdleConns(w.options.MaxIdleConns)
	db.SetConnMaxLifetime(w.options.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	w.db = db
	w.stats.ConnectionTime = time.Since(start)
	return nil
}

// Stats returns a copy of the current load statistics.
func (w *PostgresWriter) Stats() PostgresWriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	statsCopy := w.stats
	statsCopy.NullValueCounts = make(map[string]int64, len(w.stats.NullValueCounts))
	for k, v := range w.stats.NullValueCounts {
		statsCopy.NullValueCounts[k] = v
	}
	return statsCopy
}

// Load replaces the contents of the table's warehouse copy with rows.
// TRUNCATE and COPY run in one transaction, so readers see either the old or the new rows.
func (w *PostgresWriter) Load(ctx context.Context, table schema.Table, rows []core.Record) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, w.options.QueryTimeout)
	defer cancel()

	if w.options.CreateTable {
		if _, err := w.db.ExecContext(ctx, createTableSQL(table, w.options.Schema)); err != nil {
			return &PostgresWriterError{Op: "create_table", Table: table.Name, Err: err}
		}
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return &PostgresWriterError{Op: "begin", Table: table.Name, Err: err}
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "TRUNCATE TABLE "+qualifiedName(table.Name, w.options.Schema)); err != nil {
		return &PostgresWriterError{Op: "truncate", Table: table.Name, Err: err}
	}

	columns := table.ColumnNames()
	var copyStmt string
	if w.options.Schema != "" {
		copyStmt = pq.CopyInSchema(w.options.Schema, table.Name, columns...)
	} else {
		copyStmt = pq.CopyIn(table.Name, columns...)
	}

	stmt, err := tx.PrepareContext(ctx, copyStmt)
	if err != nil {
		return &PostgresWriterError{Op: "prepare_copy", Table: table.Name, Err: err}
	}

	nulls := make(map[string]int64)
	for _, row := range rows {
		values := copyValues(columns, row, nulls)
		if _, err = stmt.ExecContext(ctx, values...); err != nil {
			stmt.Close()
			return &PostgresWriterError{Op: "copy", Table: table.Name, Err: err}
		}
	}
	// an empty Exec flushes the COPY buffer
	if _, err = stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return &PostgresWriterError{Op: "copy", Table: table.Name, Err: err}
	}
	if err = stmt.Close(); err != nil {
		return &PostgresWriterError{Op: "copy", Table: table.Name, Err: err}
	}

	if err = tx.Commit(); err != nil {
		return &PostgresWriterError{Op: "commit", Table: table.Name, Err: err}
	}

	w.mu.Lock()
	w.stats.RecordsWritten += int64(len(rows))
	w.stats.TablesLoaded++
	w.stats.TransactionCount++
	w.stats.WriteDuration += time.Since(start)
	for col, n := range nulls {
		w.stats.NullValueCounts[table.Name+"."+col] += n
	}
	w.mu.Unlock()
	return nil
}

// Close closes the connection pool.
func (w *PostgresWriter) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

func qualifiedName(table, schemaName string) string {
	if schemaName == "" {
		return pq.QuoteIdentifier(table)
	}
	return pq.QuoteIdentifier(schemaName) + "." + pq.QuoteIdentifier(table)
}

// createTableSQL renders the DDL for table with quoted identifiers.
func createTableSQL(table schema.Table, schemaName string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		qualifiedName(table.Name, schemaName), table.ColumnDefsSQL(pq.QuoteIdentifier))
}

// copyValues orders a row's values for COPY, counting nulls per column.
func copyValues(columns []string, row core.Record, nulls map[string]int64) []interface{} {
	values := make([]interface{}, len(columns))
	for i, col := range columns {
		v := row[col]
		switch x := v.(type) {
		case nil:
			nulls[col]++
		case int32:
			values[i] = int64(x)
		case time.Time:
			values[i] = x.UTC()
		default:
			values[i] = v
		}
	}
	return values
}
