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

package readers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/schema"
	"github.com/aaronlmathis/sparkify/storage"
)

// ErrNoFiles is returned when a dataset glob matches nothing.
var ErrNoFiles = errors.New("no files match")

// ReadError provides structured error information for dataset reads.
type ReadError struct {
	Op      string // Operation that failed (e.g., "glob", "open", "decode")
	Dataset string // Dataset name
	Key     string // File key or glob involved
	Err     error  // Underlying error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s %s %s: %v", e.Dataset, e.Op, e.Key, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// DatasetStats holds statistics about one dataset read.
type DatasetStats struct {
	Files    int
	Records  int64
	Duration time.Duration
}

// DatasetReader resolves dataset globs against a store and decodes the matching JSON files.
type DatasetReader struct {
	store  storage.Store
	logger hclog.Logger
}

// DatasetReaderOption configures a DatasetReader.
type DatasetReaderOption func(*DatasetReader)

// WithReaderLogger sets the logger used for per-dataset progress.
func WithReaderLogger(logger hclog.Logger) DatasetReaderOption {
	return func(r *DatasetReader) {
		r.logger = logger
	}
}

// NewDatasetReader creates a reader over store.
func NewDatasetReader(store storage.Store, options ...DatasetReaderOption) *DatasetReader {
	r := &DatasetReader{store: store, logger: hclog.NewNullLogger()}
	for _, option := range options {
		option(r)
	}
	return r
}

// Read returns every record of every file matching glob, coerced to the dataset schema.
// Files are read in key order. No match, an unreadable file, or malformed JSON fails the read.
func (r *DatasetReader) Read(ctx context.Context, ds schema.Dataset, glob string) ([]core.Record, error) {
	records, _, err := r.ReadWithStats(ctx, ds, glob)
	return records, err
}

// ReadWithStats is Read plus statistics about the files consumed.
func (r *DatasetReader) ReadWithStats(ctx context.Context, ds schema.Dataset, glob string) ([]core.Record, DatasetStats, error) {
	start := time.Now()
	var stats DatasetStats

	keys, err := r.store.Glob(ctx, glob)
	if err != nil {
		return nil, stats, &ReadError{Op: "glob", Dataset: ds.Name, Key: glob, Err: err}
	}
	if len(keys) == 0 {
		return nil, stats, &ReadError{Op: "glob", Dataset: ds.Name, Key: r.store.Location().Join(glob), Err: ErrNoFiles}
	}

	r.logger.Debug("reading dataset", "dataset", ds.Name, "glob", glob, "files", len(keys))

	var records []core.Record
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		rc, err := r.store.Open(ctx, key)
		if err != nil {
			return nil, stats, &ReadError{Op: "open", Dataset: ds.Name, Key: key, Err: err}
		}

		raw, err := ReadAll(ctx, NewJSONReader(rc))
		if err != nil {
			return nil, stats, &ReadError{Op: "decode", Dataset: ds.Name, Key: key, Err: err}
		}

		for _, rec := range raw {
			if len(rec) == 0 {
				continue
			}
			records = append(records, Coerce(ds, rec))
		}
		stats.Files++
	}

	stats.Records = int64(len(records))
	stats.Duration = time.Since(start)
	r.logger.Info("dataset read", "dataset", ds.Name, "files", stats.Files, "records", stats.Records, "duration", stats.Duration)
	return records, stats, nil
}
