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
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/sparkify/core"
)

// Package writers provides implementations of core.DataSink and the table writers built on them.
//
// This file implements a parquet encoder over any io.Writer with an explicit arrow schema.
// It buffers records into arrow batches, compresses with snappy by default, and tracks statistics.

// ParquetWriterError wraps parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string // Operation that failed (e.g., "create_writer", "append_value", "write_batch", "close_writer")
	Err error  // Underlying error
}

// Error returns the error string for ParquetWriterError.
func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetWriterError.
func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// ParquetWriter implements core.DataSink for one parquet file.
// The file is complete only after Close; an unwritten writer still yields a
// valid file carrying the schema and zero rows.
type ParquetWriter struct {
	writer       *pqarrow.FileWriter
	schema       *arrow.Schema
	builder      *array.RecordBuilder
	recordBuffer []core.Record
	batchSize    int64
	closed       bool
	errorState   bool
	stats        WriterStats
}

// ParquetWriterOptions configures the parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int64                // Number of records to buffer before encoding a batch
	Compression  compress.Compression // Compression algorithm
	RowGroupSize int64                // Maximum rows per row group
	Metadata     map[string]string    // File key/value metadata
	Allocator    memory.Allocator
}

// WriterStats holds statistics about the parquet writer's performance.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	FlushDuration   time.Duration
	NullValueCounts map[string]int64
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the parquet compression algorithm.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithRowGroupSize sets the row group size for the parquet file.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithMetadata sets user metadata for the parquet file.
func WithMetadata(metadata map[string]string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		if opts.Metadata == nil {
			opts.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			opts.Metadata[k] = v
		}
	}
}

// NewParquetWriter starts a parquet file with the given schema on w.
// The footer is written to w by Close; w itself is not closed.
func NewParquetWriter(w io.Writer, schema *arrow.Schema, options ...WriterOption) (*ParquetWriter, error) {
	opts := (&ParquetWriterOptions{}).withDefaults()
	for _, option := range options {
		option(opts)
	}

	if len(opts.Metadata) > 0 {
		md := arrow.MetadataFrom(opts.Metadata)
		schema = arrow.NewSchema(schema.Fields(), &md)
	}

	props := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression),
		parquet.WithMaxRowGroupLength(opts.RowGroupSize),
		parquet.WithAllocator(opts.Allocator),
	)
	writer, err := pqarrow.NewFileWriter(schema, w, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, &ParquetWriterError{
			Op:  "create_writer",
			Err: fmt.Errorf("failed to create parquet file writer: %w", err),
		}
	}

	return &ParquetWriter{
		writer:       writer,
		schema:       schema,
		builder:      array.NewRecordBuilder(opts.Allocator, schema),
		recordBuffer: make([]core.Record, 0, opts.BatchSize),
		batchSize:    opts.BatchSize,
		stats:        WriterStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// withDefaults applies default values to ParquetWriterOptions.
func (opts *ParquetWriterOptions) withDefaults() *ParquetWriterOptions {
	result := &ParquetWriterOptions{}
	if opts != nil {
		*result = *opts
	}

	if result.BatchSize <= 0 {
		result.BatchSize = 1000
	}
	if result.RowGroupSize <= 0 {
		result.RowGroupSize = 64 * 1024
	}
	if result.Compression == compress.Codecs.Uncompressed {
		result.Compression = compress.Codecs.Snappy
	}
	if result.Allocator == nil {
		result.Allocator = memory.NewGoAllocator()
	}
	return result
}

// Schema returns the arrow schema being written.
func (p *ParquetWriter) Schema() *arrow.Schema {
	return p.schema
}

// Stats returns the current statistics of the parquet writer.
func (p *ParquetWriter) Stats() WriterStats {
	return p.stats
}

// Write implements the core.DataSink interface.
// Columns of the schema missing from record are written as null; extra keys are ignored.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("parquet writer is closed")}
	}
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	p.recordBuffer = append(p.recordBuffer, record)
	if int64(len(p.recordBuffer)) >= p.batchSize {
		return p.flushBatch()
	}
	return nil
}

// Flush implements the core.DataSink interface.
// Encodes any buffered records into the current row group.
func (p *ParquetWriter) Flush() error {
	if p.closed {
		return nil
	}
	return p.flushBatch()
}

// Close implements the core.DataSink interface.
// Flushes remaining records and writes the file footer.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}

	flushErr := p.flushBatch()
	p.closed = true
	p.builder.Release()

	if err := p.writer.Close(); err != nil {
		return &ParquetWriterError{
			Op:  "close_writer",
			Err: fmt.Errorf("failed to close parquet writer: %w", err),
		}
	}
	return flushErr
}

// flushBatch encodes the buffer as one arrow record and writes it.
func (p *ParquetWriter) flushBatch() error {
	if len(p.recordBuffer) == 0 || p.errorState {
		return nil
	}

	startTime := time.Now()

	fields := p.schema.Fields()
	for _, record := range p.recordBuffer {
		for i, field := range fields {
			if err := p.appendValue(p.builder.Field(i), field, record[field.Name]); err != nil {
				p.errorState = true
				// the failed field and the ones after it hold one value less than the rest of the row
				for j := i; j < len(fields); j++ {
					p.builder.Field(j).AppendNull()
				}
				p.builder.NewRecord().Release()
				return err
			}
		}
	}

	rec := p.builder.NewRecord()
	defer rec.Release()

	if err := p.writer.Write(rec); err != nil {
		p.errorState = true
		return &ParquetWriterError{
			Op:  "write_batch",
			Err: fmt.Errorf("failed to write record batch: %w", err),
		}
	}

	p.stats.RecordsWritten += int64(len(p.recordBuffer))
	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(startTime)
	p.recordBuffer = p.recordBuffer[:0]
	return nil
}

// appendValue appends one value to the builder for field.
// A value whose Go type does not match the column type is an error, never a silent null.
func (p *ParquetWriter) appendValue(builder array.Builder, field arrow.Field, value interface{}) error {
	if value == nil {
		builder.AppendNull()
		p.stats.NullValueCounts[field.Name]++
		return nil
	}

	ok := true
	switch b := builder.(type) {
	case *array.StringBuilder:
		var v string
		if v, ok = value.(string); ok {
			b.Append(v)
		}
	case *array.Int64Builder:
		switch v := value.(type) {
		case int64:
			b.Append(v)
		case int32:
			b.Append(int64(v))
		case int:
			b.Append(int64(v))
		default:
			ok = false
		}
	case *array.Int32Builder:
		switch v := value.(type) {
		case int32:
			b.Append(v)
		default:
			ok = false
		}
	case *array.Float64Builder:
		var v float64
		if v, ok = value.(float64); ok {
			b.Append(v)
		}
	case *array.BooleanBuilder:
		var v bool
		if v, ok = value.(bool); ok {
			b.Append(v)
		}
	case *array.TimestampBuilder:
		var v time.Time
		if v, ok = value.(time.Time); ok {
			b.Append(arrow.Timestamp(v.UnixMicro()))
		}
	default:
		return &ParquetWriterError{
			Op:  "append_value",
			Err: fmt.Errorf("unsupported arrow type %s for field %s", field.Type, field.Name),
		}
	}

	if !ok {
		return &ParquetWriterError{
			Op:  "append_value",
			Err: fmt.Errorf("field %s: cannot store %T as %s", field.Name, value, field.Type),
		}
	}
	return nil
}
