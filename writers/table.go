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
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/hashicorp/go-hclog"

	"github.com/aaronlmathis/sparkify/aggregate"
	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/schema"
	"github.com/aaronlmathis/sparkify/storage"
)

// This file implements the table writer: overwrite a destination with a table's
// rows as Hive-partitioned snappy parquet files plus a _SUCCESS marker.

const (
	// DefaultPartition is the directory value used for null or empty partition values.
	DefaultPartition = "__HIVE_DEFAULT_PARTITION__"
	// SuccessMarker is written last, after every data file.
	SuccessMarker = "_SUCCESS"
)

// TableWriteError provides structured error information for table writes.
type TableWriteError struct {
	Table string // Table name
	Op    string // Operation that failed (e.g., "validate", "clear", "encode", "put", "commit")
	Err   error  // Underlying error
}

func (e *TableWriteError) Error() string {
	return fmt.Sprintf("write table %s %s: %v", e.Table, e.Op, e.Err)
}

func (e *TableWriteError) Unwrap() error {
	return e.Err
}

// WriteResult describes what one table write produced.
type WriteResult struct {
	Table      string
	Dest       string
	Rows       int64
	Partitions int
	Files      int
	Bytes      int64
	Duration   time.Duration
}

// TableWriter writes tables into a storage.Store.
type TableWriter struct {
	store          storage.Store
	maxRowsPerFile int
	parquetOptions []WriterOption
	logger         hclog.Logger
}

// TableWriterOption configures a TableWriter.
type TableWriterOption func(*TableWriter)

// WithMaxRowsPerFile caps the rows in one data file; larger partitions are split.
func WithMaxRowsPerFile(n int) TableWriterOption {
	return func(w *TableWriter) {
		w.maxRowsPerFile = n
	}
}

// WithParquetOptions passes options to every parquet file written.
func WithParquetOptions(options ...WriterOption) TableWriterOption {
	return func(w *TableWriter) {
		w.parquetOptions = append(w.parquetOptions, options...)
	}
}

// WithLogger sets the logger for file and table progress.
func WithLogger(logger hclog.Logger) TableWriterOption {
	return func(w *TableWriter) {
		w.logger = logger
	}
}

// NewTableWriter creates a table writer over store.
func NewTableWriter(store storage.Store, options ...TableWriterOption) *TableWriter {
	w := &TableWriter{
		store:          store,
		maxRowsPerFile: 100000,
		logger:         hclog.NewNullLogger(),
	}
	for _, option := range options {
		option(w)
	}
	if w.maxRowsPerFile <= 0 {
		w.maxRowsPerFile = 100000
	}
	return w
}

// Store returns the destination store.
func (w *TableWriter) Store() storage.Store {
	return w.store
}

type partition struct {
	dir  string
	rows []core.Record
}

type encodedFile struct {
	key  string
	data []byte
	rows int
}

// Write replaces everything under dest with rows of table.
//
// Rows are grouped by the table's partition columns into col=value
// directories, written in sorted directory order; partition columns are not
// stored inside the files. An unpartitioned table with no rows still gets one
// file carrying the schema. Every file is encoded before dest is cleared, so
// an encode error leaves the previous output in place. The _SUCCESS marker is
// written last, so its presence means the write completed.
func (w *TableWriter) Write(ctx context.Context, table schema.Table, rows []core.Record, dest string) (WriteResult, error) {
	start := time.Now()
	dest = strings.Trim(dest, "/")
	result := WriteResult{Table: table.Name, Dest: w.store.Location().Join(dest)}

	if err := table.Validate(); err != nil {
		return result, &TableWriteError{Table: table.Name, Op: "validate", Err: err}
	}
	if dest == "" {
		return result, &TableWriteError{Table: table.Name, Op: "validate", Err: fmt.Errorf("empty destination")}
	}

	parts := partitionRows(table.PartitionBy, rows)
	arrowSchema := schema.ArrowSchema(table.DataColumns())

	var files []encodedFile
	for _, p := range parts {
		for fileIdx, chunk := range chunkRows(p.rows, w.maxRowsPerFile) {
			data, err := w.encode(ctx, arrowSchema, chunk)
			if err != nil {
				return result, &TableWriteError{Table: table.Name, Op: "encode", Err: err}
			}
			key := path.Join(dest, p.dir, fmt.Sprintf("part-%05d.snappy.parquet", fileIdx))
			files = append(files, encodedFile{key: key, data: data, rows: len(chunk)})
		}
	}

	if err := w.store.RemoveAll(ctx, dest); err != nil {
		return result, &TableWriteError{Table: table.Name, Op: "clear", Err: err}
	}

	for _, f := range files {
		if err := w.store.Put(ctx, f.key, f.data); err != nil {
			return result, &TableWriteError{Table: table.Name, Op: "put", Err: err}
		}
		w.logger.Debug("wrote file", "table", table.Name, "key", f.key, "rows", f.rows, "bytes", len(f.data))

		result.Files++
		result.Bytes += int64(len(f.data))
	}

	if err := w.store.Put(ctx, path.Join(dest, SuccessMarker), nil); err != nil {
		return result, &TableWriteError{Table: table.Name, Op: "commit", Err: err}
	}

	result.Rows = int64(len(rows))
	if len(table.PartitionBy) > 0 {
		result.Partitions = len(parts)
	} else {
		result.Partitions = 1
	}
	result.Duration = time.Since(start)
	w.logger.Info("table written", "table", table.Name, "dest", result.Dest, "rows", result.Rows,
		"partitions", result.Partitions, "files", result.Files, "bytes", result.Bytes)
	return result, nil
}

func (w *TableWriter) encode(ctx context.Context, arrowSchema *arrow.Schema, rows []core.Record) ([]byte, error) {
	var buf bytes.Buffer
	pw, err := NewParquetWriter(&buf, arrowSchema, w.parquetOptions...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := pw.Write(ctx, r); err != nil {
			pw.Close()
			return nil, err
		}
	}
	if err := pw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// chunkRows splits rows into slices of at most n. No rows yields one empty chunk.
func chunkRows(rows []core.Record, n int) [][]core.Record {
	if len(rows) == 0 {
		return [][]core.Record{nil}
	}
	chunks := make([][]core.Record, 0, (len(rows)+n-1)/n)
	for start := 0; start < len(rows); start += n {
		end := start + n
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

// partitionRows groups rows by the directory their partition values map to,
// sorted by directory. Without partition columns there is a single group at the root.
func partitionRows(columns []string, rows []core.Record) []partition {
	if len(columns) == 0 {
		return []partition{{dir: "", rows: rows}}
	}

	byDir := make(map[string]int)
	var parts []partition
	for _, g := range aggregate.GroupBy(rows, columns...) {
		dir := PartitionPath(columns, g.Key)
		// nil and "" land in the same default directory
		if i, ok := byDir[dir]; ok {
			parts[i].rows = append(parts[i].rows, g.Rows...)
			continue
		}
		byDir[dir] = len(parts)
		parts = append(parts, partition{dir: dir, rows: g.Rows})
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].dir < parts[j].dir })
	return parts
}

// PartitionPath renders the col=value directory path for a row's partition values.
func PartitionPath(columns []string, values core.Record) string {
	segments := make([]string, len(columns))
	for i, c := range columns {
		segments[i] = c + "=" + partitionValue(values[c])
	}
	return strings.Join(segments, "/")
}

func partitionValue(v interface{}) string {
	var s string
	switch x := v.(type) {
	case nil:
		return DefaultPartition
	case string:
		s = x
	case int64:
		s = strconv.FormatInt(x, 10)
	case int32:
		s = strconv.FormatInt(int64(x), 10)
	case int:
		s = strconv.Itoa(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		s = x.UTC().Format("2006-01-02 15:04:05")
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return DefaultPartition
	}
	return EscapePartitionValue(s)
}

// EscapePartitionValue percent-encodes the characters that are unsafe in a
// partition directory name, using the same set as Hive.
func EscapePartitionValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}
