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
	"testing"
	"time"

	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/readers"
	"github.com/aaronlmathis/sparkify/schema"
)

var testColumns = []schema.Column{
	{Name: "id", Type: schema.Int64},
	{Name: "name", Type: schema.String},
	{Name: "score", Type: schema.Float64},
	{Name: "hour", Type: schema.Int32},
	{Name: "at", Type: schema.Timestamp},
}

// readBack decodes a parquet file produced in memory.
func readBack(t *testing.T, data []byte) ([]core.Record, *readers.ParquetReader) {
	t.Helper()
	r, err := readers.NewParquetReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	records, err := readers.ReadAll(context.Background(), r)
	require.NoError(t, err)
	return records, r
}

// TestParquetWriter_BasicFunctionality tests core write operations
func TestParquetWriter_BasicFunctionality(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns), WithBatchSize(2))
	require.NoError(t, err)

	at := time.Date(2018, 11, 1, 20, 57, 10, 796000000, time.UTC)
	records := []core.Record{
		{"id": int64(1), "name": "Alice", "score": 95.5, "hour": int32(20), "at": at},
		{"id": int64(2), "name": "Bob", "score": 87.2, "hour": int32(21), "at": at.Add(time.Hour)},
		{"id": int64(3), "name": "Charlie", "score": 92.8, "hour": int32(22), "at": at.Add(2 * time.Hour)},
	}

	ctx := context.Background()
	for _, record := range records {
		require.NoError(t, writer.Write(ctx, record))
	}
	require.NoError(t, writer.Close())

	stats := writer.Stats()
	assert.Equal(t, int64(3), stats.RecordsWritten)
	assert.Equal(t, int64(2), stats.BatchesWritten)

	got, r := readBack(t, buf.Bytes())
	assert.Equal(t, int64(3), r.NumRows())
	require.Len(t, got, 3)
	assert.Equal(t, records[0], got[0])
	assert.Equal(t, "Charlie", got[2]["name"])
	assert.Equal(t, at.Add(2*time.Hour), got[2]["at"])
}

func TestParquetWriter_EmptyFileCarriesSchema(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	got, r := readBack(t, buf.Bytes())
	assert.Empty(t, got)
	assert.Equal(t, int64(0), r.NumRows())
	require.Equal(t, 5, len(r.Schema().Fields()))
	assert.Equal(t, "id", r.Schema().Field(0).Name)
	assert.Equal(t, "at", r.Schema().Field(4).Name)
}

func TestParquetWriter_NullValues(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, writer.Write(ctx, core.Record{"id": int64(1), "name": nil}))
	require.NoError(t, writer.Write(ctx, core.Record{"id": int64(2), "extra": "ignored"}))
	require.NoError(t, writer.Close())

	assert.Equal(t, int64(2), writer.Stats().NullValueCounts["name"])
	assert.Equal(t, int64(2), writer.Stats().NullValueCounts["at"])

	got, _ := readBack(t, buf.Bytes())
	require.Len(t, got, 2)
	assert.Nil(t, got[0]["name"])
	assert.Nil(t, got[1]["score"])
	assert.NotContains(t, got[1], "extra")
}

func TestParquetWriter_TypeMismatch(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns), WithBatchSize(1))
	require.NoError(t, err)

	err = writer.Write(context.Background(), core.Record{"id": "not-a-number"})
	require.Error(t, err)

	var perr *ParquetWriterError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "append_value", perr.Op)

	err = writer.Write(context.Background(), core.Record{"id": int64(1)})
	assert.Error(t, err, "writer stays in error state")
	assert.NoError(t, writer.Close())
}

func TestParquetWriter_TypeMismatchLaterColumn(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns), WithBatchSize(2))
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), core.Record{"id": int64(1), "name": "ok"}))
	err = writer.Write(context.Background(), core.Record{"id": int64(2), "name": 5})
	require.Error(t, err)

	var perr *ParquetWriterError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "append_value", perr.Op)
	assert.Contains(t, perr.Error(), "name")

	assert.NotPanics(t, func() {
		assert.NoError(t, writer.Close())
	})
}

func TestParquetWriter_TypeMismatchOnClose(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewParquetWriter(&buf, schema.ArrowSchema(schema.Artists.Columns))
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), core.Record{"artist_id": "A", "name": 5}))
	var closeErr error
	require.NotPanics(t, func() { closeErr = writer.Close() })
	assert.Error(t, closeErr)
}

func TestParquetWriter_WriteAfterClose(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, writer.Close(), "close is idempotent")

	err = writer.Write(context.Background(), core.Record{"id": int64(1)})
	assert.Error(t, err)
}

func TestParquetWriter_DefaultOptions(t *testing.T) {
	opts := (&ParquetWriterOptions{}).withDefaults()

	assert.Equal(t, int64(1000), opts.BatchSize)
	assert.Equal(t, int64(64*1024), opts.RowGroupSize)
	assert.Equal(t, compress.Codecs.Snappy, opts.Compression)
	assert.NotNil(t, opts.Allocator)
}

func TestParquetWriter_Deterministic(t *testing.T) {
	encode := func() []byte {
		var buf bytes.Buffer
		writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns))
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			require.NoError(t, writer.Write(context.Background(), core.Record{"id": int64(i), "name": "x"}))
		}
		require.NoError(t, writer.Close())
		return buf.Bytes()
	}

	assert.Equal(t, encode(), encode())
}

func TestParquetWriter_Metadata(t *testing.T) {
	var buf bytes.Buffer
	writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns), WithMetadata(map[string]string{"table": "songs"}))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	v, ok := writer.Schema().Metadata().GetValue("table")
	assert.True(t, ok)
	assert.Equal(t, "songs", v)
}

func BenchmarkParquetWriter_Write(b *testing.B) {
	record := core.Record{"id": int64(1), "name": "bench", "score": 1.5, "hour": int32(3), "at": time.Unix(0, 0).UTC()}

	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		writer, err := NewParquetWriter(&buf, schema.ArrowSchema(testColumns))
		if err != nil {
			b.Fatal(err)
		}
		for j := 0; j < 1000; j++ {
			if err := writer.Write(context.Background(), record); err != nil {
				b.Fatal(err)
			}
		}
		if err := writer.Close(); err != nil {
			b.Fatal(err)
		}
	}
}
