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
	"io"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sparkify/core"
)

func TestJSONReader_NewlineDelimited(t *testing.T) {
	input := `{"page":"NextSong","ts":1541105830796}
{"page":"Home","ts":1541106106796}
`
	r := NewJSONReader(io.NopCloser(strings.NewReader(input)))

	records, err := ReadAll(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "NextSong", records[0]["page"])
	assert.Equal(t, json.Number("1541105830796"), records[0]["ts"])
	assert.Equal(t, int64(2), r.Records())
}

func TestJSONReader_PrettyPrintedObject(t *testing.T) {
	input := `{
    "song_id": "SOXXX",
    "duration": 218.93179
}`
	records, err := ReadAll(context.Background(), NewJSONReader(io.NopCloser(strings.NewReader(input))))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "SOXXX", records[0]["song_id"])
}

func TestJSONReader_NullYieldsEmptyRecord(t *testing.T) {
	records, err := ReadAll(context.Background(), NewJSONReader(io.NopCloser(strings.NewReader("null\n{}"))))
	require.NoError(t, err)
	assert.Equal(t, []core.Record{{}, {}}, records)
}

func TestJSONReader_Malformed(t *testing.T) {
	_, err := ReadAll(context.Background(), NewJSONReader(io.NopCloser(strings.NewReader(`{"a":1}{"b":`))))
	assert.Error(t, err)

	_, err = ReadAll(context.Background(), NewJSONReader(io.NopCloser(strings.NewReader(`[1,2]`))))
	assert.Error(t, err)
}

func TestJSONReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewJSONReader(io.NopCloser(strings.NewReader(`{}`))).Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestReadAll_ClosesSource(t *testing.T) {
	rc := &closeTracker{Reader: strings.NewReader(`{"a":"b"}`)}
	_, err := ReadAll(context.Background(), NewJSONReader(rc))
	require.NoError(t, err)
	assert.True(t, rc.closed)
}

func TestSliceReader(t *testing.T) {
	in := []core.Record{{"n": 1}, {"n": 2}}
	out, err := ReadAll(context.Background(), NewSliceReader(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
