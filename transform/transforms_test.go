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

package transform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sparkify/core"
)

func TestSelect_FillsMissingWithNil(t *testing.T) {
	out, err := Select("a", "b").Transform(context.Background(), core.Record{"a": 1, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, core.Record{"a": 1, "b": nil}, out)
}

func TestRename(t *testing.T) {
	in := core.Record{"userId": "7", "level": "free"}
	out, err := Rename(map[string]string{"userId": "user_id"}).Transform(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, core.Record{"user_id": "7", "level": "free"}, out)
	assert.Contains(t, in, "userId", "input must not be mutated")
}

func TestRemoveFields(t *testing.T) {
	out, err := RemoveFields("a", "missing").Transform(context.Background(), core.Record{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, core.Record{"b": 2}, out)
}

func TestMillisToTime(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    time.Time
		wantErr bool
	}{
		{name: "epoch millis", value: int64(1541105830796), want: time.Date(2018, 11, 1, 20, 57, 10, 796000000, time.UTC)},
		{name: "zero", value: int64(0), want: time.Unix(0, 0).UTC()},
		{name: "int", value: 1000, want: time.Unix(1, 0).UTC()},
		{name: "missing", value: nil, wantErr: true},
		{name: "negative", value: int64(-1), wantErr: true},
		{name: "string", value: "1541105830796", wantErr: true},
		{name: "float", value: 1.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MillisToTime("ts", "start_time").Transform(context.Background(), core.Record{"ts": tt.value})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTimestamp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out["start_time"])
			assert.Equal(t, tt.value, out["ts"])
		})
	}
}

func TestTimeParts(t *testing.T) {
	ts := time.Date(2018, 11, 1, 20, 57, 10, 0, time.UTC)
	tr := TimeParts("start_time", map[string]func(time.Time) int32{
		"hour": func(t time.Time) int32 { return int32(t.Hour()) },
		"year": func(t time.Time) int32 { return int32(t.Year()) },
	})

	out, err := tr.Transform(context.Background(), core.Record{"start_time": ts})
	require.NoError(t, err)
	assert.Equal(t, int32(20), out["hour"])
	assert.Equal(t, int32(2018), out["year"])

	_, err = tr.Transform(context.Background(), core.Record{"start_time": "nope"})
	assert.Error(t, err)
}

func TestChain_StopsOnError(t *testing.T) {
	calls := 0
	count := core.TransformFunc(func(ctx context.Context, r core.Record) (core.Record, error) {
		calls++
		return r, nil
	})

	_, err := Chain(count, MillisToTime("ts", "start_time"), count).Transform(context.Background(), core.Record{})
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
	assert.Equal(t, 1, calls)
}
