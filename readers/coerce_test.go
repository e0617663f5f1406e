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
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/schema"
)

func TestCoerce(t *testing.T) {
	raw := core.Record{
		"ts":            json.Number("1541105830796"),
		"userId":        json.Number("39"),
		"sessionId":     json.Number("38.0"),
		"length":        json.Number("218"),
		"status":        "200",
		"itemInSession": json.Number("1.5"),
		"page":          "NextSong",
		"registration":  nil,
		"unknown":       "dropped",
	}

	got := Coerce(schema.LogData, raw)

	assert.Len(t, got, len(schema.LogData.Fields))
	assert.Equal(t, int64(1541105830796), got["ts"])
	assert.Equal(t, "39", got["userId"])
	assert.Equal(t, int64(38), got["sessionId"])
	assert.Equal(t, 218.0, got["length"])
	assert.Nil(t, got["status"], "strings are not parsed as numbers")
	assert.Nil(t, got["itemInSession"], "fractional values do not fit int64")
	assert.Equal(t, "NextSong", got["page"])
	assert.Nil(t, got["registration"])
	assert.Nil(t, got["artist"], "missing fields become nil")
	assert.NotContains(t, got, "unknown")
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name string
		typ  schema.Type
		in   interface{}
		want interface{}
	}{
		{"string from bool", schema.String, true, "true"},
		{"string from int64", schema.String, int64(5), "5"},
		{"string from float", schema.String, 1.25, "1.25"},
		{"int from float", schema.Int64, 3.0, int64(3)},
		{"int from int", schema.Int64, 3, int64(3)},
		{"int from bool", schema.Int64, true, nil},
		{"float from int64", schema.Float64, int64(2), 2.0},
		{"float from string", schema.Float64, "2.0", nil},
		{"huge number", schema.Int64, json.Number("1e30"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceValue(tt.typ, tt.in))
		})
	}
}
