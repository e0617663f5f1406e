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

package core

import (
	"context"
	"fmt"
	"strings"
)

// Package core defines the core types shared by every stage of the sparkify ETL.
//
// This file contains the record type, its helpers, and the function adapters.

// Record represents a single row flowing through the ETL.
// Each record is a map from column names to values; a missing key and a nil value both mean null.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project returns a new record holding only the named columns.
// Columns absent from r are present in the result with a nil value.
func (r Record) Project(columns ...string) Record {
	out := make(Record, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

// IsNull reports whether the column is missing, nil, or an empty string.
func (r Record) IsNull(column string) bool {
	v, ok := r[column]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// Key builds a canonical string for the given columns, usable as a map key.
// Values of different Go types never collide ("1" string vs 1 int64), and each
// value is length-prefixed so separators inside values cannot shift columns.
func (r Record) Key(columns ...string) string {
	var b strings.Builder
	for i, c := range columns {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v := r[c]
		if v == nil {
			b.WriteString("<nil>")
			continue
		}
		text := fmt.Sprint(v)
		fmt.Fprintf(&b, "%T:%d:%s", v, len(text), text)
	}
	return b.String()
}

// TransformFunc is a function adapter for the Transformer interface.
// Allows ordinary functions to be used as Transformers.
type TransformFunc func(ctx context.Context, record Record) (Record, error)

// Transform implements the Transformer interface for TransformFunc.
func (f TransformFunc) Transform(ctx context.Context, record Record) (Record, error) {
	return f(ctx, record)
}

// FilterFunc is a function adapter for the Filter interface.
// Allows ordinary functions to be used as Filters.
type FilterFunc func(ctx context.Context, record Record) (bool, error)

// ShouldInclude implements the Filter interface for FilterFunc.
func (f FilterFunc) ShouldInclude(ctx context.Context, record Record) (bool, error) {
	return f(ctx, record)
}
