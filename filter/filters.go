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

package filter

import (
	"context"
	"reflect"

	"github.com/aaronlmathis/sparkify/core"
)

// Package filter provides composable record filters for sparkify pipelines.
//
// All functions return core.Filter implementations.

// NotNull creates a filter that excludes records where any of the fields is missing, nil, or empty.
func NotNull(fields ...string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		for _, field := range fields {
			if record.IsNull(field) {
				return false, nil
			}
		}
		return true, nil
	})
}

// Equals creates a filter that includes records where the field equals the specified value.
// Comparison is exact; "NextSong" does not match "nextsong".
func Equals(field string, expectedValue interface{}) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, exists := record[field]
		if !exists {
			return false, nil
		}
		return reflect.DeepEqual(value, expectedValue), nil
	})
}

// Apply returns the records that pass f, in input order.
func Apply(ctx context.Context, f core.Filter, records []core.Record) ([]core.Record, error) {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		ok, err := f.ShouldInclude(ctx, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
