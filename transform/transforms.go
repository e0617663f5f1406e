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
	"errors"
	"fmt"
	"time"

	"github.com/aaronlmathis/sparkify/core"
)

// Package transform provides composable record transformers for sparkify pipelines.
//
// This package includes field selection, renaming, derived fields, and epoch conversion.
// All functions return core.Transformer implementations and never mutate their input record.

// ErrInvalidTimestamp is returned when an epoch value is missing, non-integer, or negative.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Select creates a transformer that keeps only the specified fields, in that schema.
// Fields missing from the input are present in the output as nil, so every row has the same shape.
func Select(fields ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		return record.Project(fields...), nil
	})
}

// Rename creates a transformer that renames fields according to the provided mapping.
// Keys are original field names, values are new field names.
func Rename(mapping map[string]string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(record))
		for key, value := range record {
			if newKey, exists := mapping[key]; exists {
				result[newKey] = value
			} else {
				result[key] = value
			}
		}
		return result, nil
	})
}

// RemoveFields creates a transformer that drops the specified fields.
// Fields that don't exist are ignored.
func RemoveFields(fields ...string) core.Transformer {
	drop := make(map[string]bool, len(fields))
	for _, field := range fields {
		drop[field] = true
	}

	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(record))
		for k, v := range record {
			if !drop[k] {
				result[k] = v
			}
		}
		return result, nil
	})
}

// MillisToTime creates a transformer that converts the epoch-millisecond field src
// into a UTC time.Time stored under dst. The source field is kept.
// A missing, non-integer, or negative value fails the record with ErrInvalidTimestamp.
func MillisToTime(src, dst string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		ms, err := epochMillis(record[src])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", src, err)
		}
		result := record.Clone()
		result[dst] = time.UnixMilli(ms).UTC()
		return result, nil
	})
}

// TimeParts creates a transformer that derives integer calendar fields from the
// time.Time in field. Each entry of parts maps an output field to its extractor.
func TimeParts(field string, parts map[string]func(time.Time) int32) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		t, ok := record[field].(time.Time)
		if !ok {
			return nil, fmt.Errorf("field %s: expected time.Time, got %T", field, record[field])
		}
		result := record.Clone()
		for name, fn := range parts {
			result[name] = fn(t)
		}
		return result, nil
	})
}

// Chain composes transformers into one, applied in order.
func Chain(transformers ...core.Transformer) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		var err error
		for _, t := range transformers {
			record, err = t.Transform(ctx, record)
			if err != nil {
				return nil, err
			}
		}
		return record, nil
	})
}

func epochMillis(v interface{}) (int64, error) {
	var ms int64
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing", ErrInvalidTimestamp)
	case int64:
		ms = x
	case int:
		ms = int64(x)
	case int32:
		ms = int64(x)
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrInvalidTimestamp, v, v)
	}
	if ms < 0 {
		return 0, fmt.Errorf("%w: negative value %d", ErrInvalidTimestamp, ms)
	}
	return ms, nil
}
