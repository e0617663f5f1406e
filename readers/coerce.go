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
	"math"
	"strconv"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/schema"
)

// number is satisfied by json.Number from both encoding/json and goccy/go-json.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// Coerce maps a decoded JSON object onto the dataset's fixed schema.
// Every declared field is present in the result; values that cannot be represented
// as the declared type become nil instead of failing the read.
func Coerce(ds schema.Dataset, raw core.Record) core.Record {
	out := make(core.Record, len(ds.Fields))
	for _, f := range ds.Fields {
		out[f.Name] = coerceValue(f.Type, raw[f.Name])
	}
	return out
}

func coerceValue(t schema.Type, v interface{}) interface{} {
	if v == nil {
		return nil
	}

	switch t {
	case schema.String:
		switch x := v.(type) {
		case string:
			return x
		case number:
			return x.String()
		case bool:
			return strconv.FormatBool(x)
		case int64:
			return strconv.FormatInt(x, 10)
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
	case schema.Int64:
		switch x := v.(type) {
		case number:
			if i, err := x.Int64(); err == nil {
				return i
			}
			if f, err := x.Float64(); err == nil {
				return integral(f)
			}
		case int64:
			return x
		case int:
			return int64(x)
		case float64:
			return integral(x)
		}
	case schema.Float64:
		switch x := v.(type) {
		case number:
			if f, err := x.Float64(); err == nil {
				return f
			}
		case float64:
			return x
		case int64:
			return float64(x)
		case int:
			return float64(x)
		}
	}
	return nil
}

// integral returns f as int64 when it holds a whole number in range, nil otherwise.
func integral(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil
	}
	return int64(f)
}
