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

package aggregate

import (
	"sort"

	"github.com/aaronlmathis/sparkify/core"
)

// Package aggregate provides set-level operations over materialized record slices:
// duplicate removal and grouping. Unlike transformers they need to see every row.

// DropDuplicates removes rows that are identical across all of their columns.
// The first occurrence of each distinct row is kept and input order is preserved.
func DropDuplicates(records []core.Record) []core.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		k := r.Key(columnsOf(r)...)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DropDuplicatesBy keeps one row per distinct value of keys.
//
// When orderBy is non-empty the row with the greatest orderBy value wins; a
// present value beats a missing one and ties keep the earlier row. When
// orderBy is empty the first row wins. Output is in order of first appearance
// of each key.
func DropDuplicatesBy(records []core.Record, keys []string, orderBy string) []core.Record {
	index := make(map[string]int, len(records))
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		k := r.Key(keys...)
		i, dup := index[k]
		if !dup {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		if orderBy != "" && Compare(r[orderBy], out[i][orderBy]) > 0 {
			out[i] = r
		}
	}
	return out
}

func columnsOf(r core.Record) []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
