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
	"github.com/aaronlmathis/sparkify/core"
)

// Group is one set of rows sharing the same values for the grouping columns.
type Group struct {
	Key  core.Record // grouping column values
	Rows []core.Record
}

// GroupBy splits records by the values of columns.
// Groups are returned in order of first appearance and rows keep their input order.
func GroupBy(records []core.Record, columns ...string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range records {
		k := r.Key(columns...)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: r.Project(columns...)})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}

// Count returns the number of rows per distinct value of columns, in order of first appearance.
func Count(records []core.Record, columns ...string) []core.Record {
	groups := GroupBy(records, columns...)
	out := make([]core.Record, len(groups))
	for i, g := range groups {
		row := g.Key.Clone()
		row["count"] = int64(len(g.Rows))
		out[i] = row
	}
	return out
}
