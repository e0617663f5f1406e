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

package join

import (
	"context"
	"fmt"

	"github.com/aaronlmathis/sparkify/core"
)

// Config defines join operation parameters
type Config struct {
	LeftKeys    []string // Join keys for left dataset
	RightKeys   []string // Join keys for right dataset, same length as LeftKeys
	LeftPrefix  string   // Prepended to every left field name
	RightPrefix string   // Prepended to every right field name
}

// Stats reports what a join consumed and produced.
type Stats struct {
	LeftRows      int
	RightRows     int
	Matched       int // left rows with at least one match
	Unmatched     int // left rows with none
	RowsOut       int
	NullKeyRights int // right rows skipped because a key was nil
}

// HashJoin performs an inner equi-join by indexing right and looking up each left row.
//
// Keys compare by type and value, so "1" never matches int64(1) and string
// comparison is case-sensitive. A nil key never matches. Output is in left
// order, and each left row's matches follow right order, so identical input
// always gives identical output.
func HashJoin(ctx context.Context, cfg Config, left, right []core.Record) ([]core.Record, Stats, error) {
	stats := Stats{LeftRows: len(left), RightRows: len(right)}
	if len(cfg.LeftKeys) == 0 || len(cfg.LeftKeys) != len(cfg.RightKeys) {
		return nil, stats, fmt.Errorf("join keys mismatch: left %v, right %v", cfg.LeftKeys, cfg.RightKeys)
	}

	index := make(map[string][]core.Record)
	for _, r := range right {
		if hasNullKey(r, cfg.RightKeys) {
			stats.NullKeyRights++
			continue
		}
		k := r.Key(cfg.RightKeys...)
		index[k] = append(index[k], r)
	}

	var result []core.Record
	for _, l := range left {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		var matches []core.Record
		if !hasNullKey(l, cfg.LeftKeys) {
			matches = index[l.Key(cfg.LeftKeys...)]
		}

		if len(matches) == 0 {
			stats.Unmatched++
			continue
		}

		stats.Matched++
		for _, r := range matches {
			result = append(result, merge(cfg, l, r))
		}
	}

	stats.RowsOut = len(result)
	return result, stats, nil
}

func hasNullKey(r core.Record, keys []string) bool {
	for _, k := range keys {
		if r[k] == nil {
			return true
		}
	}
	return false
}

// merge combines left and right with their prefixes. Without a right prefix a
// right field that collides with a left one is stored as "right_<name>".
func merge(cfg Config, left, right core.Record) core.Record {
	result := make(core.Record, len(left)+len(right))
	for key, value := range left {
		result[cfg.LeftPrefix+key] = value
	}
	for key, value := range right {
		finalKey := cfg.RightPrefix + key
		if _, exists := result[finalKey]; exists && cfg.RightPrefix == "" {
			finalKey = "right_" + key
		}
		result[finalKey] = value
	}
	return result
}
