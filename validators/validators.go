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

// validators.go - Data quality checks run before a table is written
package validators

import (
	"fmt"
	"time"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/schema"
)

// QualityError reports the first failed check for a table.
type QualityError struct {
	Table string // Table name
	Check string // Check that failed (e.g., "min_records", "not_null", "unique", "type")
	Row   int    // Offending row index, -1 when the check is not row-specific
	Err   error  // Underlying error
}

func (e *QualityError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("quality check %s failed for %s: %v", e.Check, e.Table, e.Err)
	}
	return fmt.Sprintf("quality check %s failed for %s at row %d: %v", e.Check, e.Table, e.Row, e.Err)
}

func (e *QualityError) Unwrap() error {
	return e.Err
}

// Check describes the quality constraints for one table.
// Columns named in NotNull must never be nil or empty; the combination of
// Unique columns must not repeat. Types verifies every value against the
// table's declared column types.
type Check struct {
	MinRecords int      // Minimum number of rows required
	NotNull    []string // Columns that must always hold a value
	Unique     []string // Columns whose combined values must be unique
	Types      bool     // Verify values against the declared column types
}

// Validate runs the check against rows of table and returns a *QualityError on the first failure.
func (c Check) Validate(table schema.Table, rows []core.Record) error {
	if len(rows) < c.MinRecords {
		return &QualityError{Table: table.Name, Check: "min_records", Row: -1,
			Err: fmt.Errorf("insufficient records: got %d, need at least %d", len(rows), c.MinRecords)}
	}

	for _, col := range append(append([]string(nil), c.NotNull...), c.Unique...) {
		if _, ok := table.Column(col); !ok {
			return &QualityError{Table: table.Name, Check: "config", Row: -1, Err: fmt.Errorf("unknown column %s", col)}
		}
	}

	var seen map[string]int
	if len(c.Unique) > 0 {
		seen = make(map[string]int, len(rows))
	}

	for i, row := range rows {
		for _, col := range c.NotNull {
			if row.IsNull(col) {
				return &QualityError{Table: table.Name, Check: "not_null", Row: i, Err: fmt.Errorf("column %s is null", col)}
			}
		}

		if seen != nil {
			k := row.Key(c.Unique...)
			if first, dup := seen[k]; dup {
				return &QualityError{Table: table.Name, Check: "unique", Row: i,
					Err: fmt.Errorf("duplicate %v, first seen at row %d", c.Unique, first)}
			}
			seen[k] = i
		}

		if c.Types {
			for _, col := range table.Columns {
				if err := checkType(col, row[col.Name]); err != nil {
					return &QualityError{Table: table.Name, Check: "type", Row: i, Err: err}
				}
			}
		}
	}

	return nil
}

func checkType(col schema.Column, v interface{}) error {
	if v == nil {
		return nil
	}
	var ok bool
	switch col.Type {
	case schema.String:
		_, ok = v.(string)
	case schema.Int64:
		_, ok = v.(int64)
	case schema.Int32:
		_, ok = v.(int32)
	case schema.Float64:
		_, ok = v.(float64)
	case schema.Timestamp:
		_, ok = v.(time.Time)
	}
	if !ok {
		return fmt.Errorf("column %s: expected %s, got %T", col.Name, col.Type, v)
	}
	return nil
}
