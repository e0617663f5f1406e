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

package schema

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v12/arrow"
)

// Package schema holds the fixed shapes of the two raw datasets and the five star-schema tables.
//
// Raw datasets are described by Dataset (field name and declared type, used to coerce decoded
// JSON). Output tables are described by Table (ordered columns plus partition columns), from which
// the arrow schema for parquet and the PostgreSQL DDL are derived.

// Type is the logical type of a column.
type Type int

const (
	String Type = iota
	Int64
	Int32
	Float64
	Timestamp
)

// String returns the lower-case type name.
func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int64:
		return "int64"
	case Int32:
		return "int32"
	case Float64:
		return "float64"
	case Timestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ArrowType returns the arrow data type used when encoding the column.
func (t Type) ArrowType() arrow.DataType {
	switch t {
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Timestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// SQLType returns the PostgreSQL column type.
func (t Type) SQLType() string {
	switch t {
	case Int64:
		return "BIGINT"
	case Int32:
		return "INTEGER"
	case Float64:
		return "DOUBLE PRECISION"
	case Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// Column is a named, typed column.
type Column struct {
	Name string
	Type Type
}

// Dataset describes a raw JSON source.
type Dataset struct {
	Name   string
	Fields []Column
}

// Field returns the declared field and whether it exists.
func (d Dataset) Field(name string) (Column, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Column{}, false
}

// Table describes an output table.
type Table struct {
	Name        string
	Columns     []Column
	PartitionBy []string
	// Key lists the columns expected to identify a row, used by quality checks and DDL.
	Key []string
}

// ColumnNames returns the column names in table order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column and whether it exists.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// DataColumns returns the columns stored inside data files, which excludes partition columns.
func (t Table) DataColumns() []Column {
	if len(t.PartitionBy) == 0 {
		return t.Columns
	}
	skip := make(map[string]bool, len(t.PartitionBy))
	for _, p := range t.PartitionBy {
		skip[p] = true
	}
	cols := make([]Column, 0, len(t.Columns)-len(t.PartitionBy))
	for _, c := range t.Columns {
		if !skip[c.Name] {
			cols = append(cols, c)
		}
	}
	return cols
}

// Validate checks that every partition and key column is a table column.
func (t Table) Validate() error {
	for _, p := range t.PartitionBy {
		if _, ok := t.Column(p); !ok {
			return fmt.Errorf("table %s: partition column %q is not a column", t.Name, p)
		}
	}
	for _, k := range t.Key {
		if _, ok := t.Column(k); !ok {
			return fmt.Errorf("table %s: key column %q is not a column", t.Name, k)
		}
	}
	return nil
}

// ArrowSchema builds a nullable arrow schema for the given columns.
func ArrowSchema(columns []Column) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c.Name, Type: c.Type.ArrowType(), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// ColumnDefsSQL renders the comma-separated column definitions for DDL.
// quote is applied to every identifier.
func (t Table) ColumnDefsSQL(quote func(string) string) string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", quote(c.Name), c.Type.SQLType()))
	}
	return strings.Join(defs, ", ")
}

// CreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement for the table.
func (t Table) CreateTableSQL(quote func(string) string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(t.Name), t.ColumnDefsSQL(quote))
}
