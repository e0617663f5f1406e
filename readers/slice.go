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
	"context"
	"errors"
	"io"

	"github.com/aaronlmathis/sparkify/core"
)

// SliceReader implements core.DataSource over records already in memory.
// Records are handed out as-is, so downstream transformers must not mutate them in place.
type SliceReader struct {
	records []core.Record
	pos     int
}

// NewSliceReader creates a reader over records.
func NewSliceReader(records []core.Record) *SliceReader {
	return &SliceReader{records: records}
}

// Read implements the core.DataSource interface.
func (s *SliceReader) Read(ctx context.Context) (core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// Close implements the core.DataSource interface.
func (s *SliceReader) Close() error {
	return nil
}

// ReadAll drains a DataSource into a slice and closes it.
func ReadAll(ctx context.Context, src core.DataSource) (records []core.Record, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		r, rerr := src.Read(ctx)
		if errors.Is(rerr, io.EOF) {
			return records, nil
		}
		if rerr != nil {
			return records, rerr
		}
		records = append(records, r)
	}
}
