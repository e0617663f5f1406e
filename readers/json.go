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

	"github.com/goccy/go-json"

	"github.com/aaronlmathis/sparkify/core"
)

// JSONReader implements core.DataSource over a stream of JSON objects.
// Both newline-delimited files and a single (possibly pretty-printed) object per file are accepted.
// Numbers are decoded as json.Number so 13-digit epoch milliseconds keep full precision.
type JSONReader struct {
	dec     *json.Decoder
	closer  io.Closer
	records int64
}

// NewJSONReader creates a new JSON reader.
func NewJSONReader(r io.ReadCloser) *JSONReader {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &JSONReader{
		dec:    dec,
		closer: r,
	}
}

// Read implements the core.DataSource interface.
// A JSON null yields an empty record; any non-object value is an error.
func (j *JSONReader) Read(ctx context.Context) (core.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var record core.Record
	if err := j.dec.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	j.records++
	if record == nil {
		record = core.Record{}
	}
	return record, nil
}

// Records returns how many values have been decoded so far.
func (j *JSONReader) Records() int64 {
	return j.records
}

// Close implements the core.DataSource interface.
func (j *JSONReader) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
