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

package etl

import (
	"errors"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"

	"github.com/aaronlmathis/sparkify/schema"
)

// TableReport is the outcome of writing one table.
type TableReport struct {
	Table      string
	Dest       string
	Rows       int64
	Partitions int
	Files      int
	Bytes      int64
	Loaded     bool // also loaded into the warehouse
	Duration   time.Duration
	Err        error
}

// Report summarizes a run.
type Report struct {
	SongRecords   int64
	LogRecords    int64
	SongPlays     int64 // NextSong events with a valid ts
	SkippedEvents int64 // NextSong events skipped for an invalid ts
	Tables        []TableReport
	Duration      time.Duration

	mu sync.Mutex
}

func (r *Report) add(t TableReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tables = append(r.Tables, t)
}

// sortTables orders table reports as schema.Tables lists them.
func (r *Report) sortTables() {
	r.mu.Lock()
	defer r.mu.Unlock()
	rank := make(map[string]int, len(schema.Tables))
	for i, t := range schema.Tables {
		rank[t.Name] = i
	}
	sorted := make([]TableReport, 0, len(r.Tables))
	for _, t := range schema.Tables {
		for _, tr := range r.Tables {
			if tr.Table == t.Name {
				sorted = append(sorted, tr)
			}
		}
	}
	for _, tr := range r.Tables {
		if _, known := rank[tr.Table]; !known {
			sorted = append(sorted, tr)
		}
	}
	r.Tables = sorted
}

// Table returns the report of the named table.
func (r *Report) Table(name string) (TableReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableReport{}, false
}

// Err joins the errors of every failed table, nil when all succeeded.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, t := range r.Tables {
		if t.Err != nil {
			errs = append(errs, t.Err)
		}
	}
	return errors.Join(errs...)
}

// Log writes one line per table and a summary line.
func (r *Report) Log(logger hclog.Logger) {
	var rows, bytes int64
	failed := 0
	for _, t := range r.Tables {
		if t.Err != nil {
			failed++
			logger.Error("table failed", "table", t.Table, "dest", t.Dest, "error", t.Err)
			continue
		}
		rows += t.Rows
		bytes += t.Bytes
		logger.Info("table",
			"table", t.Table,
			"dest", t.Dest,
			"rows", humanize.Comma(t.Rows),
			"partitions", t.Partitions,
			"files", t.Files,
			"bytes", humanize.Bytes(uint64(t.Bytes)),
			"loaded", t.Loaded,
			"duration", t.Duration.Round(time.Millisecond))
	}

	logger.Info("run finished",
		"song_records", humanize.Comma(r.SongRecords),
		"log_records", humanize.Comma(r.LogRecords),
		"songplay_events", humanize.Comma(r.SongPlays),
		"skipped", r.SkippedEvents,
		"rows", humanize.Comma(rows),
		"bytes", humanize.Bytes(uint64(bytes)),
		"failed_tables", failed,
		"duration", r.Duration.Round(time.Millisecond))
}
