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
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/aaronlmathis/sparkify/aggregate"
	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/readers"
	"github.com/aaronlmathis/sparkify/schema"
	"github.com/aaronlmathis/sparkify/storage"
	"github.com/aaronlmathis/sparkify/validators"
	"github.com/aaronlmathis/sparkify/writers"
)

// Default dataset globs, relative to the input location.
const (
	DefaultSongGlob = "song_data/*/*/*/*.json"
	DefaultLogGlob  = "log_data/*.json"
)

// Warehouse receives every successfully written table.
type Warehouse interface {
	Load(ctx context.Context, table schema.Table, rows []core.Record) error
}

// TableSink writes one table to its destination.
type TableSink interface {
	Write(ctx context.Context, table schema.Table, rows []core.Record, dest string) (writers.WriteResult, error)
}

// DefaultChecks are the quality checks applied before each table is written.
var DefaultChecks = map[string]validators.Check{
	schema.Songs.Name:     {NotNull: []string{"song_id", "artist_id"}, Types: true},
	schema.Artists.Name:   {NotNull: []string{"artist_id"}, Types: true},
	schema.Users.Name:     {NotNull: []string{"user_id"}, Unique: []string{"user_id"}, Types: true},
	schema.Time.Name:      {NotNull: []string{"start_time"}, Unique: []string{"start_time"}, Types: true},
	schema.Songplays.Name: {NotNull: []string{"start_time"}, Unique: []string{"songplay_id"}, Types: true},
}

// Runner executes the complete ETL: read both datasets, derive the five tables, write them.
type Runner struct {
	source    *readers.DatasetReader
	sink      TableSink
	songGlob  string
	logGlob   string
	policy    core.ErrorStrategy
	checks    map[string]validators.Check
	warehouse Warehouse
	logger    hclog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSongGlob sets the song dataset glob relative to the input location.
func WithSongGlob(glob string) RunnerOption {
	return func(r *Runner) {
		r.songGlob = glob
	}
}

// WithLogGlob sets the log dataset glob relative to the input location.
func WithLogGlob(glob string) RunnerOption {
	return func(r *Runner) {
		r.logGlob = glob
	}
}

// WithWritePolicy selects how table write failures are handled:
// core.CollectErrors attempts every table, core.FailFast stops at the first failure.
func WithWritePolicy(policy core.ErrorStrategy) RunnerOption {
	return func(r *Runner) {
		r.policy = policy
	}
}

// WithChecks replaces the quality checks; tables without an entry are not checked.
func WithChecks(checks map[string]validators.Check) RunnerOption {
	return func(r *Runner) {
		r.checks = checks
	}
}

// WithWarehouse loads every written table into w as well.
func WithWarehouse(w Warehouse) RunnerOption {
	return func(r *Runner) {
		r.warehouse = w
	}
}

// WithLogger sets the run logger.
func WithLogger(logger hclog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner reading datasets from source and writing tables to sink.
func NewRunner(source storage.Store, sink TableSink, opts ...RunnerOption) *Runner {
	r := &Runner{
		sink:     sink,
		songGlob: DefaultSongGlob,
		logGlob:  DefaultLogGlob,
		policy:   core.CollectErrors,
		checks:   DefaultChecks,
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.source = readers.NewDatasetReader(source, readers.WithReaderLogger(r.logger.Named("reader")))
	return r
}

// Run executes both flows and returns the report.
//
// Song data is read once and shared read-only by the song flow (songs,
// artists) and the log flow (users, time, songplays), which run concurrently.
// A read failure aborts the run. Table failures follow the write policy; with
// CollectErrors every table is attempted and the returned error joins all
// failures, so a partial success is never reported as success.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}
	defer func() {
		report.sortTables()
		report.Duration = time.Since(start)
	}()

	r.logger.Info("starting run", "policy", r.policy.String(), "song_glob", r.songGlob, "log_glob", r.logGlob)

	songs, err := r.source.Read(ctx, schema.SongData, r.songGlob)
	if err != nil {
		return report, err
	}
	report.SongRecords = int64(len(songs))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.songFlow(gctx, songs, report)
	})
	g.Go(func() error {
		return r.logFlow(gctx, songs, report)
	})
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, report.Err()
}

func (r *Runner) songFlow(ctx context.Context, songs []core.Record, report *Report) error {
	songRows, err := ExtractSongs(ctx, songs)
	if err != nil {
		return err
	}
	if err := r.writeTable(ctx, schema.Songs, songRows, report); err != nil {
		return err
	}
	artists, err := ExtractArtists(ctx, songs)
	if err != nil {
		return err
	}
	return r.writeTable(ctx, schema.Artists, artists, report)
}

func (r *Runner) logFlow(ctx context.Context, songs []core.Record, report *Report) error {
	logs, err := r.source.Read(ctx, schema.LogData, r.logGlob)
	if err != nil {
		return err
	}
	report.LogRecords = int64(len(logs))

	users, err := ExtractUsers(ctx, logs)
	if err != nil {
		return err
	}
	for _, c := range aggregate.Count(users, "level") {
		r.logger.Debug("users by level", "level", c["level"], "users", c["count"])
	}
	if err := r.writeTable(ctx, schema.Users, users, report); err != nil {
		return err
	}

	events, err := FilterNextSong(ctx, logs)
	if err != nil {
		return err
	}
	report.SongPlays = int64(len(events.Rows))
	report.SkippedEvents = events.Skipped
	if events.Skipped > 0 {
		r.logger.Warn("skipped events with invalid ts", "skipped", events.Skipped, "example", events.Samples[0])
	}

	timeRows, err := ExtractTime(ctx, events)
	if err != nil {
		return err
	}
	if err := r.writeTable(ctx, schema.Time, timeRows, report); err != nil {
		return err
	}

	songplays, err := BuildSongplays(ctx, events, songs)
	if err != nil {
		return err
	}
	return r.writeTable(ctx, schema.Songplays, songplays, report)
}

// writeTable checks, writes, and optionally loads one table, recording the outcome.
// The returned error is non-nil only when the run must stop.
func (r *Runner) writeTable(ctx context.Context, table schema.Table, rows []core.Record, report *Report) error {
	start := time.Now()
	tr := TableReport{Table: table.Name, Rows: int64(len(rows))}

	err := r.writeAndLoad(ctx, table, rows, &tr)
	tr.Duration = time.Since(start)
	tr.Err = err
	report.add(tr)

	if err == nil {
		return nil
	}
	r.logger.Error("table failed", "table", table.Name, "error", err)
	if r.policy == core.FailFast || ctx.Err() != nil {
		return err
	}
	return nil
}

func (r *Runner) writeAndLoad(ctx context.Context, table schema.Table, rows []core.Record, tr *TableReport) error {
	if check, ok := r.checks[table.Name]; ok {
		if err := check.Validate(table, rows); err != nil {
			return &writers.TableWriteError{Table: table.Name, Op: "quality", Err: err}
		}
	}

	res, err := r.sink.Write(ctx, table, rows, table.Name+"/")
	tr.Dest = res.Dest
	if err != nil {
		return err
	}
	tr.Partitions = res.Partitions
	tr.Files = res.Files
	tr.Bytes = res.Bytes

	if r.warehouse != nil {
		if err := r.warehouse.Load(ctx, table, rows); err != nil {
			return &writers.TableWriteError{Table: table.Name, Op: "load", Err: err}
		}
		tr.Loaded = true
		r.logger.Debug("table loaded into warehouse", "table", table.Name, "rows", len(rows))
	}
	return nil
}
