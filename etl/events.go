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
	"fmt"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/filter"
	"github.com/aaronlmathis/sparkify/pipeline"
	"github.com/aaronlmathis/sparkify/readers"
	"github.com/aaronlmathis/sparkify/transform"
	"github.com/aaronlmathis/sparkify/writers"
)

// ErrInvalidTimestamp marks an event whose ts is missing, non-integer, or negative.
var ErrInvalidTimestamp = transform.ErrInvalidTimestamp

// NextSongPage is the page value of a song play event.
const NextSongPage = "NextSong"

// NextSongEvents are the song play events of a log, each carrying a UTC start_time.
type NextSongEvents struct {
	Rows    []core.Record
	Skipped int64   // NextSong events dropped for an invalid ts
	Samples []error // a few of the skip reasons
}

// FilterNextSong keeps page == "NextSong" events and converts ts (epoch
// milliseconds) to start_time. Events with an invalid ts are skipped and
// counted rather than failing the run.
func FilterNextSong(ctx context.Context, logRecords []core.Record) (NextSongEvents, error) {
	sink := writers.NewCollector()
	counter := &core.ErrorCounter{MaxSamples: 5}

	p, err := pipeline.New().
		From(readers.NewSliceReader(logRecords)).
		Filter(filter.Equals("page", NextSongPage)).
		Transform(transform.MillisToTime("ts", "start_time")).
		To(sink).
		WithErrorStrategy(core.SkipErrors).
		WithErrorHandler(counter).
		Build()
	if err != nil {
		return NextSongEvents{}, err
	}
	if err := p.Execute(ctx); err != nil {
		return NextSongEvents{}, fmt.Errorf("filter NextSong events: %w", err)
	}

	return NextSongEvents{
		Rows:    sink.Records(),
		Skipped: counter.Count(),
		Samples: counter.Samples(),
	}, nil
}
