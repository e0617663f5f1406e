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

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/filter"
	"github.com/aaronlmathis/sparkify/transform"
)

// timeParts derives the calendar columns of the time table, all in UTC.
var timeParts = map[string]func(time.Time) int32{
	"hour":  func(t time.Time) int32 { return int32(t.Hour()) },
	"day":   func(t time.Time) int32 { return int32(t.Day()) },
	"week":  isoWeek,
	"month": func(t time.Time) int32 { return int32(t.Month()) },
	"year":  func(t time.Time) int32 { return int32(t.Year()) },
	// 1 = Sunday ... 7 = Saturday
	"weekday": func(t time.Time) int32 { return int32(t.Weekday()) + 1 },
}

func isoWeek(t time.Time) int32 {
	_, w := t.ISOWeek()
	return int32(w)
}

// ExtractTime builds the time table from song play events, one row per distinct start_time.
// start_time is already UTC, as set by FilterNextSong.
func ExtractTime(ctx context.Context, events NextSongEvents) ([]core.Record, error) {
	derive := transform.Chain(
		transform.Select("start_time"),
		transform.TimeParts("start_time", timeParts),
	)
	return distinct(ctx, events.Rows, filter.NotNull("start_time"), derive)
}
