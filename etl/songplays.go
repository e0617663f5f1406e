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
	"github.com/aaronlmathis/sparkify/join"
)

const songPrefix = "song_"

// songplayJoin matches events to songs on the artist display name, exactly and
// case-sensitively.
var songplayJoin = join.Config{
	LeftKeys:    []string{"artist"},
	RightKeys:   []string{"artist_name"},
	RightPrefix: songPrefix,
}

// BuildSongplays builds the songplays fact table.
//
// Every (event, song) pair sharing an artist name emits one row, so an artist
// with several songs multiplies their events; events whose artist matches no
// song emit nothing. songplay_id counts from 0 in emission order and is unique
// within the run only.
func BuildSongplays(ctx context.Context, events NextSongEvents, songRecords []core.Record) ([]core.Record, error) {
	pairs, _, err := join.HashJoin(ctx, songplayJoin, events.Rows, songRecords)
	if err != nil {
		return nil, err
	}

	out := make([]core.Record, 0, len(pairs))
	for _, p := range pairs {
		start, ok := p["start_time"].(time.Time)
		if !ok {
			continue
		}
		out = append(out, core.Record{
			"songplay_id": int64(len(out)),
			"start_time":  start,
			"user_id":     p["userId"],
			"level":       p["level"],
			"song_id":     p[songPrefix+"song_id"],
			"artist_id":   p[songPrefix+"artist_id"],
			"session_id":  p["sessionId"],
			"location":    p["location"],
			"user_agent":  p["userAgent"],
			"year":        int32(start.Year()),
			"month":       int32(start.Month()),
		})
	}
	return out, nil
}
