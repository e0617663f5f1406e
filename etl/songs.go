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

// Package etl derives the sparkify star schema from raw song and event records
// and orchestrates a complete run.
package etl

import (
	"context"

	"github.com/aaronlmathis/sparkify/aggregate"
	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/filter"
	"github.com/aaronlmathis/sparkify/schema"
	"github.com/aaronlmathis/sparkify/transform"
)

var artistColumns = map[string]string{
	"artist_name":      "name",
	"artist_location":  "location",
	"artist_latitude":  "latitude",
	"artist_longitude": "longitude",
}

var (
	toSong = transform.Select(schema.Songs.ColumnNames()...)

	toArtist = transform.Chain(
		transform.Select("artist_id", "artist_name", "artist_location", "artist_latitude", "artist_longitude"),
		transform.Rename(artistColumns),
	)
)

// extract keeps the records passing keep and reshapes each with shape.
func extract(ctx context.Context, records []core.Record, keep core.Filter, shape core.Transformer) ([]core.Record, error) {
	kept, err := filter.Apply(ctx, keep, records)
	if err != nil {
		return nil, err
	}
	rows := make([]core.Record, 0, len(kept))
	for _, r := range kept {
		row, err := shape.Transform(ctx, r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// distinct extracts like extract and collapses identical rows, keeping the first.
func distinct(ctx context.Context, records []core.Record, keep core.Filter, shape core.Transformer) ([]core.Record, error) {
	rows, err := extract(ctx, records, keep, shape)
	if err != nil {
		return nil, err
	}
	return aggregate.DropDuplicates(rows), nil
}

// ExtractSongs builds the songs table from song records.
// Rows without a song_id or artist_id are dropped; identical rows are collapsed, keeping the first.
// Two differing rows for the same song_id both survive.
func ExtractSongs(ctx context.Context, songRecords []core.Record) ([]core.Record, error) {
	return distinct(ctx, songRecords, filter.NotNull("song_id", "artist_id"), toSong)
}

// ExtractArtists builds the artists table from song records.
// Artist fields are renamed to the table's column names; rows without an artist_id are dropped
// and identical rows collapsed. An artist carried with different locations by different songs
// appears once per distinct variant.
func ExtractArtists(ctx context.Context, songRecords []core.Record) ([]core.Record, error) {
	return distinct(ctx, songRecords, filter.NotNull("artist_id"), toArtist)
}
