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

	"github.com/aaronlmathis/sparkify/aggregate"
	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/filter"
	"github.com/aaronlmathis/sparkify/transform"
)

var userColumns = map[string]string{
	"userId":    "user_id",
	"firstName": "first_name",
	"lastName":  "last_name",
}

var (
	toUser = transform.Chain(
		transform.Select("userId", "firstName", "lastName", "gender", "level", "ts"),
		transform.Rename(userColumns),
	)
	dropTs = transform.RemoveFields("ts")
)

// ExtractUsers builds the users table from every event, not only song plays.
//
// Events without a userId (logged-out sessions) are ignored. Each user appears
// once: the row from their event with the greatest ts wins, so level is the
// latest observed tier; equal or missing ts keeps the earlier event. Users are
// emitted in order of first appearance.
func ExtractUsers(ctx context.Context, logRecords []core.Record) ([]core.Record, error) {
	rows, err := extract(ctx, logRecords, filter.NotNull("userId"), toUser)
	if err != nil {
		return nil, err
	}
	latest := aggregate.DropDuplicatesBy(rows, []string{"user_id"}, "ts")

	out := make([]core.Record, 0, len(latest))
	for _, r := range latest {
		row, err := dropTs.Transform(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
