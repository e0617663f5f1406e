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

// SongData is the song metadata dataset, one JSON object per file.
var SongData = Dataset{
	Name: "song_data",
	Fields: []Column{
		{"num_songs", Int64},
		{"artist_id", String},
		{"artist_latitude", Float64},
		{"artist_longitude", Float64},
		{"artist_location", String},
		{"artist_name", String},
		{"song_id", String},
		{"title", String},
		{"duration", Float64},
		{"year", Int64},
	},
}

// LogData is the event log dataset, newline-delimited JSON.
var LogData = Dataset{
	Name: "log_data",
	Fields: []Column{
		{"artist", String},
		{"auth", String},
		{"firstName", String},
		{"gender", String},
		{"itemInSession", Int64},
		{"lastName", String},
		{"length", Float64},
		{"level", String},
		{"location", String},
		{"method", String},
		{"page", String},
		{"registration", Float64},
		{"sessionId", Int64},
		{"song", String},
		{"status", Int64},
		{"ts", Int64},
		{"userAgent", String},
		{"userId", String},
	},
}

// Songs is the songs dimension.
var Songs = Table{
	Name: "songs",
	Columns: []Column{
		{"song_id", String},
		{"title", String},
		{"artist_id", String},
		{"year", Int64},
		{"duration", Float64},
	},
	PartitionBy: []string{"year", "artist_id"},
	Key:         []string{"song_id"},
}

// Artists is the artists dimension.
var Artists = Table{
	Name: "artists",
	Columns: []Column{
		{"artist_id", String},
		{"name", String},
		{"location", String},
		{"latitude", Float64},
		{"longitude", Float64},
	},
	Key: []string{"artist_id"},
}

// Users is the users dimension.
var Users = Table{
	Name: "users",
	Columns: []Column{
		{"user_id", String},
		{"first_name", String},
		{"last_name", String},
		{"gender", String},
		{"level", String},
	},
	Key: []string{"user_id"},
}

// Time is the calendar dimension derived from event timestamps.
var Time = Table{
	Name: "time",
	Columns: []Column{
		{"start_time", Timestamp},
		{"hour", Int32},
		{"day", Int32},
		{"week", Int32},
		{"month", Int32},
		{"year", Int32},
		{"weekday", Int32},
	},
	PartitionBy: []string{"year", "month"},
	Key:         []string{"start_time"},
}

// Songplays is the fact table.
var Songplays = Table{
	Name: "songplays",
	Columns: []Column{
		{"songplay_id", Int64},
		{"start_time", Timestamp},
		{"user_id", String},
		{"level", String},
		{"song_id", String},
		{"artist_id", String},
		{"session_id", Int64},
		{"location", String},
		{"user_agent", String},
		{"year", Int32},
		{"month", Int32},
	},
	PartitionBy: []string{"year", "month"},
	Key:         []string{"songplay_id"},
}

// Tables lists the output tables in write order.
var Tables = []Table{Songs, Artists, Users, Time, Songplays}
