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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sparkify/schema"
	"github.com/aaronlmathis/sparkify/storage"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func TestDatasetReader_SongData(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "song_data/A/B/C/TRB.json", `{"num_songs": 1, "artist_id": "ARB", "artist_name": "B", "song_id": "SOB", "title": "b", "duration": 1.5, "year": 0}`)
	writeFile(t, root, "song_data/A/B/C/TRA.json", `{"num_songs": 1, "artist_id": "ARA", "artist_latitude": null, "artist_name": "A", "song_id": "SOA", "title": "a", "duration": 2, "year": 1999}`)
	writeFile(t, root, "song_data/A/B/TRX.json", `{"song_id": "not matched, wrong depth"}`)

	r := NewDatasetReader(storage.NewLocalStore(root))
	records, stats, err := r.ReadWithStats(context.Background(), schema.SongData, "song_data/*/*/*/*.json")
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "SOA", records[0]["song_id"], "files are read in key order")
	assert.Equal(t, int64(1999), records[0]["year"])
	assert.Equal(t, 2.0, records[0]["duration"])
	assert.Nil(t, records[0]["artist_latitude"])
	assert.Equal(t, "SOB", records[1]["song_id"])
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, int64(2), stats.Records)
}

func TestDatasetReader_LogData(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "log_data/2018-11-01-events.json",
		`{"artist":null,"auth":"Logged In","firstName":"Walter","page":"Home","ts":1541105830796,"userId":"39"}
{"artist":"The Police","page":"NextSong","ts":1541106106796,"userId":"39","sessionId":38}

{"artist":null,"page":"Home","ts":1541106352796,"userId":""}
`)

	records, err := NewDatasetReader(storage.NewLocalStore(root)).Read(context.Background(), schema.LogData, "log_data/*.json")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "The Police", records[1]["artist"])
	assert.Equal(t, int64(38), records[1]["sessionId"])
	assert.Equal(t, "", records[2]["userId"])
}

func TestDatasetReader_NoFiles(t *testing.T) {
	_, err := NewDatasetReader(storage.NewLocalStore(t.TempDir())).Read(context.Background(), schema.LogData, "log_data/*.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFiles)

	var rerr *ReadError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "glob", rerr.Op)
	assert.Equal(t, "log_data", rerr.Dataset)
}

func TestDatasetReader_Malformed(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "log_data/a.json", `{"page":"Home"}`)
	writeFile(t, root, "log_data/b.json", `{"page": "Home"`)

	_, err := NewDatasetReader(storage.NewLocalStore(root)).Read(context.Background(), schema.LogData, "log_data/*.json")

	var rerr *ReadError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "decode", rerr.Op)
	assert.Equal(t, "log_data/b.json", rerr.Key)
}

func TestDatasetReader_BadGlob(t *testing.T) {
	_, err := NewDatasetReader(storage.NewLocalStore(t.TempDir())).Read(context.Background(), schema.LogData, "log_data/[.json")

	var rerr *ReadError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "glob", rerr.Op)
	assert.NotErrorIs(t, err, ErrNoFiles)
}
