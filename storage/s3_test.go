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

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket implementing S3API.
type fakeS3 struct {
	mu          sync.Mutex
	objects     map[string][]byte
	deleteCalls int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	for _, o := range in.Delete.Objects {
		delete(f.objects, aws.ToString(o.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func newTestS3Store(t *testing.T, fake *fakeS3, prefix string) *S3Store {
	t.Helper()
	store, err := NewS3Store(context.Background(), Location{Scheme: SchemeS3, Bucket: "bucket", Prefix: prefix}, WithS3Client(fake))
	require.NoError(t, err)
	return store
}

func TestS3Store_Glob(t *testing.T) {
	fake := newFakeS3()
	fake.objects["input/song_data/A/B/C/TRABCEI.json"] = []byte("{}")
	fake.objects["input/song_data/A/A/B/TRAABJV.json"] = []byte("{}")
	fake.objects["input/song_data/A/B/TRTOP.json"] = []byte("{}")
	fake.objects["input/song_data/A/B/C/"] = nil
	fake.objects["input/log_data/2018-11-01-events.json"] = []byte("{}")
	fake.objects["other/log_data/2018-11-01-events.json"] = []byte("{}")

	store := newTestS3Store(t, fake, "input")
	ctx := context.Background()

	keys, err := store.Glob(ctx, "song_data/*/*/*/*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"song_data/A/A/B/TRAABJV.json", "song_data/A/B/C/TRABCEI.json"}, keys)

	keys, err = store.Glob(ctx, "log_data/*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"log_data/2018-11-01-events.json"}, keys)
}

func TestS3Store_PutOpenRemove(t *testing.T) {
	fake := newFakeS3()
	store := newTestS3Store(t, fake, "")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "songs/year=1978/part-00000.snappy.parquet", []byte("p")))
	require.NoError(t, store.Put(ctx, "songs/_SUCCESS", nil))
	require.NoError(t, store.Put(ctx, "songsextra/keep", []byte("k")))

	rc, err := store.Open(ctx, "songs/_SUCCESS")
	require.NoError(t, err)
	rc.Close()

	require.NoError(t, store.RemoveAll(ctx, "songs"))
	_, err = store.Open(ctx, "songs/_SUCCESS")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, ok := fake.objects["songsextra/keep"]
	assert.True(t, ok, "sibling prefix must survive")
}

func TestS3Store_RemoveAllBatches(t *testing.T) {
	fake := newFakeS3()
	for i := 0; i < 2500; i++ {
		fake.objects["lake/time/part-"+strconv.Itoa(i)] = nil
	}
	store := newTestS3Store(t, fake, "lake")

	require.NoError(t, store.RemoveAll(context.Background(), "time"))
	assert.Empty(t, fake.objects)
	assert.Equal(t, 3, fake.deleteCalls)
}

func TestNewS3Store_RejectsLocal(t *testing.T) {
	_, err := NewS3Store(context.Background(), Location{Scheme: SchemeLocal, Prefix: "/tmp"})
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "validate_options", se.Op)
}
