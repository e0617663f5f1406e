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
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Package storage abstracts where raw datasets are read from and where tables are written to.
//
// A Store is rooted at a base Location; keys are slash-separated and relative to that root.
// Implementations exist for the local filesystem and for Amazon S3 (and S3-compatible services).

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("not found")

// StoreError provides structured error information for store operations.
type StoreError struct {
	Op  string // Operation that failed (e.g., "glob", "open", "put", "remove")
	Key string // Key or pattern involved, relative to the store root
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store is a flat, slash-keyed object namespace.
type Store interface {
	// Glob returns the keys matching pattern in lexical order.
	// Wildcards never match across a '/'.
	Glob(ctx context.Context, pattern string) ([]string, error)
	// Open returns a reader for key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Put creates or replaces key with body.
	Put(ctx context.Context, key string, body []byte) error
	// RemoveAll deletes key and everything below it. Missing keys are not an error.
	RemoveAll(ctx context.Context, prefix string) error
	// Location returns the root location of the store.
	Location() Location
}

// Scheme identifies a storage backend.
type Scheme string

const (
	SchemeLocal Scheme = "file"
	SchemeS3    Scheme = "s3"
)

// Location is a parsed base location such as s3a://bucket/prefix/ or /data/out.
type Location struct {
	Scheme Scheme
	Bucket string // S3 only
	Prefix string // S3 key prefix without leading or trailing slash, or a local directory
}

// ParseLocation parses a location string. s3://, s3a:// and s3n:// all select S3;
// file:// or a plain path selects the local filesystem.
func ParseLocation(raw string) (Location, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Location{}, fmt.Errorf("empty location")
	}

	scheme, rest, found := strings.Cut(s, "://")
	if !found {
		return Location{Scheme: SchemeLocal, Prefix: s}, nil
	}

	switch strings.ToLower(scheme) {
	case "s3", "s3a", "s3n":
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, fmt.Errorf("location %q: missing bucket", raw)
		}
		return Location{Scheme: SchemeS3, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
	case "file":
		if rest == "" {
			return Location{}, fmt.Errorf("location %q: missing path", raw)
		}
		return Location{Scheme: SchemeLocal, Prefix: rest}, nil
	default:
		return Location{}, fmt.Errorf("location %q: unsupported scheme %q", raw, scheme)
	}
}

// String renders the location in URL form.
func (l Location) String() string {
	switch l.Scheme {
	case SchemeS3:
		if l.Prefix == "" {
			return "s3://" + l.Bucket + "/"
		}
		return "s3://" + l.Bucket + "/" + l.Prefix + "/"
	default:
		return l.Prefix
	}
}

// Join returns key under the location as a display string.
func (l Location) Join(key string) string {
	if l.Scheme == SchemeS3 {
		return "s3://" + l.Bucket + "/" + path.Join(l.Prefix, key)
	}
	return path.Join(l.Prefix, key)
}

// staticPrefix returns the leading part of a glob pattern up to the last '/'
// before the first wildcard. It is the narrowest listing prefix that can contain matches.
func staticPrefix(pattern string) string {
	i := strings.IndexAny(pattern, "*?[\\")
	if i < 0 {
		return pattern
	}
	j := strings.LastIndex(pattern[:i], "/")
	if j < 0 {
		return ""
	}
	return pattern[:j+1]
}

// cleanKey normalizes a key, rejecting ones that escape the root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", nil
	}
	if strings.HasPrefix(k, "../") || k == ".." {
		return "", fmt.Errorf("key %q escapes the store root", key)
	}
	return k, nil
}
