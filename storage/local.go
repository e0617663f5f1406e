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
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// LocalStore implements Store on a directory of the local filesystem.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir. The directory need not exist yet.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: filepath.Clean(dir)}
}

// Location implements Store.
func (s *LocalStore) Location() Location {
	return Location{Scheme: SchemeLocal, Prefix: s.root}
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Glob implements Store.
func (s *LocalStore) Glob(ctx context.Context, pattern string) ([]string, error) {
	p, err := cleanKey(pattern)
	if err != nil {
		return nil, &StoreError{Op: "glob", Key: pattern, Err: err}
	}
	if _, err := path.Match(p, ""); err != nil {
		return nil, &StoreError{Op: "glob", Key: pattern, Err: err}
	}

	matches, err := filepath.Glob(s.path(p))
	if err != nil {
		return nil, &StoreError{Op: "glob", Key: pattern, Err: err}
	}

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(s.root, m)
		if err != nil {
			return nil, &StoreError{Op: "glob", Key: pattern, Err: err}
		}
		keys = append(keys, filepath.ToSlash(rel))
	}
	sort.Strings(keys)
	return keys, nil
}

// Open implements Store.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, &StoreError{Op: "open", Key: key, Err: err}
	}
	f, err := os.Open(s.path(k))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrNotFound
		}
		return nil, &StoreError{Op: "open", Key: key, Err: err}
	}
	return f, nil
}

// Put implements Store. The file is written next to its target and renamed into place.
func (s *LocalStore) Put(ctx context.Context, key string, body []byte) error {
	k, err := cleanKey(key)
	if err != nil || k == "" {
		if err == nil {
			err = errors.New("empty key")
		}
		return &StoreError{Op: "put", Key: key, Err: err}
	}

	target := s.path(k)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &StoreError{Op: "put", Key: key, Err: err}
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return &StoreError{Op: "put", Key: key, Err: err}
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return &StoreError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// RemoveAll implements Store.
func (s *LocalStore) RemoveAll(ctx context.Context, prefix string) error {
	k, err := cleanKey(prefix)
	if err != nil {
		return &StoreError{Op: "remove", Key: prefix, Err: err}
	}
	if k == "" {
		return &StoreError{Op: "remove", Key: prefix, Err: errors.New("refusing to remove the store root")}
	}
	if err := os.RemoveAll(s.path(k)); err != nil {
		return &StoreError{Op: "remove", Key: prefix, Err: err}
	}
	return nil
}
