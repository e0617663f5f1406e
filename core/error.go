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

package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Package core defines the error handling types for the sparkify ETL.
//
// The same strategy type governs row-level transform errors in the pipeline and
// table-level write errors in the run.

// ErrorHandler defines how errors are handled during processing.
// Custom error handlers can be used to log, collect, or transform errors.
type ErrorHandler interface {
	// HandleError processes an error that occurred during transformation.
	// Returning a non-nil error will stop the pipeline; returning nil will continue.
	HandleError(ctx context.Context, record Record, err error) error
}

// ErrorStrategy defines how to handle errors.
type ErrorStrategy int

const (
	// FailFast stops processing on the first error encountered.
	FailFast ErrorStrategy = iota
	// SkipErrors continues processing, skipping failed records.
	SkipErrors
	// CollectErrors continues processing, collecting all errors for later inspection.
	CollectErrors
)

// String returns the configuration name of the strategy.
func (s ErrorStrategy) String() string {
	switch s {
	case FailFast:
		return "fail-fast"
	case SkipErrors:
		return "skip"
	case CollectErrors:
		return "collect"
	default:
		return fmt.Sprintf("ErrorStrategy(%d)", int(s))
	}
}

// ParseErrorStrategy maps a configuration value to an ErrorStrategy.
func ParseErrorStrategy(s string) (ErrorStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail-fast", "failfast", "fail_fast":
		return FailFast, nil
	case "skip":
		return SkipErrors, nil
	case "collect", "":
		return CollectErrors, nil
	default:
		return FailFast, fmt.Errorf("unknown error strategy %q", s)
	}
}

// ErrorHandlerFunc is a function adapter for the ErrorHandler interface.
// Allows ordinary functions to be used as error handlers.
type ErrorHandlerFunc func(ctx context.Context, record Record, err error) error

// HandleError implements the ErrorHandler interface for ErrorHandlerFunc.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, record Record, err error) error {
	return f(ctx, record, err)
}

// ErrorCounter is an ErrorHandler that counts and keeps a bounded sample of errors.
// It is safe for concurrent use.
type ErrorCounter struct {
	// MaxSamples bounds how many errors are retained; zero keeps none.
	MaxSamples int

	mu      sync.Mutex
	count   int64
	samples []error
}

// HandleError records err and lets processing continue.
func (c *ErrorCounter) HandleError(ctx context.Context, record Record, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if len(c.samples) < c.MaxSamples {
		c.samples = append(c.samples, err)
	}
	return nil
}

// Count returns the number of errors seen.
func (c *ErrorCounter) Count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Samples returns a copy of the retained errors.
func (c *ErrorCounter) Samples() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.samples...)
}
