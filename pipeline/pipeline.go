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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aaronlmathis/sparkify/core"
)

// Package pipeline provides the record-by-record streaming stage used by the ETL.
//
// Core Concepts:
//   - DataSource: where records come from (JSON files, in-memory slices).
//   - Transformer / Filter: per-record reshaping and selection.
//   - DataSink: where surviving records go (collector, parquet, PostgreSQL).
//   - ErrorStrategy: fail fast, skip, or collect on per-record errors.
//
// Example usage:
//
//   p, err := pipeline.New().
//       From(readers.NewSliceReader(events)).
//       Filter(filter.Equals("page", "NextSong")).
//       Transform(transform.MillisToTime("ts", "start_time")).
//       To(collector).
//       WithErrorStrategy(core.SkipErrors).
//       WithErrorHandler(counter).
//       Build()
//   if err != nil { return err }
//   if err := p.Execute(ctx); err != nil { return err }

// Builder provides a fluent API for constructing pipelines.
// Use New() to create a new builder, then chain From, Transform, Filter, To, and configuration methods.
type Builder struct {
	pipeline *Pipeline
}

// New creates a new Builder for constructing a pipeline.
func New() *Builder {
	return &Builder{
		pipeline: &Pipeline{
			strategy: core.FailFast,
		},
	}
}

// From sets the DataSource for the pipeline.
func (b *Builder) From(source core.DataSource) *Builder {
	b.pipeline.source = source
	return b
}

// Transform adds a Transformer to the pipeline.
// Transformers and filters run in the order they were added.
func (b *Builder) Transform(transformer core.Transformer) *Builder {
	b.pipeline.stages = append(b.pipeline.stages, stage{transformer: transformer})
	return b
}

// Filter adds a Filter to the pipeline.
func (b *Builder) Filter(filter core.Filter) *Builder {
	b.pipeline.stages = append(b.pipeline.stages, stage{filter: filter})
	return b
}

// To sets the DataSink for the pipeline.
func (b *Builder) To(sink core.DataSink) *Builder {
	b.pipeline.sink = sink
	return b
}

// WithErrorStrategy sets the error handling strategy for the pipeline.
func (b *Builder) WithErrorStrategy(strategy core.ErrorStrategy) *Builder {
	b.pipeline.strategy = strategy
	return b
}

// WithErrorHandler sets a custom error handler for the pipeline.
func (b *Builder) WithErrorHandler(handler core.ErrorHandler) *Builder {
	b.pipeline.errorHandler = handler
	return b
}

// Build validates and constructs the Pipeline from the builder.
func (b *Builder) Build() (*Pipeline, error) {
	if b.pipeline.source == nil {
		return nil, fmt.Errorf("pipeline requires a data source")
	}
	if b.pipeline.sink == nil {
		return nil, fmt.Errorf("pipeline requires a data sink")
	}
	return b.pipeline, nil
}

type stage struct {
	transformer core.Transformer
	filter      core.Filter
}

// Stats holds counters for a pipeline execution.
type Stats struct {
	RecordsRead    int64
	RecordsWritten int64
	RecordsDropped int64 // rejected by a filter
	Errors         int64 // per-record errors handled by the strategy
}

// Pipeline streams records from a DataSource through transformers and filters into a DataSink.
type Pipeline struct {
	stages       []stage
	source       core.DataSource
	sink         core.DataSink
	strategy     core.ErrorStrategy
	errorHandler core.ErrorHandler
	stats        Stats
}

// Stats returns the counters of the last execution.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Execute runs the pipeline, processing all records from source to sink.
//
// Returns an error if a fatal error occurs or ctx is cancelled. Per-record errors are
// governed by the configured ErrorStrategy and ErrorHandler. The source is closed and the
// sink flushed and closed when Execute returns.
func (p *Pipeline) Execute(ctx context.Context) (err error) {
	defer func() {
		if cerr := p.source.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if ferr := p.sink.Flush(); ferr != nil && err == nil {
			err = ferr
		}
		if cerr := p.sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := p.source.Read(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if err := p.handleError(ctx, record, err); err != nil {
				return err
			}
			continue
		}
		p.stats.RecordsRead++

		// Skip empty records early
		if len(record) == 0 {
			continue
		}

		out, keep, err := p.applyStages(ctx, record)
		if err != nil {
			if err := p.handleError(ctx, record, err); err != nil {
				return err
			}
			continue
		}
		if !keep || len(out) == 0 {
			p.stats.RecordsDropped++
			continue
		}

		if err := p.sink.Write(ctx, out); err != nil {
			if err := p.handleError(ctx, out, err); err != nil {
				return err
			}
			continue
		}
		p.stats.RecordsWritten++
	}
}

// applyStages runs transformers and filters in declaration order.
// It stops at the first filter rejecting the record.
func (p *Pipeline) applyStages(ctx context.Context, record core.Record) (core.Record, bool, error) {
	current := record
	for _, s := range p.stages {
		if s.filter != nil {
			include, err := s.filter.ShouldInclude(ctx, current)
			if err != nil {
				return nil, false, err
			}
			if !include {
				return nil, false, nil
			}
			continue
		}
		transformed, err := s.transformer.Transform(ctx, current)
		if err != nil {
			return nil, false, err
		}
		current = transformed
	}
	return current, true, nil
}

// handleError handles errors according to the pipeline's error strategy and handler.
// Returns an error if processing should stop, or nil to continue.
func (p *Pipeline) handleError(ctx context.Context, record core.Record, err error) error {
	p.stats.Errors++
	switch p.strategy {
	case core.FailFast:
		return err
	case core.SkipErrors, core.CollectErrors:
		if p.errorHandler != nil {
			return p.errorHandler.HandleError(ctx, record, err)
		}
		return nil
	default:
		return err
	}
}
