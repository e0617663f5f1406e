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

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/aaronlmathis/sparkify/config"
	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/etl"
	"github.com/aaronlmathis/sparkify/logging"
	"github.com/aaronlmathis/sparkify/storage"
	"github.com/aaronlmathis/sparkify/writers"
)

type rootFlags struct {
	configPath  string
	logLevel    string
	logJSON     bool
	input       string
	output      string
	writePolicy string
}

func rootCommand() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "sparkify",
		Short:         "Build the sparkify star schema from song and event logs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runETL(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "sparkify: %v\n", err)
			}
			return err
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultPath, "configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error, off")
	pf.BoolVar(&flags.logJSON, "log-json", false, "log JSON lines")

	f := cmd.Flags()
	f.StringVar(&flags.input, "input", "", "input location, overrides ETL.INPUT_DATA")
	f.StringVar(&flags.output, "output", "", "output location, overrides ETL.OUTPUT_DATA")
	f.StringVar(&flags.writePolicy, "write-policy", "", "collect or fail-fast, overrides ETL.WRITE_POLICY")

	cmd.AddCommand(inspectCommand())
	return cmd
}

func runETL(ctx context.Context, flags rootFlags, logOutput io.Writer) error {
	logger, err := logging.New(logging.Options{Level: flags.logLevel, JSON: flags.logJSON, Output: logOutput})
	if err != nil {
		return err
	}

	var overrides []config.Option
	if flags.input != "" {
		overrides = append(overrides, config.WithInput(flags.input))
	}
	if flags.output != "" {
		overrides = append(overrides, config.WithOutput(flags.output))
	}
	if flags.writePolicy != "" {
		policy, err := core.ParseErrorStrategy(flags.writePolicy)
		if err != nil {
			return err
		}
		overrides = append(overrides, config.WithWritePolicy(policy))
	}

	cfg, err := config.Load(flags.configPath, overrides...)
	if err != nil {
		return err
	}
	if cfg.File == "" {
		logger.Debug("no configuration file, using environment", "path", flags.configPath)
	}

	source, err := openStore(ctx, cfg, cfg.InputData)
	if err != nil {
		return err
	}
	dest, err := openStore(ctx, cfg, cfg.OutputData)
	if err != nil {
		return err
	}

	sink := writers.NewTableWriter(dest,
		writers.WithMaxRowsPerFile(cfg.MaxRowsPerFile),
		writers.WithParquetOptions(cfg.ParquetOptions()...),
		writers.WithLogger(logger.Named("writer")))

	opts := []etl.RunnerOption{
		etl.WithSongGlob(cfg.SongData),
		etl.WithLogGlob(cfg.LogData),
		etl.WithWritePolicy(cfg.WritePolicy),
		etl.WithLogger(logger),
	}
	if cfg.PostgresDSN != "" {
		pg, err := writers.NewPostgresWriter(ctx, writers.WithPostgresDSN(cfg.PostgresDSN))
		if err != nil {
			return err
		}
		defer closeWarehouse(pg, logger)
		opts = append(opts, etl.WithWarehouse(pg))
	}

	logger.Info("sparkify starting", "input", source.Location().String(), "output", dest.Location().String())
	report, err := etl.NewRunner(source, sink, opts...).Run(ctx)
	if report != nil {
		report.Log(logger)
	}
	return err
}

func openStore(ctx context.Context, cfg *config.Config, raw string) (storage.Store, error) {
	loc, err := storage.ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, loc, cfg.S3Options()...)
}

func closeWarehouse(pg *writers.PostgresWriter, logger hclog.Logger) {
	if err := pg.Close(); err != nil {
		logger.Warn("closing warehouse connection", "error", err)
	}
}
