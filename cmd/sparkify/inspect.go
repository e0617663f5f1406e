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
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/sparkify/readers"
)

func inspectCommand() *cobra.Command {
	var (
		rows    int
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Print the schema, row count and first rows of parquet files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := inspectFile(cmd, cmd.OutOrStdout(), name, rows, columns); err != nil {
					return fmt.Errorf("inspect %s: %w", name, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 5, "number of rows to print")
	cmd.Flags().StringSliceVarP(&columns, "columns", "c", nil, "only read these columns")
	return cmd
}

func inspectFile(cmd *cobra.Command, out io.Writer, name string, rows int, columns []string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	var opts []readers.ReaderOption
	if rows > 0 {
		// decode no more than the rows printed
		opts = append(opts, readers.WithBatchSize(int64(rows)))
	}
	if len(columns) > 0 {
		opts = append(opts, readers.WithColumns(columns...))
	}
	r, err := readers.NewParquetReader(f, opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintf(out, "%s\n", name)
	fmt.Fprintf(out, "  rows: %d, row groups: %d\n", r.NumRows(), r.NumRowGroups())

	s := r.Schema()
	fmt.Fprintf(out, "  %d columns:\n", len(s.Fields()))
	for i, field := range s.Fields() {
		fmt.Fprintf(out, "    %d: %s (%s)\n", i, field.Name, field.Type)
	}

	for i := 0; i < rows; i++ {
		rec, err := r.Read(cmd.Context())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(out, "  row %d:", i)
		for _, k := range keys {
			fmt.Fprintf(out, " %s=%v", k, rec[k])
		}
		fmt.Fprintln(out)
	}
	return nil
}
