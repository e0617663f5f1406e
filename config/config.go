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

// Package config loads the sparkify run configuration from an ini file and
// SPARKIFY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/viper"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/storage"
	"github.com/aaronlmathis/sparkify/writers"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "dl.cfg"

// Default locations, used when the file has only an [AWS] section.
const (
	DefaultInput  = "s3a://udacity-dend/"
	DefaultOutput = "s3a://jk-loaded-data/"
)

// EnvPrefix prefixes every environment override, e.g. SPARKIFY_AWS_AWS_ACCESS_KEY_ID.
const EnvPrefix = "SPARKIFY"

// Configuration keys, as section.key of the ini file.
const (
	keyAccessKeyID     = "aws.aws_access_key_id"
	keySecretAccessKey = "aws.aws_secret_access_key"
	keySessionToken    = "aws.aws_session_token"
	keyRegion          = "aws.aws_region"
	keyEndpoint        = "aws.s3_endpoint"
	keyProfile         = "aws.aws_profile"
	keyInput           = "etl.input_data"
	keyOutput          = "etl.output_data"
	keySongData        = "etl.song_data"
	keyLogData         = "etl.log_data"
	keyMaxRows         = "etl.max_rows_per_file"
	keyWritePolicy     = "etl.write_policy"
	keyBatchSize       = "etl.batch_size"
	keyRowGroupSize    = "etl.row_group_size"
	keyPostgresDSN     = "warehouse.postgres_dsn"
)

// ConfigError reports an unreadable or invalid configuration.
type ConfigError struct {
	Op  string
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AWS holds the storage backend credentials and endpoint.
type AWS struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Endpoint        string // S3-compatible endpoint; path-style addressing is used when set
	Profile         string // shared config profile, used when no key pair is set
}

// Config is everything a run needs. It is passed explicitly to the stores
// and the runner; nothing is written to the process environment.
type Config struct {
	AWS AWS

	InputData      string // base input location, local path or s3 URL
	OutputData     string // base output location
	SongData       string // song dataset glob relative to InputData
	LogData        string // log dataset glob relative to InputData
	MaxRowsPerFile int
	WritePolicy    core.ErrorStrategy
	BatchSize      int64 // rows buffered per arrow record batch
	RowGroupSize   int64 // maximum rows per parquet row group

	PostgresDSN string // optional warehouse; empty disables loading

	// File is the configuration file that was read, empty when none existed.
	File string
}

// Option overrides a loaded value, typically from a command-line flag.
type Option func(*Config)

// WithInput overrides the input location.
func WithInput(location string) Option {
	return func(c *Config) {
		c.InputData = location
	}
}

// WithOutput overrides the output location.
func WithOutput(location string) Option {
	return func(c *Config) {
		c.OutputData = location
	}
}

// WithWritePolicy overrides the table write policy.
func WithWritePolicy(policy core.ErrorStrategy) Option {
	return func(c *Config) {
		c.WritePolicy = policy
	}
}

// Load reads path (DefaultPath when empty), applies environment overrides, then
// opts, and validates the result. A missing file is not an error; the
// environment and defaults alone may describe a run. Without ETL settings the
// run reads DefaultInput and writes DefaultOutput.
func Load(path string, opts ...Option) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigType("ini")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyInput, DefaultInput)
	v.SetDefault(keyOutput, DefaultOutput)
	v.SetDefault(keySongData, "song_data/*/*/*/*.json")
	v.SetDefault(keyLogData, "log_data/*.json")
	v.SetDefault(keyMaxRows, 100000)
	v.SetDefault(keyWritePolicy, "collect")
	v.SetDefault(keyBatchSize, 1000)
	v.SetDefault(keyRowGroupSize, 64*1024)

	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &ConfigError{Op: "read", Key: path, Err: err}
		}
		cfg.File = path
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &ConfigError{Op: "read", Key: path, Err: err}
	}

	policy, err := core.ParseErrorStrategy(v.GetString(keyWritePolicy))
	if err != nil {
		return nil, &ConfigError{Op: "parse", Key: keyWritePolicy, Err: err}
	}

	cfg.AWS = AWS{
		AccessKeyID:     v.GetString(keyAccessKeyID),
		SecretAccessKey: v.GetString(keySecretAccessKey),
		SessionToken:    v.GetString(keySessionToken),
		Region:          v.GetString(keyRegion),
		Endpoint:        v.GetString(keyEndpoint),
		Profile:         v.GetString(keyProfile),
	}
	cfg.InputData = v.GetString(keyInput)
	cfg.OutputData = v.GetString(keyOutput)
	cfg.SongData = v.GetString(keySongData)
	cfg.LogData = v.GetString(keyLogData)
	cfg.MaxRowsPerFile = v.GetInt(keyMaxRows)
	cfg.WritePolicy = policy
	cfg.BatchSize = v.GetInt64(keyBatchSize)
	cfg.RowGroupSize = v.GetInt64(keyRowGroupSize)
	cfg.PostgresDSN = v.GetString(keyPostgresDSN)

	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration describes a runnable ETL.
func (c *Config) Validate() error {
	if c.InputData == "" {
		return &ConfigError{Op: "validate", Key: keyInput, Err: errors.New("input location is required")}
	}
	if c.OutputData == "" {
		return &ConfigError{Op: "validate", Key: keyOutput, Err: errors.New("output location is required")}
	}
	for key, loc := range map[string]string{keyInput: c.InputData, keyOutput: c.OutputData} {
		if _, err := storage.ParseLocation(loc); err != nil {
			return &ConfigError{Op: "validate", Key: key, Err: err}
		}
	}
	if c.SongData == "" || c.LogData == "" {
		return &ConfigError{Op: "validate", Key: keySongData, Err: errors.New("dataset globs must not be empty")}
	}
	if c.MaxRowsPerFile <= 0 {
		return &ConfigError{Op: "validate", Key: keyMaxRows, Err: fmt.Errorf("must be positive, got %d", c.MaxRowsPerFile)}
	}
	if c.BatchSize <= 0 {
		return &ConfigError{Op: "validate", Key: keyBatchSize, Err: fmt.Errorf("must be positive, got %d", c.BatchSize)}
	}
	if c.RowGroupSize <= 0 {
		return &ConfigError{Op: "validate", Key: keyRowGroupSize, Err: fmt.Errorf("must be positive, got %d", c.RowGroupSize)}
	}
	switch c.WritePolicy {
	case core.CollectErrors, core.FailFast:
	default:
		return &ConfigError{Op: "validate", Key: keyWritePolicy, Err: fmt.Errorf("unsupported write policy %s", c.WritePolicy)}
	}
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		return &ConfigError{Op: "validate", Key: keyAccessKeyID, Err: errors.New("access key id and secret access key must be set together")}
	}
	return nil
}

// S3Options maps the AWS section to store options. Without a key pair the store
// falls back to the AWS default credential chain, reading Profile when set.
func (c *Config) S3Options() []storage.S3Option {
	var opts []storage.S3Option
	if c.AWS.Region != "" {
		opts = append(opts, storage.WithS3Region(c.AWS.Region))
	}
	if c.AWS.AccessKeyID != "" {
		opts = append(opts, storage.WithS3Credentials(aws.Credentials{
			AccessKeyID:     c.AWS.AccessKeyID,
			SecretAccessKey: c.AWS.SecretAccessKey,
			SessionToken:    c.AWS.SessionToken,
			Source:          "sparkify config",
		}))
	} else if c.AWS.Profile != "" {
		opts = append(opts, storage.WithS3Profile(c.AWS.Profile))
	}
	if c.AWS.Endpoint != "" {
		opts = append(opts, storage.WithS3Endpoint(c.AWS.Endpoint), storage.WithS3PathStyle(true))
	}
	return opts
}

// ParquetOptions maps the batch and row group sizes to parquet writer options.
func (c *Config) ParquetOptions() []writers.WriterOption {
	return []writers.WriterOption{
		writers.WithBatchSize(c.BatchSize),
		writers.WithRowGroupSize(c.RowGroupSize),
	}
}
