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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/sparkify/core"
	"github.com/aaronlmathis/sparkify/storage"
	"github.com/aaronlmathis/sparkify/writers"
)

const sampleConfig = `[AWS]
AWS_ACCESS_KEY_ID=AKIAEXAMPLE
AWS_SECRET_ACCESS_KEY=secret
AWS_REGION=us-west-2

[ETL]
INPUT_DATA=s3a://udacity-dend/
OUTPUT_DATA=s3a://jk-loaded-data/
MAX_ROWS_PER_FILE=5000
WRITE_POLICY=fail-fast
BATCH_SIZE=250
ROW_GROUP_SIZE=2000

[WAREHOUSE]
POSTGRES_DSN=postgres://etl@localhost/sparkify?sslmode=disable
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "dl.cfg")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "AKIAEXAMPLE", cfg.AWS.AccessKeyID)
	assert.Equal(t, "secret", cfg.AWS.SecretAccessKey)
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, "s3a://udacity-dend/", cfg.InputData)
	assert.Equal(t, "s3a://jk-loaded-data/", cfg.OutputData)
	assert.Equal(t, "song_data/*/*/*/*.json", cfg.SongData)
	assert.Equal(t, "log_data/*.json", cfg.LogData)
	assert.Equal(t, 5000, cfg.MaxRowsPerFile)
	assert.Equal(t, core.FailFast, cfg.WritePolicy)
	assert.Equal(t, int64(250), cfg.BatchSize)
	assert.Equal(t, int64(2000), cfg.RowGroupSize)
	assert.Equal(t, "postgres://etl@localhost/sparkify?sslmode=disable", cfg.PostgresDSN)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("SPARKIFY_AWS_AWS_ACCESS_KEY_ID", "AKIAENV")
	t.Setenv("SPARKIFY_ETL_WRITE_POLICY", "collect")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "AKIAENV", cfg.AWS.AccessKeyID)
	assert.Equal(t, core.CollectErrors, cfg.WritePolicy)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.cfg")

	cfg, err := Load(missing)
	require.NoError(t, err)
	assert.Empty(t, cfg.File)
	assert.Equal(t, DefaultInput, cfg.InputData)
	assert.Equal(t, DefaultOutput, cfg.OutputData)
	assert.Equal(t, 100000, cfg.MaxRowsPerFile)
	assert.Equal(t, core.CollectErrors, cfg.WritePolicy)
	assert.Equal(t, int64(1000), cfg.BatchSize)
	assert.Equal(t, int64(64*1024), cfg.RowGroupSize)
	assert.Empty(t, cfg.S3Options())

	cfg, err = Load(missing, WithInput("data/in"), WithOutput("data/out"))
	require.NoError(t, err)
	assert.Equal(t, "data/in", cfg.InputData)
	assert.Equal(t, "data/out", cfg.OutputData)
}

func TestLoad_CredentialsOnlyFile(t *testing.T) {
	path := writeConfig(t, "[AWS]\nAWS_ACCESS_KEY_ID=AKIAEXAMPLE\nAWS_SECRET_ACCESS_KEY=secret\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultInput, cfg.InputData)
	assert.Equal(t, DefaultOutput, cfg.OutputData)
	assert.Equal(t, "song_data/*/*/*/*.json", cfg.SongData)
	assert.Equal(t, "log_data/*.json", cfg.LogData)
	assert.Equal(t, "AKIAEXAMPLE", cfg.AWS.AccessKeyID)
	assert.Len(t, cfg.S3Options(), 1)
}

func TestLoad_EmptyLocation(t *testing.T) {
	_, err := Load(writeConfig(t, "[ETL]\nINPUT_DATA=\n"))
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "validate", cerr.Op)
	assert.Equal(t, keyInput, cerr.Key)
}

func TestLoad_OptionsOverride(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig), WithOutput("/tmp/out"), WithWritePolicy(core.CollectErrors))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutputData)
	assert.Equal(t, core.CollectErrors, cfg.WritePolicy)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
	}{
		{
			name: "unknown policy",
			body: "[ETL]\nINPUT_DATA=in\nOUTPUT_DATA=out\nWRITE_POLICY=retry\n",
			key:  keyWritePolicy,
		},
		{
			name: "skip is not a write policy",
			body: "[ETL]\nINPUT_DATA=in\nOUTPUT_DATA=out\nWRITE_POLICY=skip\n",
			key:  keyWritePolicy,
		},
		{
			name: "non-positive max rows",
			body: "[ETL]\nINPUT_DATA=in\nOUTPUT_DATA=out\nMAX_ROWS_PER_FILE=0\n",
			key:  keyMaxRows,
		},
		{
			name: "non-positive batch size",
			body: "[ETL]\nINPUT_DATA=in\nOUTPUT_DATA=out\nBATCH_SIZE=-1\n",
			key:  keyBatchSize,
		},
		{
			name: "non-positive row group size",
			body: "[ETL]\nINPUT_DATA=in\nOUTPUT_DATA=out\nROW_GROUP_SIZE=0\n",
			key:  keyRowGroupSize,
		},
		{
			name: "bad location",
			body: "[ETL]\nINPUT_DATA=gs://bucket/\nOUTPUT_DATA=out\n",
			key:  keyInput,
		},
		{
			name: "half a key pair",
			body: "[AWS]\nAWS_ACCESS_KEY_ID=AKIA\n[ETL]\nINPUT_DATA=in\nOUTPUT_DATA=out\n",
			key:  keyAccessKeyID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.key, cerr.Key)
		})
	}
}

func TestS3Options(t *testing.T) {
	cfg := &Config{AWS: AWS{
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
		SessionToken:    "token",
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:9000",
	}}

	var got storage.S3Options
	for _, opt := range cfg.S3Options() {
		opt(&got)
	}
	assert.Equal(t, "eu-west-1", got.Region)
	assert.Equal(t, "AKIA", got.Credentials.AccessKeyID)
	assert.Equal(t, "secret", got.Credentials.SecretAccessKey)
	assert.Equal(t, "token", got.Credentials.SessionToken)
	assert.Equal(t, "http://localhost:9000", got.EndpointURL)
	assert.True(t, got.ForcePathStyle)
}

func TestS3Options_Profile(t *testing.T) {
	path := writeConfig(t, "[AWS]\nAWS_PROFILE=analytics\nAWS_REGION=us-east-1\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "analytics", cfg.AWS.Profile)

	var got storage.S3Options
	for _, opt := range cfg.S3Options() {
		opt(&got)
	}
	assert.Equal(t, "analytics", got.Profile)
	assert.Equal(t, "us-east-1", got.Region)

	// a key pair wins over the profile
	cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey = "AKIA", "secret"
	got = storage.S3Options{}
	for _, opt := range cfg.S3Options() {
		opt(&got)
	}
	assert.Empty(t, got.Profile)
	assert.Equal(t, "AKIA", got.Credentials.AccessKeyID)
}

func TestParquetOptions(t *testing.T) {
	cfg := &Config{BatchSize: 10, RowGroupSize: 20}

	var got writers.ParquetWriterOptions
	for _, opt := range cfg.ParquetOptions() {
		opt(&got)
	}
	assert.Equal(t, int64(10), got.BatchSize)
	assert.Equal(t, int64(20), got.RowGroupSize)
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Op: "validate", Key: keyMaxRows, Err: assert.AnError}
	assert.Contains(t, err.Error(), "etl.max_rows_per_file")
	assert.ErrorIs(t, err, assert.AnError)
}
