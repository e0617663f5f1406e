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
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxDeleteBatch is the DeleteObjects limit per request.
const maxDeleteBatch = 1000

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Options configures the S3 store.
type S3Options struct {
	Region         string          // AWS region
	Profile        string          // Shared config profile
	Credentials    aws.Credentials // Explicit credentials; empty means the default chain
	EndpointURL    string          // Custom endpoint for S3-compatible services
	ForcePathStyle bool            // Use path-style addressing
	MaxKeys        int32           // Page size for listings
	Client         S3API           // Pre-built client, mainly for tests
}

// S3Option represents a configuration function for S3Options.
type S3Option func(*S3Options)

func WithS3Region(region string) S3Option {
	return func(opts *S3Options) {
		opts.Region = region
	}
}

func WithS3Profile(profile string) S3Option {
	return func(opts *S3Options) {
		opts.Profile = profile
	}
}

func WithS3Credentials(creds aws.Credentials) S3Option {
	return func(opts *S3Options) {
		opts.Credentials = creds
	}
}

func WithS3Endpoint(endpoint string) S3Option {
	return func(opts *S3Options) {
		opts.EndpointURL = endpoint
	}
}

func WithS3PathStyle(pathStyle bool) S3Option {
	return func(opts *S3Options) {
		opts.ForcePathStyle = pathStyle
	}
}

// WithS3Client injects a client instead of building one from AWS configuration.
func WithS3Client(client S3API) S3Option {
	return func(opts *S3Options) {
		opts.Client = client
	}
}

// S3Store implements Store on an S3 bucket and key prefix.
type S3Store struct {
	client S3API
	loc    Location
	opts   S3Options
}

// NewS3Store creates a store for an s3 location.
func NewS3Store(ctx context.Context, loc Location, options ...S3Option) (*S3Store, error) {
	if loc.Scheme != SchemeS3 || loc.Bucket == "" {
		return nil, &StoreError{Op: "validate_options", Err: fmt.Errorf("not an s3 location: %s", loc)}
	}

	opts := S3Options{MaxKeys: 1000}
	for _, option := range options {
		option(&opts)
	}

	client := opts.Client
	if client == nil {
		cfg, err := createAWSConfig(ctx, opts)
		if err != nil {
			return nil, &StoreError{Op: "create_aws_config", Err: err}
		}
		client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if opts.EndpointURL != "" {
				o.BaseEndpoint = aws.String(opts.EndpointURL)
			}
			o.UsePathStyle = opts.ForcePathStyle
		})
	}

	return &S3Store{client: client, loc: loc, opts: opts}, nil
}

// createAWSConfig creates AWS configuration from options.
func createAWSConfig(ctx context.Context, opts S3Options) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Credentials.AccessKeyID != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		))
	}

	return config.LoadDefaultConfig(ctx, configOpts...)
}

// Location implements Store.
func (s *S3Store) Location() Location {
	return s.loc
}

func (s *S3Store) fullKey(key string) string {
	if s.loc.Prefix == "" {
		return key
	}
	if key == "" {
		return s.loc.Prefix
	}
	return s.loc.Prefix + "/" + key
}

func (s *S3Store) relKey(full string) string {
	if s.loc.Prefix == "" {
		return full
	}
	return strings.TrimPrefix(full, s.loc.Prefix+"/")
}

// list returns every object key starting with prefix.
func (s *S3Store) list(ctx context.Context, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.loc.Bucket),
		MaxKeys: aws.Int32(s.opts.MaxKeys),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// Glob implements Store.
func (s *S3Store) Glob(ctx context.Context, pattern string) ([]string, error) {
	p, err := cleanKey(pattern)
	if err != nil {
		return nil, &StoreError{Op: "glob", Key: pattern, Err: err}
	}
	full := s.fullKey(p)
	if _, err := path.Match(full, ""); err != nil {
		return nil, &StoreError{Op: "glob", Key: pattern, Err: err}
	}

	listed, err := s.list(ctx, staticPrefix(full))
	if err != nil {
		return nil, &StoreError{Op: "glob", Key: pattern, Err: err}
	}

	var keys []string
	for _, k := range listed {
		if strings.HasSuffix(k, "/") {
			continue // directory placeholder
		}
		if ok, _ := path.Match(full, k); ok {
			keys = append(keys, s.relKey(k))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Open implements Store.
func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, &StoreError{Op: "open", Key: key, Err: err}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.loc.Bucket),
		Key:    aws.String(s.fullKey(k)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			err = ErrNotFound
		}
		return nil, &StoreError{Op: "open", Key: key, Err: err}
	}
	return out.Body, nil
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, key string, body []byte) error {
	k, err := cleanKey(key)
	if err != nil || k == "" {
		if err == nil {
			err = errors.New("empty key")
		}
		return &StoreError{Op: "put", Key: key, Err: err}
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.loc.Bucket),
		Key:           aws.String(s.fullKey(k)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return &StoreError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// RemoveAll implements Store. Objects are deleted in batches of up to 1000 keys.
func (s *S3Store) RemoveAll(ctx context.Context, prefix string) error {
	k, err := cleanKey(prefix)
	if err != nil {
		return &StoreError{Op: "remove", Key: prefix, Err: err}
	}
	if k == "" {
		return &StoreError{Op: "remove", Key: prefix, Err: errors.New("refusing to remove the store root")}
	}

	full := s.fullKey(k)
	listed, err := s.list(ctx, full)
	if err != nil {
		return &StoreError{Op: "remove", Key: prefix, Err: err}
	}

	var doomed []types.ObjectIdentifier
	for _, key := range listed {
		if key == full || strings.HasPrefix(key, full+"/") {
			doomed = append(doomed, types.ObjectIdentifier{Key: aws.String(key)})
		}
	}

	for start := 0; start < len(doomed); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(doomed) {
			end = len(doomed)
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.loc.Bucket),
			Delete: &types.Delete{Objects: doomed[start:end], Quiet: aws.Bool(true)},
		})
		if err != nil {
			return &StoreError{Op: "remove", Key: prefix, Err: err}
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return &StoreError{
				Op:  "remove",
				Key: prefix,
				Err: fmt.Errorf("%d objects not deleted, first %s: %s", len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message)),
			}
		}
	}
	return nil
}
