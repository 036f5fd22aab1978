// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/Query-farm/stac-go/stac"
)

// S3Config configures the S3 store.
type S3Config struct {
	Region          string
	Endpoint        string // custom endpoint URL, e.g. MinIO
	PathStyle       bool
	AccessKeyID     string // default credential chain when empty
	SecretAccessKey string
	SessionToken    string
}

// S3Store reads and writes s3://bucket/key objects.
type S3Store struct {
	cfg    S3Config
	mu     sync.Mutex
	client *s3.Client
}

func NewS3Store(cfg S3Config) *S3Store {
	return &S3Store{cfg: cfg}
}

func (s *S3Store) connect(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	opts := []func(*config.LoadOptions) error{}
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKeyID,
			s.cfg.SecretAccessKey,
			s.cfg.SessionToken,
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("loading AWS config: %w", err))
	}
	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		}
		o.UsePathStyle = s.cfg.PathStyle
	})
	return s.client, nil
}

func (s *S3Store) Read(ctx context.Context, href string) ([]byte, error) {
	bucket, key, err := bucketKey(href)
	if err != nil {
		return nil, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			err = fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("reading %s: %w", href, err))
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("reading %s: %w", href, err))
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("read s3 object")
	return data, nil
}

func (s *S3Store) Write(ctx context.Context, href string, data []byte) error {
	bucket, key, err := bucketKey(href)
	if err != nil {
		return err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return stac.WrapError(stac.KindNetwork, "", fmt.Errorf("writing %s: %w", href, err))
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("wrote s3 object")
	return nil
}
