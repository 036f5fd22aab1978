// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/Query-farm/stac-go/stac"
)

// GCSConfig configures the Google Cloud Storage store.
type GCSConfig struct {
	CredentialsFile string // application default credentials when empty
	Endpoint        string // custom endpoint, for emulators
	Anonymous       bool   // skip authentication, for public buckets
}

// GCSStore reads and writes gs://bucket/key objects.
type GCSStore struct {
	cfg    GCSConfig
	mu     sync.Mutex
	client *storage.Client
}

func NewGCSStore(cfg GCSConfig) *GCSStore {
	return &GCSStore{cfg: cfg}
}

func (s *GCSStore) connect(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	var opts []option.ClientOption
	if s.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.cfg.CredentialsFile))
	}
	if s.cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	if s.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.cfg.Endpoint))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("creating GCS client: %w", err))
	}
	s.client = client
	return client, nil
}

func (s *GCSStore) Read(ctx context.Context, href string) ([]byte, error) {
	bucket, key, err := bucketKey(href)
	if err != nil {
		return nil, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			err = fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("reading %s: %w", href, err))
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("reading %s: %w", href, err))
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("read gcs object")
	return data, nil
}

func (s *GCSStore) Write(ctx context.Context, href string, data []byte) error {
	bucket, key, err := bucketKey(href)
	if err != nil {
		return err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	w := client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return stac.WrapError(stac.KindNetwork, "", fmt.Errorf("writing %s: %w", href, err))
	}
	if err := w.Close(); err != nil {
		return stac.WrapError(stac.KindNetwork, "", fmt.Errorf("writing %s: %w", href, err))
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("wrote gcs object")
	return nil
}

// Close releases the GCS client, if one was created.
func (s *GCSStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
