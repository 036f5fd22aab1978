// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package store reads and writes whole objects by href. Local paths and
// file:// URLs go to the filesystem, http(s):// is read-only, gs:// goes to
// Google Cloud Storage and s3:// to Amazon S3 or a compatible service. A
// Router picks the store from the href's scheme.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Query-farm/stac-go/stac"
)

// Store reads and writes whole objects.
type Store interface {
	Read(ctx context.Context, href string) ([]byte, error)
	Write(ctx context.Context, href string, data []byte) error
}

// ErrNotFound is wrapped by every store when the object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrReadOnly is returned when writing to a store that cannot write.
var ErrReadOnly = errors.New("store is read-only")

// Config configures the stores a Router creates.
type Config struct {
	S3   S3Config
	GCS  GCSConfig
	HTTP HTTPConfig
}

// Router dispatches to a store by href scheme.
type Router struct {
	File *FileStore
	HTTP *HTTPStore
	GCS  *GCSStore
	S3   *S3Store
}

var _ Store = (*Router)(nil)

// NewRouter returns a Router with every store configured from cfg. Cloud
// clients are created on first use.
func NewRouter(cfg Config) *Router {
	return &Router{
		File: &FileStore{},
		HTTP: NewHTTPStore(cfg.HTTP),
		GCS:  NewGCSStore(cfg.GCS),
		S3:   NewS3Store(cfg.S3),
	}
}

// For returns the store that serves href.
func (r *Router) For(href string) (Store, error) {
	switch scheme := Scheme(href); scheme {
	case "", "file":
		return r.File, nil
	case "http", "https":
		return r.HTTP, nil
	case "gs":
		return r.GCS, nil
	case "s3":
		return r.S3, nil
	default:
		return nil, stac.Errorf(stac.KindIo, "", "no store for scheme %q in %s", scheme, href)
	}
}

func (r *Router) Read(ctx context.Context, href string) ([]byte, error) {
	s, err := r.For(href)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, href)
}

func (r *Router) Write(ctx context.Context, href string, data []byte) error {
	s, err := r.For(href)
	if err != nil {
		return err
	}
	return s.Write(ctx, href, data)
}

// Scheme returns the lower-cased URL scheme of href, or "" for a plain
// path. Single-letter schemes are taken as Windows drive letters.
func Scheme(href string) string {
	i := strings.Index(href, "://")
	if i <= 1 {
		return ""
	}
	return strings.ToLower(href[:i])
}

// bucketKey splits a gs:// or s3:// href into bucket and object key.
func bucketKey(href string) (string, string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", "", stac.WrapError(stac.KindIo, "", fmt.Errorf("parsing %s: %w", href, err))
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", stac.Errorf(stac.KindIo, "", "%s does not name a bucket and key", href)
	}
	return u.Host, key, nil
}
