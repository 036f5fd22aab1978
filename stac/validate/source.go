// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/Query-farm/stac-go/stac"
)

// SchemaSource fetches JSON-Schema documents by absolute URI.
type SchemaSource interface {
	FetchSchema(ctx context.Context, uri string) ([]byte, error)
}

// SourceFunc adapts a function to SchemaSource. A store.Router's Read
// method fits directly.
type SourceFunc func(ctx context.Context, uri string) ([]byte, error)

func (f SourceFunc) FetchSchema(ctx context.Context, uri string) ([]byte, error) {
	return f(ctx, uri)
}

// HTTPSource fetches schemas over HTTP(S).
type HTTPSource struct {
	Client    *http.Client // http.DefaultClient when nil
	UserAgent string
}

func (h *HTTPSource) FetchSchema(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", err)
	}
	req.Header.Set("Accept", "application/schema+json, application/json")
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("fetching %s: %w", uri, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, stac.Errorf(stac.KindNetwork, "", "fetching %s: %s", uri, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("reading %s: %w", uri, err))
	}
	return data, nil
}

// DirCache keeps fetched schemas as files under Dir and consults them before
// asking Next.
type DirCache struct {
	Dir  string
	Next SchemaSource
}

func (c *DirCache) FetchSchema(ctx context.Context, uri string) ([]byte, error) {
	path := filepath.Join(c.Dir, url.PathEscape(uri))
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, stac.WrapError(stac.KindIo, "", err)
	}
	data, err = c.Next.FetchSchema(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		log.Debug().Err(err).Str("dir", c.Dir).Msg("schema cache unavailable")
		return data, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Debug().Err(err).Str("uri", uri).Msg("could not cache schema")
	}
	return data, nil
}
