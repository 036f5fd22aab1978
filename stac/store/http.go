// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Query-farm/stac-go/stac"
)

// HTTPConfig configures the HTTP store.
type HTTPConfig struct {
	UserAgent string
	Client    *http.Client // http.DefaultClient when nil
}

// HTTPStore reads over HTTP(S). It cannot write.
type HTTPStore struct {
	cfg HTTPConfig
}

func NewHTTPStore(cfg HTTPConfig) *HTTPStore {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &HTTPStore{cfg: cfg}
}

func (s *HTTPStore) Read(ctx context.Context, href string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("GET %s: %w", href, err))
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("GET %s: %w", href, ErrNotFound))
	case resp.StatusCode != http.StatusOK:
		return nil, stac.Errorf(stac.KindNetwork, "", "GET %s: %s", href, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stac.WrapError(stac.KindNetwork, "", fmt.Errorf("reading %s: %w", href, err))
	}
	log.Debug().Str("url", href).Int("bytes", len(data)).Msg("fetched")
	return data, nil
}

func (s *HTTPStore) Write(_ context.Context, href string, _ []byte) error {
	return stac.WrapError(stac.KindIo, "", fmt.Errorf("writing %s: %w", href, ErrReadOnly))
}
