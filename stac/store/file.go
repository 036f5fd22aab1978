// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Query-farm/stac-go/stac"
)

// FileStore reads and writes the local filesystem. Relative paths resolve
// against Root, or the working directory when Root is empty.
type FileStore struct {
	Root string
}

func (s *FileStore) path(href string) (string, error) {
	p := href
	if strings.HasPrefix(href, "file://") {
		u, err := url.Parse(href)
		if err != nil {
			return "", stac.WrapError(stac.KindIo, "", fmt.Errorf("parsing %s: %w", href, err))
		}
		p = u.Path
	}
	if s.Root != "" && !filepath.IsAbs(p) {
		p = filepath.Join(s.Root, p)
	}
	return p, nil
}

func (s *FileStore) Read(_ context.Context, href string) ([]byte, error) {
	p, err := s.path(href)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, stac.WrapError(stac.KindIo, "", err)
	}
	log.Debug().Str("path", p).Int("bytes", len(data)).Msg("read file")
	return data, nil
}

// Write replaces the file atomically, creating parent directories.
func (s *FileStore) Write(_ context.Context, href string, data []byte) error {
	p, err := s.path(href)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stac.WrapError(stac.KindIo, "", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*")
	if err != nil {
		return stac.WrapError(stac.KindIo, "", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return stac.WrapError(stac.KindIo, "", fmt.Errorf("writing %s: %w", p, err))
	}
	if err := tmp.Close(); err != nil {
		return stac.WrapError(stac.KindIo, "", fmt.Errorf("writing %s: %w", p, err))
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return stac.WrapError(stac.KindIo, "", err)
	}
	log.Debug().Str("path", p).Int("bytes", len(data)).Msg("wrote file")
	return nil
}
