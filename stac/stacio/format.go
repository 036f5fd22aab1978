// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stacio

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/store"
)

// Format is the serialization of a file.
type Format string

const (
	FormatJSON       Format = "json"
	FormatNDJSON     Format = "ndjson"
	FormatGeoParquet Format = "geoparquet"
	FormatArrow      Format = "arrow"
)

// Encoding is a whole-file compression wrapper.
type Encoding string

const (
	EncodingNone Encoding = ""
	EncodingGzip Encoding = "gzip"
	EncodingZstd Encoding = "zstd"
)

var formatsByExt = map[string]Format{
	".json":       FormatJSON,
	".geojson":    FormatJSON,
	".ndjson":     FormatNDJSON,
	".jsonl":      FormatNDJSON,
	".parquet":    FormatGeoParquet,
	".geoparquet": FormatGeoParquet,
	".arrow":      FormatArrow,
	".arrows":     FormatArrow,
	".ipc":        FormatArrow,
}

// ParseFormat accepts a format name as printed by Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatNDJSON, FormatGeoParquet, FormatArrow:
		return f, nil
	case "parquet":
		return FormatGeoParquet, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Detect infers format and encoding from the extension of href. A trailing
// .gz or .zst selects the encoding; the extension before it the format.
// Query strings and fragments of URLs are ignored.
func Detect(href string) (Format, Encoding, error) {
	p := href
	if store.Scheme(href) != "" {
		if u, err := url.Parse(href); err == nil {
			p = u.Path
		}
	}
	p = strings.ToLower(path.Base(p))

	enc := EncodingNone
	switch ext := path.Ext(p); ext {
	case ".gz", ".gzip":
		enc = EncodingGzip
		p = strings.TrimSuffix(p, ext)
	case ".zst", ".zstd":
		enc = EncodingZstd
		p = strings.TrimSuffix(p, ext)
	}
	if f, ok := formatsByExt[path.Ext(p)]; ok {
		return f, enc, nil
	}
	return "", enc, stac.Errorf(stac.KindIo, "", "cannot infer format of %s", href)
}

func decompress(data []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("gzip: %w", err))
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("gzip: %w", err))
		}
		return out, nil
	case EncodingZstd:
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, stac.WrapError(stac.KindIo, "", err)
		}
		defer d.Close()
		out, err := d.DecodeAll(data, nil)
		if err != nil {
			return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("zstd: %w", err))
		}
		return out, nil
	}
	return data, nil
}

func compress(data []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, stac.WrapError(stac.KindIo, "", fmt.Errorf("gzip: %w", err))
		}
		if err := w.Close(); err != nil {
			return nil, stac.WrapError(stac.KindIo, "", fmt.Errorf("gzip: %w", err))
		}
		return buf.Bytes(), nil
	case EncodingZstd:
		e, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, stac.WrapError(stac.KindIo, "", err)
		}
		defer e.Close()
		return e.EncodeAll(data, nil), nil
	}
	return data, nil
}
