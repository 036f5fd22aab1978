// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package geoparquet reads and writes stac-geoparquet files: Parquet files
// holding one Item per row in the layout of package geoarrow, with
// GeoParquet "geo" metadata naming the geometry column and its encoding.
package geoparquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"runtime"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/rs/zerolog/log"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/geoarrow"
)

// Compression names a Parquet page codec.
type Compression string

const (
	CompressionZstd   Compression = "zstd"
	CompressionSnappy Compression = "snappy"
	CompressionGzip   Compression = "gzip"
	CompressionNone   Compression = "none"
)

// ParseCompression accepts a codec name, case-insensitively. "" and
// "uncompressed" are accepted as aliases.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case CompressionZstd, CompressionSnappy, CompressionGzip, CompressionNone:
		return c, nil
	case "", "uncompressed":
		return CompressionNone, nil
	}
	return "", fmt.Errorf("unknown compression %q (want zstd, snappy, gzip or none)", s)
}

func (c Compression) codec() compress.Compression {
	switch c {
	case CompressionZstd:
		return compress.Codecs.Zstd
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionGzip:
		return compress.Codecs.Gzip
	default:
		return compress.Codecs.Uncompressed
	}
}

const createdBy = "stac-go"

// Option configures reading and writing.
type Option func(*config)

type config struct {
	compression  Compression
	rowGroupSize int64
	batchSize    int64
	mem          memory.Allocator
	arrow        []geoarrow.Option
}

func newConfig(opts []Option) *config {
	c := &config{
		compression:  CompressionZstd,
		rowGroupSize: 64 * 1024,
		batchSize:    8 * 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mem == nil {
		c.mem = memory.NewGoAllocator()
	}
	return c
}

// WithCompression sets the page codec. The default is zstd.
func WithCompression(c Compression) Option {
	return func(cfg *config) { cfg.compression = c }
}

// WithRowGroupSize caps the rows per row group.
func WithRowGroupSize(n int64) Option {
	return func(cfg *config) { cfg.rowGroupSize = n }
}

// WithBatchSize sets the rows per record batch when reading.
func WithBatchSize(n int64) Option {
	return func(cfg *config) { cfg.batchSize = n }
}

// WithAllocator sets the allocator for Parquet and Arrow buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(cfg *config) { cfg.mem = mem }
}

// WithArrowOptions passes options through to the geoarrow conversion
// (registry, native geometry, best effort).
func WithArrowOptions(opts ...geoarrow.Option) Option {
	return func(cfg *config) { cfg.arrow = append(cfg.arrow, opts...) }
}

func (c *config) arrowOptions() []geoarrow.Option {
	return append([]geoarrow.Option{geoarrow.WithAllocator(c.mem)}, c.arrow...)
}

// Write writes batches as one Parquet file. The Arrow schema, including its
// "geo" metadata, is stored in the file so readers recover field metadata.
func Write(w io.Writer, schema *arrow.Schema, batches []arrow.RecordBatch, opts ...Option) error {
	c := newConfig(opts)
	props := parquet.NewWriterProperties(
		parquet.WithCompression(c.compression.codec()),
		parquet.WithMaxRowGroupLength(c.rowGroupSize),
		parquet.WithCreatedBy(createdBy),
		parquet.WithAllocator(c.mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema(), pqarrow.WithAllocator(c.mem))
	writer, err := pqarrow.NewFileWriter(schema, w, props, arrowProps)
	if err != nil {
		return stac.WrapError(stac.KindIo, "", fmt.Errorf("creating parquet writer: %w", err))
	}
	for i, b := range batches {
		if err := writer.Write(b); err != nil {
			writer.Close()
			return stac.WrapError(stac.KindIo, "", fmt.Errorf("writing batch %d: %w", i, err))
		}
	}
	if err := writer.Close(); err != nil {
		return stac.WrapError(stac.KindIo, "", fmt.Errorf("closing parquet writer: %w", err))
	}
	log.Debug().Int("batches", len(batches)).Str("compression", string(c.compression)).Msg("wrote geoparquet")
	return nil
}

// WriteItems infers a schema for items, encodes them in parallel shards and
// writes one Parquet file. It returns the inferred schema.
func WriteItems(ctx context.Context, w io.Writer, items []*stac.Item, opts ...Option) (*geoarrow.Schema, error) {
	c := newConfig(opts)
	aopts := c.arrowOptions()
	schema, err := geoarrow.InferParallel(ctx, items, runtime.GOMAXPROCS(0), aopts...)
	if err != nil {
		return nil, err
	}
	batches, err := geoarrow.EncodeParallel(ctx, items, schema, runtime.GOMAXPROCS(0), aopts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	return schema, Write(w, geoarrow.ToArrow(schema), batches, opts...)
}

// Items streams the Items of a Parquet file batch by batch.
func Items(ctx context.Context, r parquet.ReaderAtSeeker, opts ...Option) iter.Seq2[*stac.Item, error] {
	return func(yield func(*stac.Item, error) bool) {
		c := newConfig(opts)
		pf, err := file.NewParquetReader(r, file.WithReadProps(parquet.NewReaderProperties(c.mem)))
		if err != nil {
			yield(nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("opening parquet file: %w", err)))
			return
		}
		defer pf.Close()

		fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: c.batchSize, Parallel: true}, c.mem)
		if err != nil {
			yield(nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("reading parquet schema: %w", err)))
			return
		}
		rr, err := fr.GetRecordReader(ctx, nil, nil)
		if err != nil {
			yield(nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("reading parquet row groups: %w", err)))
			return
		}
		defer rr.Release()

		aopts := c.arrowOptions()
		for rr.Next() {
			for item, err := range geoarrow.Items(rr.RecordBatch(), aopts...) {
				if !yield(item, err) || err != nil {
					return
				}
			}
		}
		if err := rr.Err(); err != nil && !errors.Is(err, io.EOF) {
			yield(nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("reading parquet batch: %w", err)))
		}
	}
}

// ReadItems reads every Item of a Parquet file.
func ReadItems(ctx context.Context, r parquet.ReaderAtSeeker, opts ...Option) ([]*stac.Item, error) {
	var items []*stac.Item
	for item, err := range Items(ctx, r, opts...) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Metadata returns the GeoParquet metadata and row count of a Parquet file.
// A file without "geo" metadata yields a nil *GeoMetadata.
func Metadata(r parquet.ReaderAtSeeker) (*geoarrow.GeoMetadata, int64, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, 0, stac.WrapError(stac.KindParse, "", fmt.Errorf("opening parquet file: %w", err))
	}
	defer pf.Close()

	raw := pf.MetaData().KeyValueMetadata().FindValue(geoarrow.MetaGeo)
	if raw == nil {
		return nil, pf.NumRows(), nil
	}
	md := arrow.NewMetadata([]string{geoarrow.MetaGeo}, []string{*raw})
	geo, _, err := geoarrow.ParseGeoMetadata(md)
	return geo, pf.NumRows(), err
}

// Schema returns the Arrow schema of a Parquet file.
func Schema(r parquet.ReaderAtSeeker, opts ...Option) (*arrow.Schema, error) {
	c := newConfig(opts)
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("opening parquet file: %w", err))
	}
	defer pf.Close()
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, c.mem)
	if err != nil {
		return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("reading parquet schema: %w", err))
	}
	return fr.Schema()
}
