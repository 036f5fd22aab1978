// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package stacio reads and writes STAC documents and item sets through a
// store.Store, choosing the serialization from the href's extension.
package stacio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/geoarrow"
	"github.com/Query-farm/stac-go/stac/geoparquet"
	"github.com/Query-farm/stac-go/stac/store"
)

// Client reads and writes through a store. It is safe for concurrent use
// when its store is.
type Client struct {
	store      store.Store
	hook       stac.Hook
	format     Format
	pretty     bool
	ipcZstd    bool
	parquetOps []geoparquet.Option
	arrowOps   []geoarrow.Option
}

// Option configures a Client.
type Option func(*Client)

// WithHook installs an observability hook around every read and write.
func WithHook(h stac.Hook) Option {
	return func(c *Client) { c.hook = h }
}

// WithFormat overrides extension-based format detection.
func WithFormat(f Format) Option {
	return func(c *Client) { c.format = f }
}

// WithIndent writes JSON documents indented by two spaces.
func WithIndent() Option {
	return func(c *Client) { c.pretty = true }
}

// WithIPCCompression compresses Arrow IPC bodies with zstd.
func WithIPCCompression() Option {
	return func(c *Client) { c.ipcZstd = true }
}

// WithGeoParquetOptions configures GeoParquet reads and writes.
func WithGeoParquetOptions(opts ...geoparquet.Option) Option {
	return func(c *Client) { c.parquetOps = append(c.parquetOps, opts...) }
}

// WithArrowOptions configures inference, encoding and decoding for the
// columnar formats.
func WithArrowOptions(opts ...geoarrow.Option) Option {
	return func(c *Client) { c.arrowOps = append(c.arrowOps, opts...) }
}

// New returns a Client over s. A nil s routes by scheme with default
// store configuration.
func New(s store.Store, opts ...Option) *Client {
	if s == nil {
		s = store.NewRouter(store.Config{})
	}
	c := &Client{store: s}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) detect(href string) (Format, Encoding, error) {
	f, enc, err := Detect(href)
	if c.format != "" {
		return c.format, enc, nil
	}
	return f, enc, err
}

func (c *Client) load(ctx context.Context, href string, enc Encoding, stats *stac.Statistics) ([]byte, error) {
	data, err := c.store.Read(ctx, href)
	if err != nil {
		return nil, err
	}
	stats.RecordBytes(int64(len(data)))
	return decompress(data, enc)
}

func (c *Client) save(ctx context.Context, href string, data []byte, enc Encoding, stats *stac.Statistics) error {
	data, err := compress(data, enc)
	if err != nil {
		return err
	}
	if err := c.store.Write(ctx, href, data); err != nil {
		return err
	}
	stats.RecordBytes(int64(len(data)))
	return nil
}

// Read reads one JSON document: a Catalog, Collection or Item.
func (c *Client) Read(ctx context.Context, href string) (stac.Document, error) {
	f, enc, err := c.detect(href)
	if err != nil {
		return nil, err
	}
	if f != FormatJSON {
		return nil, stac.Errorf(stac.KindIo, "", "%s holds %s, not a single document", href, f)
	}
	var doc stac.Document
	err = stac.Observe(ctx, c.hook, stac.OperationInfo{Operation: stac.OperationRead, Href: href, Format: string(f)},
		func(ctx context.Context, stats *stac.Statistics) error {
			data, err := c.load(ctx, href, enc, stats)
			if err != nil {
				return err
			}
			if doc, err = stac.Parse(data); err != nil {
				return fmt.Errorf("%s: %w", href, err)
			}
			stats.RecordDocuments(1)
			return nil
		})
	return doc, err
}

// ReadItems reads every Item of href. A JSON file may hold a single Item
// or a FeatureCollection.
func (c *Client) ReadItems(ctx context.Context, href string) ([]*stac.Item, error) {
	ic, err := c.ReadItemCollection(ctx, href)
	if err != nil {
		return nil, err
	}
	return ic.Items, nil
}

// ReadItemCollection reads href as an ItemCollection. Links and foreign
// members survive only for JSON FeatureCollections.
func (c *Client) ReadItemCollection(ctx context.Context, href string) (*stac.ItemCollection, error) {
	f, enc, err := c.detect(href)
	if err != nil {
		return nil, err
	}
	var ic *stac.ItemCollection
	err = stac.Observe(ctx, c.hook, stac.OperationInfo{Operation: stac.OperationRead, Href: href, Format: string(f)},
		func(ctx context.Context, stats *stac.Statistics) error {
			data, err := c.load(ctx, href, enc, stats)
			if err != nil {
				return err
			}
			if ic, err = c.decodeItems(ctx, f, data); err != nil {
				return fmt.Errorf("%s: %w", href, err)
			}
			stats.RecordDocuments(int64(len(ic.Items)))
			return nil
		})
	return ic, err
}

// ReadDocuments reads every document of href: the single document of a
// JSON file, the features of a FeatureCollection, or the Items of a
// multi-item format.
func (c *Client) ReadDocuments(ctx context.Context, href string) ([]stac.Document, error) {
	f, enc, err := c.detect(href)
	if err != nil {
		return nil, err
	}
	if f != FormatJSON {
		items, err := c.ReadItems(ctx, href)
		if err != nil {
			return nil, err
		}
		return asDocuments(items), nil
	}
	var docs []stac.Document
	err = stac.Observe(ctx, c.hook, stac.OperationInfo{Operation: stac.OperationRead, Href: href, Format: string(f)},
		func(ctx context.Context, stats *stac.Statistics) error {
			data, err := c.load(ctx, href, enc, stats)
			if err != nil {
				return err
			}
			if isFeatureCollection(data) {
				ic, err := stac.ParseItemCollection(data)
				if err != nil {
					return fmt.Errorf("%s: %w", href, err)
				}
				docs = asDocuments(ic.Items)
			} else {
				doc, err := stac.Parse(data)
				if err != nil {
					return fmt.Errorf("%s: %w", href, err)
				}
				docs = []stac.Document{doc}
			}
			stats.RecordDocuments(int64(len(docs)))
			return nil
		})
	return docs, err
}

// isFeatureCollection reports whether data is a JSON object whose type is
// FeatureCollection.
func isFeatureCollection(data []byte) bool {
	var head struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(data, &head) == nil && head.Type == "FeatureCollection"
}

func asDocuments(items []*stac.Item) []stac.Document {
	docs := make([]stac.Document, len(items))
	for i, item := range items {
		docs[i] = item
	}
	return docs
}

func (c *Client) decodeItems(ctx context.Context, f Format, data []byte) (*stac.ItemCollection, error) {
	switch f {
	case FormatJSON:
		if isFeatureCollection(data) {
			return stac.ParseItemCollection(data)
		}
		item, err := stac.ParseItem(data)
		if err != nil {
			return nil, err
		}
		return stac.NewItemCollection([]*stac.Item{item}), nil
	case FormatNDJSON:
		items, err := stac.ReadNDJSON(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return stac.NewItemCollection(items), nil
	case FormatGeoParquet, FormatArrow:
		var items []*stac.Item
		err := c.observe(ctx, stac.OperationDecode, f, func(ctx context.Context, stats *stac.Statistics) error {
			var err error
			if items, err = c.decodeColumnar(ctx, f, data); err != nil {
				return err
			}
			stats.RecordDocuments(int64(len(items)))
			stats.RecordBytes(int64(len(data)))
			return nil
		})
		if err != nil {
			return nil, err
		}
		return stac.NewItemCollection(items), nil
	}
	return nil, stac.Errorf(stac.KindIo, "", "unsupported format %q", f)
}

// observe wraps a codec step in the client's hook.
func (c *Client) observe(ctx context.Context, op string, f Format, fn func(context.Context, *stac.Statistics) error) error {
	return stac.Observe(ctx, c.hook, stac.OperationInfo{Operation: op, Format: string(f)}, fn)
}

func (c *Client) decodeColumnar(ctx context.Context, f Format, data []byte) ([]*stac.Item, error) {
	if f == FormatGeoParquet {
		opts := append([]geoparquet.Option{geoparquet.WithArrowOptions(c.arrowOps...)}, c.parquetOps...)
		return geoparquet.ReadItems(ctx, bytes.NewReader(data), opts...)
	}
	var items []*stac.Item
	for item, err := range geoarrow.IPCItems(bytes.NewReader(data), c.arrowOps...) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Write writes one document. JSON hrefs receive the document itself and
// NDJSON hrefs a single line.
func (c *Client) Write(ctx context.Context, href string, doc stac.Document) error {
	f, enc, err := c.detect(href)
	if err != nil {
		return err
	}
	return stac.Observe(ctx, c.hook, stac.OperationInfo{Operation: stac.OperationWrite, Href: href, Format: string(f)},
		func(ctx context.Context, stats *stac.Statistics) error {
			var data []byte
			var err error
			switch f {
			case FormatJSON:
				data, err = c.marshal(doc)
			case FormatNDJSON:
				var buf bytes.Buffer
				err = stac.WriteNDJSON(&buf, []stac.Document{doc})
				data = buf.Bytes()
			default:
				item, ok := doc.(*stac.Item)
				if !ok {
					return stac.Errorf(stac.KindIo, "", "%s cannot hold a %s", f, doc.Type())
				}
				data, err = c.encodeItems(ctx, f, stac.NewItemCollection([]*stac.Item{item}))
			}
			if err != nil {
				return fmt.Errorf("%s: %w", href, err)
			}
			stats.RecordDocuments(1)
			return c.save(ctx, href, data, enc, stats)
		})
}

// WriteItems writes items in the format of href. JSON hrefs receive a
// FeatureCollection.
func (c *Client) WriteItems(ctx context.Context, href string, items []*stac.Item) error {
	return c.WriteItemCollection(ctx, href, stac.NewItemCollection(items))
}

// WriteItemCollection writes ic in the format of href.
func (c *Client) WriteItemCollection(ctx context.Context, href string, ic *stac.ItemCollection) error {
	f, enc, err := c.detect(href)
	if err != nil {
		return err
	}
	return stac.Observe(ctx, c.hook, stac.OperationInfo{Operation: stac.OperationWrite, Href: href, Format: string(f)},
		func(ctx context.Context, stats *stac.Statistics) error {
			data, err := c.encodeItems(ctx, f, ic)
			if err != nil {
				return fmt.Errorf("%s: %w", href, err)
			}
			stats.RecordDocuments(int64(len(ic.Items)))
			return c.save(ctx, href, data, enc, stats)
		})
}

func (c *Client) encodeItems(ctx context.Context, f Format, ic *stac.ItemCollection) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case FormatJSON:
		data, err := ic.Marshal()
		if err != nil {
			return nil, err
		}
		if c.pretty {
			if err := json.Indent(&buf, data, "", "  "); err != nil {
				return nil, stac.WrapError(stac.KindIo, "", err)
			}
			return buf.Bytes(), nil
		}
		return data, nil
	case FormatNDJSON:
		if err := stac.WriteNDJSON(&buf, ic.Items); err != nil {
			return nil, err
		}
	case FormatGeoParquet:
		err := c.observe(ctx, stac.OperationEncode, f, func(ctx context.Context, stats *stac.Statistics) error {
			opts := append([]geoparquet.Option{geoparquet.WithArrowOptions(c.arrowOps...)}, c.parquetOps...)
			if _, err := geoparquet.WriteItems(ctx, &buf, ic.Items, opts...); err != nil {
				return err
			}
			stats.RecordDocuments(int64(len(ic.Items)))
			stats.RecordBytes(int64(buf.Len()))
			return nil
		})
		if err != nil {
			return nil, err
		}
	case FormatArrow:
		err := c.observe(ctx, stac.OperationEncode, f, func(_ context.Context, stats *stac.Statistics) error {
			schema, err := geoarrow.Infer(ic.Items, c.arrowOps...)
			if err != nil {
				return err
			}
			batch, err := geoarrow.Encode(ic.Items, schema, c.arrowOps...)
			if err != nil {
				return err
			}
			defer batch.Release()
			stats.RecordDocuments(int64(len(ic.Items)))
			stats.RecordBatch(batch.NumRows(), batchBytes(batch))
			if err := geoarrow.WriteIPC(&buf, batch.Schema(), []arrow.RecordBatch{batch}, c.ipcZstd); err != nil {
				return stac.WrapError(stac.KindIo, "", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, stac.Errorf(stac.KindIo, "", "unsupported format %q", f)
	}
	log.Debug().Str("format", string(f)).Int("items", len(ic.Items)).Int("bytes", buf.Len()).Msg("encoded items")
	return buf.Bytes(), nil
}

// batchBytes sums the buffer sizes of every column of batch.
func batchBytes(batch arrow.RecordBatch) int64 {
	var n int64
	for _, col := range batch.Columns() {
		n += dataBytes(col.Data())
	}
	return n
}

func dataBytes(d arrow.ArrayData) int64 {
	var n int64
	for _, b := range d.Buffers() {
		if b != nil {
			n += int64(b.Len())
		}
	}
	for _, child := range d.Children() {
		n += dataBytes(child)
	}
	return n
}

func (c *Client) marshal(doc stac.Document) ([]byte, error) {
	if c.pretty {
		return stac.MarshalIndent(doc, "", "  ")
	}
	return stac.Marshal(doc)
}
