// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"fmt"
	"io"
	"iter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/Query-farm/stac-go/stac"
)

// WriteIPC writes batches as one Arrow IPC stream: schema, batches, EOS.
// With no batches the stream still carries schema, so readers see the
// columns of an empty result. compress selects zstd body compression.
func WriteIPC(w io.Writer, schema *arrow.Schema, batches []arrow.RecordBatch, compress bool) error {
	opts := []ipc.Option{ipc.WithSchema(schema)}
	if compress {
		opts = append(opts, ipc.WithZstd())
	}
	writer := ipc.NewWriter(w, opts...)
	for i, b := range batches {
		if err := writer.Write(b); err != nil {
			writer.Close()
			return fmt.Errorf("writing batch %d: %w", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing IPC stream: %w", err)
	}
	return nil
}

// WriteItemsIPC infers a schema for items, encodes them and writes one IPC
// stream.
func WriteItemsIPC(w io.Writer, items []*stac.Item, opts ...Option) (*Schema, error) {
	schema, err := Infer(items, opts...)
	if err != nil {
		return nil, err
	}
	batch, err := Encode(items, schema, opts...)
	if err != nil {
		return nil, err
	}
	defer batch.Release()
	return schema, WriteIPC(w, batch.Schema(), []arrow.RecordBatch{batch}, false)
}

// ReadIPC reads every batch of an IPC stream. The caller releases the
// returned batches.
func ReadIPC(r io.Reader, mem memory.Allocator) (*arrow.Schema, []arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	reader, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, nil, fmt.Errorf("reading IPC stream: %w", err)
	}
	defer reader.Release()

	var batches []arrow.RecordBatch
	for reader.Next() {
		batch := reader.RecordBatch()
		batch.Retain() // keep batch alive after reader is released
		batches = append(batches, batch)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		for _, b := range batches {
			b.Release()
		}
		return nil, nil, fmt.Errorf("reading IPC batch: %w", err)
	}
	return reader.Schema(), batches, nil
}

// IPCItems streams the Items of an IPC stream batch by batch.
func IPCItems(r io.Reader, opts ...Option) iter.Seq2[*stac.Item, error] {
	return func(yield func(*stac.Item, error) bool) {
		o := newOptions(opts)
		reader, err := ipc.NewReader(r, ipc.WithAllocator(o.mem))
		if err != nil {
			yield(nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("reading IPC stream: %w", err)))
			return
		}
		defer reader.Release()

		for reader.Next() {
			for item, err := range Items(reader.RecordBatch(), opts...) {
				if !yield(item, err) || err != nil {
					return
				}
			}
		}
		if err := reader.Err(); err != nil && err != io.EOF {
			yield(nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("reading IPC batch: %w", err)))
		}
	}
}

// Concat decodes every batch in order.
func Concat(batches []arrow.RecordBatch, opts ...Option) ([]*stac.Item, error) {
	var items []*stac.Item
	for _, b := range batches {
		for item, err := range Items(b, opts...) {
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}
