// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/geoarrow"
	"github.com/Query-farm/stac-go/stac/geoparquet"
)

// Encoded is one workload pre-serialized in every columnar form.
type Encoded struct {
	Items   []*stac.Item
	Schema  *geoarrow.Schema
	Batch   arrow.RecordBatch
	IPC     []byte
	Parquet []byte
	NDJSON  []byte
}

// Release frees the batch.
func (e *Encoded) Release() {
	if e.Batch != nil {
		e.Batch.Release()
		e.Batch = nil
	}
}

// Encode serializes n synthetic Items as an Arrow batch, an IPC stream, a
// GeoParquet file and NDJSON.
func Encode(n int, opts ...geoarrow.Option) (*Encoded, error) {
	items, err := Items(n)
	if err != nil {
		return nil, err
	}
	schema, err := geoarrow.Infer(items, opts...)
	if err != nil {
		return nil, err
	}
	batch, err := geoarrow.Encode(items, schema, opts...)
	if err != nil {
		return nil, err
	}
	e := &Encoded{Items: items, Schema: schema, Batch: batch}

	var ipcBuf bytes.Buffer
	if err := geoarrow.WriteIPC(&ipcBuf, batch.Schema(), []arrow.RecordBatch{batch}, false); err != nil {
		e.Release()
		return nil, err
	}
	e.IPC = ipcBuf.Bytes()

	var pqBuf bytes.Buffer
	if err := geoparquet.Write(&pqBuf, batch.Schema(), []arrow.RecordBatch{batch}); err != nil {
		e.Release()
		return nil, err
	}
	e.Parquet = pqBuf.Bytes()

	var ndBuf bytes.Buffer
	if err := stac.WriteNDJSON(&ndBuf, items); err != nil {
		e.Release()
		return nil, err
	}
	e.NDJSON = ndBuf.Bytes()
	return e, nil
}
