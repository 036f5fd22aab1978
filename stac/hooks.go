// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import "context"

// Operation names passed to hooks in OperationInfo.Operation.
const (
	OperationRead     = "read"
	OperationWrite    = "write"
	OperationValidate = "validate"
	OperationMigrate  = "migrate"
	OperationEncode   = "encode"
	OperationDecode   = "decode"
)

// Hook provides observability callpoints around I/O, conversion and
// validation operations. Implementations must be safe for concurrent use.
type Hook interface {
	OnOperationStart(ctx context.Context, info OperationInfo) (context.Context, HookToken)
	OnOperationEnd(ctx context.Context, token HookToken, info OperationInfo, stats *Statistics, err error)
}

// HookToken is an opaque value returned by OnOperationStart and passed back
// to OnOperationEnd. Only meaningful to the Hook that created it.
type HookToken interface{}

// OperationInfo describes one operation.
type OperationInfo struct {
	Operation string            // one of the Operation constants
	Href      string            // document or file location, if any
	Format    string            // "json", "ndjson", "geoparquet", "arrow"
	Metadata  map[string]string // free-form attributes
}

// Statistics holds per-operation counters.
type Statistics struct {
	Documents int64
	Batches   int64
	Rows      int64
	Bytes     int64
}

// RecordDocuments adds n documents.
func (s *Statistics) RecordDocuments(n int64) {
	s.Documents += n
}

// RecordBatch records one record batch with the given row count and buffer size.
func (s *Statistics) RecordBatch(numRows, bufferBytes int64) {
	s.Batches++
	s.Rows += numRows
	s.Bytes += bufferBytes
}

// RecordBytes adds n bytes read or written.
func (s *Statistics) RecordBytes(n int64) {
	s.Bytes += n
}

// Observe runs fn between the start and end callpoints of hook. A nil hook
// runs fn directly.
func Observe(ctx context.Context, hook Hook, info OperationInfo, fn func(context.Context, *Statistics) error) error {
	stats := &Statistics{}
	if hook == nil {
		return fn(ctx, stats)
	}
	ctx, token := hook.OnOperationStart(ctx, info)
	err := fn(ctx, stats)
	hook.OnOperationEnd(ctx, token, info, stats, err)
	return err
}
