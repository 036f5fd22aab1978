// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"context"
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"golang.org/x/sync/errgroup"

	"github.com/Query-farm/stac-go/stac"
)

// Encode writes items into one record batch shaped by schema. Every Item is
// checked against the schema before any column is built; the first
// disagreement fails the whole batch with a SchemaMismatch error whose path
// is "/<item index>/<column>[/...]". The caller owns the returned batch.
func Encode(items []*stac.Item, schema *Schema, opts ...Option) (arrow.RecordBatch, error) {
	return encodeRange(items, 0, len(items), schema, newOptions(opts))
}

// EncodeParallel splits items into at most shards contiguous ranges and
// encodes them concurrently, returning one batch per range in input order.
// shards < 1 means GOMAXPROCS.
func EncodeParallel(ctx context.Context, items []*stac.Item, schema *Schema, shards int, opts ...Option) ([]arrow.RecordBatch, error) {
	o := newOptions(opts)
	ranges := split(len(items), shards)
	batches := make([]arrow.RecordBatch, len(ranges))
	g, ctx := errgroup.WithContext(ctx)
	for k, r := range ranges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := encodeRange(items, r[0], r[1], schema, o)
			batches[k] = b
			return err
		})
	}
	if err := g.Wait(); err != nil {
		for _, b := range batches {
			if b != nil {
				b.Release()
			}
		}
		return nil, err
	}
	return batches, nil
}

// split divides n items into at most k contiguous [start, end) ranges.
func split(n, k int) [][2]int {
	if k < 1 {
		k = runtime.GOMAXPROCS(0)
	}
	k = max(min(k, n), 1)
	out := make([][2]int, 0, k)
	size, rest := n/k, n%k
	start := 0
	for i := range k {
		end := start + size
		if i < rest {
			end++
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

func encodeRange(items []*stac.Item, start, end int, schema *Schema, o *options) (arrow.RecordBatch, error) {
	records := make([]record, 0, end-start)
	for i := start; i < end; i++ {
		rec, err := itemRecord(i, items[i], o)
		if err != nil {
			return nil, err
		}
		if err := o.fit(i, &rec, schema); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	as := ToArrow(schema)
	enc := schema.Encoding()
	builders := make([]array.Builder, as.NumFields())
	for i, f := range as.Fields() {
		builders[i] = array.NewBuilder(o.mem, f.Type)
	}
	defer func() {
		for _, b := range builders {
			b.Release()
		}
	}()

	for n, rec := range records {
		idx := start + n
		for i, f := range as.Fields() {
			var err error
			switch f.Name {
			case "geometry":
				err = appendGeometry(builders[i], rec.geometry, enc)
			case "bbox":
				appendBbox(builders[i].(*array.StructBuilder), rec.bbox, schema.Bbox)
			default:
				col, _ := schema.Column(f.Name)
				var v any
				if c, ok := rec.cell(f.Name); ok {
					v = c.value
				}
				err = appendValue(builders[i], col.Shape, v)
			}
			if err != nil {
				return nil, mismatch(pointer(row(idx), f.Name), "%v", err)
			}
		}
	}

	cols := make([]arrow.Array, len(builders))
	for i, b := range builders {
		cols[i] = b.NewArray()
	}
	batch := array.NewRecordBatch(as, cols, int64(len(records)))
	for _, c := range cols {
		c.Release()
	}
	return batch, nil
}

// appendValue appends one JSON value to a builder made for shape s.
func appendValue(b array.Builder, s Shape, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	if s.jsonEncoded() {
		data, err := stac.MarshalValue(v)
		if err != nil {
			return err
		}
		return appendTo(b, func(sb *array.StringBuilder) { sb.Append(string(data)) })
	}
	switch s.Kind {
	case KindBool:
		x, ok := v.(bool)
		if !ok {
			return unexpected(s, v)
		}
		return appendTo(b, func(bb *array.BooleanBuilder) { bb.Append(x) })
	case KindInt:
		x, ok := v.(int64)
		if !ok {
			return unexpected(s, v)
		}
		return appendTo(b, func(ib *array.Int64Builder) { ib.Append(x) })
	case KindFloat:
		var x float64
		switch n := v.(type) {
		case float64:
			x = n
		case int64:
			x = float64(n)
		default:
			return unexpected(s, v)
		}
		return appendTo(b, func(fb *array.Float64Builder) { fb.Append(x) })
	case KindTimestamp:
		str, _ := v.(string)
		t, ok := canonicalTime(str)
		if !ok {
			return unexpected(s, v)
		}
		return appendTo(b, func(tb *array.TimestampBuilder) { tb.Append(arrow.Timestamp(t.UnixMicro())) })
	case KindString:
		x, ok := v.(string)
		if !ok {
			return unexpected(s, v)
		}
		return appendTo(b, func(sb *array.StringBuilder) { sb.Append(x) })
	case KindList:
		xs, ok := v.([]any)
		if !ok {
			return unexpected(s, v)
		}
		lb, ok := b.(*array.ListBuilder)
		if !ok {
			return fmt.Errorf("builder %T does not hold lists", b)
		}
		lb.Append(true)
		vb := lb.ValueBuilder()
		for i, e := range xs {
			if err := appendValue(vb, *s.Elem, e); err != nil {
				return fmt.Errorf("list element [%d]: %w", i, err)
			}
		}
		return nil
	case KindStruct:
		m, ok := v.(map[string]any)
		if !ok {
			return unexpected(s, v)
		}
		sb, ok := b.(*array.StructBuilder)
		if !ok {
			return fmt.Errorf("builder %T does not hold structs", b)
		}
		sb.Append(true)
		for i, f := range s.Fields {
			if err := appendValue(sb.FieldBuilder(i), f.Shape, m[f.Name]); err != nil {
				return fmt.Errorf("struct field %s: %w", f.Name, err)
			}
		}
		return nil
	}
	return unexpected(s, v)
}

func appendTo[B array.Builder](b array.Builder, fn func(B)) error {
	tb, ok := b.(B)
	if !ok {
		return fmt.Errorf("unexpected builder %T", b)
	}
	fn(tb)
	return nil
}

func unexpected(s Shape, v any) error {
	return fmt.Errorf("expected %s, got %s", s.Kind, typeName(v))
}

func appendGeometry(b array.Builder, g geom.T, enc Encoding) error {
	if g == nil {
		b.AppendNull()
		return nil
	}
	if enc == EncodingNative {
		return appendNative(b, g)
	}
	data, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return fmt.Errorf("encoding WKB: %w", err)
	}
	return appendTo(b, func(bb *array.BinaryBuilder) { bb.Append(data) })
}

func appendBbox(sb *array.StructBuilder, bbox []float64, shape BboxShape) {
	if bbox == nil {
		sb.AppendNull()
		return
	}
	sb.Append(true)
	var values []any
	switch {
	case len(bbox) == 6:
		values = []any{bbox[0], bbox[1], bbox[2], bbox[3], bbox[4], bbox[5]}
	case shape.Has3D:
		values = []any{bbox[0], bbox[1], nil, bbox[2], bbox[3], nil}
	default:
		values = []any{bbox[0], bbox[1], bbox[2], bbox[3]}
	}
	for i, v := range values {
		fb := sb.FieldBuilder(i).(*array.Float64Builder)
		if v == nil {
			fb.AppendNull()
			continue
		}
		fb.Append(v.(float64))
	}
}
