// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"fmt"
	"iter"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/Query-farm/stac-go/stac"
)

// Decode reads every row of batch back into Items. schema gives the meaning
// of the columns and must agree with the batch's Arrow schema. Null property
// values decode as absent, except "datetime", which is kept as an explicit
// null.
func Decode(batch arrow.RecordBatch, schema *Schema, opts ...Option) ([]*stac.Item, error) {
	items := make([]*stac.Item, 0, batch.NumRows())
	for item, err := range decodeRows(batch, schema, newOptions(opts)) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Items lazily decodes batch using the schema recorded in its Arrow
// metadata. The sequence is restartable; the batch must stay alive while it
// is iterated.
func Items(batch arrow.RecordBatch, opts ...Option) iter.Seq2[*stac.Item, error] {
	return func(yield func(*stac.Item, error) bool) {
		schema, err := FromArrow(batch.Schema())
		if err != nil {
			yield(nil, err)
			return
		}
		schema.Rows = batch.NumRows()
		for item, err := range decodeRows(batch, schema, newOptions(opts)) {
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// columnReader decodes one column of a batch.
type columnReader struct {
	name string
	arr  arrow.Array
	col  Column
}

func decodeRows(batch arrow.RecordBatch, schema *Schema, o *options) iter.Seq2[*stac.Item, error] {
	return func(yield func(*stac.Item, error) bool) {
		readers, err := planColumns(batch, schema)
		if err != nil {
			yield(nil, err)
			return
		}
		enc := schema.Encoding()
		for i := range int(batch.NumRows()) {
			item, err := decodeRow(readers, i, schema, enc, o)
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// planColumns matches the batch's columns with the schema.
func planColumns(batch arrow.RecordBatch, schema *Schema) ([]columnReader, error) {
	as := batch.Schema()
	readers := make([]columnReader, 0, as.NumFields())
	for i, f := range as.Fields() {
		r := columnReader{name: f.Name, arr: batch.Column(i)}
		switch f.Name {
		case "geometry", "bbox":
		default:
			col, ok := schema.Column(f.Name)
			if !ok {
				return nil, mismatch("/"+f.Name, "column is not in the schema")
			}
			got, err := shapeFromArrow(f.Type, f.Nullable, f.Metadata, "/"+f.Name)
			if err != nil {
				return nil, err
			}
			if !compatible(got, col.Shape) {
				return nil, mismatch("/"+f.Name, "column holds %s, schema expects %s", got, col.Shape)
			}
			r.col = col
		}
		readers = append(readers, r)
	}
	return readers, nil
}

// compatible reports whether a column of shape got can be read as want.
func compatible(got, want Shape) bool {
	switch {
	case got.Kind == KindNull || want.Kind == KindNull:
		return true
	case want.jsonEncoded():
		return got.Kind == KindString || got.jsonEncoded()
	case got.Kind != want.Kind:
		return false
	case want.Kind == KindList:
		return compatible(*got.Elem, *want.Elem)
	}
	return true
}

func decodeRow(readers []columnReader, i int, schema *Schema, enc Encoding, o *options) (*stac.Item, error) {
	item := &stac.Item{}
	path := row(i)
	for _, r := range readers {
		switch r.name {
		case "geometry":
			g, err := geometryAt(r.arr, i, schema, enc)
			if err != nil {
				return nil, mismatch(pointer(path, "geometry"), "%v", err)
			}
			item.Geometry = g
			continue
		case "bbox":
			item.Bbox = bboxAt(r.arr, i)
			continue
		}
		v, err := valueAt(r.arr, i, r.col.Shape)
		if err != nil {
			return nil, mismatch(pointer(path, r.name), "%v", err)
		}
		if v == nil {
			if r.col.Role == RoleProperty && r.name == "datetime" {
				_ = item.Properties.Set("datetime", nil)
			}
			continue
		}
		if err := setMember(item, r.col, v, path); err != nil {
			return nil, err
		}
	}
	if err := o.registry.Check(item); err != nil {
		return nil, err
	}
	return item, nil
}

// setMember stores a decoded column value into the Item.
func setMember(item *stac.Item, col Column, v any, path string) error {
	at := pointer(path, col.Name)
	switch col.Role {
	case RoleProperty:
		return item.Properties.Set(col.Name, v)
	case RoleExtra:
		return item.Extra.Set(col.Name, v)
	}
	switch col.Name {
	case "type":
		if v != string(stac.TypeItem) {
			return mismatch(at, "type is %v, not %s", v, stac.TypeItem)
		}
	case "stac_version":
		version, err := stac.ParseVersion(fmt.Sprint(v))
		if err != nil {
			return err
		}
		item.Version = version
	case "id":
		s, ok := v.(string)
		if !ok || s == "" {
			return mismatch(at, "id must be a non-empty string")
		}
		item.ID = s
	case "collection":
		s, _ := v.(string)
		item.Collection = s
	case "stac_extensions":
		xs, _ := v.([]any)
		for _, e := range xs {
			if s, ok := e.(string); ok {
				item.StacExtensions = append(item.StacExtensions, s)
			}
		}
	case "links":
		xs, _ := v.([]any)
		for j, e := range xs {
			m, ok := e.(map[string]any)
			if !ok {
				return mismatch(fmt.Sprintf("%s/%d", at, j), "link is %s, not an object", typeName(e))
			}
			f, err := stac.FieldsFromMap(m)
			if err != nil {
				return err
			}
			link, err := stac.ParseLink(&f, fmt.Sprintf("/links/%d", j))
			if err != nil {
				return err
			}
			item.Links = append(item.Links, link)
		}
	case "assets":
		m, _ := v.(map[string]any)
		for _, k := range sortedKeys(m) {
			am, ok := m[k].(map[string]any)
			if !ok {
				return mismatch(pointer(at, k), "asset is %s, not an object", typeName(m[k]))
			}
			f, err := stac.FieldsFromMap(am)
			if err != nil {
				return err
			}
			asset, err := stac.ParseAsset(&f, pointer("/assets", k))
			if err != nil {
				return err
			}
			if err := item.Assets.Add(k, *asset); err != nil {
				return err
			}
		}
	}
	return nil
}

// valueAt reads row i of arr as a plain JSON value. Nulls inside structs
// are dropped; nulls inside lists are kept.
func valueAt(arr arrow.Array, i int, s Shape) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	if s.jsonEncoded() {
		str, err := stringAt(arr, i)
		if err != nil {
			return nil, err
		}
		return stac.UnmarshalValue([]byte(str))
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Int32:
		return int64(a.Value(i)), nil
	case *array.Int16:
		return int64(a.Value(i)), nil
	case *array.Int8:
		return int64(a.Value(i)), nil
	case *array.Uint64:
		return int64(a.Value(i)), nil
	case *array.Uint32:
		return int64(a.Value(i)), nil
	case *array.Uint16:
		return int64(a.Value(i)), nil
	case *array.Uint8:
		return int64(a.Value(i)), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.Float32:
		return float64(a.Value(i)), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return formatTimestamp(a.Value(i).ToTime(unit)), nil
	case *array.String, *array.LargeString:
		return stringAt(arr, i)
	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		m := make(map[string]any, st.NumFields())
		for k, f := range st.Fields() {
			fs, ok := s.Field(f.Name)
			if !ok {
				fs, _ = shapeFromArrow(f.Type, f.Nullable, f.Metadata, "")
			}
			v, err := valueAt(a.Field(k), i, fs)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			if v != nil {
				m[f.Name] = v
			}
		}
		return m, nil
	case array.ListLike:
		start, end := a.ValueOffsets(i)
		values := a.ListValues()
		elem := Shape{Kind: KindNull}
		if s.Elem != nil {
			elem = *s.Elem
		}
		out := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			v, err := valueAt(values, int(j), elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", j-start, err)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported column type %s", arr.DataType())
}

func stringAt(arr arrow.Array, i int) (string, error) {
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	}
	return "", fmt.Errorf("expected a string column, got %s", arr.DataType())
}

func geometryAt(arr arrow.Array, i int, schema *Schema, enc Encoding) (geom.T, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	if enc == EncodingNative {
		t, layout, _ := schema.Geometry.Uniform()
		return nativeAt(arr, i, t, layout)
	}
	var data []byte
	switch a := arr.(type) {
	case *array.Binary:
		data = a.Value(i)
	case *array.LargeBinary:
		data = a.Value(i)
	default:
		return nil, fmt.Errorf("expected a WKB column, got %s", arr.DataType())
	}
	return wkb.Unmarshal(data)
}

func bboxAt(arr arrow.Array, i int) []float64 {
	st, ok := arr.(*array.Struct)
	if !ok || st.IsNull(i) {
		return nil
	}
	dt := st.DataType().(*arrow.StructType)
	get := func(name string) (float64, bool) {
		k, ok := dt.FieldIdx(name)
		if !ok {
			return 0, false
		}
		f, ok := st.Field(k).(*array.Float64)
		if !ok || f.IsNull(i) {
			return 0, false
		}
		return f.Value(i), true
	}
	xmin, _ := get("xmin")
	ymin, _ := get("ymin")
	xmax, _ := get("xmax")
	ymax, _ := get("ymax")
	zmin, hasZmin := get("zmin")
	zmax, hasZmax := get("zmax")
	if hasZmin && hasZmax {
		return []float64{xmin, ymin, zmin, xmax, ymax, zmax}
	}
	return []float64{xmin, ymin, xmax, ymax}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
