// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/twpayne/go-geom"
)

// appendNative writes g as separated GeoArrow coordinates. The builder's
// nesting matches nativeType for the geometry's type.
func appendNative(b array.Builder, g geom.T) error {
	dims := g.Layout().Stride()
	switch g := g.(type) {
	case *geom.Point:
		return appendCoord(b, g.Coords(), dims)
	case *geom.LineString:
		return appendCoords(b, g.Coords(), dims)
	case *geom.MultiPoint:
		return appendCoords(b, g.Coords(), dims)
	case *geom.Polygon:
		return appendRings(b, g.Coords(), dims)
	case *geom.MultiLineString:
		return appendRings(b, g.Coords(), dims)
	case *geom.MultiPolygon:
		lb, ok := b.(*array.ListBuilder)
		if !ok {
			return fmt.Errorf("unexpected builder %T for MultiPolygon", b)
		}
		lb.Append(true)
		for _, p := range g.Coords() {
			if err := appendRings(lb.ValueBuilder(), p, dims); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%T has no native encoding", g)
}

func appendCoord(b array.Builder, c geom.Coord, dims int) error {
	sb, ok := b.(*array.StructBuilder)
	if !ok {
		return fmt.Errorf("unexpected coordinate builder %T", b)
	}
	sb.Append(true)
	for k := range sb.NumField() {
		v := 0.0
		if k < dims && k < len(c) {
			v = c[k]
		}
		sb.FieldBuilder(k).(*array.Float64Builder).Append(v)
	}
	return nil
}

func appendCoords(b array.Builder, cs []geom.Coord, dims int) error {
	lb, ok := b.(*array.ListBuilder)
	if !ok {
		return fmt.Errorf("unexpected builder %T for a coordinate list", b)
	}
	lb.Append(true)
	for _, c := range cs {
		if err := appendCoord(lb.ValueBuilder(), c, dims); err != nil {
			return err
		}
	}
	return nil
}

func appendRings(b array.Builder, rings [][]geom.Coord, dims int) error {
	lb, ok := b.(*array.ListBuilder)
	if !ok {
		return fmt.Errorf("unexpected builder %T for a ring list", b)
	}
	lb.Append(true)
	for _, r := range rings {
		if err := appendCoords(lb.ValueBuilder(), r, dims); err != nil {
			return err
		}
	}
	return nil
}

// nativeAt reads row i of a native geometry column of type t.
func nativeAt(arr arrow.Array, i int, t string, layout geom.Layout) (geom.T, error) {
	switch t {
	case "Point":
		c, err := coordAt(arr, i)
		if err != nil {
			return nil, err
		}
		return geom.NewPoint(layout).SetCoords(c)
	case "LineString":
		cs, err := coordsAt(arr, i)
		if err != nil {
			return nil, err
		}
		return geom.NewLineString(layout).SetCoords(cs)
	case "MultiPoint":
		cs, err := coordsAt(arr, i)
		if err != nil {
			return nil, err
		}
		return geom.NewMultiPoint(layout).SetCoords(cs)
	case "Polygon":
		rs, err := ringsAt(arr, i)
		if err != nil {
			return nil, err
		}
		return geom.NewPolygon(layout).SetCoords(rs)
	case "MultiLineString":
		rs, err := ringsAt(arr, i)
		if err != nil {
			return nil, err
		}
		return geom.NewMultiLineString(layout).SetCoords(rs)
	case "MultiPolygon":
		start, end, values, err := listRange(arr, i)
		if err != nil {
			return nil, err
		}
		ps := make([][][]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			rs, err := ringsAt(values, int(j))
			if err != nil {
				return nil, err
			}
			ps = append(ps, rs)
		}
		return geom.NewMultiPolygon(layout).SetCoords(ps)
	}
	return nil, fmt.Errorf("%s has no native encoding", t)
}

func listRange(arr arrow.Array, i int) (int64, int64, arrow.Array, error) {
	l, ok := arr.(array.ListLike)
	if !ok {
		return 0, 0, nil, fmt.Errorf("expected a list array, got %s", arr.DataType())
	}
	start, end := l.ValueOffsets(i)
	return start, end, l.ListValues(), nil
}

func coordAt(arr arrow.Array, i int) (geom.Coord, error) {
	st, ok := arr.(*array.Struct)
	if !ok {
		return nil, fmt.Errorf("expected a coordinate struct, got %s", arr.DataType())
	}
	c := make(geom.Coord, st.NumField())
	for k := range c {
		f, ok := st.Field(k).(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("coordinate member %d is %s", k, st.Field(k).DataType())
		}
		c[k] = f.Value(i)
	}
	return c, nil
}

func coordsAt(arr arrow.Array, i int) ([]geom.Coord, error) {
	start, end, values, err := listRange(arr, i)
	if err != nil {
		return nil, err
	}
	cs := make([]geom.Coord, 0, end-start)
	for j := start; j < end; j++ {
		c, err := coordAt(values, int(j))
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, nil
}

func ringsAt(arr arrow.Array, i int) ([][]geom.Coord, error) {
	start, end, values, err := listRange(arr, i)
	if err != nil {
		return nil, err
	}
	rs := make([][]geom.Coord, 0, end-start)
	for j := start; j < end; j++ {
		cs, err := coordsAt(values, int(j))
		if err != nil {
			return nil, err
		}
		rs = append(rs, cs)
	}
	return rs, nil
}
