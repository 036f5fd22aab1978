// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	stdjson "encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeometryType returns the GeoJSON type name of g, or "" for nil.
func GeometryType(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "Point"
	case *geom.LineString:
		return "LineString"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	default:
		return ""
	}
}

// MarshalGeometry encodes g as GeoJSON. A nil geometry encodes as null.
func MarshalGeometry(g geom.T) (stdjson.RawMessage, error) {
	if g == nil {
		return stdjson.RawMessage("null"), nil
	}
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encoding %s geometry: %w", GeometryType(g), err)
	}
	return data, nil
}

// UnmarshalGeometry decodes a GeoJSON geometry. JSON null decodes to nil.
func UnmarshalGeometry(data []byte) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return g, nil
}

// BoundingBox returns the minimal enclosing box of g as a flat bbox: four
// values for 2D layouts, six when the geometry carries Z.
func BoundingBox(g geom.T) []float64 {
	if g == nil || g.Empty() {
		return nil
	}
	b := g.Bounds()
	if b.Layout().ZIndex() >= 0 {
		z := b.Layout().ZIndex()
		return []float64{b.Min(0), b.Min(1), b.Min(z), b.Max(0), b.Max(1), b.Max(z)}
	}
	return []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
}

func parseGeometry(v any, path string) (geom.T, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(*Fields); !ok {
		return nil, structuralf(path, "expected object or null, got %s", jsonTypeName(v))
	}
	data, err := MarshalValue(v)
	if err != nil {
		return nil, &Error{Kind: KindStructural, Path: path, Message: "invalid geometry", Err: err}
	}
	g, err := UnmarshalGeometry(data)
	if err != nil {
		return nil, &Error{Kind: KindStructural, Path: path, Message: "invalid GeoJSON geometry", Err: err}
	}
	return g, nil
}

func parseBbox(o object) ([]float64, error) {
	bbox, err := o.floats("bbox")
	if err != nil {
		return nil, err
	}
	if bbox != nil && len(bbox) != 4 && len(bbox) != 6 {
		return nil, structuralf(o.at("bbox"), "expected 4 or 6 numbers, got %d", len(bbox))
	}
	return bbox, nil
}
