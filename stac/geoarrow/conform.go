// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"slices"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
)

// conform checks v against s and reports the first disagreement at a JSON
// pointer below path.
func conform(v any, s Shape, path string) error {
	if v == nil {
		if s.Nullable || s.Kind == KindNull {
			return nil
		}
		return mismatch(path, "null in a non-nullable %s column", s.Kind)
	}
	switch s.Kind {
	case KindMixed:
		return nil
	case KindBool:
		if _, ok := v.(bool); ok {
			return nil
		}
	case KindInt:
		if _, ok := v.(int64); ok {
			return nil
		}
	case KindFloat:
		switch v.(type) {
		case int64, float64:
			return nil
		}
	case KindTimestamp:
		if str, ok := v.(string); ok {
			if _, ok := canonicalTime(str); ok {
				return nil
			}
			return mismatch(path, "%q is not a canonical UTC timestamp", str)
		}
	case KindString:
		if _, ok := v.(string); ok {
			return nil
		}
	case KindList:
		if xs, ok := v.([]any); ok {
			for i, e := range xs {
				if err := conform(e, *s.Elem, path+"/"+strconv.Itoa(i)); err != nil {
					return err
				}
			}
			return nil
		}
	case KindStruct:
		if m, ok := v.(map[string]any); ok {
			return conformStruct(m, s, path)
		}
	}
	return mismatch(path, "expected %s, got %s", s.Kind, typeName(v))
}

func conformStruct(m map[string]any, s Shape, path string) error {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		fs, ok := s.Field(k)
		if !ok {
			return mismatch(pointer(path, k), "member is not in the schema")
		}
		if err := conform(m[k], fs, pointer(path, k)); err != nil {
			return err
		}
	}
	for _, f := range s.Fields {
		if _, ok := m[f.Name]; !ok && !f.Shape.Nullable && f.Shape.Kind != KindNull {
			return mismatch(pointer(path, f.Name), "missing non-nullable member")
		}
	}
	return nil
}

// fit checks record idx against the schema. In best-effort mode unknown
// members are dropped and non-conforming cells of nullable columns nulled;
// otherwise the first disagreement is returned.
func (o *options) fit(idx int, rec *record, s *Schema) error {
	kept := rec.cells[:0]
	for _, c := range rec.cells {
		col, ok := s.Column(c.name)
		if !ok {
			if o.bestEffort {
				log.Debug().Int("item", idx).Str("key", c.name).Msg("dropping member missing from the schema")
				continue
			}
			return mismatch(pointer(row(idx), c.name), "member is not in the schema")
		}
		if err := conform(c.value, col.Shape, pointer(row(idx), c.name)); err != nil {
			if !o.bestEffort || !col.Shape.Nullable {
				return err
			}
			log.Debug().Err(err).Int("item", idx).Msg("nulling non-conforming cell")
			c.value = nil
		}
		kept = append(kept, c)
	}
	rec.cells = kept
	for _, col := range s.Columns {
		if _, ok := rec.cell(col.Name); !ok && !col.Shape.Nullable && col.Shape.Kind != KindNull {
			return mismatch(pointer(row(idx), col.Name), "missing non-nullable member")
		}
	}
	if err := fitGeometry(idx, rec.geometry, s); err != nil {
		return err
	}
	return fitBbox(idx, rec.bbox, s.Bbox)
}

func fitGeometry(idx int, g geom.T, s *Schema) error {
	path := pointer(row(idx), "geometry")
	if g == nil {
		if !s.Geometry.Nullable {
			return mismatch(path, "null in a non-nullable geometry column")
		}
		return nil
	}
	if s.Encoding() != EncodingNative {
		return nil
	}
	t, layout, _ := s.Geometry.Uniform()
	if got := stac.GeometryType(g); got != t || g.Layout() != layout {
		return mismatch(path, "expected %s %s geometry, got %s %s", t, layoutName(layout), got, layoutName(g.Layout()))
	}
	return nil
}

func fitBbox(idx int, bbox []float64, b BboxShape) error {
	path := pointer(row(idx), "bbox")
	switch {
	case bbox == nil:
		if b.Present() && !b.Nullable {
			return mismatch(path, "null in a non-nullable bbox column")
		}
	case !b.Present():
		return mismatch(path, "schema has no bbox column")
	case len(bbox) == 6 && !b.Has3D:
		return mismatch(path, "schema has a 2D bbox column")
	case len(bbox) == 4 && !b.Has2D:
		return mismatch(path, "schema has a 3D bbox column")
	}
	return nil
}

func layoutName(l geom.Layout) string {
	switch l {
	case geom.XY:
		return "XY"
	case geom.XYZ:
		return "XYZ"
	case geom.XYM:
		return "XYM"
	case geom.XYZM:
		return "XYZM"
	}
	return "unknown"
}
