// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
)

// cell is one top-level member of an Item on its way to a column.
type cell struct {
	name  string
	role  Role
	value any
	shape Shape
}

// record is an Item flattened into columns.
type record struct {
	geometry geom.T
	bbox     []float64
	cells    []cell // in column order
}

func (r *record) cell(name string) (*cell, bool) {
	for i := range r.cells {
		if r.cells[i].name == name {
			return &r.cells[i], true
		}
	}
	return nil, false
}

// itemRecord flattens the Item at index idx. Property names that collide
// with a core column, and top-level members that collide with a property,
// cannot be represented.
func itemRecord(idx int, item *stac.Item, o *options) (record, error) {
	rec := record{geometry: item.Geometry, bbox: item.Bbox}
	if n := len(item.Bbox); n != 0 && n != 4 && n != 6 {
		return rec, mismatch(pointer(row(idx), "bbox"), "bbox has %d values", n)
	}
	add := func(name string, role Role, v any, s Shape) {
		rec.cells = append(rec.cells, cell{name: name, role: role, value: v, shape: s})
	}
	core := func(name string, v any) {
		add(name, RoleCore, v, ShapeOf(name, v))
	}

	core("type", string(stac.TypeItem))
	core("stac_version", string(item.Version))
	if len(item.StacExtensions) > 0 {
		exts := make([]any, len(item.StacExtensions))
		for i, e := range item.StacExtensions {
			exts[i] = e
		}
		core("stac_extensions", exts)
	}
	core("id", item.ID)
	if len(item.Links) > 0 {
		links := make([]any, len(item.Links))
		for i, l := range item.Links {
			links[i] = plainValue(l.Object())
		}
		core("links", links)
	}
	if item.Assets.Len() > 0 {
		assets := make(map[string]any, item.Assets.Len())
		for k, a := range item.Assets.All() {
			assets[k] = plainValue(a.Object())
		}
		add("assets", RoleCore, assets, o.seedStruct(ShapeOf("assets", assets), assets, item.StacExtensions))
	}
	if item.Collection != "" {
		core("collection", item.Collection)
	}

	for k, v := range item.Properties.All() {
		if coreRank(k) < len(coreColumns) {
			if o.bestEffort {
				log.Debug().Int("item", idx).Str("key", k).Msg("dropping property with a reserved column name")
				continue
			}
			return rec, mismatch(pointer(row(idx), "properties", k), "property name is reserved for a column")
		}
		v = plainValue(v)
		add(k, RoleProperty, v, o.propertyShape(item.StacExtensions, k, v))
	}
	for k, v := range item.Extra.All() {
		if item.Properties.Has(k) {
			if o.bestEffort {
				log.Debug().Int("item", idx).Str("key", k).Msg("dropping top-level member shadowed by a property")
				continue
			}
			return rec, mismatch(pointer(row(idx), k), "top-level member collides with a property of the same name")
		}
		v = plainValue(v)
		add(k, RoleExtra, v, ShapeOf(k, v))
	}
	slices.SortFunc(rec.cells, func(a, b cell) int {
		return compareColumns(Column{Name: a.name}, Column{Name: b.name})
	})
	return rec, nil
}

// propertyShape seeds a governed property with its declared type when the
// value agrees with it.
func (o *options) propertyShape(exts []string, key string, v any) Shape {
	if v != nil {
		if spec, ok := o.registry.Governing(exts, key, stac.InProperties); ok {
			if s, ok := seeded(spec); ok && conform(v, s, "") == nil {
				return s
			}
		}
	}
	return ShapeOf(key, v)
}

// seedStruct applies declared asset field types to the shape of the assets
// member.
func (o *options) seedStruct(s Shape, assets map[string]any, exts []string) Shape {
	if len(exts) == 0 {
		return s
	}
	s.Fields = slices.Clone(s.Fields)
	for i, f := range s.Fields {
		asset, ok := assets[f.Name].(map[string]any)
		if !ok {
			continue
		}
		fields := slices.Clone(f.Shape.Fields)
		for j, m := range fields {
			v := asset[m.Name]
			if v == nil {
				continue
			}
			spec, ok := o.registry.Governing(exts, m.Name, stac.InAssets)
			if !ok {
				continue
			}
			if seed, ok := seeded(spec); ok && conform(v, seed, "") == nil {
				fields[j].Shape = seed
			}
		}
		s.Fields[i].Shape.Fields = fields
	}
	return s
}

// itemSchema is the one-row schema of a record.
func itemSchema(rec record, o *options) *Schema {
	s := &Schema{Rows: 1, Native: o.native}
	if rec.geometry == nil {
		s.Geometry.Nullable = true
	} else {
		s.Geometry.Types = []string{stac.GeometryType(rec.geometry)}
		s.Geometry.Layout = rec.geometry.Layout()
	}
	switch len(rec.bbox) {
	case 0:
		s.Bbox.Nullable = true
	case 4:
		s.Bbox.Has2D = true
	case 6:
		s.Bbox.Has3D = true
	}
	s.Columns = make([]Column, len(rec.cells))
	for i, c := range rec.cells {
		s.Columns[i] = Column{Name: c.name, Role: c.role, Shape: c.shape}
	}
	return s
}

// plainValue converts ordered bags into plain maps, recursively.
func plainValue(v any) any {
	switch x := v.(type) {
	case *stac.Fields:
		m := make(map[string]any, x.Len())
		for k, e := range x.All() {
			m[k] = plainValue(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = plainValue(e)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	default:
		return v
	}
}

func mismatch(path string, format string, args ...any) *stac.Error {
	return stac.Errorf(stac.KindSchemaMismatch, path, format, args...)
}

func row(idx int) string {
	return "/" + strconv.Itoa(idx)
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// pointer appends escaped reference tokens to a JSON pointer.
func pointer(base string, tokens ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(t))
	}
	return b.String()
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
