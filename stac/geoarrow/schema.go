// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"cmp"
	"slices"
	"strings"

	"github.com/twpayne/go-geom"
)

// Role says where a column's values live in an Item.
type Role uint8

const (
	RoleCore     Role = iota // a standard Item member (id, links, assets, ...)
	RoleProperty             // a member of properties
	RoleExtra                // a non-standard top-level member
)

// Column is one top-level column of a Schema.
type Column struct {
	Name  string
	Role  Role
	Shape Shape
}

// Encoding is the representation of the geometry column.
type Encoding string

const (
	EncodingWKB    Encoding = "WKB"
	EncodingNative Encoding = "native"
)

const layoutMixed geom.Layout = -1

// GeometryShape summarizes the geometries of a set of Items.
type GeometryShape struct {
	Types    []string    // sorted GeoJSON type names seen
	Layout   geom.Layout // shared layout, geom.NoLayout when none seen
	Nullable bool        // some geometry was null
}

// Uniform returns the single geometry type and layout when every non-null
// geometry shares them.
func (g GeometryShape) Uniform() (string, geom.Layout, bool) {
	if len(g.Types) != 1 || g.Layout == layoutMixed || g.Layout == geom.NoLayout {
		return "", geom.NoLayout, false
	}
	return g.Types[0], g.Layout, true
}

func (g GeometryShape) join(o GeometryShape) GeometryShape {
	out := GeometryShape{Nullable: g.Nullable || o.Nullable}
	out.Types = append(slices.Clone(g.Types), o.Types...)
	slices.Sort(out.Types)
	out.Types = slices.Compact(out.Types)
	if len(out.Types) == 0 {
		out.Types = nil
	}
	switch {
	case g.Layout == geom.NoLayout:
		out.Layout = o.Layout
	case o.Layout == geom.NoLayout || g.Layout == o.Layout:
		out.Layout = g.Layout
	default:
		out.Layout = layoutMixed
	}
	return out
}

// BboxShape summarizes the bboxes of a set of Items.
type BboxShape struct {
	Has2D    bool // some bbox had 4 values
	Has3D    bool // some bbox had 6 values
	Nullable bool // some Item had no bbox
}

// Present reports whether any Item had a bbox.
func (b BboxShape) Present() bool {
	return b.Has2D || b.Has3D
}

func (b BboxShape) join(o BboxShape) BboxShape {
	return BboxShape{Has2D: b.Has2D || o.Has2D, Has3D: b.Has3D || o.Has3D, Nullable: b.Nullable || o.Nullable}
}

// Schema is the union shape of a set of Items. Build one with Infer and pass
// it to Encode; merge schemas of disjoint Item sets with Merge.
type Schema struct {
	Rows     int64 // number of Items folded in
	Native   bool  // native geometry columns were requested
	Geometry GeometryShape
	Bbox     BboxShape
	Columns  []Column // core columns first, then by name
}

// Column returns the column named name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Encoding returns the geometry representation the schema encodes with:
// native only when requested and every geometry shares one non-collection
// type and an XY or XYZ layout.
func (s *Schema) Encoding() Encoding {
	if !s.Native {
		return EncodingWKB
	}
	t, layout, ok := s.Geometry.Uniform()
	if !ok || t == "GeometryCollection" || (layout != geom.XY && layout != geom.XYZ) {
		return EncodingWKB
	}
	return EncodingNative
}

// Merge joins two schemas. A schema of zero rows is the identity. Merge is
// commutative and associative, so shards may be folded in any grouping.
func Merge(a, b *Schema) *Schema {
	switch {
	case a == nil || a.Rows == 0:
		out := b.clone()
		out.Native = out.Native || (a != nil && a.Native)
		return out
	case b == nil || b.Rows == 0:
		out := a.clone()
		out.Native = out.Native || (b != nil && b.Native)
		return out
	}
	out := &Schema{
		Rows:     a.Rows + b.Rows,
		Native:   a.Native || b.Native,
		Geometry: a.Geometry.join(b.Geometry),
		Bbox:     a.Bbox.join(b.Bbox),
	}
	i, j := 0, 0
	for i < len(a.Columns) || j < len(b.Columns) {
		switch {
		case j == len(b.Columns) || (i < len(a.Columns) && columnLess(a.Columns[i], b.Columns[j])):
			c := a.Columns[i]
			c.Shape = c.Shape.nullable()
			out.Columns = append(out.Columns, c)
			i++
		case i == len(a.Columns) || columnLess(b.Columns[j], a.Columns[i]):
			c := b.Columns[j]
			c.Shape = c.Shape.nullable()
			out.Columns = append(out.Columns, c)
			j++
		default:
			ca, cb := a.Columns[i], b.Columns[j]
			role := ca.Role
			if cb.Role != role {
				role = RoleProperty
			}
			out.Columns = append(out.Columns, Column{Name: ca.Name, Role: role, Shape: Join(ca.Shape, cb.Shape)})
			i++
			j++
		}
	}
	return out
}

func (s *Schema) clone() *Schema {
	if s == nil {
		return &Schema{}
	}
	out := *s
	out.Geometry.Types = slices.Clone(s.Geometry.Types)
	out.Columns = slices.Clone(s.Columns)
	return &out
}

var coreColumns = []string{
	"type", "stac_version", "stac_extensions", "id", "geometry", "bbox", "links", "assets", "collection",
}

func coreRank(name string) int {
	if i := slices.Index(coreColumns, name); i >= 0 {
		return i
	}
	return len(coreColumns)
}

func columnLess(a, b Column) bool {
	return compareColumns(a, b) < 0
}

func compareColumns(a, b Column) int {
	return cmp.Or(cmp.Compare(coreRank(a.Name), coreRank(b.Name)), strings.Compare(a.Name, b.Name))
}

func sortColumns(cols []Column) {
	slices.SortFunc(cols, compareColumns)
}
