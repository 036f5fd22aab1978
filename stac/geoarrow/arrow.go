// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"slices"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	json "github.com/goccy/go-json"
	"github.com/twpayne/go-geom"
)

// Schema and field metadata keys.
const (
	MetaGeo      = "geo"                     // GeoParquet metadata, JSON
	MetaVersion  = "stac-geoparquet:version" // stac-geoparquet layout version
	MetaEncoding = "stac:encoding"           // "json" for columns holding JSON text
	MetaRole     = "stac:role"               // "extra" for non-standard top-level members

	extensionName     = "ARROW:extension:name"
	extensionMetadata = "ARROW:extension:metadata"
)

// Version is the stac-geoparquet layout version written to MetaVersion.
const Version = "1.0.0"

const geoParquetVersion = "1.1.0"

var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

var jsonMetadata = arrow.NewMetadata([]string{MetaEncoding}, []string{"json"})

// GeoMetadata is the GeoParquet "geo" schema metadata.
type GeoMetadata struct {
	Version       string               `json:"version"`
	PrimaryColumn string               `json:"primary_column"`
	Columns       map[string]GeoColumn `json:"columns"`
}

// GeoColumn describes one geometry column.
type GeoColumn struct {
	Encoding      string    `json:"encoding"`
	GeometryTypes []string  `json:"geometry_types"`
	Covering      *Covering `json:"covering,omitempty"`
}

// Covering points at the columns that bound each geometry.
type Covering struct {
	Bbox map[string][]string `json:"bbox"`
}

// ParseGeoMetadata returns the GeoParquet metadata stored in md, if any.
func ParseGeoMetadata(md arrow.Metadata) (*GeoMetadata, bool, error) {
	raw, ok := md.GetValue(MetaGeo)
	if !ok {
		return nil, false, nil
	}
	var g GeoMetadata
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, true, mismatch("", "invalid %q metadata: %v", MetaGeo, err)
	}
	return &g, true, nil
}

func (s *Schema) geoMetadata() GeoMetadata {
	col := GeoColumn{Encoding: string(EncodingWKB), GeometryTypes: []string{}}
	_, layout, uniform := s.Geometry.Uniform()
	for _, t := range s.Geometry.Types {
		if uniform && layout == geom.XYZ {
			t += " Z"
		}
		col.GeometryTypes = append(col.GeometryTypes, t)
	}
	if s.Encoding() == EncodingNative {
		col.Encoding = strings.ToLower(s.Geometry.Types[0])
	}
	if s.Bbox.Present() {
		col.Covering = &Covering{Bbox: map[string][]string{
			"xmin": {"bbox", "xmin"},
			"ymin": {"bbox", "ymin"},
			"xmax": {"bbox", "xmax"},
			"ymax": {"bbox", "ymax"},
		}}
	}
	return GeoMetadata{
		Version:       geoParquetVersion,
		PrimaryColumn: "geometry",
		Columns:       map[string]GeoColumn{"geometry": col},
	}
}

// ToArrow returns the Arrow schema Encode produces for s.
func ToArrow(s *Schema) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(s.Columns)+2)
	fields = append(fields, s.geometryField())
	if s.Bbox.Present() {
		fields = append(fields, bboxField(s.Bbox))
	}
	for _, c := range s.Columns {
		fields = append(fields, columnField(c))
	}
	slices.SortStableFunc(fields, func(a, b arrow.Field) int {
		return compareColumns(Column{Name: a.Name}, Column{Name: b.Name})
	})

	geo, _ := json.Marshal(s.geoMetadata())
	md := arrow.NewMetadata([]string{MetaGeo, MetaVersion}, []string{string(geo), Version})
	return arrow.NewSchema(fields, &md)
}

func (s *Schema) geometryField() arrow.Field {
	var (
		dt  arrow.DataType = arrow.BinaryTypes.Binary
		ext                = "geoarrow.wkb"
	)
	if s.Encoding() == EncodingNative {
		t, layout, _ := s.Geometry.Uniform()
		dt = nativeType(t, layout)
		ext = "geoarrow." + strings.ToLower(t)
	}
	return arrow.Field{
		Name:     "geometry",
		Type:     dt,
		Nullable: s.Geometry.Nullable,
		Metadata: arrow.NewMetadata([]string{extensionName, extensionMetadata}, []string{ext, "{}"}),
	}
}

func coordType(layout geom.Layout) *arrow.StructType {
	fields := []arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Float64},
		{Name: "y", Type: arrow.PrimitiveTypes.Float64},
	}
	if layout == geom.XYZ {
		fields = append(fields, arrow.Field{Name: "z", Type: arrow.PrimitiveTypes.Float64})
	}
	return arrow.StructOf(fields...)
}

var nativeNesting = map[string][]string{
	"Point":           nil,
	"LineString":      {"vertices"},
	"MultiPoint":      {"points"},
	"Polygon":         {"rings", "vertices"},
	"MultiLineString": {"linestrings", "vertices"},
	"MultiPolygon":    {"polygons", "rings", "vertices"},
}

// nativeType is the separated-coordinate GeoArrow type of a geometry type.
func nativeType(t string, layout geom.Layout) arrow.DataType {
	var dt arrow.DataType = coordType(layout)
	names := nativeNesting[t]
	for i := len(names) - 1; i >= 0; i-- {
		dt = arrow.ListOfField(arrow.Field{Name: names[i], Type: dt})
	}
	return dt
}

func bboxField(b BboxShape) arrow.Field {
	f64 := arrow.PrimitiveTypes.Float64
	fields := []arrow.Field{{Name: "xmin", Type: f64}, {Name: "ymin", Type: f64}}
	if b.Has3D {
		fields = append(fields, arrow.Field{Name: "zmin", Type: f64, Nullable: b.Has2D})
	}
	fields = append(fields, arrow.Field{Name: "xmax", Type: f64}, arrow.Field{Name: "ymax", Type: f64})
	if b.Has3D {
		fields = append(fields, arrow.Field{Name: "zmax", Type: f64, Nullable: b.Has2D})
	}
	return arrow.Field{Name: "bbox", Type: arrow.StructOf(fields...), Nullable: b.Nullable}
}

func columnField(c Column) arrow.Field {
	f := shapeField(c.Name, c.Shape)
	if c.Shape.Kind == KindNull && c.Role == RoleProperty && isDatetimeKey(c.Name) {
		f.Type = timestampType
	}
	if c.Role == RoleExtra {
		keys, values := slices.Clone(f.Metadata.Keys()), slices.Clone(f.Metadata.Values())
		f.Metadata = arrow.NewMetadata(append(keys, MetaRole), append(values, "extra"))
	}
	return f
}

// jsonEncoded reports whether values of s are stored as JSON text.
func (s Shape) jsonEncoded() bool {
	return s.Kind == KindMixed || (s.Kind == KindStruct && len(s.Fields) == 0)
}

func shapeField(name string, s Shape) arrow.Field {
	f := arrow.Field{Name: name, Nullable: s.Nullable || s.Kind == KindNull}
	if s.jsonEncoded() {
		f.Type = arrow.BinaryTypes.String
		f.Metadata = jsonMetadata
		return f
	}
	switch s.Kind {
	case KindBool:
		f.Type = arrow.FixedWidthTypes.Boolean
	case KindInt:
		f.Type = arrow.PrimitiveTypes.Int64
	case KindFloat:
		f.Type = arrow.PrimitiveTypes.Float64
	case KindTimestamp:
		f.Type = timestampType
	case KindList:
		f.Type = arrow.ListOfField(shapeField("item", *s.Elem))
	case KindStruct:
		fields := make([]arrow.Field, len(s.Fields))
		for i, m := range s.Fields {
			fields[i] = shapeField(m.Name, m.Shape)
		}
		f.Type = arrow.StructOf(fields...)
	default:
		f.Type = arrow.BinaryTypes.String
	}
	return f
}

// FromArrow recovers a Schema from an Arrow schema written by Encode or by
// another stac-geoparquet writer. Rows is set to 1.
func FromArrow(as *arrow.Schema) (*Schema, error) {
	s := &Schema{Rows: 1}
	geo, _, err := ParseGeoMetadata(as.Metadata())
	if err != nil {
		return nil, err
	}
	sawGeometry := false
	for _, f := range as.Fields() {
		switch f.Name {
		case "geometry":
			if s.Geometry, s.Native, err = geometryFromField(f, geo); err != nil {
				return nil, err
			}
			sawGeometry = true
		case "bbox":
			if s.Bbox, err = bboxFromField(f); err != nil {
				return nil, err
			}
		default:
			shape, err := shapeFromArrow(f.Type, f.Nullable, f.Metadata, "/"+f.Name)
			if err != nil {
				return nil, err
			}
			role := RoleProperty
			if coreRank(f.Name) < len(coreColumns) {
				role = RoleCore
			} else if r, _ := f.Metadata.GetValue(MetaRole); r == "extra" {
				role = RoleExtra
			}
			s.Columns = append(s.Columns, Column{Name: f.Name, Role: role, Shape: shape})
		}
	}
	if !sawGeometry {
		return nil, mismatch("/geometry", "no geometry column")
	}
	sortColumns(s.Columns)
	return s, nil
}

func geometryFromField(f arrow.Field, geo *GeoMetadata) (GeometryShape, bool, error) {
	g := GeometryShape{Nullable: f.Nullable}
	switch f.Type.ID() {
	case arrow.BINARY, arrow.LARGE_BINARY:
		if geo == nil {
			return g, false, nil
		}
		all3D := true
		for _, t := range geo.Columns["geometry"].GeometryTypes {
			base, is3D := strings.CutSuffix(t, " Z")
			all3D = all3D && is3D
			g.Types = append(g.Types, base)
		}
		slices.Sort(g.Types)
		g.Types = slices.Compact(g.Types)
		if len(g.Types) == 1 {
			g.Layout = geom.XY
			if all3D {
				g.Layout = geom.XYZ
			}
		}
		return g, false, nil
	}

	name, _ := f.Metadata.GetValue(extensionName)
	t := ""
	for candidate := range nativeNesting {
		if name == "geoarrow."+strings.ToLower(candidate) {
			t = candidate
		}
	}
	if t == "" {
		return g, false, mismatch("/geometry", "unsupported geometry column type %s", f.Type)
	}
	dt := f.Type
	for range nativeNesting[t] {
		lt, ok := dt.(*arrow.ListType)
		if !ok {
			return g, false, mismatch("/geometry", "%s column is not nested as expected", name)
		}
		dt = lt.Elem()
	}
	st, ok := dt.(*arrow.StructType)
	if !ok {
		return g, false, mismatch("/geometry", "%s coordinates are not a struct", name)
	}
	g.Types = []string{t}
	g.Layout = geom.XY
	if _, ok := st.FieldIdx("z"); ok {
		g.Layout = geom.XYZ
	}
	return g, true, nil
}

func bboxFromField(f arrow.Field) (BboxShape, error) {
	st, ok := f.Type.(*arrow.StructType)
	if !ok {
		return BboxShape{}, mismatch("/bbox", "bbox column is %s, not a struct", f.Type)
	}
	b := BboxShape{Nullable: f.Nullable, Has2D: true}
	if i, ok := st.FieldIdx("zmin"); ok {
		b.Has3D = true
		b.Has2D = st.Field(i).Nullable
	}
	return b, nil
}

func shapeFromArrow(dt arrow.DataType, nullable bool, md arrow.Metadata, path string) (Shape, error) {
	s := Shape{Nullable: nullable}
	if enc, _ := md.GetValue(MetaEncoding); enc == "json" {
		s.Kind = KindMixed
		return s, nil
	}
	switch dt.ID() {
	case arrow.NULL:
		s.Kind = KindNull
		s.Nullable = true
	case arrow.BOOL:
		s.Kind = KindBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		s.Kind = KindInt
	case arrow.FLOAT32, arrow.FLOAT64:
		s.Kind = KindFloat
	case arrow.TIMESTAMP:
		s.Kind = KindTimestamp
	case arrow.STRING, arrow.LARGE_STRING:
		s.Kind = KindString
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		ef := dt.(arrow.ListLikeType).ElemField()
		elem, err := shapeFromArrow(ef.Type, ef.Nullable, ef.Metadata, path+"/*")
		if err != nil {
			return s, err
		}
		s.Kind = KindList
		s.Elem = &elem
	case arrow.STRUCT:
		st := dt.(*arrow.StructType)
		s.Kind = KindStruct
		for _, f := range st.Fields() {
			fs, err := shapeFromArrow(f.Type, f.Nullable, f.Metadata, pointer(path, f.Name))
			if err != nil {
				return s, err
			}
			s.Fields = append(s.Fields, ShapeField{Name: f.Name, Shape: fs})
		}
		slices.SortFunc(s.Fields, func(a, b ShapeField) int { return strings.Compare(a.Name, b.Name) })
	default:
		return s, mismatch(path, "unsupported column type %s", dt)
	}
	return s, nil
}
