// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/geoarrow"
)

func build(t *testing.T, b *stac.ItemBuilder) *stac.Item {
	t.Helper()
	item, err := b.Build()
	require.NoError(t, err)
	return item
}

func parseItem(t *testing.T, doc string) *stac.Item {
	t.Helper()
	item, err := stac.ParseItem([]byte(doc))
	require.NoError(t, err)
	return item
}

func canonical(t *testing.T, items []*stac.Item) []string {
	t.Helper()
	out := make([]string, len(items))
	for i, item := range items {
		data, err := stac.Canonicalize(item)
		require.NoError(t, err)
		out[i] = string(data)
	}
	return out
}

// roundTrip infers, encodes and decodes items.
func roundTrip(t *testing.T, items []*stac.Item, opts ...geoarrow.Option) ([]*stac.Item, *geoarrow.Schema) {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	opts = append(opts, geoarrow.WithAllocator(mem))

	schema, err := geoarrow.Infer(items, opts...)
	require.NoError(t, err)
	batch, err := geoarrow.Encode(items, schema, opts...)
	require.NoError(t, err)
	defer batch.Release()
	require.Equal(t, int64(len(items)), batch.NumRows())

	decoded, err := geoarrow.Decode(batch, schema, opts...)
	require.NoError(t, err)
	return decoded, schema
}

func TestCountPromotesToFloat(t *testing.T) {
	items := []*stac.Item{
		build(t, stac.NewItemBuilder("a").Property("count", 3)),
		build(t, stac.NewItemBuilder("b").Property("count", 3.5)),
	}
	decoded, schema := roundTrip(t, items)

	col, ok := schema.Column("count")
	require.True(t, ok)
	assert.Equal(t, geoarrow.KindFloat, col.Shape.Kind)

	require.Len(t, decoded, 2)
	v, _ := decoded[0].Properties.Get("count")
	assert.Equal(t, 3.0, v)
	v, _ = decoded[1].Properties.Get("count")
	assert.Equal(t, 3.5, v)

	// datetime was null in both and stays an explicit null.
	for _, item := range decoded {
		v, ok := item.Properties.Get("datetime")
		assert.True(t, ok)
		assert.Nil(t, v)
	}
}

func TestExtensionNumberKeepsIntegerKind(t *testing.T) {
	scene := func(id string, cover any) *stac.Item {
		asset := stac.NewAsset(id + ".tif")
		require.NoError(t, asset.Extra.Set("eo:cloud_cover", cover))
		return build(t, stac.NewItemBuilder(id).
			Property("eo:cloud_cover", cover).
			Extension(stac.EOv1_1_0).
			Asset("data", asset))
	}
	items := []*stac.Item{scene("a", 10), scene("b", 20)}
	decoded, schema := roundTrip(t, items)

	col, ok := schema.Column("eo:cloud_cover")
	require.True(t, ok)
	assert.Equal(t, geoarrow.KindInt, col.Shape.Kind)
	assert.Equal(t, canonical(t, items), canonical(t, decoded))

	mixed := []*stac.Item{scene("a", 10), scene("b", 20.5)}
	decoded, schema = roundTrip(t, mixed)
	col, _ = schema.Column("eo:cloud_cover")
	assert.Equal(t, geoarrow.KindFloat, col.Shape.Kind)
	v, _ := decoded[0].Properties.Get("eo:cloud_cover")
	assert.Equal(t, 10.0, v)
}

func TestNullAndPointGeometry(t *testing.T) {
	items := []*stac.Item{
		build(t, stac.NewItemBuilder("a")),
		build(t, stac.NewItemBuilder("b").Geometry(geom.NewPointFlat(geom.XY, []float64{1, 2}))),
	}
	schema, err := geoarrow.Infer(items)
	require.NoError(t, err)
	assert.True(t, schema.Geometry.Nullable)
	assert.Equal(t, geoarrow.EncodingWKB, schema.Encoding())

	batch, err := geoarrow.Encode(items, schema)
	require.NoError(t, err)
	defer batch.Release()
	idx := batch.Schema().FieldIndices("geometry")
	require.Len(t, idx, 1)
	geometry := batch.Column(idx[0])
	assert.True(t, geometry.IsNull(0))
	assert.False(t, geometry.IsNull(1))

	decoded, err := geoarrow.Decode(batch, schema)
	require.NoError(t, err)
	assert.Nil(t, decoded[0].Geometry)
	require.IsType(t, &geom.Point{}, decoded[1].Geometry)
	assert.Equal(t, []float64{1, 2}, decoded[1].Geometry.FlatCoords())
}

func sampleItems(t *testing.T) []*stac.Item {
	t.Helper()
	when := time.Date(2023, 7, 1, 10, 30, 0, 123000, time.UTC)
	polygon := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 2, 0, 2, 2, 0, 2, 0, 0}, []int{10})
	first := build(t, stac.NewItemBuilder("scene-1").
		Geometry(polygon).
		ComputeBbox().
		Datetime(when).
		Property("eo:cloud_cover", 12.5).
		Property("platform", "landsat-8").
		Property("tags", []any{"a", "b"}).
		Property("nested", map[string]any{"k": 1, "name": "x"}).
		Property("bands", []any{
			map[string]any{"name": "B1", "nodata": 0},
			map[string]any{"name": "B2"},
		}).
		Extension(stac.EOv1_1_0).
		Link(stac.NewLink("https://example.com/scene-1.json", stac.RelSelf)).
		Asset("data", stac.Asset{Href: "data.tif", Type: "image/tiff", Roles: []string{"data"}}).
		Asset("thumbnail", stac.Asset{Href: "thumb.png", Title: "Thumbnail"}).
		Collection("landsat"))
	second := parseItem(t, `{"type":"Feature","stac_version":"1.1.0","id":"scene-2",`+
		`"geometry":null,"properties":{"datetime":"2023-07-02T00:00:00Z","created":"2023-07-02T00:00:00.000Z",`+
		`"nested":{"k":2}},"links":[],"assets":{},"custom":"top-level"}`)
	third := parseItem(t, `{"type":"Feature","stac_version":"1.1.0","id":"scene-3",`+
		`"stac_extensions":["`+stac.EOv1_1_0+`"],"bbox":[0,0,0,1,1,1],`+
		`"geometry":{"type":"Point","coordinates":[0.5,0.5,0.5]},`+
		`"properties":{"datetime":null,"eo:cloud_cover":80.25,"platform":"landsat-9","tags":[]},`+
		`"links":[{"href":"../collection.json","rel":"collection","type":"application/json"}],`+
		`"assets":{"data":{"href":"s3://bucket/data.tif","roles":["data","overview"],"eo:cloud_cover":3.5}},`+
		`"collection":"landsat"}`)
	return []*stac.Item{first, second, third}
}

func TestRoundTripPreservesCanonicalForm(t *testing.T) {
	items := sampleItems(t)
	decoded, schema := roundTrip(t, items)
	assert.Equal(t, canonical(t, items), canonical(t, decoded))

	datetime, _ := schema.Column("datetime")
	assert.Equal(t, geoarrow.KindTimestamp, datetime.Shape.Kind)
	created, _ := schema.Column("created")
	assert.Equal(t, geoarrow.KindString, created.Shape.Kind)
	custom, _ := schema.Column("custom")
	assert.Equal(t, geoarrow.RoleExtra, custom.Role)
	assert.True(t, schema.Bbox.Has2D)
	assert.True(t, schema.Bbox.Has3D)

	v, ok := decoded[1].Extra.Get("custom")
	require.True(t, ok)
	assert.Equal(t, "top-level", v)
	assert.False(t, decoded[1].Properties.Has("platform"))
}

func TestArrowSchemaMetadata(t *testing.T) {
	schema, err := geoarrow.Infer(sampleItems(t))
	require.NoError(t, err)
	as := geoarrow.ToArrow(schema)

	v, ok := as.Metadata().GetValue(geoarrow.MetaVersion)
	require.True(t, ok)
	assert.Equal(t, geoarrow.Version, v)

	geo, ok, err := geoarrow.ParseGeoMetadata(as.Metadata())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "geometry", geo.PrimaryColumn)
	assert.Equal(t, []string{"Point", "Polygon"}, geo.Columns["geometry"].GeometryTypes)

	names := make([]string, 0, as.NumFields())
	for _, f := range as.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"type", "stac_version", "stac_extensions", "id", "geometry", "bbox", "links", "assets", "collection",
		"bands", "created", "custom", "datetime", "eo:cloud_cover", "nested", "platform", "tags",
	}, names)

	back, err := geoarrow.FromArrow(as)
	require.NoError(t, err)
	for _, c := range schema.Columns {
		got, ok := back.Column(c.Name)
		require.True(t, ok, c.Name)
		assert.Equal(t, c.Role, got.Role, c.Name)
		assert.True(t, c.Shape.Equal(got.Shape), "%s: %s vs %s", c.Name, c.Shape, got.Shape)
	}

	desc := geoarrow.Describe(as)
	assert.Contains(t, desc, "geometry: geoarrow.wkb (nullable)\n")
	assert.Contains(t, desc, "eo:cloud_cover: float (nullable)\n")
	assert.Contains(t, desc, "id: string\n")
}

func TestMixedColumnIsJSON(t *testing.T) {
	items := []*stac.Item{
		build(t, stac.NewItemBuilder("a").Property("value", "text")),
		build(t, stac.NewItemBuilder("b").Property("value", map[string]any{"x": 1})),
		build(t, stac.NewItemBuilder("c").Property("value", []any{1, "two"})),
	}
	decoded, schema := roundTrip(t, items)
	col, _ := schema.Column("value")
	assert.Equal(t, geoarrow.KindMixed, col.Shape.Kind)
	f := geoarrow.ToArrow(schema).Fields()
	for _, field := range f {
		if field.Name == "value" {
			enc, _ := field.Metadata.GetValue(geoarrow.MetaEncoding)
			assert.Equal(t, "json", enc)
		}
	}
	assert.Equal(t, canonical(t, items), canonical(t, decoded))
}

func TestEncodeMismatchNamesItemAndKey(t *testing.T) {
	schema, err := geoarrow.Infer([]*stac.Item{
		build(t, stac.NewItemBuilder("a").Property("count", 1)),
		build(t, stac.NewItemBuilder("b")),
	})
	require.NoError(t, err)

	ok := build(t, stac.NewItemBuilder("ok").Property("count", 2))
	for _, tc := range []struct {
		item *stac.Item
		path string
	}{
		{build(t, stac.NewItemBuilder("c").Property("count", "three")), "/1/count"},
		{build(t, stac.NewItemBuilder("d").Property("other", true)), "/1/other"},
		{build(t, stac.NewItemBuilder("e").Bbox(0, 0, 1, 1)), "/1/bbox"},
	} {
		_, err := geoarrow.Encode([]*stac.Item{ok, tc.item}, schema)
		require.Error(t, err, tc.path)
		assert.True(t, errors.Is(err, stac.ErrSchemaMismatch), "%v", err)
		var se *stac.Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tc.path, se.Path)
	}
}

func TestBestEffortNullsAndDrops(t *testing.T) {
	schema, err := geoarrow.Infer([]*stac.Item{
		build(t, stac.NewItemBuilder("a").Property("count", 1)),
		build(t, stac.NewItemBuilder("b")),
	})
	require.NoError(t, err)

	bad := build(t, stac.NewItemBuilder("c").Property("count", "three").Property("other", true))
	batch, err := geoarrow.Encode([]*stac.Item{bad}, schema, geoarrow.WithBestEffort())
	require.NoError(t, err)
	defer batch.Release()

	decoded, err := geoarrow.Decode(batch, schema)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "c", decoded[0].ID)
	assert.False(t, decoded[0].Properties.Has("count"))
	assert.False(t, decoded[0].Properties.Has("other"))
}

func TestReservedPropertyName(t *testing.T) {
	item := parseItem(t, `{"type":"Feature","stac_version":"1.1.0","id":"x","geometry":null,`+
		`"properties":{"datetime":null,"links":"oops"}}`)
	_, err := geoarrow.Infer([]*stac.Item{item})
	require.Error(t, err)
	assert.True(t, errors.Is(err, stac.ErrSchemaMismatch))

	schema, err := geoarrow.Infer([]*stac.Item{item}, geoarrow.WithBestEffort())
	require.NoError(t, err)
	_, ok := schema.Column("links")
	assert.False(t, ok)
}

func TestNativeGeometry(t *testing.T) {
	points := []*stac.Item{
		build(t, stac.NewItemBuilder("a").Geometry(geom.NewPointFlat(geom.XYZ, []float64{1, 2, 3}))),
		build(t, stac.NewItemBuilder("b").Geometry(geom.NewPointFlat(geom.XYZ, []float64{4, 5, 6}))),
		build(t, stac.NewItemBuilder("c")),
	}
	decoded, schema := roundTrip(t, points, geoarrow.WithNativeGeometry())
	assert.Equal(t, geoarrow.EncodingNative, schema.Encoding())
	assert.Equal(t, canonical(t, points), canonical(t, decoded))

	as := geoarrow.ToArrow(schema)
	idx := as.FieldIndices("geometry")
	require.Len(t, idx, 1)
	name, _ := as.Field(idx[0]).Metadata.GetValue("ARROW:extension:name")
	assert.Equal(t, "geoarrow.point", name)
	assert.Equal(t, arrow.STRUCT, as.Field(idx[0]).Type.ID())

	polygons := []*stac.Item{
		build(t, stac.NewItemBuilder("p").Geometry(
			geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0, 0.2, 0.2, 0.4, 0.2, 0.4, 0.4, 0.2, 0.2}, []int{8, 16}))),
		build(t, stac.NewItemBuilder("q").Geometry(
			geom.NewMultiPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, [][]int{{8}}))),
	}
	schema, err := geoarrow.Infer(polygons, geoarrow.WithNativeGeometry())
	require.NoError(t, err)
	assert.Equal(t, geoarrow.EncodingWKB, schema.Encoding())

	decoded, schema = roundTrip(t, polygons[:1], geoarrow.WithNativeGeometry())
	assert.Equal(t, geoarrow.EncodingNative, schema.Encoding())
	assert.Equal(t, canonical(t, polygons[:1]), canonical(t, decoded))
}

func TestIPCRoundTrip(t *testing.T) {
	items := sampleItems(t)
	var buf bytes.Buffer
	_, err := geoarrow.WriteItemsIPC(&buf, items)
	require.NoError(t, err)

	var decoded []*stac.Item
	for item, err := range geoarrow.IPCItems(bytes.NewReader(buf.Bytes())) {
		require.NoError(t, err)
		decoded = append(decoded, item)
	}
	assert.Equal(t, canonical(t, items), canonical(t, decoded))

	schema, batches, err := geoarrow.ReadIPC(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	assert.Len(t, batches, 1)
	_, ok := schema.Metadata().GetValue(geoarrow.MetaGeo)
	assert.True(t, ok)
}

func TestParallelMatchesSequential(t *testing.T) {
	var items []*stac.Item
	for i := range 25 {
		b := stac.NewItemBuilder(fmt.Sprintf("item-%02d", i)).
			Geometry(geom.NewPointFlat(geom.XY, []float64{float64(i), float64(-i)})).
			ComputeBbox().
			Datetime(time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC))
		if i%3 == 0 {
			b.Property("score", i)
		}
		if i%4 == 0 {
			b.Property("score", float64(i)+0.5)
		}
		if i%5 == 0 {
			b.Property("label", fmt.Sprint("l", i))
		}
		items = append(items, build(t, b))
	}

	ctx := context.Background()
	seq, err := geoarrow.Infer(items)
	require.NoError(t, err)
	par, err := geoarrow.InferParallel(ctx, items, 4)
	require.NoError(t, err)
	assert.Equal(t, seq, par)

	batches, err := geoarrow.EncodeParallel(ctx, items, par, 4)
	require.NoError(t, err)
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	assert.Len(t, batches, 4)
	decoded, err := geoarrow.Concat(batches)
	require.NoError(t, err)
	require.Len(t, decoded, len(items))
	for i := range items {
		assert.Equal(t, items[i].ID, decoded[i].ID)
	}
}

func TestEncodeParallelReportsGlobalIndex(t *testing.T) {
	var items []*stac.Item
	for i := range 8 {
		items = append(items, build(t, stac.NewItemBuilder(fmt.Sprint(i)).Property("n", i)))
	}
	schema, err := geoarrow.Infer(items)
	require.NoError(t, err)
	items[6] = build(t, stac.NewItemBuilder("6").Property("n", "six"))

	_, err = geoarrow.EncodeParallel(context.Background(), items, schema, 3)
	require.Error(t, err)
	var se *stac.Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "/6/n", se.Path)
}
