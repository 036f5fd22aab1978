// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/geoarrow"
	"github.com/Query-farm/stac-go/stac/geoparquet"
	"github.com/Query-farm/stac-go/stac/stacio"
)

func columnarScenarios() []Scenario {
	return []Scenario{
		{
			Name:        "columnar/count-promotion",
			Description: "integer and float values of one property share a float column",
			Run: func(context.Context) error {
				items, err := buildItems(
					stac.NewItemBuilder("a").Property("count", 3),
					stac.NewItemBuilder("b").Property("count", 3.5),
				)
				if err != nil {
					return err
				}
				schema, decoded, err := roundTrip(items)
				if err != nil {
					return err
				}
				col, ok := schema.Column("count")
				if !ok || col.Shape.Kind != geoarrow.KindFloat {
					return fmt.Errorf("count column is %v, want float", col.Shape)
				}
				var got []any
				for _, item := range decoded {
					v, _ := item.Properties.Get("count")
					got = append(got, v)
				}
				return same("decoded counts", []any{3.0, 3.5}, got)
			},
		},
		{
			Name:        "columnar/null-and-point-geometry",
			Description: "a null geometry and a Point share a nullable column and decode distinctly",
			Run: func(context.Context) error {
				items, err := buildItems(
					stac.NewItemBuilder("a"),
					stac.NewItemBuilder("b").Geometry(geom.NewPointFlat(geom.XY, []float64{1, 2})),
				)
				if err != nil {
					return err
				}
				schema, decoded, err := roundTrip(items)
				if err != nil {
					return err
				}
				if !schema.Geometry.Nullable {
					return fmt.Errorf("geometry column is not nullable")
				}
				if decoded[0].Geometry != nil {
					return fmt.Errorf("null geometry decoded as %T", decoded[0].Geometry)
				}
				if decoded[1].Geometry == nil {
					return fmt.Errorf("point geometry decoded as null")
				}
				return same("point coordinates", []float64{1, 2}, decoded[1].Geometry.FlatCoords())
			},
		},
		{
			Name:        "columnar/merge-commutes",
			Description: "merging partial schemas does not depend on order",
			Run: func(context.Context) error {
				items, err := buildItems(
					stac.NewItemBuilder("a").Property("n", 1).Property("tag", "x"),
					stac.NewItemBuilder("b").Property("n", 2.5),
					stac.NewItemBuilder("c").Property("tag", []any{"y"}),
				)
				if err != nil {
					return err
				}
				var parts []*geoarrow.Schema
				for _, item := range items {
					s, err := geoarrow.Infer([]*stac.Item{item})
					if err != nil {
						return err
					}
					parts = append(parts, s)
				}
				a, b, c := parts[0], parts[1], parts[2]
				want := describe(geoarrow.Merge(geoarrow.Merge(a, b), c))
				for _, got := range []*geoarrow.Schema{
					geoarrow.Merge(c, geoarrow.Merge(b, a)),
					geoarrow.Merge(b, geoarrow.Merge(a, c)),
				} {
					if err := same("merged schema", want, describe(got)); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name:        "geoparquet/metadata",
			Description: "written files carry GeoParquet 1.1 metadata with a bbox covering",
			Run: func(ctx context.Context) error {
				items, err := sceneItems(3)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if _, err := geoparquet.WriteItems(ctx, &buf, items); err != nil {
					return err
				}
				geo, rows, err := geoparquet.Metadata(bytes.NewReader(buf.Bytes()))
				if err != nil {
					return err
				}
				if geo == nil {
					return fmt.Errorf("no geo metadata")
				}
				if rows != 3 {
					return fmt.Errorf("%d rows, want 3", rows)
				}
				col := geo.Columns[geo.PrimaryColumn]
				if col.Covering == nil {
					return fmt.Errorf("primary column has no covering")
				}
				return same("geometry encoding", "WKB", col.Encoding)
			},
		},
		{
			Name:        "io/every-format",
			Description: "items survive JSON, NDJSON, GeoParquet and Arrow files, compressed or not",
			Run: func(ctx context.Context) error {
				dir, err := os.MkdirTemp("", "stac-conformance-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(dir)

				items, err := sceneItems(5)
				if err != nil {
					return err
				}
				want, err := canonical(items)
				if err != nil {
					return err
				}
				client := stacio.New(nil)
				for _, name := range []string{"a.json", "a.ndjson.gz", "a.jsonl.zst", "a.parquet", "a.arrows"} {
					href := filepath.Join(dir, name)
					if err := client.WriteItems(ctx, href, items); err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
					back, err := client.ReadItems(ctx, href)
					if err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
					got, err := canonical(back)
					if err != nil {
						return err
					}
					if err := same(name, want, got); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

func buildItems(builders ...*stac.ItemBuilder) ([]*stac.Item, error) {
	items := make([]*stac.Item, len(builders))
	for i, b := range builders {
		item, err := b.Build()
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}

// sceneItems returns n Items with point geometries, datetimes and a
// mixture of property shapes.
func sceneItems(n int) ([]*stac.Item, error) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	builders := make([]*stac.ItemBuilder, n)
	for i := range builders {
		b := stac.NewItemBuilder(fmt.Sprintf("scene-%03d", i)).
			Geometry(geom.NewPointFlat(geom.XY, []float64{float64(i), -float64(i)})).
			ComputeBbox().
			Datetime(start.Add(time.Duration(i) * 24 * time.Hour)).
			Property("platform", "sentinel-2").
			Asset("visual", stac.Asset{Href: fmt.Sprintf("s3://bucket/%d.tif", i), Roles: []string{"visual"}})
		if i%2 == 0 {
			b.Property("quality", map[string]any{"score": float64(i) + 0.5})
		}
		builders[i] = b
	}
	return buildItems(builders...)
}

func roundTrip(items []*stac.Item) (*geoarrow.Schema, []*stac.Item, error) {
	schema, err := geoarrow.Infer(items)
	if err != nil {
		return nil, nil, err
	}
	batch, err := geoarrow.Encode(items, schema)
	if err != nil {
		return nil, nil, err
	}
	defer batch.Release()
	decoded, err := geoarrow.Decode(batch, schema)
	if err != nil {
		return nil, nil, err
	}
	return schema, decoded, nil
}

func describe(s *geoarrow.Schema) string {
	return geoarrow.Describe(geoarrow.ToArrow(s))
}

func canonical(items []*stac.Item) ([]string, error) {
	out := make([]string, len(items))
	for i, item := range items {
		data, err := stac.Canonicalize(item)
		if err != nil {
			return nil, err
		}
		out[i] = string(data)
	}
	return out, nil
}
