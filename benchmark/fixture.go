// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package benchmark holds synthetic STAC workloads for the columnar
// benchmarks.
package benchmark

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
)

var platforms = []string{"landsat-8", "landsat-9", "sentinel-2a", "sentinel-2b"}

// Items returns n deterministic Items shaped like a satellite scene
// archive: polygon footprints, datetimes, a handful of scalar properties,
// a sparse nested object and two assets.
func Items(n int) ([]*stac.Item, error) {
	rng := rand.New(rand.NewPCG(uint64(n), 42))
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	items := make([]*stac.Item, n)
	for i := range items {
		x, y := rng.Float64()*360-180, rng.Float64()*170-85
		footprint := geom.NewPolygonFlat(geom.XY, []float64{
			x, y, x + 1, y, x + 1, y + 1, x, y + 1, x, y,
		}, []int{10})

		b := stac.NewItemBuilder(fmt.Sprintf("scene-%07d", i)).
			Geometry(footprint).
			ComputeBbox().
			Datetime(start.Add(time.Duration(i) * time.Minute)).
			Collection("archive").
			Property("platform", platforms[i%len(platforms)]).
			Property("eo:cloud_cover", rng.Float64()*100).
			Property("view:off_nadir", rng.Float64()*10).
			Property("processing_level", i%3).
			Property("tags", []any{"daytime", platforms[i%len(platforms)]}).
			Asset("visual", stac.Asset{Href: fmt.Sprintf("s3://archive/%07d/visual.tif", i), Type: "image/tiff", Roles: []string{"visual"}}).
			Asset("thumbnail", stac.Asset{Href: fmt.Sprintf("s3://archive/%07d/thumb.png", i), Type: "image/png", Roles: []string{"thumbnail"}})
		if i%4 == 0 {
			b.Property("quality", map[string]any{"score": rng.Float64(), "flags": []any{int64(i % 7)}})
		}
		item, err := b.Build()
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}
