// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
)

const legacyBands = `{"type":"Feature","stac_version":"1.0.0","id":"x","geometry":null,` +
	`"properties":{"datetime":null,"eo:bands":[{"name":"B1"}],"raster:bands":[{"nodata":0}]}}`

func documentScenarios() []Scenario {
	return []Scenario{
		{
			Name:        "parse/missing-stac-version",
			Description: "an Item without stac_version fails naming the first missing field",
			Run: func(context.Context) error {
				_, err := stac.Parse([]byte(`{"type":"Feature","id":"x"}`))
				return expectError(err, stac.KindStructural, "/stac_version")
			},
		},
		{
			Name:        "parse/null-geometry",
			Description: "an explicit null geometry survives a parse and marshal",
			Run: func(context.Context) error {
				item, err := stac.ParseItem([]byte(`{"type":"Feature","stac_version":"1.1.0","id":"x","geometry":null,"properties":{"datetime":null}}`))
				if err != nil {
					return err
				}
				out, err := stac.Marshal(item)
				if err != nil {
					return err
				}
				if !strings.Contains(string(out), `"geometry":null`) {
					return fmt.Errorf("geometry not written as null: %s", out)
				}
				return nil
			},
		},
		{
			Name:        "builder/round-trip",
			Description: "a built Item parses back to the same canonical document",
			Run: func(context.Context) error {
				item, err := stac.NewItemBuilder("scene-1").
					Geometry(geom.NewPointFlat(geom.XY, []float64{-105.1, 40.2})).
					ComputeBbox().
					Datetime(time.Date(2023, 7, 1, 10, 30, 0, 0, time.UTC)).
					Property("count", 3).
					Asset("data", stac.Asset{Href: "data.tif", Type: "image/tiff", Roles: []string{"data"}}).
					Build()
				if err != nil {
					return err
				}
				data, err := stac.Marshal(item)
				if err != nil {
					return err
				}
				parsed, err := stac.Parse(data)
				if err != nil {
					return err
				}
				return sameCanonical(item, parsed)
			},
		},
		{
			Name:        "migrate/merge-bands",
			Description: "eo:bands and raster:bands merge into bands on 1.1.0",
			Run: func(context.Context) error {
				item, err := stac.ParseItem([]byte(legacyBands))
				if err != nil {
					return err
				}
				out, err := stac.Migrate(item, stac.V1_1_0)
				if err != nil {
					return err
				}
				bands, _ := out.Properties.Get("bands")
				if err := same("bands", []any{map[string]any{"name": "B1", "nodata": int64(0)}}, bands); err != nil {
					return err
				}
				for _, key := range []string{"eo:bands", "raster:bands"} {
					if out.Properties.Has(key) {
						return fmt.Errorf("%s left behind", key)
					}
				}
				return nil
			},
		},
		{
			Name:        "migrate/idempotent",
			Description: "migrating a migrated document changes nothing",
			Run: func(context.Context) error {
				item, err := stac.ParseItem([]byte(legacyBands))
				if err != nil {
					return err
				}
				once, err := stac.Migrate(item, stac.LatestVersion)
				if err != nil {
					return err
				}
				twice, err := stac.Migrate(once, stac.LatestVersion)
				if err != nil {
					return err
				}
				return sameCanonical(once, twice)
			},
		},
		{
			Name:        "item-collection/feature-path",
			Description: "errors inside a FeatureCollection carry the feature's path",
			Run: func(context.Context) error {
				_, err := stac.ParseItemCollection([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","stac_version":"1.1.0","id":"a"}]}`))
				return expectError(err, stac.KindStructural, "/features/0/geometry")
			},
		},
	}
}

func expectError(err error, kind stac.ErrorKind, path string) error {
	if err == nil {
		return fmt.Errorf("expected %s error at %s, got success", kind, path)
	}
	var se *stac.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("expected *stac.Error, got %T: %w", err, err)
	}
	if se.Kind != kind || se.Path != path {
		return fmt.Errorf("expected %s at %s, got %s at %s", kind, path, se.Kind, se.Path)
	}
	return nil
}

func sameCanonical(want, got stac.Document) error {
	w, err := stac.Canonicalize(want)
	if err != nil {
		return err
	}
	g, err := stac.Canonicalize(got)
	if err != nil {
		return err
	}
	return same("canonical document", string(w), string(g))
}
