// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// step rewrites a document from one version to the next supported one.
type step struct {
	from, to Version
	apply    func(Document) error
}

var migrationSteps = []step{
	{from: V1_0_0, to: V1_1_0Beta1, apply: unifyBands},
	{from: V1_1_0Beta1, to: V1_1_0, apply: func(Document) error { return nil }},
}

// Migrate returns a copy of doc rewritten to version to, applying each
// intermediate step in order. doc is not modified. Migrating to the current
// version returns an equal copy; migrating backwards is an
// UnsupportedVersion error.
func Migrate[T Document](doc T, to Version) (T, error) {
	var zero T
	from := doc.StacVersion()
	if !from.Supported() {
		return zero, Errorf(KindUnsupportedVersion, "/stac_version", "cannot migrate from %q", from)
	}
	if !to.Supported() {
		return zero, Errorf(KindUnsupportedVersion, "/stac_version", "cannot migrate to %q", to)
	}
	if to.position() < from.position() {
		return zero, Errorf(KindUnsupportedVersion, "/stac_version", "cannot migrate backwards from %s to %s", from, to)
	}
	out := Clone(doc)
	for _, s := range migrationSteps[from.position():to.position()] {
		log.Debug().Str("id", doc.Identifier()).Str("from", string(s.from)).Str("to", string(s.to)).Msg("migrating")
		if err := s.apply(out); err != nil {
			return zero, err
		}
		out.setVersion(s.to)
	}
	return out, nil
}

// MigrateDocument is Migrate for a document of unknown kind.
func MigrateDocument(doc Document, to Version) (Document, error) {
	return Migrate(doc, to)
}

// unifyBands is the 1.0.0 -> 1.1.0 rewrite: eo:bands and raster:bands merge
// into bands, absolute self hrefs become file URLs and the deprecated
// license values become "other".
func unifyBands(doc Document) error {
	if ah, ok := doc.(AssetHolder); ok {
		for key, asset := range ah.AssetMap().All() {
			if err := mergeBands(&asset.Extra, pointer("/assets", key), true); err != nil {
				return err
			}
		}
	}
	if lh, ok := doc.(LinkHolder); ok {
		links := *lh.LinkList()
		for i := range links {
			if links[i].Rel == RelSelf && strings.HasPrefix(links[i].Href, "/") {
				links[i].Href = "file://" + links[i].Href
			}
		}
	}
	switch d := doc.(type) {
	case *Item:
		if err := mergeBands(&d.Properties, "/properties", false); err != nil {
			return err
		}
		rewriteLicense(&d.Properties)
	case *Collection:
		if d.License == "proprietary" || d.License == "various" {
			d.License = "other"
		}
	}
	return nil
}

func rewriteLicense(bag *Fields) {
	if l, ok := bag.String("license"); ok && (l == "proprietary" || l == "various") {
		bag.set("license", "other")
	}
}

// rasterUnprefixed lists the raster band members that keep their unprefixed
// name in the unified band.
var rasterUnprefixed = []string{"nodata", "data_type", "statistics", "unit"}

// mergeBands folds eo:bands and raster:bands of bag pairwise by index into
// bands. The shorter list is padded with empty bands. With hoist, a value
// shared by more than one band moves up to bag.
func mergeBands(bag *Fields, path string, hoist bool) error {
	eo, err := legacyBands(bag, "eo:bands", path)
	if err != nil {
		return err
	}
	raster, err := legacyBands(bag, "raster:bands", path)
	if err != nil {
		return err
	}
	if eo == nil && raster == nil {
		return nil
	}
	bands := make([]*Fields, max(len(eo), len(raster)))
	for i := range bands {
		bands[i] = &Fields{}
	}
	for i, b := range eo {
		for _, k := range sortedKeys(b) {
			if k == "name" {
				bands[i].set(k, b[k])
			} else {
				bands[i].set("eo:"+k, b[k])
			}
		}
	}
	for i, b := range raster {
		for _, k := range sortedKeys(b) {
			if slices.Contains(rasterUnprefixed, k) {
				bands[i].set(k, b[k])
			} else {
				bands[i].set("raster:"+k, b[k])
			}
		}
	}
	bag.Delete("eo:bands")
	bag.Delete("raster:bands")

	if hoist {
		hoistShared(bag, bands)
	}

	nonEmpty := false
	for _, b := range bands {
		if b.Len() > 0 {
			nonEmpty = true
		}
	}
	if !nonEmpty {
		return nil
	}
	arr := make([]any, len(bands))
	for i, b := range bands {
		arr[i] = b.Map()
	}
	bag.set("bands", arr)
	return nil
}

func legacyBands(bag *Fields, key, path string) ([]map[string]any, error) {
	v, ok := bag.Get(key)
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, structuralf(pointer(path, key), "expected array, got %s", jsonTypeName(v))
	}
	out := make([]map[string]any, len(arr))
	for i, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, structuralf(index(pointer(path, key), i), "expected object, got %s", jsonTypeName(e))
		}
		out[i] = m
	}
	return out, nil
}

// hoistShared moves, for each member name, its most frequent value up to bag
// when more than one band carries it. Ties go to the value seen first.
func hoistShared(bag *Fields, bands []*Fields) {
	type tally struct {
		value any
		text  string
		count int
	}
	var keys []string
	counts := make(map[string][]*tally)
	for _, b := range bands {
		for k, v := range b.All() {
			text, err := MarshalValue(v)
			if err != nil {
				continue
			}
			if _, seen := counts[k]; !seen {
				keys = append(keys, k)
			}
			found := false
			for _, t := range counts[k] {
				if t.text == string(text) {
					t.count++
					found = true
					break
				}
			}
			if !found {
				counts[k] = append(counts[k], &tally{value: v, text: string(text), count: 1})
			}
		}
	}
	for _, k := range keys {
		var best *tally
		for _, t := range counts[k] {
			if best == nil || t.count > best.count {
				best = t
			}
		}
		if best.count < 2 {
			continue
		}
		for _, b := range bands {
			v, ok := b.Get(k)
			if !ok {
				continue
			}
			if text, err := MarshalValue(v); err == nil && string(text) == best.text {
				b.Delete(k)
			}
		}
		bag.set(k, best.value)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
