// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/stac-go/stac"
)

func testDescriptor() stac.Descriptor {
	return stac.Descriptor{
		URI:    "https://example.com/ext/v1.0.0/schema.json",
		Prefix: "ex",
		Fields: []stac.FieldSpec{
			stac.Field("level", stac.FieldInteger, stac.Required()),
			stac.Field("tags", stac.FieldArray, stac.Of(stac.FieldString), stac.In(stac.InProperties|stac.InAssets)),
		},
	}
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := stac.NewRegistry()
	d := testDescriptor()
	require.NoError(t, r.Register(d))
	require.NoError(t, r.Register(testDescriptor()))

	conflicting := testDescriptor()
	conflicting.Fields[0].Type = stac.FieldString
	err := r.Register(conflicting)
	require.Error(t, err)
	assert.True(t, errors.Is(err, stac.ErrExtensionMismatch))
	assert.Panics(t, func() { r.MustRegister(conflicting) })

	got, ok := r.Resolve(d.URI)
	require.True(t, ok)
	assert.Equal(t, d, got)

	_, ok = r.Resolve("https://example.com/unknown.json")
	assert.False(t, ok)
}

func TestRegisterDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.TraceLevel)
	t.Cleanup(func() { log.Logger = saved })

	r := stac.NewRegistry()
	require.NoError(t, r.Register(testDescriptor()))
	require.NoError(t, r.Register(testDescriptor()))
	assert.Empty(t, buf.String())
}

func TestDefaultRegistryHoldsBuiltins(t *testing.T) {
	r := stac.DefaultRegistry()
	for _, uri := range []string{stac.EOv1_1_0, stac.RasterV1_1_0, stac.ProjectionV2_0_0, stac.FileV2_1_0, stac.ViewV1_0_0, stac.SatV1_0_0} {
		_, ok := r.Resolve(uri)
		assert.True(t, ok, uri)
	}
	spec, ok := r.Governing([]string{"https://unknown", stac.ProjectionV1_1_0}, "proj:epsg", stac.InProperties)
	require.True(t, ok)
	assert.Equal(t, stac.FieldInteger, spec.Type)

	_, ok = r.Governing([]string{stac.ProjectionV2_0_0}, "proj:epsg", stac.InProperties)
	assert.False(t, ok)
}

func TestUnflattenFlatten(t *testing.T) {
	d := testDescriptor()
	var bag stac.Fields
	require.NoError(t, bag.Set("datetime", "2020-01-01T00:00:00Z"))
	require.NoError(t, bag.Set("ex:level", 3))
	require.NoError(t, bag.Set("ex:tags", []string{"a"}))
	require.NoError(t, bag.Set("ex:undeclared", true))

	ext, err := stac.Unflatten(&bag, d)
	require.NoError(t, err)
	assert.Equal(t, []string{"level", "tags"}, ext.Values.Keys())
	assert.Equal(t, []string{"datetime", "ex:undeclared"}, ext.Rest.Keys())

	back := stac.Flatten(ext)
	assert.True(t, back.Equal(&bag))
}

func TestUnflattenRejectsBadBags(t *testing.T) {
	d := testDescriptor()
	var missing stac.Fields
	require.NoError(t, missing.Set("ex:tags", []string{"a"}))
	_, err := stac.Unflatten(&missing, d)
	assert.True(t, errors.Is(err, stac.ErrExtensionMismatch))

	var wrong stac.Fields
	require.NoError(t, wrong.Set("ex:level", 1))
	require.NoError(t, wrong.Set("ex:tags", []any{"a", 2}))
	_, err = stac.Unflatten(&wrong, d)
	require.Error(t, err)
	_, path := kindOf(t, err)
	assert.Equal(t, "/ex:tags/1", path)
}

func TestTypedExtensionAccess(t *testing.T) {
	item := parseItem(t, `{"type":"Feature","stac_version":"1.1.0","stac_extensions":["`+stac.ProjectionV2_0_0+`"],`+
		`"id":"x","geometry":null,"properties":{"proj:code":"EPSG:32614","proj:shape":[100,200],"proj:transform":[30.0,0.0,1.0]}}`)

	proj, err := stac.ExtensionOf[stac.Projection](&item.Properties, "proj")
	require.NoError(t, err)
	require.NotNil(t, proj.Code)
	assert.Equal(t, "EPSG:32614", *proj.Code)
	assert.Equal(t, []int64{100, 200}, proj.Shape)
	assert.Equal(t, []float64{30, 0, 1}, proj.Transform)

	cover := 5.5
	require.NoError(t, stac.SetExtension(&item.Properties, "eo", stac.ElectroOptical{CloudCover: &cover}))
	stac.AddExtension(item, stac.EOv1_1_0)
	v, ok := item.Properties.Get("eo:cloud_cover")
	require.True(t, ok)
	assert.Equal(t, 5.5, v)
	assert.True(t, stac.HasExtension(item, stac.EOv1_0_0))

	stac.AddExtension(item, stac.EOv1_0_0)
	assert.Equal(t, []string{stac.ProjectionV2_0_0, stac.EOv1_0_0}, item.StacExtensions)

	stac.RemoveExtension(&item.Properties, "proj")
	assert.False(t, item.Properties.Has("proj:code"))
}

func TestIdentifierPrefix(t *testing.T) {
	assert.Equal(t, "https://stac-extensions.github.io/raster/", stac.IdentifierPrefix(stac.RasterV1_1_0))
	assert.Equal(t, "https://example.com/x.json", stac.IdentifierPrefix("https://example.com/x.json"))
}
