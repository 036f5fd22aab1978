// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package validate_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/validate"
)

const itemSchemaURI = "https://schemas.stacspec.org/v1.1.0/item-spec/json-schema/item.json"

var schemas = map[string]string{
	itemSchemaURI: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id": "https://schemas.stacspec.org/v1.1.0/item-spec/json-schema/item.json#",
		"type": "object",
		"required": ["type", "stac_version", "id", "properties"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"properties": {"$ref": "basics.json#"}
		}
	}`,
	// No $id: registered under the URI it was fetched from.
	"https://schemas.stacspec.org/v1.1.0/item-spec/json-schema/basics.json": `{
		"type": "object",
		"required": ["datetime"],
		"properties": {
			"title": {"type": "string"},
			"gsd": {"type": "number", "exclusiveMinimum": 0}
		}
	}`,
	stac.EOv1_1_0: `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id": "https://stac-extensions.github.io/eo/v1.1.0/schema.json#",
		"type": "object",
		"properties": {
			"properties": {
				"type": "object",
				"properties": {
					"eo:cloud_cover": {"$ref": "#/definitions/percent"}
				}
			}
		},
		"definitions": {
			"percent": {"type": "number", "minimum": 0, "maximum": 100}
		}
	}`,
}

// countingSource serves schemas from memory and counts fetches per URI.
type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
}

func (s *countingSource) FetchSchema(_ context.Context, uri string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[uri]++
	doc, ok := schemas[uri]
	if !ok {
		return nil, stac.Errorf(stac.KindNetwork, "", "no schema at %s", uri)
	}
	return []byte(doc), nil
}

func item(t *testing.T, id string, props map[string]any) *stac.Item {
	t.Helper()
	b := stac.NewItemBuilder(id).
		Geometry(geom.NewPointFlat(geom.XY, []float64{1, 2})).
		ComputeBbox()
	for k, v := range props {
		b.Property(k, v)
	}
	it, err := b.Build()
	require.NoError(t, err)
	return it
}

func paths(t *testing.T, err error) []string {
	t.Helper()
	var verr *stac.ValidationError
	require.True(t, errors.As(err, &verr), "expected *stac.ValidationError, got %v", err)
	out := make([]string, len(verr.Violations))
	for i, v := range verr.Violations {
		out[i] = v.Path
	}
	return out
}

func TestValidItem(t *testing.T) {
	v := validate.New(&countingSource{})
	err := v.Validate(context.Background(), item(t, "ok", map[string]any{"title": "fine", "gsd": 10}))
	assert.NoError(t, err)
}

func TestEveryViolationIsReported(t *testing.T) {
	it := item(t, "bad", map[string]any{"title": 5, "gsd": -1, "eo:cloud_cover": 150.0})
	stac.AddExtension(it, stac.EOv1_1_0)

	err := validate.New(&countingSource{}).Validate(context.Background(), it)
	require.Error(t, err)
	assert.True(t, errors.Is(err, stac.ErrValidationFailed))
	assert.ElementsMatch(t, []string{
		"/properties/title",
		"/properties/gsd",
		"/properties/eo:cloud_cover",
	}, paths(t, err))

	var verr *stac.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "bad", verr.ID)
	for _, viol := range verr.Violations {
		if viol.Path == "/properties/eo:cloud_cover" {
			assert.Equal(t, stac.EOv1_1_0, viol.Schema)
		}
	}
}

func TestBboxMustMatchGeometry(t *testing.T) {
	it := item(t, "skewed", nil)
	it.Bbox = []float64{0, 0, 1, 1}
	err := validate.New(&countingSource{}).Validate(context.Background(), it)
	require.Error(t, err)
	assert.Equal(t, []string{"/bbox"}, paths(t, err))

	err = validate.New(&countingSource{}, validate.WithoutBboxCheck()).Validate(context.Background(), it)
	assert.NoError(t, err)

	it.Bbox = []float64{1, 2, 0, 1, 2, 0}
	err = validate.New(&countingSource{}).Validate(context.Background(), it)
	assert.NoError(t, err)
}

func TestSchemasAreFetchedOnce(t *testing.T) {
	src := &countingSource{}
	v := validate.New(src, validate.WithWorkers(8))
	var docs []stac.Document
	for i := range 40 {
		docs = append(docs, item(t, fmt.Sprint("item-", i), map[string]any{"gsd": i + 1}))
	}
	for i, err := range v.ValidateAll(context.Background(), docs) {
		assert.NoError(t, err, i)
	}
	assert.Equal(t, 1, src.calls[itemSchemaURI])
	assert.Equal(t, 1, src.calls["https://schemas.stacspec.org/v1.1.0/item-spec/json-schema/basics.json"])
}

func TestMissingSchemaIsNotAViolation(t *testing.T) {
	it := item(t, "x", nil)
	stac.AddExtension(it, "https://example.com/unknown/v1.0.0/schema.json")
	err := validate.New(&countingSource{}).Validate(context.Background(), it)
	require.Error(t, err)
	assert.True(t, errors.Is(err, stac.ErrNetwork))
	assert.False(t, errors.Is(err, stac.ErrValidationFailed))
}

func TestItemCollectionPrefixesPaths(t *testing.T) {
	ic := stac.NewItemCollection([]*stac.Item{
		item(t, "a", nil),
		item(t, "b", map[string]any{"gsd": 0}),
	})
	err := validate.New(&countingSource{}).ValidateItemCollection(context.Background(), ic)
	require.Error(t, err)
	assert.Equal(t, []string{"/features/1/properties/gsd"}, paths(t, err))
}

func TestHTTPSourceAndDirCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "stac-go-test", r.Header.Get("User-Agent"))
		if r.URL.Path != "/schema.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"type":"object"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cache := &validate.DirCache{Dir: dir, Next: &validate.HTTPSource{Client: srv.Client(), UserAgent: "stac-go-test"}}
	for range 2 {
		data, err := cache.FetchSchema(context.Background(), srv.URL+"/schema.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"object"}`, string(data))
	}
	assert.Equal(t, 1, hits)

	_, err := cache.FetchSchema(context.Background(), srv.URL+"/missing.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, stac.ErrNetwork))
	assert.True(t, strings.Contains(err.Error(), "404"))
}

func TestCoreSchemaURI(t *testing.T) {
	uri, err := validate.CoreSchemaURI(stac.TypeCollection, stac.V1_0_0)
	require.NoError(t, err)
	assert.Equal(t, "https://schemas.stacspec.org/v1.0.0/collection-spec/json-schema/collection.json", uri)
}
