// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/stacio"
	"github.com/Query-farm/stac-go/stac/validate"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeItems(t *testing.T, href string, scores ...any) {
	t.Helper()
	when := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	var items []*stac.Item
	for i, score := range scores {
		item, err := stac.NewItemBuilder(string(rune('a' + i))).
			Geometry(geom.NewPointFlat(geom.XY, []float64{float64(i), 1})).
			ComputeBbox().
			Datetime(when).
			Property("score", score).
			Build()
		require.NoError(t, err)
		items = append(items, item)
	}
	require.NoError(t, stacio.New(nil).WriteItems(context.Background(), href, items))
}

func TestTranslateAndSchema(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "items.ndjson")
	out := filepath.Join(dir, "items.parquet")
	writeItems(t, in, 1.5, 2.5, 3.5)

	code, _, stderr := run(t, "translate", in, out, "--compression", "snappy", "--geometry", "native")
	require.Equal(t, 0, code, stderr)

	items, err := stacio.New(nil).ReadItems(context.Background(), out)
	require.NoError(t, err)
	require.Len(t, items, 3)
	v, _ := items[2].Properties.Get("score")
	assert.Equal(t, 3.5, v)

	code, stdout, stderr := run(t, "schema", out)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "score: float")
	assert.Contains(t, stdout, "geometry: ")
}

func TestMigratePrintsResult(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "item.json")
	require.NoError(t, os.WriteFile(in, []byte(`{
		"type": "Feature",
		"stac_version": "1.0.0",
		"id": "legacy",
		"geometry": null,
		"properties": {"datetime": "2020-01-01T00:00:00Z"},
		"links": [],
		"assets": {}
	}`), 0o644))

	code, stdout, stderr := run(t, "migrate", in, "--to", "1.1.0")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"stac_version": "1.1.0"`)

	out := filepath.Join(dir, "migrated.json")
	code, _, stderr = run(t, "migrate", in, out)
	require.Equal(t, 0, code, stderr)
	doc, err := stacio.New(nil).Read(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, stac.LatestVersion, doc.StacVersion())

	code, _, stderr = run(t, "migrate", in, "--to", "9.9.9")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "UnsupportedVersion")
}

// cacheSchema stores schema in dir the way validate.DirCache names entries.
func cacheSchema(t *testing.T, dir, uri, schema string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, url.PathEscape(uri)), []byte(schema), 0o644))
}

func TestValidateReportsViolations(t *testing.T) {
	dir := t.TempDir()
	cache := filepath.Join(dir, "schemas")
	uri, err := validate.CoreSchemaURI(stac.TypeItem, stac.LatestVersion)
	require.NoError(t, err)
	cacheSchema(t, cache, uri, `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["id", "properties"],
		"properties": {
			"properties": {
				"type": "object",
				"properties": {"score": {"type": "number"}}
			}
		}
	}`)

	good := filepath.Join(dir, "good.ndjson")
	writeItems(t, good, 1.0, 2.0)
	code, stdout, stderr := run(t, "validate", "--schema-cache", cache, good)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "valid (2 document(s))")

	bad := filepath.Join(dir, "bad.ndjson")
	writeItems(t, bad, 1.0, "high")
	code, stdout, stderr = run(t, "validate", "--schema-cache", cache, good, bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, bad+"[1]: 1 violation(s)")
	assert.Contains(t, stdout, "/properties/score")
	assert.Contains(t, stderr, "1 of 2 input(s)")
}

func TestBadFlagsAndConfig(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "items.ndjson")
	writeItems(t, in, 1.0)

	code, _, stderr := run(t, "translate", in, filepath.Join(dir, "out.parquet"), "--geometry", "curved")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown geometry encoding")

	t.Setenv("STAC_TRANSLATE_COMPRESSION", "lz77")
	code, _, stderr = run(t, "translate", in, filepath.Join(dir, "out.parquet"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "lz77")

	cfg := filepath.Join(dir, "stac-go.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[translate]\ncompression = \"gzip\"\n"), 0o644))
	code, _, stderr = run(t, "--config", cfg, "translate", in, filepath.Join(dir, "out.parquet"), "--compression", "none")
	assert.Equal(t, 0, code, stderr)

	code, _, stderr = run(t, "--config", filepath.Join(dir, "absent.toml"), "schema", in)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "reading config file")
}

func TestTelemetryExportsSpans(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "items.ndjson")
	writeItems(t, in, 1.0)

	code, _, stderr := run(t, "--telemetry", "translate", "--migrate", in, filepath.Join(dir, "out.arrow"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "stac.operations")
	for _, span := range []string{"stac/read", "stac/migrate", "stac/encode", "stac/write"} {
		assert.Contains(t, stderr, `"Name":"`+span+`"`)
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestMigrateReportsOutputFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "items.ndjson")
	writeItems(t, in, 1.0)
	doc := filepath.Join(dir, "item.json")
	items, err := stacio.New(nil).ReadItems(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, stacio.New(nil).Write(context.Background(), doc, items[0]))

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"migrate", doc}, brokenWriter{}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "pipe closed")
}
