// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stacio_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/geoarrow"
	"github.com/Query-farm/stac-go/stac/stacio"
	"github.com/Query-farm/stac-go/stac/store"
)

func sampleItems(t *testing.T) []*stac.Item {
	t.Helper()
	when := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	var items []*stac.Item
	for i, id := range []string{"a", "b", "c"} {
		item, err := stac.NewItemBuilder(id).
			Geometry(geom.NewPointFlat(geom.XY, []float64{float64(i), float64(i) + 0.5})).
			ComputeBbox().
			Datetime(when.Add(time.Duration(i) * time.Hour)).
			Property("score", float64(10*i)+0.25).
			Asset("data", stac.Asset{Href: "https://example.com/" + id + ".tif"}).
			Build()
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
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

func TestDetect(t *testing.T) {
	cases := []struct {
		href string
		f    stacio.Format
		enc  stacio.Encoding
	}{
		{"item.json", stacio.FormatJSON, stacio.EncodingNone},
		{"/data/items.ndjson.gz", stacio.FormatNDJSON, stacio.EncodingGzip},
		{"items.JSONL.zst", stacio.FormatNDJSON, stacio.EncodingZstd},
		{"s3://bucket/items.parquet", stacio.FormatGeoParquet, stacio.EncodingNone},
		{"https://host/items.geoparquet?sig=abc", stacio.FormatGeoParquet, stacio.EncodingNone},
		{"gs://bucket/batch.arrows", stacio.FormatArrow, stacio.EncodingNone},
	}
	for _, tc := range cases {
		f, enc, err := stacio.Detect(tc.href)
		require.NoError(t, err, tc.href)
		assert.Equal(t, tc.f, f, tc.href)
		assert.Equal(t, tc.enc, enc, tc.href)
	}

	_, _, err := stacio.Detect("items.csv")
	assert.ErrorIs(t, err, stac.ErrIo)
}

func TestParseFormat(t *testing.T) {
	f, err := stacio.ParseFormat("Parquet")
	require.NoError(t, err)
	assert.Equal(t, stacio.FormatGeoParquet, f)
	_, err = stacio.ParseFormat("csv")
	assert.Error(t, err)
}

func TestItemsRoundTripEveryFormat(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	client := stacio.New(nil)
	items := sampleItems(t)
	want := canonical(t, items)

	for _, name := range []string{
		"items.json",
		"items.json.gz",
		"items.ndjson",
		"items.ndjson.zst",
		"items.parquet",
		"items.arrow",
	} {
		t.Run(name, func(t *testing.T) {
			href := filepath.Join(dir, name)
			require.NoError(t, client.WriteItems(ctx, href, items))
			got, err := client.ReadItems(ctx, href)
			require.NoError(t, err)
			assert.Equal(t, want, canonical(t, got))
		})
	}
}

func TestCompressedFilesAreCompressed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	client := stacio.New(nil)
	items := sampleItems(t)

	plain := filepath.Join(dir, "items.ndjson")
	gz := filepath.Join(dir, "items.ndjson.gz")
	require.NoError(t, client.WriteItems(ctx, plain, items))
	require.NoError(t, client.WriteItems(ctx, gz, items))

	raw, err := os.ReadFile(gz)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2])

	text, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(text), "\n"))
}

func TestSingleDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	client := stacio.New(&store.FileStore{Root: dir}, stacio.WithIndent())

	catalog, err := stac.NewCatalogBuilder("root", "Root catalog").Build()
	require.NoError(t, err)
	require.NoError(t, client.Write(ctx, "catalog.json", catalog))

	doc, err := client.Read(ctx, "catalog.json")
	require.NoError(t, err)
	assert.Equal(t, stac.TypeCatalog, doc.Type())

	raw, err := os.ReadFile(filepath.Join(dir, "catalog.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  ")

	// A single Item file reads as a one-item collection.
	item := sampleItems(t)[0]
	require.NoError(t, client.Write(ctx, "item.json", item))
	items, err := client.ReadItems(ctx, "item.json")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)

	_, err = client.Read(ctx, "items.parquet")
	assert.ErrorIs(t, err, stac.ErrIo)

	err = client.Write(ctx, "catalog.parquet", catalog)
	assert.ErrorIs(t, err, stac.ErrIo)
}

func TestFormatOverride(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	client := stacio.New(&store.FileStore{Root: dir}, stacio.WithFormat(stacio.FormatNDJSON))
	items := sampleItems(t)

	require.NoError(t, client.WriteItems(ctx, "items.txt", items))
	got, err := client.ReadItems(ctx, "items.txt")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestNativeGeometryArrow(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	client := stacio.New(&store.FileStore{Root: dir},
		stacio.WithArrowOptions(geoarrow.WithNativeGeometry()),
		stacio.WithIPCCompression(),
	)
	items := sampleItems(t)
	require.NoError(t, client.WriteItems(ctx, "items.arrows", items))
	got, err := client.ReadItems(ctx, "items.arrows")
	require.NoError(t, err)
	assert.Equal(t, canonical(t, items), canonical(t, got))
}

func TestMissingFile(t *testing.T) {
	client := stacio.New(&store.FileStore{Root: t.TempDir()})
	_, err := client.ReadItems(context.Background(), "absent.ndjson")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type recordingHook struct {
	mu    sync.Mutex
	calls []string
	stats []stac.Statistics
}

func (h *recordingHook) OnOperationStart(ctx context.Context, info stac.OperationInfo) (context.Context, stac.HookToken) {
	return ctx, nil
}

func (h *recordingHook) OnOperationEnd(_ context.Context, _ stac.HookToken, info stac.OperationInfo, stats *stac.Statistics, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.calls = append(h.calls, info.Operation+" "+info.Format+" "+status)
	h.stats = append(h.stats, *stats)
}

func TestHooksSeeEveryOperation(t *testing.T) {
	ctx := context.Background()
	hook := &recordingHook{}
	client := stacio.New(&store.FileStore{Root: t.TempDir()}, stacio.WithHook(hook))
	items := sampleItems(t)

	require.NoError(t, client.WriteItems(ctx, "items.parquet", items))
	_, err := client.ReadItems(ctx, "items.parquet")
	require.NoError(t, err)
	_, err = client.ReadItems(ctx, "absent.json")
	require.Error(t, err)

	assert.Equal(t, []string{
		"encode geoparquet ok",
		"write geoparquet ok",
		"decode geoparquet ok",
		"read geoparquet ok",
		"read json error",
	}, hook.calls)
	for i := range 4 {
		assert.Equal(t, int64(3), hook.stats[i].Documents, hook.calls[i])
	}
	assert.Positive(t, hook.stats[3].Bytes)
	assert.Equal(t, hook.stats[1].Bytes, hook.stats[3].Bytes)
}

func TestArrowEncodeRecordsBatch(t *testing.T) {
	ctx := context.Background()
	hook := &recordingHook{}
	client := stacio.New(&store.FileStore{Root: t.TempDir()}, stacio.WithHook(hook))

	require.NoError(t, client.WriteItems(ctx, "items.arrow", sampleItems(t)))
	require.Equal(t, []string{"encode arrow ok", "write arrow ok"}, hook.calls)
	encode := hook.stats[0]
	assert.Equal(t, int64(1), encode.Batches)
	assert.Equal(t, int64(3), encode.Rows)
	assert.Positive(t, encode.Bytes)
}

func TestReadDocuments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	client := stacio.New(&store.FileStore{Root: dir})
	items := sampleItems(t)

	require.NoError(t, client.WriteItems(ctx, "fc.json", items))
	docs, err := client.ReadDocuments(ctx, "fc.json")
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	catalog, err := stac.NewCatalogBuilder("root", "Root catalog").Build()
	require.NoError(t, err)
	require.NoError(t, client.Write(ctx, "catalog.json", catalog))
	docs, err = client.ReadDocuments(ctx, "catalog.json")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, stac.TypeCatalog, docs[0].Type())

	require.NoError(t, client.WriteItems(ctx, "items.ndjson", items))
	docs, err = client.ReadDocuments(ctx, "items.ndjson")
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"),
		[]byte(`{"type":"FeatureCollection","features":[{"type":"Feature"}]}`), 0o644))
	_, err = client.ReadDocuments(ctx, "bad.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/features/0")
}
