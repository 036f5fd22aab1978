// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package store_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/store"
)

func TestScheme(t *testing.T) {
	cases := map[string]string{
		"items.json":                  "",
		"/tmp/items.json":             "",
		`C://data/items.json`:         "",
		"file:///tmp/items.json":      "file",
		"HTTPS://example.com/a.json":  "https",
		"gs://bucket/items.parquet":   "gs",
		"s3://bucket/key/items.arrow": "s3",
	}
	for href, want := range cases {
		assert.Equal(t, want, store.Scheme(href), href)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs := &store.FileStore{Root: dir}

	require.NoError(t, fs.Write(ctx, "nested/dir/item.json", []byte(`{"a":1}`)))
	data, err := fs.Read(ctx, "nested/dir/item.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	// file:// URLs with absolute paths bypass Root.
	abs := filepath.Join(dir, "nested", "dir", "item.json")
	data, err = fs.Read(ctx, "file://"+abs)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	require.NoError(t, fs.Write(ctx, abs, []byte(`{"a":2}`)))
	data, err = os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(abs))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStoreMissing(t *testing.T) {
	fs := &store.FileStore{Root: t.TempDir()}
	_, err := fs.Read(context.Background(), "absent.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, stac.ErrIo)
}

func TestHTTPStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stac-test", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/item.json":
			_, _ = io.WriteString(w, `{"type":"Feature"}`)
		case "/broken.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	hs := store.NewHTTPStore(store.HTTPConfig{UserAgent: "stac-test"})

	data, err := hs.Read(ctx, srv.URL+"/item.json")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"Feature"}`, string(data))

	_, err = hs.Read(ctx, srv.URL+"/missing.json")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, stac.ErrNetwork)

	_, err = hs.Read(ctx, srv.URL+"/broken.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	err = hs.Write(ctx, srv.URL+"/item.json", nil)
	assert.ErrorIs(t, err, store.ErrReadOnly)
}

// fakeS3 serves path-style GetObject and PutObject requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StoreRead(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"bucket/catalog/item.json": []byte(`{"id":"x"}`),
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := store.NewS3Store(store.S3Config{
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		PathStyle:       true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	ctx := context.Background()

	data, err := s.Read(ctx, "s3://bucket/catalog/item.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"x"}`, string(data))

	_, err = s.Read(ctx, "s3://bucket/catalog/absent.json")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Write(ctx, "s3://bucket/out/item.json", []byte(`{}`)))
	fake.mu.Lock()
	_, ok := fake.objects["bucket/out/item.json"]
	fake.mu.Unlock()
	assert.True(t, ok)
}

func TestBucketHrefsNeedKey(t *testing.T) {
	ctx := context.Background()
	_, err := store.NewS3Store(store.S3Config{}).Read(ctx, "s3://bucket")
	assert.ErrorIs(t, err, stac.ErrIo)
	_, err = store.NewGCSStore(store.GCSConfig{}).Read(ctx, "gs:///key")
	assert.ErrorIs(t, err, stac.ErrIo)
}

func TestRouterDispatch(t *testing.T) {
	r := store.NewRouter(store.Config{})
	for href, want := range map[string]store.Store{
		"items.json":             r.File,
		"file:///tmp/items.json": r.File,
		"https://x/items.json":   r.HTTP,
		"gs://b/k":               r.GCS,
		"s3://b/k":               r.S3,
	} {
		got, err := r.For(href)
		require.NoError(t, err, href)
		assert.Same(t, want, got, href)
	}
	_, err := r.For("ftp://host/file")
	assert.ErrorIs(t, err, stac.ErrIo)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	require.NoError(t, r.Write(context.Background(), path, []byte("{}")))
	data, err := r.Read(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
