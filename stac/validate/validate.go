// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package validate checks STAC documents against the core JSON-Schemas of
// their version and type and the schemas of every extension they declare.
//
// Schemas and everything they reference are fetched through a SchemaSource,
// so validation never reaches the network unless the source does. A
// Validator caches compiled schemas for its lifetime and deduplicates
// concurrent fetches of the same URI.
package validate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Query-farm/stac-go/stac"
)

// SchemaBase is the host of the core STAC schemas.
const SchemaBase = "https://schemas.stacspec.org"

// CoreSchemaURI returns the core schema URI for a document type and version.
func CoreSchemaURI(t stac.Type, v stac.Version) (string, error) {
	var path string
	switch t {
	case stac.TypeItem:
		path = "item-spec/json-schema/item.json"
	case stac.TypeCatalog:
		path = "catalog-spec/json-schema/catalog.json"
	case stac.TypeCollection:
		path = "collection-spec/json-schema/collection.json"
	default:
		return "", stac.Errorf(stac.KindStructural, "/type", "no core schema for type %q", t)
	}
	return fmt.Sprintf("%s/v%s/%s", SchemaBase, v, path), nil
}

// Option configures a Validator.
type Option func(*Validator)

// WithHook reports every Validate call to hook.
func WithHook(hook stac.Hook) Option {
	return func(v *Validator) { v.hook = hook }
}

// WithWorkers bounds the concurrency of ValidateAll. workers < 1 means
// GOMAXPROCS.
func WithWorkers(workers int) Option {
	return func(v *Validator) { v.workers = workers }
}

// WithoutBboxCheck disables the check that an Item's bbox matches its
// geometry bounds.
func WithoutBboxCheck() Option {
	return func(v *Validator) { v.bboxCheck = false }
}

// Validator validates documents. It is safe for concurrent use.
type Validator struct {
	source    SchemaSource
	hook      stac.Hook
	workers   int
	bboxCheck bool

	group    singleflight.Group
	mu       sync.Mutex
	docs     map[string][]byte
	compiled map[string]*gojsonschema.Schema
}

// New returns a Validator that fetches schemas from source. A nil source
// fetches over HTTP.
func New(source SchemaSource, opts ...Option) *Validator {
	if source == nil {
		source = &HTTPSource{}
	}
	v := &Validator{
		source:    source,
		bboxCheck: true,
		docs:      make(map[string][]byte),
		compiled:  make(map[string]*gojsonschema.Schema),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.workers < 1 {
		v.workers = runtime.GOMAXPROCS(0)
	}
	return v
}

// Validate checks doc against its core schema and the schema of each
// declared extension. Every violation is collected: the result is nil, a
// *stac.ValidationError listing them, or an error fetching or compiling a
// schema.
func (v *Validator) Validate(ctx context.Context, doc stac.Document) error {
	info := stac.OperationInfo{Operation: stac.OperationValidate, Href: doc.Identifier(), Format: "json"}
	return stac.Observe(ctx, v.hook, info, func(ctx context.Context, stats *stac.Statistics) error {
		violations, err := v.violations(ctx, doc)
		if err != nil {
			return err
		}
		stats.RecordDocuments(1)
		if len(violations) == 0 {
			return nil
		}
		return &stac.ValidationError{ID: doc.Identifier(), Violations: violations}
	})
}

func (v *Validator) violations(ctx context.Context, doc stac.Document) ([]stac.Violation, error) {
	core, err := CoreSchemaURI(doc.Type(), doc.StacVersion())
	if err != nil {
		return nil, err
	}
	data, err := stac.Marshal(doc)
	if err != nil {
		return nil, err
	}
	loader := gojsonschema.NewBytesLoader(data)

	var out []stac.Violation
	for _, uri := range append([]string{core}, doc.Extensions()...) {
		schema, err := v.schema(ctx, uri)
		if err != nil {
			return nil, err
		}
		result, err := schema.Validate(loader)
		if err != nil {
			return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("validating against %s: %w", uri, err))
		}
		for _, re := range result.Errors() {
			out = append(out, stac.Violation{
				Path:    jsonPointer(re.Context()),
				Message: re.Description(),
				Schema:  uri,
			})
		}
	}
	if item, ok := doc.(*stac.Item); ok && v.bboxCheck {
		if viol, ok := checkBbox(item); !ok {
			out = append(out, viol)
		}
	}
	return out, nil
}

// ValidateAll validates docs concurrently. The result has one entry per
// document, nil for valid ones.
func (v *Validator) ValidateAll(ctx context.Context, docs []stac.Document) []error {
	errs := make([]error, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = v.Validate(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// ValidateItemCollection validates every feature and merges their
// violations, prefixing paths with /features/<index>.
func (v *Validator) ValidateItemCollection(ctx context.Context, ic *stac.ItemCollection) error {
	docs := make([]stac.Document, len(ic.Items))
	for i, item := range ic.Items {
		docs[i] = item
	}
	merged := &stac.ValidationError{}
	for i, err := range v.ValidateAll(ctx, docs) {
		if err == nil {
			continue
		}
		var verr *stac.ValidationError
		if !errors.As(err, &verr) {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		for _, viol := range verr.Violations {
			viol.Path = fmt.Sprintf("/features/%d%s", i, viol.Path)
			merged.Violations = append(merged.Violations, viol)
		}
	}
	if len(merged.Violations) == 0 {
		return nil
	}
	return merged
}

// schema returns the compiled schema for uri, compiling it at most once.
func (v *Validator) schema(ctx context.Context, uri string) (*gojsonschema.Schema, error) {
	v.mu.Lock()
	s, ok := v.compiled[uri]
	v.mu.Unlock()
	if ok {
		return s, nil
	}
	res, err, _ := v.group.Do("compile:"+uri, func() (any, error) {
		v.mu.Lock()
		s, ok := v.compiled[uri]
		v.mu.Unlock()
		if ok {
			return s, nil
		}
		s, err := v.compile(ctx, uri)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.compiled[uri] = s
		v.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*gojsonschema.Schema), nil
}

// compile fetches uri and, transitively, every schema it references, and
// registers them all with one loader so compilation needs no network.
func (v *Validator) compile(ctx context.Context, uri string) (*gojsonschema.Schema, error) {
	loader := gojsonschema.NewSchemaLoader()
	loader.Draft = gojsonschema.Draft7
	loader.AutoDetect = true

	rootRef := uri
	seen := map[string]bool{uri: true}
	queue := []string{uri}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		data, err := v.fetch(ctx, cur)
		if err != nil {
			return nil, err
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("schema %s: %w", cur, err))
		}
		base := cur
		id := schemaID(doc)
		if id != "" {
			base = id
			if cur == uri {
				rootRef = id
			}
			err = loader.AddSchemas(gojsonschema.NewBytesLoader(data))
		} else {
			err = loader.AddSchema(cur, gojsonschema.NewBytesLoader(data))
		}
		if err != nil {
			return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("schema %s: %w", cur, err))
		}
		for _, ref := range references(doc, base) {
			if !seen[ref] {
				seen[ref] = true
				queue = append(queue, ref)
			}
		}
	}
	log.Debug().Str("uri", uri).Int("documents", len(seen)).Msg("compiling schema")
	s, err := loader.Compile(gojsonschema.NewReferenceLoader(rootRef))
	if err != nil {
		return nil, stac.WrapError(stac.KindParse, "", fmt.Errorf("compiling %s: %w", uri, err))
	}
	return s, nil
}

func (v *Validator) fetch(ctx context.Context, uri string) ([]byte, error) {
	v.mu.Lock()
	data, ok := v.docs[uri]
	v.mu.Unlock()
	if ok {
		return data, nil
	}
	res, err, _ := v.group.Do("fetch:"+uri, func() (any, error) {
		v.mu.Lock()
		data, ok := v.docs[uri]
		v.mu.Unlock()
		if ok {
			return data, nil
		}
		log.Debug().Str("uri", uri).Msg("fetching schema")
		data, err := v.source.FetchSchema(ctx, uri)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.docs[uri] = data
		v.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func schemaID(doc any) string {
	m, ok := doc.(map[string]any)
	if !ok {
		return ""
	}
	for _, k := range []string{"$id", "id"} {
		if s, ok := m[k].(string); ok && strings.Contains(s, "://") {
			return stripFragment(s)
		}
	}
	return ""
}

// references returns the absolute, fragment-free targets of every $ref in
// doc, resolved against base. Metaschema references are skipped; the
// loader knows those.
func references(doc any, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	var out []string
	var walk func(any)
	walk = func(n any) {
		switch x := n.(type) {
		case map[string]any:
			if ref, ok := x["$ref"].(string); ok {
				if u, err := url.Parse(ref); err == nil {
					target := stripFragment(baseURL.ResolveReference(u).String())
					if target != "" && target != base && !strings.Contains(target, "json-schema.org/") && !slices.Contains(out, target) {
						out = append(out, target)
					}
				}
			}
			for k, e := range x {
				if k == "enum" || k == "const" {
					continue
				}
				walk(e)
			}
		case []any:
			for _, e := range x {
				walk(e)
			}
		}
	}
	walk(doc)
	return out
}

func stripFragment(s string) string {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		return s[:i]
	}
	return s
}

// jsonPointer turns a gojsonschema context such as "(root).properties.gsd"
// into "/properties/gsd".
func jsonPointer(ctx *gojsonschema.JsonContext) string {
	if ctx == nil {
		return ""
	}
	return strings.TrimPrefix(ctx.String("/"), "(root)")
}

const bboxTolerance = 1e-9

// checkBbox reports an Item whose bbox disagrees with its geometry bounds.
// Only x and y are compared when either side is 2D.
func checkBbox(item *stac.Item) (stac.Violation, bool) {
	if item.Geometry == nil || item.Bbox == nil {
		return stac.Violation{}, true
	}
	want := stac.BoundingBox(item.Geometry)
	if want == nil {
		return stac.Violation{}, true
	}
	got := item.Bbox
	if len(got) != len(want) {
		got, want = flat(got), flat(want)
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > bboxTolerance {
			return stac.Violation{
				Path:    "/bbox",
				Message: fmt.Sprintf("bbox %v does not match the geometry bounds %v", item.Bbox, stac.BoundingBox(item.Geometry)),
			}, false
		}
	}
	return stac.Violation{}, true
}

// flat drops the z components of a 3D bbox.
func flat(b []float64) []float64 {
	if len(b) == 6 {
		return []float64{b[0], b[1], b[3], b[4]}
	}
	return b
}
