// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// FieldType is the JSON type an extension declares for a field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
	FieldObject  FieldType = "object"
	FieldAny     FieldType = "any"
)

// Location says where an extension field may appear.
type Location uint8

const (
	InProperties Location = 1 << iota // Item properties, Catalog/Collection top level
	InAssets                          // each asset
	InBands                           // each entry of a "bands" array
)

// FieldSpec declares one extension field. Name is unprefixed.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Elem     FieldType // element type for arrays, "" when unconstrained
	Required bool
	Location Location
}

// FieldOption configures a FieldSpec.
type FieldOption func(*FieldSpec)

// Required marks the field as required wherever the extension applies.
func Required() FieldOption {
	return func(f *FieldSpec) { f.Required = true }
}

// In sets the locations the field may appear in.
func In(loc Location) FieldOption {
	return func(f *FieldSpec) { f.Location = loc }
}

// Of sets the element type of an array field.
func Of(elem FieldType) FieldOption {
	return func(f *FieldSpec) { f.Elem = elem }
}

// Field builds a FieldSpec that lives in properties unless told otherwise.
func Field(name string, t FieldType, opts ...FieldOption) FieldSpec {
	f := FieldSpec{Name: name, Type: t, Location: InProperties}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Descriptor is the typed field set of one extension schema URI.
type Descriptor struct {
	URI    string
	Prefix string
	Fields []FieldSpec
}

// Key returns the prefixed member name of field.
func (d Descriptor) Key(field string) string {
	return d.Prefix + ":" + field
}

// Field returns the spec for a prefixed member name.
func (d Descriptor) Field(key string) (FieldSpec, bool) {
	name, ok := strings.CutPrefix(key, d.Prefix+":")
	if !ok {
		return FieldSpec{}, false
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (d Descriptor) equal(o Descriptor) bool {
	return d.URI == o.URI && d.Prefix == o.Prefix && slices.Equal(d.Fields, o.Fields)
}

// IdentifierPrefix returns the part of an extension URI before its version,
// e.g. "https://stac-extensions.github.io/eo/".
func IdentifierPrefix(uri string) string {
	const host = "https://stac-extensions.github.io/"
	rest, ok := strings.CutPrefix(uri, host)
	if !ok {
		return uri
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return host + rest[:i+1]
	}
	return uri
}

// Registry maps extension URIs to descriptors. It is safe for concurrent
// use; the default registry is seeded once and then only read.
type Registry struct {
	mu    sync.RWMutex
	byURI map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byURI: make(map[string]Descriptor)}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry holding the built-in
// extensions. Register additional descriptors before concurrent use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, d := range builtinDescriptors() {
			defaultRegistry.MustRegister(d)
		}
	})
	return defaultRegistry
}

// Register adds d. Registering the same URI again with an identical shape is
// a no-op; a different shape is an ExtensionMismatch error.
func (r *Registry) Register(d Descriptor) error {
	if d.URI == "" || d.Prefix == "" {
		return Errorf(KindExtensionMismatch, "", "descriptor needs a URI and a prefix")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byURI[d.URI]; ok {
		if existing.equal(d) {
			return nil
		}
		return Errorf(KindExtensionMismatch, "", "conflicting registration for %s", d.URI)
	}
	d.Fields = slices.Clone(d.Fields)
	r.byURI[d.URI] = d
	return nil
}

// MustRegister is like Register but panics on conflict.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Resolve returns the descriptor registered for uri.
func (r *Registry) Resolve(uri string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byURI[uri]
	return d, ok
}

// Descriptors returns every registered descriptor sorted by URI.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.byURI))
	for _, d := range r.byURI {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Governing returns the spec of the field that governs key at loc among the
// extensions listed in uris. Unknown URIs are skipped.
func (r *Registry) Governing(uris []string, key string, loc Location) (FieldSpec, bool) {
	for _, uri := range uris {
		d, ok := r.Resolve(uri)
		if !ok {
			continue
		}
		if f, ok := d.Field(key); ok && f.Location&loc != 0 {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Check verifies that every field governed by a known extension the
// document declares agrees with the declared type, and that required fields
// are present. Failures are ExtensionMismatch errors with the member path.
func (r *Registry) Check(doc Document) error {
	for _, uri := range doc.Extensions() {
		d, ok := r.Resolve(uri)
		if !ok {
			continue
		}
		var bagPath string
		if doc.Type() == TypeItem {
			bagPath = "/properties"
		}
		if ph, ok := doc.(PropertyHolder); ok {
			if err := d.check(ph.PropertyBag(), bagPath, InProperties, doc.Type() == TypeItem); err != nil {
				return err
			}
			if err := d.checkBands(ph.PropertyBag(), bagPath); err != nil {
				return err
			}
		}
		if ah, ok := doc.(AssetHolder); ok {
			for key, asset := range ah.AssetMap().All() {
				path := pointer("/assets", key)
				if err := d.check(&asset.Extra, path, InAssets, false); err != nil {
					return err
				}
				if err := d.checkBands(&asset.Extra, path); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d Descriptor) check(bag *Fields, path string, loc Location, requireAll bool) error {
	for _, f := range d.Fields {
		if f.Location&loc == 0 {
			continue
		}
		key := d.Key(f.Name)
		v, ok := bag.Get(key)
		if !ok {
			if f.Required && requireAll {
				return Errorf(KindExtensionMismatch, pointer(path, key), "required by %s", d.URI)
			}
			continue
		}
		if err := f.check(v, pointer(path, key)); err != nil {
			return err
		}
	}
	return nil
}

func (d Descriptor) checkBands(bag *Fields, path string) error {
	v, ok := bag.Get("bands")
	if !ok {
		return nil
	}
	bands, ok := v.([]any)
	if !ok {
		return nil
	}
	for i, b := range bands {
		m, ok := b.(map[string]any)
		if !ok {
			continue
		}
		for _, f := range d.Fields {
			if f.Location&InBands == 0 {
				continue
			}
			key := d.Key(f.Name)
			if v, ok := m[key]; ok {
				if err := f.check(v, pointer(index(pointer(path, "bands"), i), key)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (f FieldSpec) check(v any, path string) error {
	if v == nil || f.Type == FieldAny {
		return nil
	}
	if !typeMatches(f.Type, v) {
		return Errorf(KindExtensionMismatch, path, "expected %s, got %s", f.Type, jsonTypeName(v))
	}
	if f.Type == FieldArray && f.Elem != "" && f.Elem != FieldAny {
		for i, e := range v.([]any) {
			if e != nil && !typeMatches(f.Elem, e) {
				return Errorf(KindExtensionMismatch, index(path, i), "expected %s, got %s", f.Elem, jsonTypeName(e))
			}
		}
	}
	return nil
}

func typeMatches(t FieldType, v any) bool {
	switch t {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldInteger:
		switch n := v.(type) {
		case int64:
			return true
		case float64:
			return n == math.Trunc(n)
		}
		return false
	case FieldNumber:
		switch v.(type) {
		case int64, float64:
			return true
		}
		return false
	case FieldBoolean:
		_, ok := v.(bool)
		return ok
	case FieldArray:
		_, ok := v.([]any)
		return ok
	case FieldObject:
		switch v.(type) {
		case map[string]any, *Fields:
			return true
		}
		return false
	default:
		return true
	}
}

// Extended is a property bag split along one extension: Values holds the
// extension's members without their prefix and Rest everything else.
type Extended struct {
	Descriptor Descriptor
	Values     Fields
	Rest       Fields
}

// Unflatten splits bag into the members owned by d and the rest. Prefixed
// members d does not declare stay in Rest. Missing required fields and type
// disagreements are ExtensionMismatch errors.
func Unflatten(bag *Fields, d Descriptor) (Extended, error) {
	if err := d.check(bag, "", InProperties|InAssets, true); err != nil {
		return Extended{}, err
	}
	ext := Extended{Descriptor: d}
	for k, v := range bag.All() {
		if f, ok := d.Field(k); ok {
			ext.Values.set(f.Name, cloneValue(v))
			continue
		}
		ext.Rest.set(k, cloneValue(v))
	}
	return ext, nil
}

// Flatten is the inverse of Unflatten: Rest first, then the extension
// members under their prefixed names.
func Flatten(ext Extended) Fields {
	out := ext.Rest.Clone()
	for k, v := range ext.Values.All() {
		out.set(ext.Descriptor.Key(k), cloneValue(v))
	}
	return out
}

// ExtensionOf decodes the members of bag carrying prefix into a typed
// struct with JSON tags named without the prefix.
func ExtensionOf[T any](bag *Fields, prefix string) (T, error) {
	var out T
	m := make(map[string]any)
	for k, v := range bag.All() {
		if name, ok := strings.CutPrefix(k, prefix+":"); ok {
			m[name] = v
		}
	}
	data, err := MarshalValue(m)
	if err != nil {
		return out, WrapError(KindExtensionMismatch, "", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &Error{Kind: KindExtensionMismatch, Message: "decoding " + prefix + " fields", Err: err}
	}
	return out, nil
}

// SetExtension replaces every member of bag carrying prefix with the JSON
// members of v, prefixed.
func SetExtension(bag *Fields, prefix string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	decoded, err := decodeOrdered(data)
	if err != nil {
		return err
	}
	obj, ok := decoded.(*Fields)
	if !ok {
		return Errorf(KindExtensionMismatch, "", "%s extension must encode as an object", prefix)
	}
	RemoveExtension(bag, prefix)
	for k, e := range obj.All() {
		bag.set(prefix+":"+k, plain(e))
	}
	return nil
}

// RemoveExtension deletes every member of bag carrying prefix.
func RemoveExtension(bag *Fields, prefix string) {
	for _, k := range bag.Keys() {
		if strings.HasPrefix(k, prefix+":") {
			bag.Delete(k)
		}
	}
}

// HasExtension reports whether doc declares any version of the extension
// identified by uri.
func HasExtension(doc Document, uri string) bool {
	p := IdentifierPrefix(uri)
	for _, e := range doc.Extensions() {
		if strings.HasPrefix(e, p) {
			return true
		}
	}
	return false
}

// AddExtension declares uri on doc, replacing other versions of the same
// extension.
func AddExtension(doc Document, uri string) {
	exts := doc.extensionsRef()
	p := IdentifierPrefix(uri)
	*exts = slices.DeleteFunc(*exts, func(e string) bool { return strings.HasPrefix(e, p) })
	*exts = append(*exts, uri)
}
