// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Type is the value of a document's "type" member.
type Type string

const (
	TypeCatalog    Type = "Catalog"
	TypeCollection Type = "Collection"
	TypeItem       Type = "Feature"
)

// Document is one of *Catalog, *Collection or *Item. The set is closed.
type Document interface {
	Type() Type
	Identifier() string
	StacVersion() Version
	Extensions() []string

	setVersion(Version)
	extensionsRef() *[]string
	clone() Document
	object() (*Fields, error)
}

// LinkHolder is implemented by every document kind.
type LinkHolder interface {
	LinkList() *[]Link
}

// AssetHolder is implemented by Items and Collections.
type AssetHolder interface {
	AssetMap() *Assets
}

// PropertyHolder exposes the open member bag of a document: Item properties,
// or the extra top-level members of a Catalog or Collection.
type PropertyHolder interface {
	PropertyBag() *Fields
}

var (
	_ Document       = (*Item)(nil)
	_ Document       = (*Catalog)(nil)
	_ Document       = (*Collection)(nil)
	_ AssetHolder    = (*Item)(nil)
	_ AssetHolder    = (*Collection)(nil)
	_ LinkHolder     = (*Catalog)(nil)
	_ PropertyHolder = (*Item)(nil)
	_ PropertyHolder = (*Collection)(nil)
)

// Parse decodes a JSON document. Malformed JSON is a Parse error; a well
// formed document that breaks the data model is a Structural error whose path
// names the first offending member.
func Parse(data []byte) (Document, error) {
	v, err := decodeOrdered(data)
	if err != nil {
		return nil, decodeError(err)
	}
	return ParseValue(v)
}

// ParseValue builds a document from an already decoded JSON value: a
// *Fields, a map[string]any, or any value that marshals to a JSON object.
func ParseValue(v any) (Document, error) {
	f, err := asObject(v)
	if err != nil {
		return nil, err
	}
	o := object{f: f}
	t, err := o.str("type", true)
	if err != nil {
		return nil, err
	}
	var doc Document
	switch Type(t) {
	case TypeItem:
		if err := forbid(o, "extent"); err != nil {
			return nil, err
		}
		doc, err = parseItem(o)
	case TypeCatalog:
		if err := forbid(o, "extent", "license", "geometry", "properties"); err != nil {
			return nil, err
		}
		doc, err = parseCatalog(o)
	case TypeCollection:
		if err := forbid(o, "geometry", "properties"); err != nil {
			return nil, err
		}
		doc, err = parseCollection(o)
	default:
		return nil, structuralf("/type", "unknown document type %q", t)
	}
	if err != nil {
		return nil, err
	}
	if err := DefaultRegistry().Check(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseItem decodes a document that must be an Item.
func ParseItem(data []byte) (*Item, error) {
	return parseAs[*Item](data, TypeItem)
}

// ParseCatalog decodes a document that must be a Catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	return parseAs[*Catalog](data, TypeCatalog)
}

// ParseCollection decodes a document that must be a Collection.
func ParseCollection(data []byte) (*Collection, error) {
	return parseAs[*Collection](data, TypeCollection)
}

func parseAs[T Document](data []byte, want Type) (T, error) {
	var zero T
	doc, err := Parse(data)
	if err != nil {
		return zero, err
	}
	out, ok := doc.(T)
	if !ok {
		return zero, structuralf("/type", "expected %s, got %s", want, doc.Type())
	}
	return out, nil
}

func asObject(v any) (*Fields, error) {
	switch x := v.(type) {
	case *Fields:
		return x, nil
	case Fields:
		return &x, nil
	}
	data, err := MarshalValue(v)
	if err != nil {
		return nil, &Error{Kind: KindParse, Message: "value is not JSON", Err: err}
	}
	d, err := decodeOrdered(data)
	if err != nil {
		return nil, &Error{Kind: KindParse, Message: "value is not JSON", Err: err}
	}
	f, ok := d.(*Fields)
	if !ok {
		return nil, structuralf("", "expected object, got %s", jsonTypeName(d))
	}
	return f, nil
}

// forbid rejects members that belong to another document kind.
func forbid(o object, keys ...string) error {
	t, _ := o.f.String("type")
	for _, k := range keys {
		if o.f.Has(k) {
			return structuralf(o.at(k), "member not allowed on a %s", t)
		}
	}
	return nil
}

func parseDocVersion(o object) (Version, error) {
	s, err := o.str("stac_version", true)
	if err != nil {
		return "", err
	}
	return ParseVersion(s)
}

func parseExtensionList(o object) ([]string, error) {
	exts, err := o.strings("stac_extensions")
	if len(exts) == 0 {
		return nil, err
	}
	return exts, err
}

// Marshal encodes a document as JSON in its received member order, or in
// declared order for documents built in memory.
func Marshal(doc Document) ([]byte, error) {
	f, err := doc.object()
	if err != nil {
		return nil, err
	}
	return appendFields(nil, f)
}

// MarshalIndent is like Marshal but indents the output.
func MarshalIndent(doc Document, prefix, indent string) ([]byte, error) {
	data, err := Marshal(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, prefix, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToFields returns the document as an ordered JSON object.
func ToFields(doc Document) (*Fields, error) {
	return doc.object()
}

// Canonicalize encodes a document with every object's members sorted by
// name. Two documents are equal up to member order when their canonical
// forms are byte-equal.
func Canonicalize(doc Document) ([]byte, error) {
	f, err := doc.object()
	if err != nil {
		return nil, err
	}
	return MarshalValue(plain(f))
}

// Clone returns a deep copy of doc.
func Clone[T Document](doc T) T {
	return doc.clone().(T)
}
