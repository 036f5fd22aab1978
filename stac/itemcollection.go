// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

// ItemCollection is a GeoJSON FeatureCollection of Items.
type ItemCollection struct {
	Linked
	Items []*Item
	Extra Fields
}

const typeFeatureCollection = "FeatureCollection"

var itemCollectionMembers = []string{"type", "features", "links"}

// NewItemCollection wraps items.
func NewItemCollection(items []*Item) *ItemCollection {
	return &ItemCollection{Items: items}
}

// ParseItemCollection decodes a FeatureCollection. Every feature must be a
// valid Item; errors carry the feature's path.
func ParseItemCollection(data []byte) (*ItemCollection, error) {
	v, err := decodeOrdered(data)
	if err != nil {
		return nil, decodeError(err)
	}
	f, ok := v.(*Fields)
	if !ok {
		return nil, structuralf("", "expected object, got %s", jsonTypeName(v))
	}
	o := object{f: f}
	t, err := o.str("type", true)
	if err != nil {
		return nil, err
	}
	if t != typeFeatureCollection {
		return nil, structuralf("/type", "expected %s, got %q", typeFeatureCollection, t)
	}
	features, _, err := o.array("features", true)
	if err != nil {
		return nil, err
	}
	ic := &ItemCollection{Items: make([]*Item, len(features))}
	for i, feature := range features {
		doc, err := ParseValue(feature)
		if err != nil {
			return nil, prefixPath(err, index("/features", i))
		}
		it, ok := doc.(*Item)
		if !ok {
			return nil, structuralf(index("/features", i)+"/type", "expected Feature, got %s", doc.Type())
		}
		ic.Items[i] = it
	}
	if ic.Links, err = parseLinks(o); err != nil {
		return nil, err
	}
	ic.Extra = o.rest(itemCollectionMembers)
	return ic, nil
}

// Marshal encodes the collection as a FeatureCollection.
func (ic *ItemCollection) Marshal() ([]byte, error) {
	features := make([]any, len(ic.Items))
	for i, it := range ic.Items {
		f, err := it.object()
		if err != nil {
			return nil, prefixPath(err, index("/features", i))
		}
		features[i] = f
	}
	f := emit(nil, []member{
		{"type", typeFeatureCollection, true},
		{"features", features, true},
		{"links", linksValue(ic.Links), ic.Links != nil},
	}, &ic.Extra)
	return appendFields(nil, f)
}

func (ic *ItemCollection) MarshalJSON() ([]byte, error) {
	return ic.Marshal()
}

// prefixPath rebases the path of a *Error under prefix.
func prefixPath(err error, prefix string) error {
	if e, ok := err.(*Error); ok {
		c := *e
		c.Path = prefix + c.Path
		return &c
	}
	return err
}
