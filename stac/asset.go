// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"iter"
	"slices"
)

// Asset is a resource attached to an Item or a Collection. Extension members
// (eo:bands, file:size, bands, ...) live in Extra under their prefixed names.
type Asset struct {
	Href        string
	Title       string
	Description string
	Type        string
	Roles       []string
	Extra       Fields
	order       []string
}

var assetMembers = []string{"href", "title", "description", "type", "roles"}

// NewAsset creates an asset pointing at href.
func NewAsset(href string) Asset {
	return Asset{Href: href}
}

// HasRole reports whether the asset carries role.
func (a *Asset) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// PropertyBag returns the extension members of the asset.
func (a *Asset) PropertyBag() *Fields {
	return &a.Extra
}

// Object returns the asset as an ordered JSON object.
func (a *Asset) Object() *Fields {
	m := []member{
		{"href", a.Href, true},
		{"title", a.Title, a.Title != ""},
		{"description", a.Description, a.Description != ""},
		{"type", a.Type, a.Type != ""},
		{"roles", stringListOrNil(a.Roles), a.Roles != nil},
	}
	return emit(a.order, m, &a.Extra)
}

func (a *Asset) clone() *Asset {
	out := *a
	out.Roles = slices.Clone(a.Roles)
	out.Extra = a.Extra.Clone()
	out.order = slices.Clone(a.order)
	return &out
}

func stringListOrNil(ss []string) any {
	if ss == nil {
		return nil
	}
	return stringList(ss)
}

// ParseAsset builds an asset from a decoded JSON object.
func ParseAsset(f *Fields, path string) (*Asset, error) {
	o := object{f: f, path: path}
	a := &Asset{}
	var err error
	if a.Href, err = o.str("href", true); err != nil {
		return nil, err
	}
	if a.Title, err = o.str("title", false); err != nil {
		return nil, err
	}
	if a.Description, err = o.str("description", false); err != nil {
		return nil, err
	}
	if a.Type, err = o.str("type", false); err != nil {
		return nil, err
	}
	if a.Roles, err = o.strings("roles"); err != nil {
		return nil, err
	}
	a.Extra = o.rest(assetMembers)
	a.order = o.order(assetMembers)
	return a, nil
}

// Assets is an insertion-ordered map of asset key to Asset. The zero value
// is empty and ready to use.
type Assets struct {
	keys  []string
	items map[string]*Asset
}

// Add inserts an asset. Adding a key that already exists is a Structural
// error; assets are never silently replaced.
func (a *Assets) Add(key string, asset Asset) error {
	if _, ok := a.items[key]; ok {
		return structuralf(pointer("/assets", key), "duplicate asset key")
	}
	a.put(key, &asset)
	return nil
}

// Replace stores asset under an existing or new key.
func (a *Assets) Replace(key string, asset Asset) {
	a.put(key, &asset)
}

func (a *Assets) put(key string, asset *Asset) {
	if a.items == nil {
		a.items = make(map[string]*Asset)
	}
	if _, ok := a.items[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.items[key] = asset
}

// Get returns the asset stored under key. The returned pointer may be used to
// edit the asset in place.
func (a *Assets) Get(key string) (*Asset, bool) {
	if a == nil || a.items == nil {
		return nil, false
	}
	asset, ok := a.items[key]
	return asset, ok
}

// Remove deletes the asset stored under key.
func (a *Assets) Remove(key string) bool {
	if _, ok := a.Get(key); !ok {
		return false
	}
	delete(a.items, key)
	a.keys = slices.DeleteFunc(a.keys, func(k string) bool { return k == key })
	if len(a.keys) == 0 {
		a.keys = nil
		a.items = nil
	}
	return true
}

// Len returns the number of assets.
func (a *Assets) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Keys returns asset keys in insertion order.
func (a *Assets) Keys() []string {
	if a == nil {
		return nil
	}
	return slices.Clone(a.keys)
}

// All iterates assets in insertion order.
func (a *Assets) All() iter.Seq2[string, *Asset] {
	return func(yield func(string, *Asset) bool) {
		if a == nil {
			return
		}
		for _, k := range a.keys {
			if !yield(k, a.items[k]) {
				return
			}
		}
	}
}

func (a *Assets) clone() Assets {
	var out Assets
	for k, asset := range a.All() {
		out.put(k, asset.clone())
	}
	return out
}

func (a *Assets) value() *Fields {
	out := &Fields{}
	for k, asset := range a.All() {
		out.set(k, asset.Object())
	}
	return out
}

func parseAssets(o object) (Assets, error) {
	var assets Assets
	f, ok, err := o.object("assets", false)
	if err != nil || !ok {
		return assets, err
	}
	for k, v := range f.All() {
		path := pointer(o.at("assets"), k)
		af, ok := v.(*Fields)
		if !ok {
			return Assets{}, structuralf(path, "expected object, got %s", jsonTypeName(v))
		}
		asset, err := ParseAsset(af, path)
		if err != nil {
			return Assets{}, err
		}
		if _, dup := assets.Get(k); dup {
			return Assets{}, structuralf(path, "duplicate asset key")
		}
		assets.put(k, asset)
	}
	return assets, nil
}
