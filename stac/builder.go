// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"errors"
	"slices"
	"time"

	"github.com/twpayne/go-geom"
)

var errBuilt = errors.New("builder already built")

// builder holds the state shared by every document builder: the first
// error seen and whether Build has been called.
type builder struct {
	err   error
	built bool
}

func (b *builder) ok() bool {
	if b.built && b.err == nil {
		b.err = errBuilt
	}
	return b.err == nil
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) freeze() error {
	if b.built {
		return errBuilt
	}
	b.built = true
	return b.err
}

// ItemBuilder assembles an Item. Methods record the first error, which Build
// returns. A builder cannot be reused after Build.
type ItemBuilder struct {
	builder
	item     Item
	autoBbox bool
}

// NewItemBuilder starts an Item with the latest version and a null geometry.
func NewItemBuilder(id string) *ItemBuilder {
	b := &ItemBuilder{item: Item{ID: id, Version: LatestVersion}}
	if id == "" {
		b.fail(structuralf("/id", "must not be empty"))
	}
	return b
}

func (b *ItemBuilder) Version(v Version) *ItemBuilder {
	if b.ok() {
		if !v.Supported() {
			b.fail(Errorf(KindUnsupportedVersion, "/stac_version", "unsupported stac_version %q", v))
		}
		b.item.Version = v
	}
	return b
}

// Geometry sets the geometry. With ComputeBbox, the bbox follows it.
func (b *ItemBuilder) Geometry(g geom.T) *ItemBuilder {
	if b.ok() {
		b.item.Geometry = g
	}
	return b
}

// ComputeBbox derives the bbox from the geometry at Build time.
func (b *ItemBuilder) ComputeBbox() *ItemBuilder {
	b.autoBbox = true
	return b
}

func (b *ItemBuilder) Bbox(bbox ...float64) *ItemBuilder {
	if b.ok() {
		if len(bbox) != 4 && len(bbox) != 6 {
			b.fail(structuralf("/bbox", "expected 4 or 6 numbers, got %d", len(bbox)))
		}
		b.item.Bbox = slices.Clone(bbox)
	}
	return b
}

// Datetime sets the nominal datetime property.
func (b *ItemBuilder) Datetime(t time.Time) *ItemBuilder {
	return b.Property("datetime", formatTime(t))
}

// Interval sets start_datetime and end_datetime and a null datetime.
func (b *ItemBuilder) Interval(start, end time.Time) *ItemBuilder {
	if end.Before(start) {
		b.fail(structuralf("/properties/end_datetime", "end_datetime before start_datetime"))
	}
	return b.Property("datetime", nil).
		Property("start_datetime", formatTime(start)).
		Property("end_datetime", formatTime(end))
}

func (b *ItemBuilder) Property(key string, value any) *ItemBuilder {
	if b.ok() {
		if err := b.item.Properties.Set(key, value); err != nil {
			b.fail(WrapError(KindStructural, pointer("/properties", key), err))
		}
	}
	return b
}

func (b *ItemBuilder) Extension(uri string) *ItemBuilder {
	if b.ok() && !slices.Contains(b.item.StacExtensions, uri) {
		b.item.StacExtensions = append(b.item.StacExtensions, uri)
	}
	return b
}

func (b *ItemBuilder) Link(link Link) *ItemBuilder {
	if b.ok() {
		b.item.AddLink(link)
	}
	return b
}

// Asset adds an asset. A duplicate key makes Build fail.
func (b *ItemBuilder) Asset(key string, asset Asset) *ItemBuilder {
	if b.ok() {
		if err := b.item.Assets.Add(key, asset); err != nil {
			b.fail(err)
		}
	}
	return b
}

func (b *ItemBuilder) Collection(id string) *ItemBuilder {
	if b.ok() {
		b.item.Collection = id
	}
	return b
}

// Build freezes the builder and returns the Item.
func (b *ItemBuilder) Build() (*Item, error) {
	if err := b.freeze(); err != nil {
		return nil, err
	}
	it := b.item.Clone()
	if !it.Properties.Has("datetime") && !it.Properties.Has("start_datetime") {
		it.Properties.set("datetime", nil)
	}
	if b.autoBbox {
		it.Bbox = BoundingBox(it.Geometry)
	}
	if err := DefaultRegistry().Check(it); err != nil {
		return nil, err
	}
	return it, nil
}

// CatalogBuilder assembles a Catalog.
type CatalogBuilder struct {
	builder
	catalog Catalog
}

// NewCatalogBuilder starts a Catalog with the latest version.
func NewCatalogBuilder(id, description string) *CatalogBuilder {
	b := &CatalogBuilder{catalog: Catalog{ID: id, Description: description, Version: LatestVersion}}
	b.fail(checkRequired(id, description))
	return b
}

func (b *CatalogBuilder) Title(title string) *CatalogBuilder {
	if b.ok() {
		b.catalog.Title = title
	}
	return b
}

func (b *CatalogBuilder) Extension(uri string) *CatalogBuilder {
	if b.ok() && !slices.Contains(b.catalog.StacExtensions, uri) {
		b.catalog.StacExtensions = append(b.catalog.StacExtensions, uri)
	}
	return b
}

func (b *CatalogBuilder) Link(link Link) *CatalogBuilder {
	if b.ok() {
		b.catalog.AddLink(link)
	}
	return b
}

// Field sets a non-standard top-level member.
func (b *CatalogBuilder) Field(key string, value any) *CatalogBuilder {
	if b.ok() {
		if slices.Contains(catalogMembers, key) {
			b.fail(structuralf(pointer("", key), "reserved member"))
			return b
		}
		if err := b.catalog.Extra.Set(key, value); err != nil {
			b.fail(WrapError(KindStructural, pointer("", key), err))
		}
	}
	return b
}

// Build freezes the builder and returns the Catalog.
func (b *CatalogBuilder) Build() (*Catalog, error) {
	if err := b.freeze(); err != nil {
		return nil, err
	}
	return b.catalog.Clone(), nil
}

// CollectionBuilder assembles a Collection. The license defaults to "other"
// and the extent to the whole globe with an open interval.
type CollectionBuilder struct {
	builder
	collection Collection
}

// NewCollectionBuilder starts a Collection with the latest version.
func NewCollectionBuilder(id, description string) *CollectionBuilder {
	b := &CollectionBuilder{collection: Collection{
		ID:          id,
		Description: description,
		Version:     LatestVersion,
		License:     "other",
		Extent:      DefaultExtent(),
	}}
	b.fail(checkRequired(id, description))
	return b
}

func (b *CollectionBuilder) Title(title string) *CollectionBuilder {
	if b.ok() {
		b.collection.Title = title
	}
	return b
}

func (b *CollectionBuilder) License(license string) *CollectionBuilder {
	if b.ok() {
		if license == "" {
			b.fail(structuralf("/license", "must not be empty"))
		}
		b.collection.License = license
	}
	return b
}

func (b *CollectionBuilder) Keywords(keywords ...string) *CollectionBuilder {
	if b.ok() {
		b.collection.Keywords = append(b.collection.Keywords, keywords...)
	}
	return b
}

func (b *CollectionBuilder) Provider(p Provider) *CollectionBuilder {
	if b.ok() {
		if p.Name == "" {
			b.fail(structuralf(index("/providers", len(b.collection.Providers))+"/name", "must not be empty"))
		}
		b.collection.Providers = append(b.collection.Providers, p)
	}
	return b
}

func (b *CollectionBuilder) Extent(e Extent) *CollectionBuilder {
	if b.ok() {
		b.collection.Extent = e.clone()
	}
	return b
}

func (b *CollectionBuilder) Summary(key string, value any) *CollectionBuilder {
	if b.ok() {
		if err := b.collection.Summaries.Set(key, value); err != nil {
			b.fail(WrapError(KindStructural, pointer("/summaries", key), err))
		}
	}
	return b
}

func (b *CollectionBuilder) Extension(uri string) *CollectionBuilder {
	if b.ok() && !slices.Contains(b.collection.StacExtensions, uri) {
		b.collection.StacExtensions = append(b.collection.StacExtensions, uri)
	}
	return b
}

func (b *CollectionBuilder) Link(link Link) *CollectionBuilder {
	if b.ok() {
		b.collection.AddLink(link)
	}
	return b
}

// Asset adds a collection-level asset. A duplicate key makes Build fail.
func (b *CollectionBuilder) Asset(key string, asset Asset) *CollectionBuilder {
	if b.ok() {
		if err := b.collection.Assets.Add(key, asset); err != nil {
			b.fail(err)
		}
	}
	return b
}

// Build freezes the builder and returns the Collection.
func (b *CollectionBuilder) Build() (*Collection, error) {
	if err := b.freeze(); err != nil {
		return nil, err
	}
	c := b.collection.Clone()
	if err := DefaultRegistry().Check(c); err != nil {
		return nil, err
	}
	return c, nil
}

func checkRequired(id, description string) error {
	if id == "" {
		return structuralf("/id", "must not be empty")
	}
	if description == "" {
		return structuralf("/description", "must not be empty")
	}
	return nil
}
