// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"slices"
	"time"

	"github.com/twpayne/go-geom"
)

// DatetimeKeys are the property keys that hold RFC 3339 datetimes.
var DatetimeKeys = []string{
	"datetime", "start_datetime", "end_datetime",
	"created", "updated", "expires", "published", "unpublished",
}

// Item is a GeoJSON Feature describing one spatiotemporal asset collection.
type Item struct {
	Linked
	Version        Version
	StacExtensions []string
	ID             string
	Geometry       geom.T    // nil encodes as "geometry": null
	Bbox           []float64 // 4 or 6 values, nil when absent
	Properties     Fields
	Assets         Assets
	Collection     string
	Extra          Fields // non-standard top-level members
	order          []string
}

var itemMembers = []string{
	"type", "stac_version", "stac_extensions", "id", "geometry", "bbox",
	"properties", "links", "assets", "collection",
}

func (*Item) Type() Type                     { return TypeItem }
func (i *Item) Identifier() string           { return i.ID }
func (i *Item) StacVersion() Version         { return i.Version }
func (i *Item) Extensions() []string         { return i.StacExtensions }
func (i *Item) PropertyBag() *Fields         { return &i.Properties }
func (i *Item) AssetMap() *Assets            { return &i.Assets }
func (i *Item) setVersion(v Version)         { i.Version = v }
func (i *Item) extensionsRef() *[]string     { return &i.StacExtensions }
func (i *Item) clone() Document              { return i.Clone() }
func (i *Item) MarshalJSON() ([]byte, error) { return Marshal(i) }

// UnmarshalJSON parses an Item, failing if the input is another document type.
func (i *Item) UnmarshalJSON(data []byte) error {
	it, err := ParseItem(data)
	if err != nil {
		return err
	}
	*i = *it
	return nil
}

// Datetime returns the parsed "datetime" property.
func (i *Item) Datetime() (time.Time, bool) {
	return i.timeProperty("datetime")
}

// StartDatetime returns the parsed "start_datetime" property.
func (i *Item) StartDatetime() (time.Time, bool) {
	return i.timeProperty("start_datetime")
}

// EndDatetime returns the parsed "end_datetime" property.
func (i *Item) EndDatetime() (time.Time, bool) {
	return i.timeProperty("end_datetime")
}

func (i *Item) timeProperty(key string) (time.Time, bool) {
	s, ok := i.Properties.String(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy.
func (i *Item) Clone() *Item {
	out := &Item{
		Linked:         i.cloneLinks(),
		Version:        i.Version,
		StacExtensions: slices.Clone(i.StacExtensions),
		ID:             i.ID,
		Geometry:       cloneGeometry(i.Geometry),
		Bbox:           slices.Clone(i.Bbox),
		Properties:     i.Properties.Clone(),
		Assets:         i.Assets.clone(),
		Collection:     i.Collection,
		Extra:          i.Extra.Clone(),
		order:          slices.Clone(i.order),
	}
	return out
}

func cloneGeometry(g geom.T) geom.T {
	if g == nil {
		return nil
	}
	data, err := MarshalGeometry(g)
	if err != nil {
		return g
	}
	c, err := UnmarshalGeometry(data)
	if err != nil {
		return g
	}
	return c
}

func (i *Item) object() (*Fields, error) {
	geometry, err := MarshalGeometry(i.Geometry)
	if err != nil {
		return nil, structuralf("/geometry", "%v", err)
	}
	return emit(i.order, []member{
		{"type", string(TypeItem), true},
		{"stac_version", string(i.Version), true},
		{"stac_extensions", stringListOrNil(i.StacExtensions), len(i.StacExtensions) > 0},
		{"id", i.ID, true},
		{"geometry", geometry, true},
		{"bbox", floatList(i.Bbox), i.Bbox != nil},
		{"properties", &i.Properties, true},
		{"links", linksValue(i.Links), true},
		{"assets", i.Assets.value(), true},
		{"collection", i.Collection, i.Collection != ""},
	}, &i.Extra), nil
}

func parseItem(o object) (*Item, error) {
	it := &Item{}
	version, err := parseDocVersion(o)
	if err != nil {
		return nil, err
	}
	it.Version = version
	if it.ID, err = o.nonEmpty("id"); err != nil {
		return nil, err
	}
	gv, ok := o.f.Get("geometry")
	if !ok {
		return nil, missing(o.at("geometry"))
	}
	if it.Geometry, err = parseGeometry(gv, o.at("geometry")); err != nil {
		return nil, err
	}
	props, _, err := o.object("properties", true)
	if err != nil {
		return nil, err
	}
	it.Properties = flattenNested(props)
	if it.StacExtensions, err = parseExtensionList(o); err != nil {
		return nil, err
	}
	if it.Bbox, err = parseBbox(o); err != nil {
		return nil, err
	}
	if it.Links, err = parseLinks(o); err != nil {
		return nil, err
	}
	if it.Assets, err = parseAssets(o); err != nil {
		return nil, err
	}
	if it.Collection, err = o.str("collection", false); err != nil {
		return nil, err
	}
	it.Extra = o.rest(itemMembers)
	it.order = o.order(itemMembers)
	return it, nil
}
