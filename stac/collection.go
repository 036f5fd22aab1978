// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"slices"
	"time"
)

// Collection groups Items and carries their shared extent and summaries.
type Collection struct {
	Linked
	Version        Version
	StacExtensions []string
	ID             string
	Title          string
	Description    string
	Keywords       []string
	License        string
	Providers      []Provider
	Extent         Extent
	Summaries      Fields
	Assets         Assets
	ItemAssets     Fields // asset key -> asset preview object
	Extra          Fields
	order          []string
}

var collectionMembers = []string{
	"type", "stac_version", "stac_extensions", "id", "title", "description",
	"keywords", "license", "providers", "extent", "summaries", "links",
	"assets", "item_assets",
}

func (*Collection) Type() Type                     { return TypeCollection }
func (c *Collection) Identifier() string           { return c.ID }
func (c *Collection) StacVersion() Version         { return c.Version }
func (c *Collection) Extensions() []string         { return c.StacExtensions }
func (c *Collection) PropertyBag() *Fields         { return &c.Extra }
func (c *Collection) AssetMap() *Assets            { return &c.Assets }
func (c *Collection) setVersion(v Version)         { c.Version = v }
func (c *Collection) extensionsRef() *[]string     { return &c.StacExtensions }
func (c *Collection) clone() Document              { return c.Clone() }
func (c *Collection) MarshalJSON() ([]byte, error) { return Marshal(c) }

// UnmarshalJSON parses a Collection, failing if the input is another document type.
func (c *Collection) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCollection(data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// Provider is an organization that captures, processes or hosts the data.
type Provider struct {
	Name        string
	Description string
	Roles       []string
	URL         string
	Extra       Fields
}

// Extent is the spatial and temporal coverage of a Collection.
type Extent struct {
	Spatial  SpatialExtent
	Temporal TemporalExtent
}

// SpatialExtent lists bounding boxes. The first box covers all the others.
type SpatialExtent struct {
	Bbox [][]float64
}

// TemporalExtent lists time intervals. A nil end is open.
type TemporalExtent struct {
	Interval [][2]*time.Time
}

// DefaultExtent covers the whole globe with an open interval.
func DefaultExtent() Extent {
	return Extent{
		Spatial:  SpatialExtent{Bbox: [][]float64{{-180, -90, 180, 90}}},
		Temporal: TemporalExtent{Interval: [][2]*time.Time{{nil, nil}}},
	}
}

// Clone returns a deep copy.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		Linked:         c.cloneLinks(),
		Version:        c.Version,
		StacExtensions: slices.Clone(c.StacExtensions),
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		Keywords:       slices.Clone(c.Keywords),
		License:        c.License,
		Extent:         c.Extent.clone(),
		Summaries:      c.Summaries.Clone(),
		Assets:         c.Assets.clone(),
		ItemAssets:     c.ItemAssets.Clone(),
		Extra:          c.Extra.Clone(),
		order:          slices.Clone(c.order),
	}
	if c.Providers != nil {
		out.Providers = make([]Provider, len(c.Providers))
		for i, p := range c.Providers {
			p.Roles = slices.Clone(p.Roles)
			p.Extra = p.Extra.Clone()
			out.Providers[i] = p
		}
	}
	return out
}

func (e Extent) clone() Extent {
	var out Extent
	if e.Spatial.Bbox != nil {
		out.Spatial.Bbox = make([][]float64, len(e.Spatial.Bbox))
		for i, b := range e.Spatial.Bbox {
			out.Spatial.Bbox[i] = slices.Clone(b)
		}
	}
	if e.Temporal.Interval != nil {
		out.Temporal.Interval = make([][2]*time.Time, len(e.Temporal.Interval))
		for i, iv := range e.Temporal.Interval {
			for j, t := range iv {
				if t != nil {
					tt := *t
					out.Temporal.Interval[i][j] = &tt
				}
			}
		}
	}
	return out
}

func (e Extent) value() *Fields {
	bboxes := make([]any, len(e.Spatial.Bbox))
	for i, b := range e.Spatial.Bbox {
		bboxes[i] = floatList(b)
	}
	intervals := make([]any, len(e.Temporal.Interval))
	for i, iv := range e.Temporal.Interval {
		pair := make([]any, 2)
		for j, t := range iv {
			if t != nil {
				pair[j] = formatTime(*t)
			}
		}
		intervals[i] = pair
	}
	spatial, temporal := &Fields{}, &Fields{}
	spatial.set("bbox", bboxes)
	temporal.set("interval", intervals)
	out := &Fields{}
	out.set("spatial", spatial)
	out.set("temporal", temporal)
	return out
}

func (p Provider) value() *Fields {
	return emit(nil, []member{
		{"name", p.Name, true},
		{"description", p.Description, p.Description != ""},
		{"roles", stringListOrNil(p.Roles), p.Roles != nil},
		{"url", p.URL, p.URL != ""},
	}, &p.Extra)
}

func (c *Collection) object() (*Fields, error) {
	var providers []any
	if c.Providers != nil {
		providers = make([]any, len(c.Providers))
		for i, p := range c.Providers {
			providers[i] = p.value()
		}
	}
	return emit(c.order, []member{
		{"type", string(TypeCollection), true},
		{"stac_version", string(c.Version), true},
		{"stac_extensions", stringListOrNil(c.StacExtensions), len(c.StacExtensions) > 0},
		{"id", c.ID, true},
		{"title", c.Title, c.Title != ""},
		{"description", c.Description, true},
		{"keywords", stringListOrNil(c.Keywords), c.Keywords != nil},
		{"license", c.License, true},
		{"providers", providers, c.Providers != nil},
		{"extent", c.Extent.value(), true},
		{"summaries", &c.Summaries, c.Summaries.Len() > 0},
		{"links", linksValue(c.Links), true},
		{"assets", c.Assets.value(), c.Assets.Len() > 0},
		{"item_assets", &c.ItemAssets, c.ItemAssets.Len() > 0},
	}, &c.Extra), nil
}

func parseCollection(o object) (*Collection, error) {
	c := &Collection{}
	var err error
	if c.Version, err = parseDocVersion(o); err != nil {
		return nil, err
	}
	if c.ID, err = o.nonEmpty("id"); err != nil {
		return nil, err
	}
	if c.Description, err = o.nonEmpty("description"); err != nil {
		return nil, err
	}
	if c.License, err = o.nonEmpty("license"); err != nil {
		return nil, err
	}
	ef, _, err := o.object("extent", true)
	if err != nil {
		return nil, err
	}
	if c.Extent, err = parseExtent(object{f: ef, path: o.at("extent")}); err != nil {
		return nil, err
	}
	if c.Title, err = o.str("title", false); err != nil {
		return nil, err
	}
	if c.StacExtensions, err = parseExtensionList(o); err != nil {
		return nil, err
	}
	if c.Keywords, err = o.strings("keywords"); err != nil {
		return nil, err
	}
	if c.Providers, err = parseProviders(o); err != nil {
		return nil, err
	}
	if f, ok, err := o.object("summaries", false); err != nil {
		return nil, err
	} else if ok {
		c.Summaries = flattenNested(f)
	}
	if c.Links, err = parseLinks(o); err != nil {
		return nil, err
	}
	if c.Assets, err = parseAssets(o); err != nil {
		return nil, err
	}
	if f, ok, err := o.object("item_assets", false); err != nil {
		return nil, err
	} else if ok {
		c.ItemAssets = flattenNested(f)
	}
	c.Extra = o.rest(collectionMembers)
	c.order = o.order(collectionMembers)
	return c, nil
}

func parseExtent(o object) (Extent, error) {
	var e Extent
	sf, _, err := o.object("spatial", true)
	if err != nil {
		return e, err
	}
	so := object{f: sf, path: o.at("spatial")}
	boxes, _, err := so.array("bbox", true)
	if err != nil {
		return e, err
	}
	e.Spatial.Bbox = make([][]float64, len(boxes))
	for i, b := range boxes {
		path := index(so.at("bbox"), i)
		arr, ok := b.([]any)
		if !ok {
			return e, structuralf(path, "expected array, got %s", jsonTypeName(b))
		}
		if len(arr) != 4 && len(arr) != 6 {
			return e, structuralf(path, "expected 4 or 6 numbers, got %d", len(arr))
		}
		if e.Spatial.Bbox[i], err = numbers(arr, path); err != nil {
			return e, err
		}
	}

	tf, _, err := o.object("temporal", true)
	if err != nil {
		return e, err
	}
	to := object{f: tf, path: o.at("temporal")}
	intervals, _, err := to.array("interval", true)
	if err != nil {
		return e, err
	}
	e.Temporal.Interval = make([][2]*time.Time, len(intervals))
	for i, iv := range intervals {
		path := index(to.at("interval"), i)
		pair, ok := iv.([]any)
		if !ok || len(pair) != 2 {
			return e, structuralf(path, "expected a two-element array")
		}
		for j, v := range pair {
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return e, structuralf(index(path, j), "expected string or null, got %s", jsonTypeName(v))
			}
			t, err := parseTime(s, index(path, j))
			if err != nil {
				return e, err
			}
			e.Temporal.Interval[i][j] = &t
		}
	}
	return e, nil
}

var providerMembers = []string{"name", "description", "roles", "url"}

func parseProviders(o object) ([]Provider, error) {
	arr, ok, err := o.array("providers", false)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]Provider, len(arr))
	for i, e := range arr {
		path := index(o.at("providers"), i)
		f, ok := e.(*Fields)
		if !ok {
			return nil, structuralf(path, "expected object, got %s", jsonTypeName(e))
		}
		po := object{f: f, path: path}
		p := &out[i]
		if p.Name, err = po.str("name", true); err != nil {
			return nil, err
		}
		if p.Description, err = po.str("description", false); err != nil {
			return nil, err
		}
		if p.Roles, err = po.strings("roles"); err != nil {
			return nil, err
		}
		if p.URL, err = po.str("url", false); err != nil {
			return nil, err
		}
		p.Extra = po.rest(providerMembers)
	}
	return out, nil
}
