// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import "slices"

// Catalog organizes links to other catalogs, collections and items.
type Catalog struct {
	Linked
	Version        Version
	StacExtensions []string
	ID             string
	Title          string
	Description    string
	Extra          Fields
	order          []string
}

var catalogMembers = []string{
	"type", "stac_version", "stac_extensions", "id", "title", "description", "links",
}

func (*Catalog) Type() Type                     { return TypeCatalog }
func (c *Catalog) Identifier() string           { return c.ID }
func (c *Catalog) StacVersion() Version         { return c.Version }
func (c *Catalog) Extensions() []string         { return c.StacExtensions }
func (c *Catalog) PropertyBag() *Fields         { return &c.Extra }
func (c *Catalog) setVersion(v Version)         { c.Version = v }
func (c *Catalog) extensionsRef() *[]string     { return &c.StacExtensions }
func (c *Catalog) clone() Document              { return c.Clone() }
func (c *Catalog) MarshalJSON() ([]byte, error) { return Marshal(c) }

// UnmarshalJSON parses a Catalog, failing if the input is another document type.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	parsed, err := ParseCatalog(data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// Clone returns a deep copy.
func (c *Catalog) Clone() *Catalog {
	return &Catalog{
		Linked:         c.cloneLinks(),
		Version:        c.Version,
		StacExtensions: slices.Clone(c.StacExtensions),
		ID:             c.ID,
		Title:          c.Title,
		Description:    c.Description,
		Extra:          c.Extra.Clone(),
		order:          slices.Clone(c.order),
	}
}

func (c *Catalog) object() (*Fields, error) {
	return emit(c.order, []member{
		{"type", string(TypeCatalog), true},
		{"stac_version", string(c.Version), true},
		{"stac_extensions", stringListOrNil(c.StacExtensions), len(c.StacExtensions) > 0},
		{"id", c.ID, true},
		{"title", c.Title, c.Title != ""},
		{"description", c.Description, true},
		{"links", linksValue(c.Links), true},
	}, &c.Extra), nil
}

func parseCatalog(o object) (*Catalog, error) {
	c := &Catalog{}
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
	if c.Title, err = o.str("title", false); err != nil {
		return nil, err
	}
	if c.StacExtensions, err = parseExtensionList(o); err != nil {
		return nil, err
	}
	if c.Links, err = parseLinks(o); err != nil {
		return nil, err
	}
	c.Extra = o.rest(catalogMembers)
	c.order = o.order(catalogMembers)
	return c, nil
}
