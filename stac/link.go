// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"cmp"
	"slices"
	"strings"
)

// Common link relation types.
const (
	RelSelf       = "self"
	RelRoot       = "root"
	RelParent     = "parent"
	RelChild      = "child"
	RelItem       = "item"
	RelCollection = "collection"
)

// Link is a typed reference to another document or resource.
type Link struct {
	Href    string
	Rel     string
	Type    string
	Title   string
	Method  string         // non-GET links, e.g. "POST"
	Headers map[string]any // request headers for non-GET links
	Body    any            // request body for non-GET links
	Extra   Fields
	order   []string
}

var linkMembers = []string{"rel", "href", "type", "title", "method", "headers", "body"}

// NewLink creates a link with the given href and relation type.
func NewLink(href, rel string) Link {
	return Link{Href: href, Rel: rel}
}

// IsAbsolute reports whether the href carries a scheme or is a rooted path.
func (l Link) IsAbsolute() bool {
	return strings.HasPrefix(l.Href, "/") || strings.Contains(l.Href, "://")
}

// Object returns the link as an ordered JSON object.
func (l Link) Object() *Fields {
	return emit(l.order, []member{
		{"rel", l.Rel, true},
		{"href", l.Href, true},
		{"type", l.Type, l.Type != ""},
		{"title", l.Title, l.Title != ""},
		{"method", l.Method, l.Method != ""},
		{"headers", l.Headers, l.Headers != nil},
		{"body", l.Body, l.Body != nil},
	}, &l.Extra)
}

func (l Link) clone() Link {
	out := l
	out.Extra = l.Extra.Clone()
	if l.Headers != nil {
		out.Headers = cloneValue(l.Headers).(map[string]any)
	}
	out.Body = cloneValue(l.Body)
	out.order = slices.Clone(l.order)
	return out
}

// ParseLink builds a link from a decoded JSON object. path prefixes error
// locations.
func ParseLink(f *Fields, path string) (Link, error) {
	o := object{f: f, path: path}
	var l Link
	var err error
	if l.Href, err = o.str("href", true); err != nil {
		return Link{}, err
	}
	if l.Rel, err = o.str("rel", true); err != nil {
		return Link{}, err
	}
	if l.Type, err = o.str("type", false); err != nil {
		return Link{}, err
	}
	if l.Title, err = o.str("title", false); err != nil {
		return Link{}, err
	}
	if l.Method, err = o.str("method", false); err != nil {
		return Link{}, err
	}
	if h, ok, err := o.object("headers", false); err != nil {
		return Link{}, err
	} else if ok {
		l.Headers = h.Map()
	}
	if v, ok := f.Get("body"); ok && v != nil {
		l.Body = plain(v)
	}
	l.Extra = o.rest(linkMembers)
	l.order = o.order(linkMembers)
	return l, nil
}

func parseLinks(o object) ([]Link, error) {
	arr, ok, err := o.array("links", false)
	if err != nil || !ok || len(arr) == 0 {
		return nil, err
	}
	links := make([]Link, len(arr))
	for i, e := range arr {
		f, ok := e.(*Fields)
		if !ok {
			return nil, structuralf(index(o.at("links"), i), "expected object, got %s", jsonTypeName(e))
		}
		if links[i], err = ParseLink(f, index(o.at("links"), i)); err != nil {
			return nil, err
		}
	}
	return links, nil
}

func linksValue(links []Link) []any {
	out := make([]any, len(links))
	for i, l := range links {
		out[i] = l.Object()
	}
	return out
}

// Linked is the link capability shared by every document kind.
type Linked struct {
	Links []Link
}

// LinkList exposes the ordered link list for in-place edits.
func (l *Linked) LinkList() *[]Link {
	return &l.Links
}

// Link returns the first link with the given relation type.
func (l *Linked) Link(rel string) (Link, bool) {
	for _, link := range l.Links {
		if link.Rel == rel {
			return link, true
		}
	}
	return Link{}, false
}

// SelfHref returns the href of the first self link, or "".
func (l *Linked) SelfHref() string {
	link, _ := l.Link(RelSelf)
	return link.Href
}

// AddLink appends a link.
func (l *Linked) AddLink(link Link) {
	l.Links = append(l.Links, link)
}

// RemoveLinks drops every link with the given relation type.
func (l *Linked) RemoveLinks(rel string) {
	l.Links = slices.DeleteFunc(l.Links, func(link Link) bool { return link.Rel == rel })
	if len(l.Links) == 0 {
		l.Links = nil
	}
}

// SortLinks orders links by relation type, then href. Links are otherwise
// kept in the order they were received.
func (l *Linked) SortLinks() {
	slices.SortStableFunc(l.Links, func(a, b Link) int {
		if c := cmp.Compare(a.Rel, b.Rel); c != 0 {
			return c
		}
		return cmp.Compare(a.Href, b.Href)
	})
}

func (l Linked) cloneLinks() Linked {
	if l.Links == nil {
		return Linked{}
	}
	out := make([]Link, len(l.Links))
	for i, link := range l.Links {
		out[i] = link.clone()
	}
	return Linked{Links: out}
}
