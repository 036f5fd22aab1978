// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"slices"
	"time"
)

// object reads typed members out of a decoded JSON object, reporting
// failures as Structural errors with a JSON pointer.
type object struct {
	f    *Fields
	path string
}

func (o object) at(key string) string {
	return pointer(o.path, key)
}

func (o object) str(key string, required bool) (string, error) {
	v, ok := o.f.Get(key)
	if !ok || v == nil {
		if required {
			return "", missing(o.at(key))
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", structuralf(o.at(key), "expected string, got %s", jsonTypeName(v))
	}
	return s, nil
}

func (o object) nonEmpty(key string) (string, error) {
	s, err := o.str(key, true)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", structuralf(o.at(key), "must not be empty")
	}
	return s, nil
}

func (o object) strings(key string) ([]string, error) {
	arr, ok, err := o.array(key, false)
	if err != nil || !ok {
		return nil, err
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, structuralf(index(o.at(key), i), "expected string, got %s", jsonTypeName(e))
		}
		out[i] = s
	}
	return out, nil
}

func (o object) object(key string, required bool) (*Fields, bool, error) {
	v, ok := o.f.Get(key)
	if !ok || v == nil {
		if required {
			return nil, false, missing(o.at(key))
		}
		return nil, false, nil
	}
	f, ok := v.(*Fields)
	if !ok {
		return nil, false, structuralf(o.at(key), "expected object, got %s", jsonTypeName(v))
	}
	return f, true, nil
}

func (o object) array(key string, required bool) ([]any, bool, error) {
	v, ok := o.f.Get(key)
	if !ok || v == nil {
		if required {
			return nil, false, missing(o.at(key))
		}
		return nil, false, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, false, structuralf(o.at(key), "expected array, got %s", jsonTypeName(v))
	}
	return arr, true, nil
}

func (o object) floats(key string) ([]float64, error) {
	arr, ok, err := o.array(key, false)
	if err != nil || !ok {
		return nil, err
	}
	return numbers(arr, o.at(key))
}

func numbers(arr []any, path string) ([]float64, error) {
	out := make([]float64, len(arr))
	for i, e := range arr {
		switch n := e.(type) {
		case int64:
			out[i] = float64(n)
		case float64:
			out[i] = n
		default:
			return nil, structuralf(index(path, i), "expected number, got %s", jsonTypeName(e))
		}
	}
	return out, nil
}

// rest returns every member not named in known, with nested objects as maps.
func (o object) rest(known []string) Fields {
	var out Fields
	for k, v := range o.f.All() {
		if slices.Contains(known, k) {
			continue
		}
		out.set(k, plain(v))
	}
	return out
}

// order returns the received member order, or nil when it already matches
// the order emit would produce.
func (o object) order(known []string) []string {
	keys := o.f.Keys()
	canonical := make([]string, 0, len(keys))
	for _, k := range known {
		if o.f.Has(k) {
			canonical = append(canonical, k)
		}
	}
	for _, k := range keys {
		if !slices.Contains(known, k) {
			canonical = append(canonical, k)
		}
	}
	if slices.Equal(keys, canonical) {
		return nil
	}
	return keys
}

// member is a declared member of a document, in declared order.
type member struct {
	key   string
	value any
	set   bool
}

// emit lays out declared members and extra members. Keys named in order go
// first, in that order; the remaining declared members follow in declared
// order, then the remaining extras.
func emit(order []string, known []member, extra *Fields) *Fields {
	out := &Fields{}
	find := func(k string) (member, bool) {
		for _, m := range known {
			if m.key == k {
				return m, true
			}
		}
		return member{}, false
	}
	for _, k := range order {
		if m, ok := find(k); ok {
			if m.set {
				out.set(k, m.value)
			}
			continue
		}
		if v, ok := extra.Get(k); ok {
			out.set(k, v)
		}
	}
	for _, m := range known {
		if m.set && !out.Has(m.key) {
			out.set(m.key, m.value)
		}
	}
	for k, v := range extra.All() {
		if _, declared := find(k); !declared && !out.Has(k) {
			out.set(k, v)
		}
	}
	return out
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func floatList(fs []float64) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}

func parseTime(s string, path string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, &Error{Kind: KindStructural, Path: path, Message: "invalid RFC 3339 datetime", Err: err}
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
