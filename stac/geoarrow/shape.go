// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"slices"
	"strings"
	"time"

	"github.com/Query-farm/stac-go/stac"
)

// Kind is the inferred type of one JSON value or column.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindTimestamp
	KindString
	KindList
	KindStruct
	KindMixed // any JSON value, stored as JSON text
)

var kindNames = [...]string{"null", "bool", "int", "float", "timestamp", "string", "list", "struct", "mixed"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Shape is a node of a columnar schema: a kind, nullability, and the element
// or member shapes of lists and structs.
type Shape struct {
	Kind     Kind
	Nullable bool
	Elem     *Shape       // KindList only
	Fields   []ShapeField // KindStruct only, sorted by name
}

// ShapeField is a named struct member.
type ShapeField struct {
	Name  string
	Shape Shape
}

// Field returns the member shape named name.
func (s Shape) Field(name string) (Shape, bool) {
	i, ok := slices.BinarySearchFunc(s.Fields, name, func(f ShapeField, n string) int {
		return strings.Compare(f.Name, n)
	})
	if !ok {
		return Shape{}, false
	}
	return s.Fields[i].Shape, true
}

// Equal reports whether two shapes are identical.
func (s Shape) Equal(o Shape) bool {
	if s.Kind != o.Kind || s.Nullable != o.Nullable || len(s.Fields) != len(o.Fields) {
		return false
	}
	if (s.Elem == nil) != (o.Elem == nil) {
		return false
	}
	if s.Elem != nil && !s.Elem.Equal(*o.Elem) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i].Name != o.Fields[i].Name || !s.Fields[i].Shape.Equal(o.Fields[i].Shape) {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s Shape) write(b *strings.Builder) {
	b.WriteString(s.Kind.String())
	switch s.Kind {
	case KindList:
		b.WriteByte('<')
		s.Elem.write(b)
		b.WriteByte('>')
	case KindStruct:
		b.WriteByte('{')
		for i, f := range s.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			f.Shape.write(b)
		}
		b.WriteByte('}')
	}
	if s.Nullable && s.Kind != KindNull {
		b.WriteByte('?')
	}
}

func (s Shape) nullable() Shape {
	s.Nullable = true
	return s
}

// Join returns the least shape that holds values of both a and b:
//
//   - null joined with anything is that thing, made nullable;
//   - int and float join to float;
//   - timestamp and string join to string;
//   - lists join element-wise, structs member-wise, with members missing on
//     one side made nullable;
//   - any other pair of distinct kinds joins to mixed.
//
// Join is commutative and associative.
func Join(a, b Shape) Shape {
	if a.Kind == KindNull {
		if b.Kind == KindNull {
			return Shape{Kind: KindNull, Nullable: true}
		}
		return b.nullable()
	}
	if b.Kind == KindNull {
		return a.nullable()
	}
	nullable := a.Nullable || b.Nullable
	if a.Kind == b.Kind {
		switch a.Kind {
		case KindList:
			elem := Join(*a.Elem, *b.Elem)
			return Shape{Kind: KindList, Nullable: nullable, Elem: &elem}
		case KindStruct:
			return Shape{Kind: KindStruct, Nullable: nullable, Fields: joinFields(a.Fields, b.Fields)}
		default:
			return Shape{Kind: a.Kind, Nullable: nullable}
		}
	}
	lo, hi := a.Kind, b.Kind
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case lo == KindInt && hi == KindFloat:
		return Shape{Kind: KindFloat, Nullable: nullable}
	case lo == KindTimestamp && hi == KindString:
		return Shape{Kind: KindString, Nullable: nullable}
	}
	return Shape{Kind: KindMixed, Nullable: nullable}
}

func joinFields(a, b []ShapeField) []ShapeField {
	out := make([]ShapeField, 0, max(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i].Name < b[j].Name):
			out = append(out, ShapeField{a[i].Name, a[i].Shape.nullable()})
			i++
		case i == len(a) || b[j].Name < a[i].Name:
			out = append(out, ShapeField{b[j].Name, b[j].Shape.nullable()})
			j++
		default:
			out = append(out, ShapeField{a[i].Name, Join(a[i].Shape, b[j].Shape)})
			i++
			j++
		}
	}
	return out
}

// ShapeOf returns the local shape of one JSON value found under key. Strings
// under a datetime key become timestamps when they are canonical UTC RFC 3339
// with at most microsecond precision.
func ShapeOf(key string, v any) Shape {
	switch x := v.(type) {
	case nil:
		return Shape{Kind: KindNull, Nullable: true}
	case bool:
		return Shape{Kind: KindBool}
	case int64:
		return Shape{Kind: KindInt}
	case float64:
		return Shape{Kind: KindFloat}
	case string:
		if isDatetimeKey(key) {
			if _, ok := canonicalTime(x); ok {
				return Shape{Kind: KindTimestamp}
			}
		}
		return Shape{Kind: KindString}
	case []any:
		elem := Shape{Kind: KindNull, Nullable: true}
		for i, e := range x {
			if i == 0 {
				elem = ShapeOf("", e)
				continue
			}
			elem = Join(elem, ShapeOf("", e))
		}
		return Shape{Kind: KindList, Elem: &elem}
	case map[string]any:
		names := make([]string, 0, len(x))
		for k := range x {
			names = append(names, k)
		}
		slices.Sort(names)
		fields := make([]ShapeField, len(names))
		for i, k := range names {
			fields[i] = ShapeField{k, ShapeOf(k, x[k])}
		}
		return Shape{Kind: KindStruct, Fields: fields}
	default:
		return Shape{Kind: KindMixed}
	}
}

// seeded returns the shape declared by an extension field, if the
// declaration pins one. Number fields are left to inference so integer
// values keep their kind.
func seeded(spec stac.FieldSpec) (Shape, bool) {
	if k, ok := fieldKind(spec.Type); ok {
		return Shape{Kind: k}, true
	}
	if spec.Type == stac.FieldArray {
		if k, ok := fieldKind(spec.Elem); ok {
			return Shape{Kind: KindList, Elem: &Shape{Kind: k}}, true
		}
	}
	return Shape{}, false
}

func fieldKind(t stac.FieldType) (Kind, bool) {
	switch t {
	case stac.FieldString:
		return KindString, true
	case stac.FieldInteger:
		return KindInt, true
	case stac.FieldBoolean:
		return KindBool, true
	}
	return 0, false
}

func isDatetimeKey(key string) bool {
	return slices.Contains(stac.DatetimeKeys, key)
}

// canonicalTime parses s if it is exactly the form formatTimestamp produces.
func canonicalTime(s string) (time.Time, bool) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil || t.Nanosecond()%1000 != 0 || formatTimestamp(t) != s {
		return time.Time{}, false
	}
	return t, true
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
