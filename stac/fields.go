// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Fields is an insertion-ordered JSON object. It backs Item properties, the
// extra members of every document, asset and link, and extension bags.
//
// Values are always one of nil, bool, string, int64, float64, []any or
// map[string]any (nested objects). Integers and floats are kept apart so that
// a columnar encoder can give an integer column an integer type.
//
// The zero value is an empty bag ready to use.
type Fields struct {
	keys   []string
	values map[string]any
}

// FieldsFromMap builds a bag from m with keys in sorted order.
func FieldsFromMap(m map[string]any) (Fields, error) {
	var f Fields
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := f.Set(k, m[k]); err != nil {
			return Fields{}, err
		}
	}
	return f, nil
}

// Len returns the number of members.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (any, bool) {
	if f == nil || f.values == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Has reports whether key is present, even with a null value.
func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// String returns the value under key if it is a string.
func (f *Fields) String(key string) (string, bool) {
	v, ok := f.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set stores value under key. New keys are appended; existing keys keep
// their position. The value is converted to the canonical JSON value set.
func (f *Fields) Set(key string, value any) error {
	v, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	f.set(key, v)
	return nil
}

// set stores an already-normalized value.
func (f *Fields) set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Delete removes key and reports whether it was present.
func (f *Fields) Delete(key string) bool {
	if f == nil || f.values == nil {
		return false
	}
	if _, ok := f.values[key]; !ok {
		return false
	}
	delete(f.values, key)
	f.keys = slices.DeleteFunc(f.keys, func(k string) bool { return k == key })
	if len(f.keys) == 0 {
		f.keys = nil
		f.values = nil
	}
	return true
}

// Take removes key and returns its value.
func (f *Fields) Take(key string) (any, bool) {
	v, ok := f.Get(key)
	if ok {
		f.Delete(key)
	}
	return v, ok
}

// Keys returns the member names in order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return slices.Clone(f.keys)
}

// All iterates members in order.
func (f *Fields) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if f == nil {
			return
		}
		for _, k := range f.keys {
			if !yield(k, f.values[k]) {
				return
			}
		}
	}
}

// Map returns a deep copy as a plain map.
func (f *Fields) Map() map[string]any {
	if f == nil {
		return nil
	}
	m := make(map[string]any, len(f.keys))
	for _, k := range f.keys {
		m[k] = cloneValue(f.values[k])
	}
	return m
}

// Clone returns a deep copy.
func (f *Fields) Clone() Fields {
	var out Fields
	for k, v := range f.All() {
		out.set(k, cloneValue(v))
	}
	return out
}

// Sort orders the members by name. Nested objects are plain maps and are
// always serialized sorted.
func (f *Fields) Sort() {
	if f == nil {
		return
	}
	sort.Strings(f.keys)
}

// Equal reports whether both bags hold the same members, ignoring order.
func (f *Fields) Equal(o *Fields) bool {
	if f.Len() != o.Len() {
		return false
	}
	for k, v := range f.All() {
		ov, ok := o.Get(k)
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// MarshalJSON writes members in order.
func (f Fields) MarshalJSON() ([]byte, error) {
	return appendFields(nil, &f)
}

// UnmarshalJSON replaces the bag with the members of an object.
func (f *Fields) UnmarshalJSON(data []byte) error {
	v, err := decodeOrdered(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Fields)
	if !ok {
		return fmt.Errorf("expected a JSON object, got %s", jsonTypeName(v))
	}
	*f = flattenNested(obj)
	return nil
}

// MarshalValue serializes a JSON value. Floats always carry a fraction or an
// exponent so that their kind survives a round trip.
func MarshalValue(v any) ([]byte, error) {
	return appendValue(nil, v)
}

// UnmarshalValue parses JSON text into the canonical value set.
func UnmarshalValue(data []byte) (any, error) {
	v, err := decodeOrdered(data)
	if err != nil {
		return nil, err
	}
	return plain(v), nil
}

// Normalize converts a Go value into the canonical JSON value set. Values
// without a direct mapping go through JSON marshalling.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		if f, ok := x.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, fmt.Errorf("unsupported float value %v", f)
		}
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return normalizeUint(uint64(x)), nil
	case uint64:
		return normalizeUint(x), nil
	case float32:
		return float64(x), nil
	case stdjson.Number:
		return numberValue(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []float64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []int64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case *Fields:
		return x.Map(), nil
	case Fields:
		return x.Map(), nil
	case stdjson.RawMessage:
		return UnmarshalValue(x)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return UnmarshalValue(data)
	}
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// decodeOrdered parses JSON keeping object member order (objects become
// *Fields) and the integer/float distinction. encoding/json is used for its
// token stream API.
func decodeOrdered(data []byte) (any, error) {
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeToken(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func decodeToken(dec *stdjson.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case stdjson.Delim:
		switch t {
		case '{':
			obj := &Fields{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("invalid object key %v", kt)
				}
				if obj.Has(key) {
					return nil, structuralf(pointer("", key), "duplicate member name")
				}
				v, err := decodeToken(dec)
				if err != nil {
					return nil, under(pointer("", key), err)
				}
				obj.set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeToken(dec)
				if err != nil {
					return nil, under(index("", len(arr)), err)
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case stdjson.Number:
		return numberValue(t), nil
	default:
		return t, nil
	}
}

// under prefixes the path of a nested Structural error with prefix.
func under(prefix string, err error) error {
	if e, ok := err.(*Error); ok {
		e.Path = prefix + e.Path
	}
	return err
}

func numberValue(n stdjson.Number) any {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}

// plain converts decoded *Fields into nested maps.
func plain(v any) any {
	switch x := v.(type) {
	case *Fields:
		m := make(map[string]any, x.Len())
		for k, e := range x.All() {
			m[k] = plain(e)
		}
		return m
	case []any:
		for i, e := range x {
			x[i] = plain(e)
		}
		return x
	default:
		return v
	}
}

// flattenNested keeps top-level order and turns nested objects into maps.
func flattenNested(obj *Fields) Fields {
	var out Fields
	for k, v := range obj.All() {
		out.set(k, plain(v))
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func appendFields(b []byte, f *Fields) ([]byte, error) {
	b = append(b, '{')
	first := true
	for k, v := range f.All() {
		if !first {
			b = append(b, ',')
		}
		first = false
		var err error
		if b, err = appendString(b, k); err != nil {
			return nil, err
		}
		b = append(b, ':')
		if b, err = appendValue(b, v); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
	}
	return append(b, '}'), nil
}

func appendValue(b []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(b, "null"...), nil
	case bool:
		return strconv.AppendBool(b, x), nil
	case string:
		return appendString(b, x)
	case int64:
		return strconv.AppendInt(b, x, 10), nil
	case int:
		return strconv.AppendInt(b, int64(x), 10), nil
	case float64:
		return appendFloat(b, x)
	case []any:
		b = append(b, '[')
		for i, e := range x {
			if i > 0 {
				b = append(b, ',')
			}
			var err error
			if b, err = appendValue(b, e); err != nil {
				return nil, err
			}
		}
		return append(b, ']'), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b = append(b, '{')
		for i, k := range keys {
			if i > 0 {
				b = append(b, ',')
			}
			var err error
			if b, err = appendString(b, k); err != nil {
				return nil, err
			}
			b = append(b, ':')
			if b, err = appendValue(b, x[k]); err != nil {
				return nil, err
			}
		}
		return append(b, '}'), nil
	case *Fields:
		return appendFields(b, x)
	case Fields:
		return appendFields(b, &x)
	case stdjson.RawMessage:
		return append(b, x...), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return append(b, data...), nil
	}
}

func appendString(b []byte, s string) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(b, data...), nil
}

func appendFloat(b []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported float value %v", f)
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	start := len(b)
	b = strconv.AppendFloat(b, f, format, -1, 64)
	if !bytes.ContainsAny(b[start:], ".e") {
		b = append(b, '.', '0')
	}
	return b, nil
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case int64:
		return "integer"
	case float64:
		return "number"
	case []any:
		return "array"
	case *Fields, map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
