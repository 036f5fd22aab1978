// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"fmt"
	"slices"
)

// Band describes one band or layer of an asset or item, as found in the
// unified "bands" array. Extension members such as eo:common_name stay in
// Extra under their prefixed names.
type Band struct {
	Name        string
	Description string
	Nodata      any // number, or one of "nan", "inf", "-inf"
	DataType    string
	Statistics  map[string]any
	Unit        string
	Extra       Fields
}

var bandMembers = []string{"name", "description", "nodata", "data_type", "statistics", "unit"}

// Bands decodes the "bands" member of bag. A missing member yields nil.
func Bands(bag *Fields) ([]Band, error) {
	v, ok := bag.Get("bands")
	if !ok || v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, structuralf("/bands", "expected array, got %s", jsonTypeName(v))
	}
	out := make([]Band, len(arr))
	for i, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, structuralf(index("/bands", i), "expected object, got %s", jsonTypeName(e))
		}
		b, err := bandFromMap(m)
		if err != nil {
			return nil, &Error{Kind: KindStructural, Path: index("/bands", i), Message: err.Error()}
		}
		out[i] = b
	}
	return out, nil
}

// SetBands writes bands to the "bands" member of bag, or removes the member
// when bands is empty.
func SetBands(bag *Fields, bands []Band) {
	if len(bands) == 0 {
		bag.Delete("bands")
		return
	}
	arr := make([]any, len(bands))
	for i, b := range bands {
		arr[i] = b.value()
	}
	bag.set("bands", arr)
}

func bandFromMap(m map[string]any) (Band, error) {
	var b Band
	var ok bool
	if v, has := m["name"]; has {
		if b.Name, ok = v.(string); !ok {
			return b, fmt.Errorf("name: expected string, got %s", jsonTypeName(v))
		}
	}
	if v, has := m["description"]; has {
		if b.Description, ok = v.(string); !ok {
			return b, fmt.Errorf("description: expected string, got %s", jsonTypeName(v))
		}
	}
	if v, has := m["data_type"]; has {
		if b.DataType, ok = v.(string); !ok {
			return b, fmt.Errorf("data_type: expected string, got %s", jsonTypeName(v))
		}
	}
	if v, has := m["unit"]; has {
		if b.Unit, ok = v.(string); !ok {
			return b, fmt.Errorf("unit: expected string, got %s", jsonTypeName(v))
		}
	}
	if v, has := m["statistics"]; has {
		if b.Statistics, ok = v.(map[string]any); !ok {
			return b, fmt.Errorf("statistics: expected object, got %s", jsonTypeName(v))
		}
	}
	b.Nodata = m["nodata"]
	extra := make(map[string]any)
	for k, v := range m {
		if !slices.Contains(bandMembers, k) {
			extra[k] = v
		}
	}
	var err error
	b.Extra, err = FieldsFromMap(extra)
	return b, err
}

func (b Band) value() map[string]any {
	m := b.Extra.Map()
	if m == nil {
		m = make(map[string]any)
	}
	if b.Name != "" {
		m["name"] = b.Name
	}
	if b.Description != "" {
		m["description"] = b.Description
	}
	if b.Nodata != nil {
		m["nodata"] = b.Nodata
	}
	if b.DataType != "" {
		m["data_type"] = b.DataType
	}
	if b.Statistics != nil {
		m["statistics"] = cloneValue(b.Statistics)
	}
	if b.Unit != "" {
		m["unit"] = b.Unit
	}
	return m
}
