// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsKeepInsertionOrder(t *testing.T) {
	var f Fields
	require.NoError(t, f.Set("zeta", 1))
	require.NoError(t, f.Set("alpha", "a"))
	require.NoError(t, f.Set("mid", true))
	require.NoError(t, f.Set("zeta", 2))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, f.Keys())
	data, err := f.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":2,"alpha":"a","mid":true}`, string(data))
}

func TestNestedObjectsAreSorted(t *testing.T) {
	var f Fields
	require.NoError(t, f.UnmarshalJSON([]byte(`{"z":1,"a":{"y":1,"b":{"d":1,"c":2}}}`)))
	assert.Equal(t, []string{"z", "a"}, f.Keys())
	data, err := f.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":{"b":{"c":2,"d":1},"y":1}}`, string(data))
}

func TestFieldsNormalize(t *testing.T) {
	var f Fields
	require.NoError(t, f.Set("int", int32(7)))
	require.NoError(t, f.Set("float", float32(0.5)))
	require.NoError(t, f.Set("time", time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))))
	require.NoError(t, f.Set("list", []string{"a", "b"}))
	require.NoError(t, f.Set("struct", struct {
		Name string `json:"name"`
	}{"n"}))

	v, _ := f.Get("int")
	assert.Equal(t, int64(7), v)
	v, _ = f.Get("float")
	assert.Equal(t, 0.5, v)
	v, _ = f.Get("time")
	assert.Equal(t, "2024-05-01T11:00:00Z", v)
	v, _ = f.Get("list")
	assert.Equal(t, []any{"a", "b"}, v)
	v, _ = f.Get("struct")
	assert.Equal(t, map[string]any{"name": "n"}, v)
}

func TestFloatsKeepTheirKind(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want string
	}{
		{3.0, "3.0"},
		{3.5, "3.5"},
		{int64(3), "3"},
		{-180.0, "-180.0"},
		{1e-7, "1e-07"},
		{1e21, "1e+21"},
		{[]any{1.0, int64(1)}, "[1.0,1]"},
	} {
		data, err := MarshalValue(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(data))

		back, err := UnmarshalValue(data)
		require.NoError(t, err)
		assert.Equal(t, tc.in, back)
	}
}

func TestFieldsUnmarshalKeepsOrderAndNumbers(t *testing.T) {
	var f Fields
	require.NoError(t, f.UnmarshalJSON([]byte(`{"b":1,"a":2.0,"c":{"y":1,"x":[1,2.5]}}`)))
	assert.Equal(t, []string{"b", "a", "c"}, f.Keys())
	v, _ := f.Get("a")
	assert.Equal(t, 2.0, v)
	v, _ = f.Get("c")
	assert.Equal(t, map[string]any{"y": int64(1), "x": []any{int64(1), 2.5}}, v)
}

func TestFieldsDeleteAndEqual(t *testing.T) {
	a, err := FieldsFromMap(map[string]any{"x": 1, "y": "two"})
	require.NoError(t, err)
	var b Fields
	require.NoError(t, b.Set("y", "two"))
	require.NoError(t, b.Set("x", 1))
	assert.True(t, a.Equal(&b))

	assert.True(t, b.Delete("x"))
	assert.False(t, b.Delete("x"))
	assert.False(t, a.Equal(&b))
	assert.True(t, b.Delete("y"))
	assert.Equal(t, Fields{}, b)
}

func TestUnmarshalValueRejectsTrailingData(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"a":1} {"b":2}`))
	require.Error(t, err)
}
