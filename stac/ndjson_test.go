// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/stac-go/stac"
)

func TestNDJSONRoundTrip(t *testing.T) {
	var items []*stac.Item
	for _, id := range []string{"a", "b", "c"} {
		it, err := stac.NewItemBuilder(id).Property("n", len(id)).Build()
		require.NoError(t, err)
		items = append(items, it)
	}
	var buf bytes.Buffer
	require.NoError(t, stac.WriteNDJSON(&buf, items))
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

	back, err := stac.ReadNDJSON(bytes.NewReader(append([]byte("\n"), buf.Bytes()...)))
	require.NoError(t, err)
	require.Len(t, back, 3)
	for i := range items {
		assert.Equal(t, canonical(t, items[i]), canonical(t, back[i]))
	}
}

func TestNDJSONReportsLine(t *testing.T) {
	in := `{"type":"Feature","stac_version":"1.1.0","id":"a","geometry":null,"properties":{}}` + "\n" +
		`{"type":"Feature","stac_version":"1.1.0","id":"b"}` + "\n"
	var seen int
	var failure error
	for it, err := range stac.NDJSONItems(strings.NewReader(in)) {
		if err != nil {
			failure = err
			break
		}
		seen++
		assert.Equal(t, "a", it.ID)
	}
	assert.Equal(t, 1, seen)
	require.Error(t, failure)
	assert.Contains(t, failure.Error(), "line 2")
	assert.True(t, errors.Is(failure, stac.ErrStructural))
}

func TestItemCollection(t *testing.T) {
	in := `{"type":"FeatureCollection","features":[` +
		`{"type":"Feature","stac_version":"1.1.0","id":"a","geometry":null,"properties":{}},` +
		`{"type":"Feature","stac_version":"1.1.0","id":"b","geometry":null,"properties":{}}],"numberMatched":2}`
	ic, err := stac.ParseItemCollection([]byte(in))
	require.NoError(t, err)
	require.Len(t, ic.Items, 2)
	assert.Equal(t, "b", ic.Items[1].ID)
	v, _ := ic.Extra.Get("numberMatched")
	assert.Equal(t, int64(2), v)

	out, err := ic.Marshal()
	require.NoError(t, err)
	again, err := stac.ParseItemCollection(out)
	require.NoError(t, err)
	assert.Len(t, again.Items, 2)

	_, err = stac.ParseItemCollection([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","stac_version":"1.1.0","id":"a"}]}`))
	require.Error(t, err)
	_, path := kindOf(t, err)
	assert.Equal(t, "/features/0/geometry", path)
}
