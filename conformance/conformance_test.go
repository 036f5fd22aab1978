// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Query-farm/stac-go/conformance"
)

func TestEveryScenarioPasses(t *testing.T) {
	for _, r := range conformance.Run(context.Background(), "") {
		assert.NoError(t, r.Err, r.Name)
	}
}

func TestScenarioNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range conformance.Scenarios() {
		require.NotEmpty(t, s.Description, s.Name)
		assert.False(t, seen[s.Name], "duplicate scenario %s", s.Name)
		seen[s.Name] = true
	}
}

func TestRunFiltersAndHonoursCancellation(t *testing.T) {
	results := conformance.Run(context.Background(), "migrate/")
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, r.Name, "migrate/")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, r := range conformance.Run(ctx, "parse/") {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.False(t, r.Passed())
	}
}
