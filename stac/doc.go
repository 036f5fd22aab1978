// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package stac is a typed, validating model of SpatioTemporal Asset Catalog
// documents: Catalogs, Collections and Items, with their links, assets and
// open property bags.
//
// Documents are parsed from JSON with [Parse], which returns one of *Catalog,
// *Collection or *Item behind the closed [Document] interface, and written
// back with [Marshal] in the member order they were received in. Documents
// built in memory with [NewItemBuilder], [NewCatalogBuilder] or
// [NewCollectionBuilder] serialize in declared order.
//
// # Capabilities
//
// Behavior shared across document kinds is exposed through small interfaces
// rather than a common base type:
//
//   - [LinkHolder]: every document, via the embedded [Linked].
//   - [AssetHolder]: Items and Collections.
//   - [PropertyHolder]: Item properties, or the extra top-level members of
//     a Catalog or Collection.
//
// # Values
//
// Open members are held in [Fields], an insertion-ordered JSON object whose
// values are nil, bool, string, int64, float64, []any or map[string]any.
// Integers and floats stay distinct; floats always serialize with a fraction
// or exponent (3.0, never 3), so the kind survives a round trip.
//
// # Extensions
//
// The [Registry] maps extension schema URIs to [Descriptor] field sets.
// [DefaultRegistry] holds the eo, raster, projection, view, sat and file
// extensions. Parsing checks that fields governed by a declared, known
// extension agree with the descriptor; unknown extensions pass through.
// [Unflatten] and [Flatten] split a bag along one extension and back.
//
// # Migration
//
// [Migrate] moves a document forward through the supported versions
// (1.0.0, 1.1.0-beta.1, 1.1.0) one step at a time. The 1.0.0 step merges
// eo:bands and raster:bands into the unified bands array.
//
// # Errors
//
// Every failure is an [*Error] carrying an [ErrorKind] and, where it applies,
// a JSON pointer to the offending member. Use errors.Is with the kind
// sentinels ([ErrStructural], [ErrUnsupportedVersion], ...) to branch.
// Validation failures are reported as a [*ValidationError] listing every
// violation.
package stac
