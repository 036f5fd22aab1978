// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package geoarrow converts STAC Items to and from Apache Arrow record
// batches laid out as stac-geoparquet: one row per Item, core members and
// properties as top-level columns, geometry as WKB or native GeoArrow
// coordinates, bbox as a struct.
//
// Conversion is two-pass. Infer folds the local shape of every Item into a
// Schema; Encode then writes Items that conform to that Schema. Schemas of
// disjoint Item sets combine with Merge, which is commutative and
// associative, so InferParallel and EncodeParallel may shard freely.
//
// Columns whose values disagree in kind (say, a string in one Item and a
// number in another) are stored as JSON text and marked with the
// "stac:encoding" field metadata.
package geoarrow
