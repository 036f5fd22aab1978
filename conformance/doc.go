// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package conformance is a corpus of end-to-end scenarios for the stac
// module. Each [Scenario] drives the public API the way a caller would:
// parsing and building documents, migrating between versions, inferring and
// encoding columnar batches, and moving items through every file format.
//
// [Run] executes the corpus, optionally filtered by name, and returns one
// [Result] per scenario. The stac-conformance command prints the results.
package conformance
