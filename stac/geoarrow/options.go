// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/Query-farm/stac-go/stac"
)

// Option configures inference, encoding and decoding.
type Option func(*options)

type options struct {
	registry   *stac.Registry
	mem        memory.Allocator
	native     bool
	bestEffort bool
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = stac.DefaultRegistry()
	}
	if o.mem == nil {
		o.mem = memory.NewGoAllocator()
	}
	return o
}

// WithRegistry sets the extension registry consulted for typed columns and
// post-decode agreement checks. The default is stac.DefaultRegistry().
func WithRegistry(r *stac.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithAllocator sets the allocator used for column builders.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithNativeGeometry asks inference for native GeoArrow coordinate columns.
// The schema falls back to WKB unless every geometry shares one
// non-collection type and an XY or XYZ layout.
func WithNativeGeometry() Option {
	return func(o *options) { o.native = true }
}

// WithBestEffort makes inference and encoding drop members that cannot be
// represented and null non-conforming cells of nullable columns, instead of
// failing the batch.
func WithBestEffort() Option {
	return func(o *options) { o.bestEffort = true }
}
