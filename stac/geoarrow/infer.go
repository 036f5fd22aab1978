// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/Query-farm/stac-go/stac"
)

// Infer folds the local shape of every Item into one union schema.
func Infer(items []*stac.Item, opts ...Option) (*Schema, error) {
	o := newOptions(opts)
	return inferRange(items, 0, len(items), o)
}

// InferSeq is Infer over a sequence; the first sequence error stops the fold.
func InferSeq(items iter.Seq2[*stac.Item, error], opts ...Option) (*Schema, error) {
	o := newOptions(opts)
	acc := &Schema{Native: o.native}
	i := 0
	for item, err := range items {
		if err != nil {
			return nil, err
		}
		rec, err := itemRecord(i, item, o)
		if err != nil {
			return nil, err
		}
		acc = Merge(acc, itemSchema(rec, o))
		i++
	}
	return acc, nil
}

// InferParallel infers shards of items concurrently and merges the results.
// workers < 1 means GOMAXPROCS.
func InferParallel(ctx context.Context, items []*stac.Item, workers int, opts ...Option) (*Schema, error) {
	o := newOptions(opts)
	ranges := split(len(items), workers)
	parts := make([]*Schema, len(ranges))
	g, ctx := errgroup.WithContext(ctx)
	for k, r := range ranges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := inferRange(items, r[0], r[1], o)
			parts[k] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	acc := &Schema{Native: o.native}
	for _, p := range parts {
		acc = Merge(acc, p)
	}
	return acc, nil
}

func inferRange(items []*stac.Item, start, end int, o *options) (*Schema, error) {
	acc := &Schema{Native: o.native}
	for i := start; i < end; i++ {
		rec, err := itemRecord(i, items[i], o)
		if err != nil {
			return nil, err
		}
		acc = Merge(acc, itemSchema(rec, o))
	}
	return acc, nil
}
