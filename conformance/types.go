// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog/log"
)

// Scenario is one named end-to-end check.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context) error
}

// Result is the outcome of one scenario.
type Result struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

func (r Result) Passed() bool {
	return r.Err == nil
}

// Scenarios returns the whole corpus in a stable order.
func Scenarios() []Scenario {
	var all []Scenario
	all = append(all, documentScenarios()...)
	all = append(all, columnarScenarios()...)
	return all
}

// Run executes every scenario whose name contains filter. An empty filter
// runs them all. Scenarios run sequentially; a cancelled ctx marks the
// remaining ones failed.
func Run(ctx context.Context, filter string) []Result {
	var results []Result
	for _, s := range Scenarios() {
		if filter != "" && !strings.Contains(s.Name, filter) {
			continue
		}
		start := time.Now()
		err := ctx.Err()
		if err == nil {
			err = s.Run(ctx)
		}
		r := Result{Name: s.Name, Err: err, Elapsed: time.Since(start)}
		log.Debug().Str("scenario", s.Name).Bool("passed", r.Passed()).Dur("elapsed", r.Elapsed).Msg("scenario finished")
		results = append(results, r)
	}
	return results
}

// same fails with a diff when want and got differ.
func same(what string, want, got any) error {
	if diff := cmp.Diff(want, got); diff != "" {
		return fmt.Errorf("%s mismatch (-want +got):\n%s", what, diff)
	}
	return nil
}
