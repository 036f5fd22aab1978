// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Query-farm/stac-go/conformance"
)

// Usage: stac-conformance [FILTER]
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	failed := 0
	results := conformance.Run(ctx, filter)
	for _, r := range results {
		if r.Passed() {
			fmt.Printf("PASS %-40s %s\n", r.Name, r.Elapsed)
			continue
		}
		failed++
		fmt.Printf("FAIL %-40s %s\n     %v\n", r.Name, r.Elapsed, r.Err)
	}
	fmt.Printf("%d/%d scenarios passed\n", len(results)-failed, len(results))
	if failed > 0 {
		stop()
		os.Exit(1)
	}
}
