// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/Query-farm/stac-go/cli"

func main() {
	cli.Execute()
}
