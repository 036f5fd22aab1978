// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/geoarrow"
	"github.com/Query-farm/stac-go/stac/geoparquet"
	"github.com/Query-farm/stac-go/stac/stacio"
	"github.com/Query-farm/stac-go/stac/validate"
)

func (a *app) validateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate HREF...",
		Short: "Validate documents against the STAC JSON schemas",
		Long: `Validate reads each HREF (a Catalog, Collection or Item, a FeatureCollection,
or an NDJSON, GeoParquet or Arrow file of Items) and checks every document
against its core and extension schemas. All violations are listed; the exit
status is 1 if any document is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := a.client()
			validator := a.validator()
			out := cmd.OutOrStdout()

			failed := 0
			for _, href := range args {
				docs, err := client.ReadDocuments(ctx, href)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", href, err)
					failed++
					continue
				}
				bad := 0
				for i, err := range validator.ValidateAll(ctx, docs) {
					if err == nil {
						continue
					}
					bad++
					label := href
					if len(docs) > 1 {
						label = fmt.Sprintf("%s[%d]", href, i)
					}
					printFailure(out, label, err)
				}
				if bad > 0 {
					failed++
					continue
				}
				fmt.Fprintf(out, "%s: valid (%d document(s))\n", href, len(docs))
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d input(s)", errInvalid, failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().String("schema-cache", "", "Directory caching fetched JSON schemas")
	a.bind(cmd, "validate.schema_cache", "schema-cache")
	cmd.Flags().Int("workers", 0, "Documents validated concurrently (default GOMAXPROCS)")
	a.bind(cmd, "validate.workers", "workers")
	return cmd
}

func (a *app) validator() *validate.Validator {
	var source validate.SchemaSource = &validate.HTTPSource{UserAgent: a.v.GetString("http.user_agent")}
	if dir := a.v.GetString("validate.schema_cache"); dir != "" {
		source = &validate.DirCache{Dir: dir, Next: source}
	}
	opts := []validate.Option{validate.WithHook(a.hook)}
	if n := a.v.GetInt("validate.workers"); n > 0 {
		opts = append(opts, validate.WithWorkers(n))
	}
	return validate.New(source, opts...)
}

func printFailure(w io.Writer, label string, err error) {
	var verr *stac.ValidationError
	if !errors.As(err, &verr) {
		fmt.Fprintf(w, "%s: %v\n", label, err)
		return
	}
	fmt.Fprintf(w, "%s: %d violation(s)\n", label, len(verr.Violations))
	for _, v := range verr.Violations {
		fmt.Fprintf(w, "  %s\n", v)
	}
}

func (a *app) migrateCommand() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "migrate IN [OUT]",
		Short: "Migrate a document to another STAC version",
		Long:  `Migrate rewrites a Catalog, Collection or Item to the target version. Without OUT the result is printed.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := stac.ParseVersion(to)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client := a.client()
			doc, err := client.Read(ctx, args[0])
			if err != nil {
				return err
			}
			from := doc.StacVersion()
			migrated, err := a.migrate(ctx, args[0], doc, version)
			if err != nil {
				return err
			}
			log.Info().Str("from", string(from)).Str("to", string(version)).Msg("migrated")
			if len(args) == 2 {
				return client.Write(ctx, args[1], migrated)
			}
			data, err := stac.MarshalIndent(migrated, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&to, "to", string(stac.LatestVersion), "Target STAC version")
	return cmd
}

// migrate runs one migration under the telemetry hook.
func (a *app) migrate(ctx context.Context, href string, doc stac.Document, to stac.Version) (stac.Document, error) {
	var migrated stac.Document
	info := stac.OperationInfo{Operation: stac.OperationMigrate, Href: href, Metadata: map[string]string{"to": string(to)}}
	err := stac.Observe(ctx, a.hook, info, func(_ context.Context, stats *stac.Statistics) error {
		var err error
		if migrated, err = stac.MigrateDocument(doc, to); err != nil {
			return err
		}
		stats.RecordDocuments(1)
		return nil
	})
	return migrated, err
}

func (a *app) translateCommand() *cobra.Command {
	var (
		migrate    bool
		to         string
		bestEffort bool
	)
	cmd := &cobra.Command{
		Use:   "translate IN OUT",
		Short: "Convert Items between JSON, NDJSON, GeoParquet and Arrow IPC",
		Long: `Translate reads the Items of IN and writes them to OUT. Formats follow the
file extensions (.json, .ndjson, .jsonl, .parquet, .geoparquet, .arrow,
.arrows), optionally followed by .gz or .zst.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.columnarOptions(bestEffort)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client := a.client(opts...)
			ic, err := client.ReadItemCollection(ctx, args[0])
			if err != nil {
				return err
			}
			if migrate {
				version, err := stac.ParseVersion(to)
				if err != nil {
					return err
				}
				for i, item := range ic.Items {
					doc, err := a.migrate(ctx, args[0], item, version)
					if err != nil {
						return fmt.Errorf("item %d: %w", i, err)
					}
					ic.Items[i] = doc.(*stac.Item)
				}
			}
			if err := client.WriteItemCollection(ctx, args[1], ic); err != nil {
				return err
			}
			log.Info().Str("in", args[0]).Str("out", args[1]).Int("items", len(ic.Items)).Msg("translated")
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Migrate every Item before writing")
	cmd.Flags().StringVar(&to, "to", string(stac.LatestVersion), "Target version for --migrate")
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "Drop or null values that do not fit the inferred schema")
	cmd.Flags().String("geometry", "wkb", "Geometry column encoding: wkb or native")
	a.bind(cmd, "translate.geometry", "geometry")
	cmd.Flags().String("compression", "zstd", "Parquet compression: zstd, snappy, gzip or none")
	a.bind(cmd, "translate.compression", "compression")
	return cmd
}

// columnarOptions builds client options from translate.geometry and
// translate.compression.
func (a *app) columnarOptions(bestEffort bool) ([]stacio.Option, error) {
	var arrowOpts []geoarrow.Option
	switch g := strings.ToLower(a.v.GetString("translate.geometry")); g {
	case "", "wkb":
	case "native":
		arrowOpts = append(arrowOpts, geoarrow.WithNativeGeometry())
	default:
		return nil, fmt.Errorf("unknown geometry encoding %q", g)
	}
	if bestEffort {
		arrowOpts = append(arrowOpts, geoarrow.WithBestEffort())
	}
	codec, err := geoparquet.ParseCompression(a.v.GetString("translate.compression"))
	if err != nil {
		return nil, err
	}
	return []stacio.Option{
		stacio.WithArrowOptions(arrowOpts...),
		stacio.WithGeoParquetOptions(geoparquet.WithCompression(codec)),
	}, nil
}

func (a *app) schemaCommand() *cobra.Command {
	var native bool
	cmd := &cobra.Command{
		Use:   "schema IN",
		Short: "Print the Arrow schema inferred for the Items of IN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []geoarrow.Option
			if native {
				opts = append(opts, geoarrow.WithNativeGeometry())
			}
			items, err := a.client().ReadItems(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			schema, err := geoarrow.Infer(items, opts...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), geoarrow.Describe(geoarrow.ToArrow(schema)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&native, "native", false, "Infer native GeoArrow geometry when possible")
	return cmd
}
