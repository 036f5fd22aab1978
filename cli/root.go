// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the stac command: validation, migration,
// translation between JSON, NDJSON, GeoParquet and Arrow IPC, and schema
// inspection.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Query-farm/stac-go/stac"
	"github.com/Query-farm/stac-go/stac/stacio"
	"github.com/Query-farm/stac-go/stac/store"
)

// errInvalid marks a run whose inputs failed validation. Its details were
// already printed.
var errInvalid = errors.New("validation failed")

type app struct {
	v        *viper.Viper
	cfgFile  string
	hook     stac.Hook
	closers  []io.Closer
	shutdown func(context.Context) error
}

func newApp() *app {
	return &app{v: viper.New()}
}

// Execute runs the command line and exits the process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Run executes the command line args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp()
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.close()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInvalid):
		fmt.Fprintln(stderr, err)
	default:
		fmt.Fprintln(stderr, "Error:", err)
	}
	return 1
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "stac",
		Short:         "Work with SpatioTemporal Asset Catalog documents",
		Long:          `stac validates, migrates and translates STAC catalogs, collections and items between JSON, NDJSON, GeoParquet and Arrow IPC.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is stac-go.toml in /etc, $HOME/.config, $HOME or .)")

	flags.String("log-level", "warning", "Logging level")
	a.bind(root, "log.level", "log-level")
	flags.String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	a.bind(root, "log.output", "log-output")
	flags.Bool("log-pretty", false, "Human readable console logs")
	a.bind(root, "log.pretty", "log-pretty")
	flags.Bool("log-report-caller", false, "Log function name that called log statement")
	a.bind(root, "log.report_caller", "log-report-caller")

	flags.String("s3-region", "", "AWS region for s3:// hrefs")
	a.bind(root, "s3.region", "s3-region")
	flags.String("s3-endpoint", "", "Custom S3 endpoint URL")
	a.bind(root, "s3.endpoint", "s3-endpoint")
	flags.Bool("s3-path-style", false, "Use path-style S3 addressing")
	a.bind(root, "s3.path_style", "s3-path-style")
	flags.String("gcs-credentials-file", "", "Service account file for gs:// hrefs")
	a.bind(root, "gcs.credentials_file", "gcs-credentials-file")
	flags.String("http-user-agent", "stac-go", "User-Agent for HTTP requests")
	a.bind(root, "http.user_agent", "http-user-agent")

	flags.Bool("telemetry", false, "Export OpenTelemetry traces and metrics to stderr")
	a.bind(root, "telemetry.enabled", "telemetry")

	root.AddCommand(
		a.validateCommand(),
		a.migrateCommand(),
		a.translateCommand(),
		a.schemaCommand(),
	)
	return root
}

func (a *app) bind(cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	if err := a.v.BindPFlag(key, f); err != nil {
		log.Panic().Err(err).Str("flag", flag).Msg("could not bind flag")
	}
}

// init reads the config file and environment, then sets up logging and
// telemetry.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix("STAC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		a.v.SetConfigName("stac-go")
		a.v.SetConfigType("toml")
		a.v.AddConfigPath("/etc/")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config"))
			a.v.AddConfigPath(home)
		}
		a.v.AddConfigPath(".")
		if err := a.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	closer, err := setupLogging(a.v, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		log.Info().Str("ConfigFile", used).Msg("Loaded config file")
	}

	if a.v.GetBool("telemetry.enabled") {
		hook, shutdown, err := setupTelemetry(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		a.hook, a.shutdown = hook, shutdown
	}
	return nil
}

func (a *app) close() {
	if a.shutdown != nil {
		if err := a.shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}
	for _, c := range a.closers {
		c.Close()
	}
}

func (a *app) storeConfig() store.Config {
	return store.Config{
		S3: store.S3Config{
			Region:    a.v.GetString("s3.region"),
			Endpoint:  a.v.GetString("s3.endpoint"),
			PathStyle: a.v.GetBool("s3.path_style"),
		},
		GCS: store.GCSConfig{
			CredentialsFile: a.v.GetString("gcs.credentials_file"),
		},
		HTTP: store.HTTPConfig{
			UserAgent: a.v.GetString("http.user_agent"),
		},
	}
}

func (a *app) client(opts ...stacio.Option) *stacio.Client {
	opts = append([]stacio.Option{stacio.WithHook(a.hook), stacio.WithIndent()}, opts...)
	return stacio.New(store.NewRouter(a.storeConfig()), opts...)
}
