// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/viper"
)

var levels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
	"panic":   zerolog.PanicLevel,
}

// setupLogging configures the global logger from the log.* keys. Output is
// "stdout", "stderr" or a file path; the streams are the command's.
func setupLogging(v *viper.Viper, stdout, stderr io.Writer) (io.Closer, error) {
	level, ok := levels[strings.ToLower(v.GetString("log.level"))]
	if !ok {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer
	var closer io.Closer
	switch output := v.GetString("log.output"); output {
	case "stdout":
		out = stdout
	case "", "stderr":
		out = stderr
	default:
		fh, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening log output: %w", err)
		}
		out, closer = fh, fh
	}
	if v.GetBool("log.pretty") {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp()
	if v.GetBool("log.report_caller") {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()

	//nolint:reassign
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	log.Debug().Str("level", level.String()).Msg("initialized logging")
	return closer, nil
}
