// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Query-farm/stac-go/stac"
	stacotel "github.com/Query-farm/stac-go/stac/otel"
)

// setupTelemetry installs global trace and meter providers that export to
// w, and returns a hook recording into them plus a shutdown function that
// flushes both.
func setupTelemetry(w io.Writer) (stac.Hook, func(context.Context) error, error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(traceExporter))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	hook := stacotel.NewHook(stacotel.Config{
		TracerProvider:   tp,
		MeterProvider:    mp,
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	})
	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	return hook, shutdown, nil
}
