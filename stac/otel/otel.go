// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package stacotel provides OpenTelemetry instrumentation for STAC I/O,
// conversion and validation. It implements the [stac.Hook] interface to add
// tracing and metrics around each operation.
//
// Usage:
//
//	client := stacio.New(store.NewRouter(cfg), stacio.WithHook(stacotel.NewHook(stacotel.DefaultConfig())))
package stacotel

import (
	"context"
	"errors"
	"time"

	"github.com/Query-farm/stac-go/stac"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "stac_go"

// Config configures OpenTelemetry instrumentation.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed operations.
	// Default true.
	RecordExceptions bool
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with tracing, metrics and exception
// recording enabled. Providers are resolved from the global OTel SDK when
// the hook is created.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// Hook implements stac.Hook.
type Hook struct {
	cfg               Config
	tracer            trace.Tracer
	operationCounter  metric.Int64Counter
	durationHistogram metric.Float64Histogram
}

var _ stac.Hook = (*Hook)(nil)

// NewHook builds a hook from cfg.
func NewHook(cfg Config) *Hook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	h := &Hook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}
	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		h.operationCounter, _ = meter.Int64Counter("stac.operations",
			metric.WithUnit("{operation}"),
			metric.WithDescription("Number of STAC operations"),
		)
		h.durationHistogram, _ = meter.Float64Histogram("stac.operation.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of STAC operations"),
		)
	}
	return h
}

type spanToken struct {
	span      trace.Span
	startTime time.Time
}

// OnOperationStart starts an internal span named after the operation.
func (h *Hook) OnOperationStart(ctx context.Context, info stac.OperationInfo) (context.Context, stac.HookToken) {
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}
	attrs := []attribute.KeyValue{
		attribute.String("stac.operation", info.Operation),
	}
	if info.Href != "" {
		attrs = append(attrs, attribute.String("stac.href", info.Href))
	}
	if info.Format != "" {
		attrs = append(attrs, attribute.String("stac.format", info.Format))
	}
	for k, v := range info.Metadata {
		attrs = append(attrs, attribute.String("stac."+k, v))
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, "stac/"+info.Operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, &spanToken{span: span, startTime: time.Now()}
}

// OnOperationEnd records metrics and statistics and ends the span.
func (h *Hook) OnOperationEnd(ctx context.Context, token stac.HookToken, info stac.OperationInfo, stats *stac.Statistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}
	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("stac.operation", info.Operation),
			attribute.String("stac.format", info.Format),
			attribute.String("status", status),
		)
		if h.operationCounter != nil {
			h.operationCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
	}

	if st.span == nil || !st.span.IsRecording() {
		return
	}
	if stats != nil {
		st.span.SetAttributes(
			attribute.Int64("stac.documents", stats.Documents),
			attribute.Int64("stac.batches", stats.Batches),
			attribute.Int64("stac.rows", stats.Rows),
			attribute.Int64("stac.bytes", stats.Bytes),
		)
	}
	if err != nil {
		st.span.SetStatus(codes.Error, err.Error())
		if h.cfg.RecordExceptions {
			st.span.RecordError(err)
		}
		kind := "unknown"
		var se *stac.Error
		var ve *stac.ValidationError
		switch {
		case errors.As(err, &ve):
			kind = string(stac.KindValidationFailed)
		case errors.As(err, &se):
			kind = string(se.Kind)
		}
		st.span.SetAttributes(attribute.String("stac.error_kind", kind))
	} else {
		st.span.SetStatus(codes.Ok, "")
	}
	st.span.End()
}
