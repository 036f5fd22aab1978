// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stacotel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Query-farm/stac-go/stac"
	stacotel "github.com/Query-farm/stac-go/stac/otel"
)

func newHook(t *testing.T) (*stacotel.Hook, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	cfg := stacotel.DefaultConfig()
	cfg.TracerProvider = tp
	cfg.MeterProvider = mp
	cfg.CustomAttributes = []attribute.KeyValue{attribute.String("deployment", "test")}
	return stacotel.NewHook(cfg), recorder, reader
}

func attrs(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := map[string]attribute.Value{}
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestSpanCarriesOperationAndStatistics(t *testing.T) {
	hook, recorder, _ := newHook(t)
	info := stac.OperationInfo{Operation: stac.OperationWrite, Href: "out.parquet", Format: "geoparquet"}
	err := stac.Observe(context.Background(), hook, info, func(_ context.Context, stats *stac.Statistics) error {
		stats.RecordDocuments(3)
		stats.RecordBatch(3, 128)
		return nil
	})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "stac/write", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	a := attrs(span.Attributes())
	assert.Equal(t, "out.parquet", a["stac.href"].AsString())
	assert.Equal(t, "geoparquet", a["stac.format"].AsString())
	assert.Equal(t, "test", a["deployment"].AsString())
	assert.Equal(t, int64(3), a["stac.documents"].AsInt64())
	assert.Equal(t, int64(1), a["stac.batches"].AsInt64())
	assert.Equal(t, int64(128), a["stac.bytes"].AsInt64())
}

func TestFailedOperationRecordsErrorKind(t *testing.T) {
	hook, recorder, _ := newHook(t)
	info := stac.OperationInfo{Operation: stac.OperationValidate}

	err := stac.Observe(context.Background(), hook, info, func(context.Context, *stac.Statistics) error {
		return &stac.ValidationError{ID: "x", Violations: []stac.Violation{{Path: "/id", Message: "bad"}}}
	})
	require.Error(t, err)
	err = stac.Observe(context.Background(), hook, info, func(context.Context, *stac.Statistics) error {
		return stac.Errorf(stac.KindNetwork, "", "offline")
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for i, want := range []string{"ValidationFailed", "Network"} {
		assert.Equal(t, codes.Error, spans[i].Status().Code)
		assert.Equal(t, want, attrs(spans[i].Attributes())["stac.error_kind"].AsString())
		assert.NotEmpty(t, spans[i].Events(), "exception event recorded")
	}
}

func TestMetricsCountByStatus(t *testing.T) {
	hook, _, reader := newHook(t)
	ctx := context.Background()
	info := stac.OperationInfo{Operation: stac.OperationRead, Format: "json"}
	for range 2 {
		_ = stac.Observe(ctx, hook, info, func(context.Context, *stac.Statistics) error { return nil })
	}
	_ = stac.Observe(ctx, hook, info, func(context.Context, *stac.Statistics) error {
		return stac.Errorf(stac.KindIo, "", "missing")
	})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	counts := map[string]int64{}
	var sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				require.Equal(t, "stac.operations", m.Name)
				for _, dp := range data.DataPoints {
					status, _ := dp.Attributes.Value("status")
					counts[status.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				assert.Equal(t, "stac.operation.duration", m.Name)
				sawHistogram = true
			}
		}
	}
	assert.Equal(t, map[string]int64{"ok": 2, "error": 1}, counts)
	assert.True(t, sawHistogram)
}

func TestTracingDisabled(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	cfg := stacotel.DefaultConfig()
	cfg.TracerProvider = tp
	cfg.EnableTracing = false
	cfg.EnableMetrics = false
	hook := stacotel.NewHook(cfg)

	err := stac.Observe(context.Background(), hook, stac.OperationInfo{Operation: stac.OperationEncode}, func(context.Context, *stac.Statistics) error {
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, recorder.Ended())
}
