package infrastructure

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"outletqa/internal/config"
)

func TestNoopTelemetry(t *testing.T) {
	tel := NoopTelemetry()
	ctx := context.Background()

	_, span := tel.Tracer.Start(ctx, "noop")
	assert.False(t, span.IsRecording())
	span.End()

	counter, err := tel.Meter.Int64Counter("rows")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	assert.NoError(t, tel.Push(ctx))
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestInitializeTelemetryDisabled(t *testing.T) {
	tel, err := InitializeTelemetry(context.Background(), config.TelemetryConfig{TraceExporter: "none"}, nil, nil)
	require.NoError(t, err)

	assert.Nil(t, tel.TracerProvider)
	assert.Nil(t, tel.MeterProvider)
	assert.Nil(t, tel.Registry)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInitializeTelemetryUnsupportedExporter(t *testing.T) {
	_, err := InitializeTelemetry(context.Background(), config.TelemetryConfig{TraceExporter: "jaeger"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestStdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	tel, err := InitializeTelemetry(ctx, config.TelemetryConfig{TraceExporter: "stdout"}, &buf, nil)
	require.NoError(t, err)
	require.NotNil(t, tel.TracerProvider)

	_, span := tel.Tracer.Start(ctx, "outlet.load")
	span.End()

	require.NoError(t, tel.Shutdown(ctx))
	assert.Contains(t, buf.String(), `"Name": "outlet.load"`)
	assert.Contains(t, buf.String(), ServiceName)
}

func TestMetricsRegistry(t *testing.T) {
	ctx := context.Background()
	tel, err := InitializeTelemetry(ctx, config.TelemetryConfig{TraceExporter: "none", MetricsEnabled: true}, nil, nil)
	require.NoError(t, err)
	defer tel.Shutdown(ctx)

	counter, err := tel.Meter.Int64Counter("outlet_rows_loaded")
	require.NoError(t, err)
	counter.Add(ctx, 42)

	families, err := tel.Registry.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "outlet_rows_loaded") {
			found = true
			require.NotEmpty(t, mf.GetMetric())
			assert.Equal(t, 42.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "counter not exported")

	// No Pushgateway configured.
	assert.NoError(t, tel.Push(ctx))
}

func TestPushToPushgateway(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx := WithRunID(context.Background(), "run-42")
	tel, err := InitializeTelemetry(ctx, config.TelemetryConfig{
		TraceExporter:  "none",
		PushgatewayURL: server.URL,
		JobName:        "outlet_report",
	}, nil, nil)
	require.NoError(t, err)
	defer tel.Shutdown(ctx)
	require.NotNil(t, tel.Registry, "push implies metrics")

	counter, err := tel.Meter.Int64Counter("outlet_rows_loaded")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	require.NoError(t, tel.Push(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/outlet_report/run_id/run-42", path)
	assert.NotEmpty(t, body)
}

func TestPushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx := context.Background()
	tel, err := InitializeTelemetry(ctx, config.TelemetryConfig{
		TraceExporter: "none", PushgatewayURL: server.URL, JobName: "outlet_report",
	}, nil, nil)
	require.NoError(t, err)
	defer tel.Shutdown(ctx)

	err = tel.Push(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), server.URL)
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "stage")
	AddSpanEvent(ctx, "rows.loaded", attribute.Int("rows", 5))
	RecordError(ctx, assert.AnError)
	span.End()

	// Helpers are no-ops without a recording span.
	AddSpanEvent(context.Background(), "ignored")
	RecordError(context.Background(), assert.AnError)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var names []string
	for _, e := range spans[0].Events() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"rows.loaded", "exception"}, names)
}
