package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"outletqa/internal/config"
)

const (
	ServiceName         = config.AppName
	ServiceVersion      = config.AppVersion
	InstrumentationName = "outletqa"
)

// Telemetry holds the tracer and meter of one run and the providers behind
// them. Providers are nil when the matching signal is disabled.
type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Registry       *promclient.Registry

	pushURL string
	jobName string
	logger  *slog.Logger
}

// NoopTelemetry returns telemetry that records nothing
func NoopTelemetry() *Telemetry {
	return &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		Meter:  metricnoop.NewMeterProvider().Meter(InstrumentationName),
		logger: slog.Default(),
	}
}

// InitializeTelemetry sets up tracing and metrics from cfg. Spans are
// written to traceOut when the stdout exporter is selected. Metrics are
// collected into a private Prometheus registry, pushed by Push when a
// Pushgateway URL is configured.
func InitializeTelemetry(ctx context.Context, cfg config.TelemetryConfig, traceOut io.Writer, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := NoopTelemetry()
	t.logger = logger
	t.pushURL = cfg.PushgatewayURL
	t.jobName = cfg.JobName

	res := createResource()

	if err := t.initializeTracing(ctx, cfg, traceOut, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.MetricsEnabled || cfg.PushgatewayURL != "" {
		if err := t.initializeMetrics(ctx, res); err != nil {
			_ = t.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	logger.DebugContext(ctx, "telemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", t.MeterProvider != nil),
		slog.Bool("push_enabled", t.pushURL != ""))
	return t, nil
}

// createResource creates the OpenTelemetry resource
func createResource() *resource.Resource {
	hostname, _ := os.Hostname()
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("host.name", hostname),
	)
}

func (t *Telemetry) initializeTracing(ctx context.Context, cfg config.TelemetryConfig, traceOut io.Writer, res *resource.Resource) error {
	switch cfg.TraceExporter {
	case "", "none":
		return nil
	case "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if traceOut == nil {
		traceOut = os.Stderr
	}
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traceOut),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.TracerProvider = tp
	t.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(ServiceVersion))
	otel.SetTracerProvider(tp)

	t.logger.DebugContext(ctx, "tracing initialized", slog.String("exporter", cfg.TraceExporter))
	return nil
}

func (t *Telemetry) initializeMetrics(ctx context.Context, res *resource.Resource) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Registry = registry
	t.MeterProvider = mp
	t.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(ServiceVersion))
	otel.SetMeterProvider(mp)

	t.logger.DebugContext(ctx, "metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// Push sends the collected metrics to the Pushgateway, grouped by run ID.
// It does nothing when no Pushgateway is configured.
func (t *Telemetry) Push(ctx context.Context) error {
	if t.pushURL == "" || t.Registry == nil {
		return nil
	}

	pusher := push.New(t.pushURL, t.jobName).Gatherer(t.Registry)
	if runID := GetRunID(ctx); runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", t.pushURL, err)
	}

	t.logger.InfoContext(ctx, "metrics pushed", slog.String("pushgateway", t.pushURL))
	return nil
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var merr *multierror.Error
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("meter provider: %w", err))
		}
	}
	return merr.ErrorOrNil()
}

// RecordError records err on the span in ctx and marks it failed
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event with attributes to the span in ctx
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
