// Package telemetry configures OpenTelemetry tracing for CodeBot.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	serviceName = "codebot"
	tracerName  = "github.com/cchalm/codebot"
)

// Version is stamped at build time via -ldflags
var Version = "dev"

// TelemetryConfig holds the configuration for telemetry
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
}

// Provider manages the telemetry system
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	logger         *zap.Logger
}

// NewProvider creates a new telemetry provider. When telemetry is disabled the global no-op tracer stays in place
func NewProvider(ctx context.Context, config TelemetryConfig, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("telemetry")

	if !config.Enabled {
		logger.Debug("telemetry disabled")
		return &Provider{logger: logger}, nil
	}

	var opts []otlptracehttp.Option
	if config.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(config.OTLPEndpoint))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(Version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("telemetry enabled", zap.String("endpoint", config.OTLPEndpoint))
	return &Provider{tracerProvider: tp, logger: logger}, nil
}

// Shutdown flushes pending spans and shuts down the telemetry provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	p.logger.Debug("shutting down telemetry provider")
	return p.tracerProvider.Shutdown(ctx)
}

// StartSpan starts a span on the CodeBot tracer
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
