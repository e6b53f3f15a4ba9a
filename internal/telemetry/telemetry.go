// Package telemetry configures OpenTelemetry tracing. Task executions are
// exported as "task.run" spans over OTLP/HTTP.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	defaultServiceName = "taskrun"
	defaultTracesPath  = "/v1/traces"
)

// Config configures trace export. An empty Endpoint disables tracing.
type Config struct {
	// Endpoint is the collector base URL, e.g. http://localhost:4318.
	Endpoint string `yaml:"endpoint"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers"`

	// ServiceName defaults to "taskrun".
	ServiceName string `yaml:"service_name"`
}

// Enabled reports whether an endpoint is configured.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// Validate checks the configuration.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("telemetry: endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("telemetry: endpoint scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("telemetry: endpoint %q has no host", c.Endpoint)
	}
	return nil
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Setup returns a tracer provider for cfg. When tracing is disabled it
// returns a no-op provider and a no-op shutdown.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (trace.TracerProvider, ShutdownFunc, error) {
	if !cfg.Enabled() {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	u, _ := url.Parse(cfg.Endpoint)
	if u.Path == "" || u.Path == "/" {
		u.Path = defaultTracesPath
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(u.String())}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	logger.Info("telemetry: tracing enabled", "endpoint", u.Redacted(), "service", name)

	return tp, tp.Shutdown, nil
}
