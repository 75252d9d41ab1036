// Package otel bootstraps the tracer provider the step, loop, and workflow
// spans report to. Without an exporter the provider is a no-op, so runs pay
// nothing for tracing unless the caller opts in.
package otel

import (
	"context"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config controls tracer-provider initialization.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// UseStdout exports spans to Writer (stdout by default), pretty-printed.
	// Meant for local runs and tests.
	UseStdout bool
	// Writer overrides the stdout exporter's destination.
	Writer io.Writer
}

// Init installs a global tracer provider and returns its shutdown func. Call
// the shutdown func before exit to flush pending spans.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "nanoagent"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = os.Getenv("NANOAGENT_VERSION")
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.UseStdout {
		expOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Writer != nil {
			expOpts = append(expOpts, stdouttrace.WithWriter(cfg.Writer))
		}
		exp, err := stdouttrace.New(expOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(200*time.Millisecond)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
