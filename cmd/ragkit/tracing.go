package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// traceEnv names a file that receives index and retrieval spans as JSON.
// "-" writes to stderr.
const traceEnv = "RAGKIT_TRACE"

// setupTracing installs a tracer provider exporting to target. An empty
// target leaves the global no-op provider in place.
func setupTracing(target string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if target == "" {
		return noop, nil
	}

	var w io.Writer = os.Stderr
	var f *os.File
	if target != "-" {
		f, err = os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return noop, fmt.Errorf("open trace file: %w", err)
		}
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return noop, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if f != nil {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}, nil
}
