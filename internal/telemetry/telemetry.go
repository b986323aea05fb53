// Package telemetry installs the OpenTelemetry providers the relay logs
// and traces through.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	ServiceName string
	// LogLevel is one of debug, info, warn or error.
	LogLevel string
	// TraceStdout also writes finished spans to Writer.
	TraceStdout bool
	// Writer receives exported records. Defaults to os.Stdout.
	Writer io.Writer
}

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(context.Context) error

// Setup installs global logger and tracer providers. Records below the
// configured level are dropped.
func Setup(cfg Config) (ShutdownFunc, error) {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	logExporter, err := stdoutlog.New(stdoutlog.WithWriter(writer))
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(minSeverityProcessor{
			Processor: sdklog.NewSimpleProcessor(logExporter),
			min:       ParseSeverity(cfg.LogLevel),
		}),
	)
	global.SetLoggerProvider(loggerProvider)

	shutdowns := []ShutdownFunc{loggerProvider.Shutdown}

	if cfg.TraceStdout {
		traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(writer))
		if err != nil {
			_ = loggerProvider.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(traceExporter),
		)
		otel.SetTracerProvider(tracerProvider)
		shutdowns = append(shutdowns, tracerProvider.Shutdown)
	}

	return func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}, nil
}

// ParseSeverity maps a level name to the lowest severity that is kept.
// Unknown names map to info.
func ParseSeverity(level string) log.Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.SeverityDebug
	case "warn", "warning":
		return log.SeverityWarn
	case "error":
		return log.SeverityError
	default:
		return log.SeverityInfo
	}
}

type minSeverityProcessor struct {
	sdklog.Processor
	min log.Severity
}

func (p minSeverityProcessor) OnEmit(ctx context.Context, record *sdklog.Record) error {
	if record.Severity() < p.min {
		return nil
	}
	return p.Processor.OnEmit(ctx, record)
}
