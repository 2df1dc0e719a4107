// Package observability provides OpenTelemetry tracing for phasegen.
// Spans cover whole replay runs and individual batch refills, so a slow
// producer shows up directly in the trace of the run it stalled.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer   trace.Tracer
	initOnce sync.Once
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
	BatchTimeout   time.Duration
}

// DefaultTracingConfig returns a development-friendly tracing setup with
// a pretty-printed stdout exporter and full sampling.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "phasegen",
		ServiceVersion: "dev",
		Environment:    "development",
		SamplingRate:   1.0,
		BatchTimeout:   5 * time.Second,
	}
}

// Init sets up the global tracer provider. Safe to call more than once;
// only the first call takes effect.
func Init(config TracingConfig) error {
	var err error
	initOnce.Do(func() {
		err = initTracing(config)
	})
	return err
}

func initTracing(config TracingConfig) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(config.BatchTimeout),
		),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer(config.ServiceName)

	return nil
}

// Tracer returns the global tracer, falling back to the otel default when
// Init has not run.
func Tracer() trace.Tracer {
	if tracer == nil {
		return otel.Tracer("phasegen")
	}
	return tracer
}

// StartRun opens a span covering one worker's replay run.
func StartRun(ctx context.Context, source string, worker int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "phasegen.replay_run",
		trace.WithAttributes(
			attribute.String("phasegen.source", source),
			attribute.Int("phasegen.worker", worker),
		),
	)
}

// StartRefill opens a span covering one batch producer refill.
func StartRefill(ctx context.Context, source string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "phasegen.batch_refill",
		trace.WithAttributes(
			attribute.String("phasegen.source", source),
		),
	)
}

// Shutdown flushes and stops the tracer provider.
func Shutdown(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); ok {
		return tp.Shutdown(ctx)
	}
	return nil
}
