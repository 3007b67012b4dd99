// Package tracing wraps OpenTelemetry spans around pipeline stages and
// provider calls.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/codepair/internal/llm"
)

// TracerName identifies spans created by this module.
const TracerName = "github.com/Iron-Ham/codepair"

// Tracer returns the tracer from the global provider. Until Setup is called
// the global provider is a no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartRun starts the root span of one pipeline run.
func StartRun(ctx context.Context, tracer trace.Tracer, runID string, maxTurns int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.max_turns", maxTurns),
	)
	return ctx, span
}

// StartStage starts a span for one stage call made by the given agent.
func StartStage(ctx context.Context, tracer trace.Tracer, stage string, agent llm.AgentConfig) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "stage."+stage)
	span.SetAttributes(
		attribute.String("stage.name", stage),
		attribute.String("agent.provider", agent.Provider),
		attribute.String("agent.model", agent.Model),
	)
	return ctx, span
}

// End records err (if any) on span and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Setup installs a global tracer provider that writes finished spans to w
// as JSON. The returned function flushes and uninstalls it.
func Setup(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
