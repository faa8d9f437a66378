package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "ytdigest"

// GetTracer returns the tracer for creating spans.
// It is resolved from the global provider on every call so a provider
// installed after package init (tests, main) is picked up.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartStage opens the span for one pipeline stage ("digest.resolve", ...).
func StartStage(ctx context.Context, stage string, inputs int) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "digest."+stage,
		trace.WithAttributes(
			attribute.String("digest.stage", stage),
			attribute.Int("digest.stage.in", inputs),
		),
	)
}

// StartItem opens a child span for one item inside a stage.
func StartItem(ctx context.Context, stage, itemID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "digest."+stage+".item",
		trace.WithAttributes(attribute.String("digest.item", itemID)),
	)
}

// End records err (if any) on span, sets the output count and ends it.
func End(span trace.Span, outputs int, err error) {
	span.SetAttributes(attribute.Int("digest.stage.out", outputs))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
