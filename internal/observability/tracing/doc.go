// Package tracing provides OpenTelemetry spans for digest runs.
//
// One span is opened per pipeline stage with child spans per item, carrying
// the stage's input and output counts as attributes. No exporter is configured
// here; whatever TracerProvider the process installs globally receives the spans.
//
// Example usage:
//
//	ctx, span := tracing.StartStage(ctx, "resolve", len(channels))
//	// ... resolve ...
//	tracing.End(span, len(videos), nil)
package tracing
