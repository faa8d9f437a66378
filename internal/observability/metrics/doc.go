// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the digest pipeline's metrics:
//   - Stage metrics (items in/out, drops by reason, duration)
//   - Run metrics (outcome, duration, last run time)
//   - External collaborator latency and content size distributions
//
// All metrics are registered with the Prometheus default registry. The worker
// exposes them on /metrics; the one-shot command pushes them to a Pushgateway
// when PUSHGATEWAY_URL is set.
//
// Example usage:
//
//	start := time.Now()
//	videos := resolveAll(ctx, channels)
//	metrics.RecordStage("resolve", len(channels), len(videos), time.Since(start))
package metrics
