// Package observability groups the digest's logging, metrics and tracing.
//
// Subpackages:
//   - logging: slog loggers, run_id propagation, credential masking
//   - metrics: Prometheus stage/run/collaborator metrics and Pushgateway push
//   - tracing: OpenTelemetry spans per stage and per item
//
// Example usage:
//
//	import (
//	    "ytdigest/internal/observability/logging"
//	    "ytdigest/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//	    metrics.RecordRun("delivered", time.Since(start))
//	}
package observability
