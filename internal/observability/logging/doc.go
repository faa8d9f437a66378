// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Run ID propagation (every line of one digest run shares a run_id)
//   - Credential masking for logged errors
//   - Configurable log levels
//
// Example usage:
//
//	import "ytdigest/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    ctx, runID := logging.WithRunID(context.Background(), logger, "")
//	    logging.FromContext(ctx).Info("run started", slog.String("run_id", runID))
//	}
package logging
