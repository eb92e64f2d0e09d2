// Package logging provides structured logging utilities with context propagation.
//
// Key features:
//   - JSON and text output formats
//   - Run ID propagation
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "comic-notifier/internal/observability/logging"
//
//	func runSync(ctx context.Context) {
//	    ctx = logging.WithRunID(ctx, logging.NewLogger(), uuid.NewString())
//	    logging.FromContext(ctx).Info("Starting sync.")
//	}
package logging
