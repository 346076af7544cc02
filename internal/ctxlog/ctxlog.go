// Package ctxlog carries the build logger through context.Context so every
// stage logs with the level and format chosen on the command line.
package ctxlog

import (
	"context"
	"log/slog"
)

type key struct{}

var loggerKey = key{}

// WithLogger returns a copy of ctx that carries logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored by WithLogger. The toolchain, the
// manifest loader and the step executor are also called directly, outside
// an app run; with no logger in ctx they log through slog.Default rather
// than failing the build.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
