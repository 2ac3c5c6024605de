package core

import (
	"context"

	"github.com/rs/zerolog"
)

// WithLogger attaches logger to ctx for the Execute functions.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// loggerFrom returns the logger attached to ctx, or a disabled logger
func loggerFrom(ctx context.Context) zerolog.Logger {
	return *zerolog.Ctx(ctx)
}
