package logger

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// FromContext returns the logger from the context. If no logger is found, the
// top-level logger is returned.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logger
	}
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return log
	}
	return logger
}

// NewContext returns a new context with logger attached.
func NewContext(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

// WithContext returns a new context with given logger attributes.
func WithContext(ctx context.Context, args ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(args...))
}
