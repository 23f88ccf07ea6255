// Package logging carries a request-scoped slog.Logger through contexts so
// services and handlers share one correlated logger per request.
package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithLogger returns a derived context carrying the provided logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context, or nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}
