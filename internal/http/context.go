package http

import (
	"context"
	"log/slog"

	"github.com/example/campus-spots/internal/logging"
)

type contextKey string

const buildingIDContextKey contextKey = "building_id"

// ContextWithBuildingID injects the building identifier resolved from the
// request path.
func ContextWithBuildingID(ctx context.Context, buildingID string) context.Context {
	return context.WithValue(ctx, buildingIDContextKey, buildingID)
}

// BuildingIDFromContext extracts a building identifier previously associated
// with the context.
func BuildingIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(buildingIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request-scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.WithLogger(ctx, logger)
}

// LoggerFromContext extracts the request-scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
