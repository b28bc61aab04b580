// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// missionIDKey is the context key for mission correlation IDs.
type missionIDKey struct{}

// New creates a new structured JSON logger.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// WithMissionID returns a new context with the given mission ID.
func WithMissionID(ctx context.Context, missionID string) context.Context {
	return context.WithValue(ctx, missionIDKey{}, missionID)
}

// MissionIDFromContext extracts the mission ID from the context.
func MissionIDFromContext(ctx context.Context) string {
	if v := ctx.Value(missionIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields (mission ID, etc.)
// attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if missionID := MissionIDFromContext(ctx); missionID != "" {
		return base.With("mission_id", missionID)
	}
	return base
}
