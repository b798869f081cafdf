package logging

import (
	"context"
	"time"
)

type contextKey string

const (
	dateKey  contextKey = "date"
	runIDKey contextKey = "run_id"
)

// WithDate adds the scheduling date being worked on to the context.
func WithDate(ctx context.Context, date time.Time) context.Context {
	return context.WithValue(ctx, dateKey, date.Format(time.DateOnly))
}

// WithRunID adds an allocation run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetDate retrieves the scheduling date (YYYY-MM-DD) from the context.
// Returns empty string if not present.
func GetDate(ctx context.Context) string {
	if d, ok := ctx.Value(dateKey).(string); ok {
		return d
	}
	return ""
}

// GetRunID retrieves the run ID from the context.
// Returns empty string if not present.
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}
