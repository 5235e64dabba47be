package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTaskID is the standardized structured logging key for task identifiers.
	FieldTaskID = "task_id"
	// FieldStatus is the standardized structured logging key for task statuses.
	FieldStatus = "status"
	// FieldAssignee is the standardized structured logging key for task assignees.
	FieldAssignee = "assignee"
	// FieldError carries the error attached to a failure log line.
	FieldError = "error"
)

type contextKey int

const (
	taskIDKey contextKey = iota
	assigneeKey
)

// WithTaskID annotates ctx with the task being operated on.
func WithTaskID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, taskIDKey, id)
}

// WithAssignee annotates ctx with the acting assignee.
func WithAssignee(ctx context.Context, assignee string) context.Context {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return ctx
	}
	return context.WithValue(ctx, assigneeKey, assignee)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(taskIDKey).(string); ok {
		fields = append(fields, slog.String(FieldTaskID, id))
	}
	if assignee, ok := ctx.Value(assigneeKey).(string); ok {
		fields = append(fields, slog.String(FieldAssignee, assignee))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
