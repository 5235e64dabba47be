package queue

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// timestampLayout is fixed width so lexical comparison in SQL matches
// chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

var taskColumns = strings.Join(taskColumnNames, ", ")

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(timestampLayout, raw); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

func nullableTimestamp(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTimestamp(*t)
}

func parseNullableTimestamp(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	ts, err := parseTimestamp(raw.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id           string
		title        string
		description  sql.NullString
		assignedTo   sql.NullString
		statusStr    string
		priority     int
		createdRaw   string
		scheduledRaw sql.NullString
		completedRaw sql.NullString
		metadataRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&description,
		&assignedTo,
		&statusStr,
		&priority,
		&createdRaw,
		&scheduledRaw,
		&completedRaw,
		&metadataRaw,
	); err != nil {
		return nil, err
	}

	createdAt, err := parseTimestamp(createdRaw)
	if err != nil {
		return nil, fmt.Errorf("task %s created_at: %w", id, err)
	}
	scheduledFor, err := parseNullableTimestamp(scheduledRaw)
	if err != nil {
		return nil, fmt.Errorf("task %s scheduled_for: %w", id, err)
	}
	completedAt, err := parseNullableTimestamp(completedRaw)
	if err != nil {
		return nil, fmt.Errorf("task %s completed_at: %w", id, err)
	}
	metadata, err := DecodeMetadata(metadataRaw.String)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}

	return &Task{
		ID:           id,
		Title:        title,
		Description:  description.String,
		AssignedTo:   assignedTo.String,
		Status:       Status(statusStr),
		Priority:     Priority(priority),
		CreatedAt:    createdAt,
		ScheduledFor: scheduledFor,
		CompletedAt:  completedAt,
		Metadata:     metadata,
	}, nil
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
