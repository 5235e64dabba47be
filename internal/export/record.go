package export

import (
	"fmt"
	"strings"
	"time"

	"taskqueue/internal/queue"
)

// record is the flat, encoding-neutral shape of an exported task.
type record struct {
	ID           string      `json:"id" yaml:"id"`
	Title        string      `json:"title" yaml:"title"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
	AssignedTo   string      `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
	Status       string      `json:"status" yaml:"status"`
	Priority     string      `json:"priority" yaml:"priority"`
	CreatedAt    string      `json:"created_at" yaml:"created_at"`
	ScheduledFor string      `json:"scheduled_for,omitempty" yaml:"scheduled_for,omitempty"`
	CompletedAt  string      `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Metadata     metadataDoc `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func toRecord(task *queue.Task) record {
	rec := record{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		AssignedTo:  task.AssignedTo,
		Status:      string(task.Status),
		Priority:    task.Priority.String(),
		CreatedAt:   formatTime(task.CreatedAt),
	}
	if task.ScheduledFor != nil {
		rec.ScheduledFor = formatTime(*task.ScheduledFor)
	}
	if task.CompletedAt != nil {
		rec.CompletedAt = formatTime(*task.CompletedAt)
	}
	if len(task.Metadata) > 0 {
		rec.Metadata = metadataDoc(task.Metadata)
	}
	return rec
}

func (r record) task() (*queue.Task, error) {
	status, err := queue.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	priority, err := queue.ParsePriority(r.Priority)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.ID) == "" {
		return nil, &queue.InputError{Field: "id", Reason: "must not be empty"}
	}
	created, err := parseTime("created_at", r.CreatedAt)
	if err != nil {
		return nil, err
	}
	meta, err := queue.NormalizeMetadata(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", r.ID, err)
	}

	task := &queue.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		Status:      status,
		Priority:    priority,
		CreatedAt:   created,
		Metadata:    meta,
	}
	if task.ScheduledFor, err = parseOptionalTime("scheduled_for", r.ScheduledFor); err != nil {
		return nil, err
	}
	if task.CompletedAt, err = parseOptionalTime("completed_at", r.CompletedAt); err != nil {
		return nil, err
	}
	return task, nil
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTime(field, value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &queue.InputError{Field: field, Value: value, Reason: "must be an RFC3339 timestamp"}
	}
	return ts.UTC(), nil
}

func parseOptionalTime(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	ts, err := parseTime(field, value)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
