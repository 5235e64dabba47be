package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// StatusUpdate carries the side effects applied together with a status change.
type StatusUpdate struct {
	// CompletedAt is written only when the column is still empty.
	CompletedAt *time.Time
	// SetMetadata keys are merged into the stored document; other keys are kept.
	SetMetadata Metadata
}

// Insert persists a new task. The caller supplies every field, including the id.
func (s *Store) Insert(ctx context.Context, task *Task) error {
	if task == nil {
		return &InputError{Field: "task", Reason: "must not be nil"}
	}
	if strings.TrimSpace(task.ID) == "" {
		return &InputError{Field: "id", Reason: "must not be empty"}
	}
	metadata, err := task.Metadata.Encode()
	if err != nil {
		return &InputError{Field: "metadata", Reason: err.Error()}
	}

	_, err = s.execWithRetry(ctx, "insert task",
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Title,
		task.Description,
		nullableString(task.AssignedTo),
		task.Status,
		int(task.Priority),
		formatTimestamp(task.CreatedAt),
		nullableTimestamp(task.ScheduledFor),
		nullableTimestamp(task.CompletedAt),
		nullableString(metadata),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("insert task %s: %w", task.ID, ErrDuplicateID)
	case isConstraintViolation(err):
		return &InputError{Field: "task", Value: task.ID, Reason: err.Error()}
	default:
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}
}

// Get fetches a task by id.
func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	ctx = ensureContext(ctx)
	var task *Task
	err := s.withRetry(ctx, "get task", func() error {
		row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
		var scanErr error
		task, scanErr = scanTask(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// UpdateStatus moves a task from expected to next in one conditional UPDATE.
// When no row matches, the task is re-read to report either a NotFoundError or
// a StaleError carrying the status that is actually stored.
func (s *Store) UpdateStatus(ctx context.Context, id string, expected, next Status, update StatusUpdate) (*Task, error) {
	setClauses := []string{"status = ?", "completed_at = COALESCE(completed_at, ?)"}
	args := []any{next, nullableTimestamp(update.CompletedAt)}

	if len(update.SetMetadata) > 0 {
		keys := make([]string, 0, len(update.SetMetadata))
		for key := range update.SetMetadata {
			if err := ValidateMetadataKey(key); err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		expr := "json_set(COALESCE(NULLIF(metadata_json, ''), '{}')"
		for _, key := range keys {
			raw, err := encodeJSONValue(update.SetMetadata[key])
			if err != nil {
				return nil, &InputError{Field: "metadata." + key, Reason: err.Error()}
			}
			expr += ", ?, json(?)"
			args = append(args, metadataPath(key), raw)
		}
		expr += ")"
		setClauses = append(setClauses, "metadata_json = "+expr)
	}
	args = append(args, id, expected)

	res, err := s.execWithRetry(ctx, "update status",
		`UPDATE tasks SET `+strings.Join(setClauses, ", ")+` WHERE id = ? AND status = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update task %s status: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update task %s status: %w", id, err)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &StaleError{ID: id, Expected: expected, Current: current.Status}
	}
	return current, nil
}
