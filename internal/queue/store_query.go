package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Order selects how Query sorts its results.
type Order int

const (
	// OrderCreated lists tasks oldest first.
	OrderCreated Order = iota
	// OrderPriority lists tasks the way a worker should pick them up: highest
	// priority first, then earliest due (scheduled_for, else created_at).
	OrderPriority
)

func (o Order) clause() string {
	switch o {
	case OrderPriority:
		return "priority DESC, COALESCE(scheduled_for, created_at) ASC, created_at ASC, id ASC"
	default:
		return "created_at ASC, id ASC"
	}
}

// Filter narrows a query. Zero values do not constrain the result.
type Filter struct {
	Statuses []Status
	// AssignedTo matches the assignee exactly; a pointer to "" selects
	// unassigned tasks.
	AssignedTo  *string
	Priority    Priority
	MinPriority Priority
	// ReadyBy keeps only tasks whose schedule is absent or not after the instant.
	ReadyBy *time.Time
	// Metadata requires top-level keys to equal the given scalar values.
	Metadata map[string]any
	// CompletedBefore keeps only tasks finished strictly before the instant.
	CompletedBefore *time.Time
}

func (f Filter) where() (string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	if len(f.Statuses) > 0 {
		for _, status := range f.Statuses {
			if !status.Valid() {
				return "", nil, &InputError{Field: "status", Value: string(status), Reason: "unknown status"}
			}
			args = append(args, status)
		}
		clauses = append(clauses, "status IN ("+makePlaceholders(len(f.Statuses))+")")
	}
	if f.AssignedTo != nil {
		if *f.AssignedTo == "" {
			clauses = append(clauses, "assigned_to IS NULL")
		} else {
			clauses = append(clauses, "assigned_to = ?")
			args = append(args, *f.AssignedTo)
		}
	}
	if f.Priority != 0 {
		if !f.Priority.Valid() {
			return "", nil, &InputError{Field: "priority", Value: fmt.Sprint(int(f.Priority)), Reason: "out of range"}
		}
		clauses = append(clauses, "priority = ?")
		args = append(args, int(f.Priority))
	}
	if f.MinPriority != 0 {
		if !f.MinPriority.Valid() {
			return "", nil, &InputError{Field: "min_priority", Value: fmt.Sprint(int(f.MinPriority)), Reason: "out of range"}
		}
		clauses = append(clauses, "priority >= ?")
		args = append(args, int(f.MinPriority))
	}
	if f.ReadyBy != nil {
		clauses = append(clauses, "(scheduled_for IS NULL OR scheduled_for <= ?)")
		args = append(args, formatTimestamp(*f.ReadyBy))
	}
	if f.CompletedBefore != nil {
		clauses = append(clauses, "completed_at IS NOT NULL AND completed_at < ?")
		args = append(args, formatTimestamp(*f.CompletedBefore))
	}
	if len(f.Metadata) > 0 {
		keys := make([]string, 0, len(f.Metadata))
		for key := range f.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := ValidateMetadataKey(key); err != nil {
				return "", nil, err
			}
			value, types, err := metadataScalar(key, f.Metadata[key])
			if err != nil {
				return "", nil, err
			}
			path := metadataPath(key)
			if len(types) > 0 {
				clauses = append(clauses, "json_type(metadata_json, ?) IN ("+makePlaceholders(len(types))+")")
				args = append(args, path)
				for _, t := range types {
					args = append(args, t)
				}
			}
			clauses = append(clauses, "json_extract(metadata_json, ?) IS ?")
			args = append(args, path, value)
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// Query returns tasks matching filter in the requested order. A limit of zero
// or less returns every match.
func (s *Store) Query(ctx context.Context, filter Filter, order Order, limit int) ([]*Task, error) {
	ctx = ensureContext(ctx)
	where, args, err := filter.where()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY ` + order.clause()
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	tasks := make([]*Task, 0)
	err = s.withRetry(ctx, "query tasks", func() error {
		tasks = tasks[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	return tasks, nil
}

// Count returns the number of tasks matching filter.
func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	ctx = ensureContext(ctx)
	where, args, err := filter.where()
	if err != nil {
		return 0, err
	}
	var count int
	err = s.withRetry(ctx, "count tasks", func() error {
		return s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks`+where, args...).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}
