package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DatabaseHealth describes the state of the task database for diagnostics.
type DatabaseHealth struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present,omitempty"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalTasks       int      `json:"total_tasks"`
	Error            string   `json:"error,omitempty"`
}

// Healthy reports whether every diagnostic passed.
func (h DatabaseHealth) Healthy() bool {
	return h.DatabaseExists && h.DatabaseReadable && h.TableExists &&
		len(h.MissingColumns) == 0 && h.IntegrityCheck && h.SchemaVersion == schemaVersion && h.Error == ""
}

// StatusCounts returns the number of tasks per status among those matching filter.
// Statuses with no tasks are absent from the map.
func (s *Store) StatusCounts(ctx context.Context, filter Filter) (map[Status]int, error) {
	return groupCounts(ctx, s, "status", filter, func(key string) Status { return Status(key) })
}

// AssigneeCounts returns the number of assigned tasks per assignee.
func (s *Store) AssigneeCounts(ctx context.Context, filter Filter) (map[string]int, error) {
	return groupCounts(ctx, s, "assigned_to", filter, func(key string) string { return key })
}

func groupCounts[K comparable](ctx context.Context, s *Store, column string, filter Filter, key func(string) K) (map[K]int, error) {
	ctx = ensureContext(ctx)
	where, args, err := filter.where()
	if err != nil {
		return nil, err
	}
	if where == "" {
		where = " WHERE "
	} else {
		where += " AND "
	}
	where += column + " IS NOT NULL"

	counts := make(map[K]int)
	err = s.withRetry(ctx, "count by "+column, func() error {
		clear(counts)
		rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(1) FROM tasks`+where+` GROUP BY `+column, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				value string
				count int
			)
			if err := rows.Scan(&value, &count); err != nil {
				return err
			}
			counts[key(value)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("count tasks by %s: %w", column, err)
	}
	return counts, nil
}

// Purge deletes terminal tasks in the given statuses that completed (or, for
// cancelled tasks, were created) before olderThan. A zero olderThan removes
// every match. Non-terminal statuses are rejected.
func (s *Store) Purge(ctx context.Context, statuses []Status, olderThan time.Time) (int64, error) {
	if len(statuses) == 0 {
		statuses = []Status{StatusCompleted, StatusFailed, StatusCancelled}
	}
	args := make([]any, 0, len(statuses)+2)
	for _, status := range statuses {
		if !status.IsTerminal() {
			return 0, &InputError{Field: "status", Value: string(status), Reason: "only terminal tasks can be purged"}
		}
		args = append(args, status)
	}

	query := `DELETE FROM tasks WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
	if !olderThan.IsZero() {
		query += ` AND COALESCE(completed_at, created_at) < ?`
		args = append(args, formatTimestamp(olderThan))
	}

	res, err := s.execWithRetry(ctx, "purge tasks", query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	return res.RowsAffected()
}

// CheckHealth returns diagnostic information about the task database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("task database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat task database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("task database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("task database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping task database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil && !errors.Is(err, sql.ErrNoRows) {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	columns, err := s.tableColumns(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.TableExists = len(columns) > 0
	health.ColumnsPresent = columns

	if health.TableExists {
		present := make(map[string]struct{}, len(columns))
		for _, col := range columns {
			present[col] = struct{}{}
		}
		for _, col := range taskColumnNames {
			if _, ok := present[col]; !ok {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}

		if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM tasks").Scan(&health.TotalTasks); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count tasks: %w", err)
		}
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

func (s *Store) tableColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(tasks)")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return columns, nil
}
