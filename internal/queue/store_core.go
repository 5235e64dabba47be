package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"taskqueue/internal/config"
	"taskqueue/internal/logging"
)

// Store manages task persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	retry  config.BusyRetry
	logger *slog.Logger
}

// Option customizes a Store at open time.
type Option func(*Store)

// WithLogger routes store diagnostics (busy retries) to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "store")
		}
	}
}

const (
	sqliteBusyCode       = 5
	sqliteLockedCode     = 6
	sqliteConstraintCode = 19

	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code() & 0xff, true
	}
	return 0, false
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && (code == sqliteBusyCode || code == sqliteLockedCode) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY") {
		return true
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintPrimaryKey, sqliteConstraintUnique:
			return true
		}
	}
	return false
}

func isConstraintViolation(err error) bool {
	code, ok := sqliteCode(err)
	return ok && code == sqliteConstraintCode
}

// withRetry runs op, retrying busy/locked failures with exponential backoff.
// Exhausting the budget yields an error wrapping ErrStorageUnavailable.
func (s *Store) withRetry(ctx context.Context, opName string, op func() error) error {
	ctx = ensureContext(ctx)
	delay := s.retry.InitialBackoff
	attempts := s.retry.Attempts + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		s.logger.Debug("database busy, retrying",
			logging.String("op", opName),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		if next := delay * 2; next <= s.retry.MaxBackoff {
			delay = next
		} else {
			delay = s.retry.MaxBackoff
		}
	}
	return &storageError{op: opName, attempts: attempts, err: lastErr}
}

func (s *Store) execWithRetry(ctx context.Context, opName, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var res sql.Result
	err := s.withRetry(ctx, opName, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the task database.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("open task store: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		dbPath, cfg.Queue.BusyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{
		db:     db,
		path:   dbPath,
		retry:  cfg.BusyRetryPolicy(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
