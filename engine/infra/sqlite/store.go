package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/compozy/triggers/pkg/logger"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	driverName         = "sqlite"
	memoryPath         = ":memory:"
	defaultBusyTimeout = 5 * time.Second
)

// Store wraps the database/sql handle for a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the database and verifies the connection. An in-memory
// database is pinned to a single connection.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil || strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	db, err := sql.Open(driverName, buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	configurePool(db, cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	logger.FromContext(ctx).With("store_driver", "sqlite", "path", cfg.Path).Info("Store initialized")
	return &Store{db: db, path: cfg.Path}, nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	logger.FromContext(ctx).Info("SQLite store closed")
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

func isMemory(path string) bool {
	return path == memoryPath || strings.Contains(path, "mode=memory")
}

func buildDSN(cfg *Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	pragmas := []string{
		"_pragma=foreign_keys(ON)",
		"_time_format=sqlite",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy.Milliseconds()),
	}
	if isMemory(cfg.Path) {
		return "file::memory:?" + strings.Join(pragmas, "&")
	}
	pragmas = append([]string{"_pragma=journal_mode(WAL)"}, pragmas...)
	return "file:" + cfg.Path + "?" + strings.Join(pragmas, "&")
}

func configurePool(db *sql.DB, cfg *Config) {
	if isMemory(cfg.Path) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
