package sqlite

import "time"

// Config selects the trigger database file and its pool limits. Zero values
// keep the database/sql defaults.
type Config struct {
	// Path is a file path or ":memory:".
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// BusyTimeout is applied through PRAGMA busy_timeout; 5s when unset.
	BusyTimeout time.Duration
}
