package migration

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteConfig holds SQLite-specific database configuration.
type SQLiteConfig struct {
	// DSN is the database file path or connection string.
	DSN string

	// BusyTimeout sets how long to wait for database locks.
	BusyTimeout time.Duration

	// EnableForeignKeys enables foreign key constraint checking.
	EnableForeignKeys bool

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, ...).
	JournalMode string

	// Synchronous sets the synchronous mode (FULL, NORMAL, OFF).
	Synchronous string

	// MaxOpenConns sets the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns sets the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime sets the maximum lifetime of connections.
	ConnMaxLifetime time.Duration
}

// DefaultSQLiteConfig returns a configuration suitable for the scheduler's
// single-writer workload.
func DefaultSQLiteConfig(dsn string) SQLiteConfig {
	return SQLiteConfig{
		DSN:               dsn,
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		MaxOpenConns:      1,
		MaxIdleConns:      1,
	}
}

// ConnectionManager produces configured SQLite database connections.
type ConnectionManager interface {
	// GetConnection returns a configured SQLite database connection.
	GetConnection() (*sql.DB, error)

	// ConfigureDatabase applies SQLite-specific settings to an existing connection.
	ConfigureDatabase(db *sql.DB) error

	// ValidateConfig validates the SQLite configuration.
	ValidateConfig() error
}

type sqliteConnectionManager struct {
	config SQLiteConfig
}

// NewConnectionManager creates a new SQLite connection manager.
func NewConnectionManager(config SQLiteConfig) ConnectionManager {
	return &sqliteConnectionManager{config: config}
}

func (cm *sqliteConnectionManager) GetConnection() (*sql.DB, error) {
	if err := cm.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid SQLite configuration: %w", err)
	}

	if err := cm.ensureDatabaseDir(); err != nil {
		return nil, fmt.Errorf("failed to prepare database directory: %w", err)
	}

	db, err := sql.Open("sqlite", cm.config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if cm.config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cm.config.MaxOpenConns)
	}
	if cm.config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cm.config.MaxIdleConns)
	}
	if cm.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cm.config.ConnMaxLifetime)
	}

	if err := cm.ConfigureDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (cm *sqliteConnectionManager) ConfigureDatabase(db *sql.DB) error {
	pragmas := make([]string, 0, 4)

	if cm.config.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", cm.config.BusyTimeout.Milliseconds()))
	}
	if cm.config.EnableForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if cm.config.JournalMode != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA journal_mode = %s", cm.config.JournalMode))
	}
	if cm.config.Synchronous != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA synchronous = %s", cm.config.Synchronous))
	}

	// journal_mode and busy_timeout pragmas report their value as a row, so
	// they are read rather than executed.
	for _, pragma := range pragmas {
		rows, err := db.Query(pragma)
		if err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

func (cm *sqliteConnectionManager) ValidateConfig() error {
	if strings.TrimSpace(cm.config.DSN) == "" {
		return fmt.Errorf("DSN must not be empty")
	}

	switch strings.ToUpper(cm.config.JournalMode) {
	case "", "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
	default:
		return fmt.Errorf("unsupported journal mode %q", cm.config.JournalMode)
	}

	switch strings.ToUpper(cm.config.Synchronous) {
	case "", "FULL", "NORMAL", "OFF", "EXTRA":
	default:
		return fmt.Errorf("unsupported synchronous mode %q", cm.config.Synchronous)
	}

	return nil
}

// ensureDatabaseDir creates the parent directory of a file-backed DSN.
// In-memory and URI DSNs are left alone.
func (cm *sqliteConnectionManager) ensureDatabaseDir() error {
	dsn := cm.config.DSN
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
