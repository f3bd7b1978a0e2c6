package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration is one ordered schema change applied within a transaction.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// AppliedMigration records a migration that has been successfully applied.
type AppliedMigration struct {
	Version   string
	AppliedAt time.Time
}

// Migrations returns the full ordered schema history of the maintenance
// scheduler database. New schema changes are appended, never edited.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     "001",
			Description: "create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					username      TEXT PRIMARY KEY,
					password_hash TEXT NOT NULL,
					role          TEXT NOT NULL CHECK (role IN ('admin', 'maintainer', 'planner')),
					created_at    TEXT NOT NULL,
					updated_at    TEXT NOT NULL
				);
			`,
		},
		{
			Version:     "002",
			Description: "create maintenance_activities table",
			SQL: `
				CREATE TABLE IF NOT EXISTS maintenance_activities (
					activity_id         INTEGER PRIMARY KEY AUTOINCREMENT,
					activity_type       TEXT NOT NULL CHECK (activity_type IN ('planned', 'unplanned', 'extra')),
					site                TEXT NOT NULL,
					typology            TEXT NOT NULL,
					description         TEXT NOT NULL DEFAULT '',
					interruptible       INTEGER NOT NULL DEFAULT 0,
					materials           TEXT,
					workspace_notes     TEXT,
					estimated_time      INTEGER NOT NULL CHECK (estimated_time > 0),
					week                INTEGER NOT NULL CHECK (week >= 1 AND week <= 52),
					week_day            TEXT CHECK (week_day IS NULL OR week_day IN ('monday', 'tuesday', 'wednesday', 'thursday', 'friday', 'saturday', 'sunday')),
					start_time          INTEGER CHECK (start_time IS NULL OR (start_time >= 0 AND start_time <= 24)),
					maintainer_username TEXT REFERENCES users (username) ON DELETE SET NULL,
					created_at          TEXT NOT NULL,
					updated_at          TEXT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_activities_week ON maintenance_activities (week);
				CREATE INDEX IF NOT EXISTS idx_activities_assignment ON maintenance_activities (maintainer_username, week, week_day);
			`,
		},
		{
			Version:     "003",
			Description: "create availability_blocks table",
			SQL: `
				CREATE TABLE IF NOT EXISTS availability_blocks (
					id                  INTEGER PRIMARY KEY AUTOINCREMENT,
					maintainer_username TEXT NOT NULL REFERENCES users (username) ON DELETE CASCADE,
					week_day            TEXT NOT NULL CHECK (week_day IN ('monday', 'tuesday', 'wednesday', 'thursday', 'friday', 'saturday', 'sunday')),
					start_hour          INTEGER NOT NULL CHECK (start_hour >= 0 AND start_hour <= 23),
					end_hour            INTEGER NOT NULL CHECK (end_hour >= 1 AND end_hour <= 24),
					created_at          TEXT NOT NULL,
					updated_at          TEXT NOT NULL,
					CHECK (end_hour > start_hour)
				);
				CREATE INDEX IF NOT EXISTS idx_availability_day ON availability_blocks (maintainer_username, week_day);
			`,
		},
		{
			Version:     "004",
			Description: "create sessions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sessions (
					id         TEXT PRIMARY KEY,
					username   TEXT NOT NULL REFERENCES users (username) ON DELETE CASCADE,
					token      TEXT NOT NULL UNIQUE,
					expires_at TEXT NOT NULL,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					revoked_at TEXT
				);
				CREATE INDEX IF NOT EXISTS idx_sessions_username ON sessions (username);
			`,
		},
	}
}

// Runner applies pending migrations against a database.
type Runner struct {
	db *sql.DB
}

// NewRunner creates a migration runner for the given database.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// Run applies every migration that has not yet been recorded, in order.
// Each migration executes inside its own transaction.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("migration runner not configured")
	}

	if err := r.initializeVersionTable(ctx); err != nil {
		return err
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, migration := range Migrations() {
		if _, ok := applied[migration.Version]; ok {
			continue
		}
		if err := r.apply(ctx, migration); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", migration.Version, migration.Description, err)
		}
	}
	return nil
}

// AppliedMigrations returns the recorded migrations in application order.
func (r *Runner) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version, applied_at FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var entry AppliedMigration
		var appliedAt string
		if err := rows.Scan(&entry.Version, &appliedAt); err != nil {
			return nil, err
		}
		if entry.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, fmt.Errorf("failed to parse applied_at: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *Runner) initializeVersionTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func (r *Runner) appliedVersions(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = struct{}{}
	}
	return applied, rows.Err()
}

func (r *Runner) apply(ctx context.Context, migration Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		migration.Version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
