package testfixtures

import (
	"path/filepath"
	"testing"

	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/persistence/sqlite"
	"github.com/example/maintenance-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool         *sqlite.ConnectionPool
	Users        persistence.UserRepository
	Activities   persistence.ActivityRepository
	Availability persistence.AvailabilityRepository
	Sessions     persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness on a temporary database file
// that is migrated automatically. A cleanup callback is registered with the
// provided testing.TB; calling Close explicitly is also safe.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	dsn := "file:" + filepath.Join(dir, "maintenance.db")

	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(dsn))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:         pool,
		Users:        sqlite.NewUserRepository(pool),
		Activities:   sqlite.NewActivityRepository(pool),
		Availability: sqlite.NewAvailabilityRepository(pool),
		Sessions:     sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
