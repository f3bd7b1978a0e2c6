package migration

import (
	"context"
	"testing"
)

func openTestDB(t *testing.T) *Runner {
	t.Helper()

	manager := NewConnectionManager(DefaultSQLiteConfig(":memory:"))
	db, err := manager.GetConnection()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRunner(db)
}

func TestRunner_Run(t *testing.T) {
	runner := openTestDB(t)
	ctx := context.Background()

	if err := runner.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	applied, err := runner.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(applied) != len(Migrations()) {
		t.Fatalf("expected %d applied migrations, got %d", len(Migrations()), len(applied))
	}
	for i, migration := range Migrations() {
		if applied[i].Version != migration.Version {
			t.Errorf("expected version %s at position %d, got %s", migration.Version, i, applied[i].Version)
		}
	}
}

func TestRunner_RunIsIdempotent(t *testing.T) {
	runner := openTestDB(t)
	ctx := context.Background()

	if err := runner.Run(ctx); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if err := runner.Run(ctx); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	applied, err := runner.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(applied) != len(Migrations()) {
		t.Fatalf("expected %d applied migrations after rerun, got %d", len(Migrations()), len(applied))
	}
}

func TestConnectionManager_ValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		config  SQLiteConfig
		wantErr bool
	}{
		{name: "defaults", config: DefaultSQLiteConfig(":memory:")},
		{name: "empty dsn", config: SQLiteConfig{}, wantErr: true},
		{name: "bad journal mode", config: SQLiteConfig{DSN: ":memory:", JournalMode: "SIDEWAYS"}, wantErr: true},
		{name: "bad synchronous mode", config: SQLiteConfig{DSN: ":memory:", Synchronous: "MAYBE"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewConnectionManager(tc.config).ValidateConfig()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
