package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/config"
	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/persistence/sqlite"
	"github.com/example/maintenance-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/maintenance-scheduler/internal/scheduler"
)

func newTestPool(t *testing.T) *sqlite.ConnectionPool {
	t.Helper()
	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(":memory:"))
	if err != nil {
		t.Fatalf("NewConnectionPool: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("closing pool: %v", err)
		}
	})
	return pool
}

func TestUserStoreRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	store := newUserStore(sqlite.NewUserRepository(pool))
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	created, err := store.CreateUser(ctx, application.User{
		Username:  "alice",
		Role:      application.RoleMaintainer,
		CreatedAt: now,
		UpdatedAt: now,
	}, "hash-1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.Role != application.RoleMaintainer {
		t.Fatalf("unexpected role: %q", created.Role)
	}

	creds, err := store.GetUserCredentials(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserCredentials: %v", err)
	}
	if creds.PasswordHash != "hash-1" {
		t.Fatalf("unexpected hash: %q", creds.PasswordHash)
	}

	// An update without a new hash must keep the stored one.
	updated, err := store.UpdateUser(ctx, application.User{
		Username:  "alice",
		Role:      application.RolePlanner,
		CreatedAt: now,
		UpdatedAt: now.Add(time.Hour),
	}, nil)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != application.RolePlanner {
		t.Fatalf("role not updated: %q", updated.Role)
	}
	creds, err = store.GetUserCredentials(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserCredentials after update: %v", err)
	}
	if creds.PasswordHash != "hash-1" {
		t.Fatalf("hash changed unexpectedly: %q", creds.PasswordHash)
	}

	if err := store.SetPasswordHash(ctx, "alice", "hash-2", now.Add(2*time.Hour)); err != nil {
		t.Fatalf("SetPasswordHash: %v", err)
	}
	creds, err = store.GetUserCredentials(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserCredentials after rotation: %v", err)
	}
	if creds.PasswordHash != "hash-2" {
		t.Fatalf("hash not rotated: %q", creds.PasswordHash)
	}
}

func TestUserStoreListMaintainers(t *testing.T) {
	pool := newTestPool(t)
	store := newUserStore(sqlite.NewUserRepository(pool))
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	for _, seed := range []struct {
		username string
		role     application.Role
	}{
		{"alice", application.RoleMaintainer},
		{"bob", application.RolePlanner},
		{"carol", application.RoleMaintainer},
	} {
		if _, err := store.CreateUser(ctx, application.User{
			Username:  seed.username,
			Role:      seed.role,
			CreatedAt: now,
			UpdatedAt: now,
		}, "hash"); err != nil {
			t.Fatalf("seeding %s: %v", seed.username, err)
		}
	}

	maintainers, err := store.ListMaintainers(ctx)
	if err != nil {
		t.Fatalf("ListMaintainers: %v", err)
	}
	if len(maintainers) != 2 {
		t.Fatalf("expected 2 maintainers, got %d", len(maintainers))
	}
	if maintainers[0].Username != "alice" || maintainers[1].Username != "carol" {
		t.Fatalf("unexpected roster: %+v", maintainers)
	}
}

func TestActivityStoreUpdateReturnsStoredState(t *testing.T) {
	pool := newTestPool(t)
	users := newUserStore(sqlite.NewUserRepository(pool))
	store := newActivityStore(sqlite.NewActivityRepository(pool))
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	if _, err := users.CreateUser(ctx, application.User{
		Username:  "alice",
		Role:      application.RoleMaintainer,
		CreatedAt: now,
		UpdatedAt: now,
	}, "hash"); err != nil {
		t.Fatalf("seeding maintainer: %v", err)
	}

	created, err := store.CreateActivity(ctx, application.Activity{
		Type:             application.ActivityPlanned,
		Site:             "Fuorigrotta",
		Typology:         "electrical",
		Description:      "replace breaker panel",
		EstimatedMinutes: 90,
		Week:             14,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an assigned ID")
	}

	day := scheduler.Monday
	start := 9
	maintainer := "alice"
	created.WeekDay = &day
	created.StartHour = &start
	created.MaintainerUsername = &maintainer
	updated, err := store.UpdateActivity(ctx, created)
	if err != nil {
		t.Fatalf("UpdateActivity: %v", err)
	}
	if !updated.Scheduled() {
		t.Fatalf("expected a scheduled activity, got %+v", updated)
	}
	if *updated.WeekDay != scheduler.Monday || *updated.StartHour != 9 {
		t.Fatalf("unexpected slot: %v %v", *updated.WeekDay, *updated.StartHour)
	}

	assigned, err := store.ListAssignedOnDay(ctx, "alice", 14, scheduler.Monday, 0)
	if err != nil {
		t.Fatalf("ListAssignedOnDay: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != created.ID {
		t.Fatalf("unexpected assignments: %+v", assigned)
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	users := newUserStore(sqlite.NewUserRepository(pool))
	store := newSessionStore(sqlite.NewSessionRepository(pool))
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	if _, err := users.CreateUser(ctx, application.User{
		Username:  "alice",
		Role:      application.RolePlanner,
		CreatedAt: now,
		UpdatedAt: now,
	}, "hash"); err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	created, err := store.CreateSession(ctx, application.Session{
		ID:        "session-1",
		Username:  "alice",
		Token:     "token-1",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if created.RevokedAt != nil {
		t.Fatalf("fresh session must not be revoked: %+v", created)
	}

	revoked, err := store.RevokeSession(ctx, "token-1", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected revocation state: %+v", revoked)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	pool := newTestPool(t)
	users := sqlite.NewUserRepository(pool)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	cfg := config.Config{
		BootstrapAdminUsername: "root",
		BootstrapAdminPassword: "super-secret-password",
	}

	if err := bootstrapAdmin(ctx, logger, users, cfg); err != nil {
		t.Fatalf("bootstrapAdmin: %v", err)
	}

	stored, err := users.GetUser(ctx, "root")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if stored.Role != string(application.RoleAdmin) {
		t.Fatalf("unexpected role: %q", stored.Role)
	}
	if err := application.VerifyPassword(stored.PasswordHash, "super-secret-password"); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}

	// A second run must leave the existing account untouched.
	if err := bootstrapAdmin(ctx, logger, users, cfg); err != nil {
		t.Fatalf("bootstrapAdmin rerun: %v", err)
	}
	again, err := users.GetUser(ctx, "root")
	if err != nil {
		t.Fatalf("GetUser after rerun: %v", err)
	}
	if again.PasswordHash != stored.PasswordHash {
		t.Fatal("rerun replaced the stored password hash")
	}

	if err := bootstrapAdmin(ctx, logger, users, config.Config{}); err != nil {
		t.Fatalf("bootstrapAdmin without configuration: %v", err)
	}
	if _, err := users.GetUser(ctx, ""); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected no account for empty username, got %v", err)
	}
}
