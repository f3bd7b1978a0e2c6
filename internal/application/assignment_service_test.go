package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/maintenance-scheduler/internal/scheduler"
)

func assignmentFixture(repo *activityRepositoryStub, users *userDirectoryStub, blocks *availabilityRepositoryStub) *AssignmentService {
	now := func() time.Time { return time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC) }
	return NewAssignmentService(repo, blocks, users, WorkWindow{Start: 8, Hours: 8}, now)
}

func maintainer(username string) User {
	return User{Username: username, Role: RoleMaintainer}
}

func TestAssignmentService_AssignActivity(t *testing.T) {
	t.Parallel()

	planner := Principal{Username: "planner", Role: RolePlanner}

	newFixture := func() (*AssignmentService, *activityRepositoryStub, *availabilityRepositoryStub) {
		repo := newActivityRepositoryStub()
		repo.seed(Activity{ID: 7, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 120, Week: 10})
		users := newUserDirectoryStub(maintainer("bob"))
		blocks := newAvailabilityRepositoryStub()
		blocks.seed(AvailabilityBlock{ID: 1, MaintainerUsername: "bob", WeekDay: scheduler.Monday, StartHour: 8, EndHour: 16})
		return assignmentFixture(repo, users, blocks), repo, blocks
	}

	t.Run("rejects principals without scheduling rights", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newFixture()
		_, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal:          Principal{Username: "bob", Role: RoleMaintainer},
			ActivityID:         7,
			MaintainerUsername: "bob",
			Week:               10,
			WeekDay:            "monday",
			StartHour:          9,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("surfaces ErrNotFound for a missing activity", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newFixture()
		_, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 99, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: 9,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects an unknown maintainer", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newFixture()
		_, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "ghost", Week: 10, WeekDay: "monday", StartHour: 9,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects assignees that are not maintainers", func(t *testing.T) {
		t.Parallel()

		repo := newActivityRepositoryStub()
		repo.seed(Activity{ID: 7, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 60, Week: 10})
		users := newUserDirectoryStub(User{Username: "alice", Role: RolePlanner})
		svc := assignmentFixture(repo, users, newAvailabilityRepositoryStub())

		_, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "alice", Week: 10, WeekDay: "monday", StartHour: 9,
		})
		if !errors.Is(err, ErrInvalidRole) {
			t.Fatalf("expected ErrInvalidRole, got %v", err)
		}
	})

	t.Run("validates week, weekday, and start hour", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newFixture()
		_, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "bob", Week: 53, WeekDay: "mondays", StartHour: 7,
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"week", "week_day", "start_time"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected %s field error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("accepts the inclusive upper bound of the work window", func(t *testing.T) {
		t.Parallel()

		repo := newActivityRepositoryStub()
		repo.seed(Activity{ID: 7, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 30, Week: 10})
		users := newUserDirectoryStub(maintainer("bob"))
		blocks := newAvailabilityRepositoryStub()
		blocks.seed(AvailabilityBlock{ID: 1, MaintainerUsername: "bob", WeekDay: scheduler.Monday, StartHour: 8, EndHour: 18})
		svc := assignmentFixture(repo, users, blocks)

		if _, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: 16,
		}); err != nil {
			t.Fatalf("AssignActivity failed at window upper bound: %v", err)
		}
	})

	t.Run("rejects slots outside declared availability", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newFixture()
		_, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: 15,
		})
		if !errors.Is(err, ErrMaintainerUnavailable) {
			t.Fatalf("expected ErrMaintainerUnavailable, got %v", err)
		}
	})

	t.Run("never assembles coverage from adjacent blocks", func(t *testing.T) {
		t.Parallel()

		repo := newActivityRepositoryStub()
		repo.seed(Activity{ID: 7, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 120, Week: 10})
		users := newUserDirectoryStub(maintainer("bob"))
		blocks := newAvailabilityRepositoryStub()
		blocks.seed(AvailabilityBlock{ID: 1, MaintainerUsername: "bob", WeekDay: scheduler.Monday, StartHour: 8, EndHour: 10})
		blocks.seed(AvailabilityBlock{ID: 2, MaintainerUsername: "bob", WeekDay: scheduler.Monday, StartHour: 10, EndHour: 12})
		svc := assignmentFixture(repo, users, blocks)

		_, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: 9,
		})
		if !errors.Is(err, ErrMaintainerUnavailable) {
			t.Fatalf("expected ErrMaintainerUnavailable, got %v", err)
		}
	})

	t.Run("rejects overlapping assignments", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newFixture()
		day := scheduler.Monday
		other := "bob"
		start := 9
		repo.seed(Activity{ID: 8, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 90, Week: 10, WeekDay: &day, StartHour: &start, MaintainerUsername: &other})

		_, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: 10,
		})
		if !errors.Is(err, ErrSchedulingConflict) {
			t.Fatalf("expected ErrSchedulingConflict, got %v", err)
		}
	})

	t.Run("allows back to back assignments", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newFixture()
		day := scheduler.Monday
		other := "bob"
		start := 9
		repo.seed(Activity{ID: 8, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 90, Week: 10, WeekDay: &day, StartHour: &start, MaintainerUsername: &other})

		if _, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: 11,
		}); err != nil {
			t.Fatalf("AssignActivity failed for touching slots: %v", err)
		}
	})

	t.Run("reassigning ignores the activity's own current slot", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newFixture()
		day := scheduler.Monday
		self := "bob"
		start := 9
		repo.seed(Activity{ID: 7, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 120, Week: 10, WeekDay: &day, StartHour: &start, MaintainerUsername: &self})

		if _, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: 10,
		}); err != nil {
			t.Fatalf("AssignActivity failed for self reassignment: %v", err)
		}
	})

	t.Run("persists assignment fields on success", func(t *testing.T) {
		t.Parallel()

		svc, repo, _ := newFixture()
		assigned, err := svc.AssignActivity(context.Background(), AssignActivityParams{
			Principal: planner, ActivityID: 7, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: 9,
		})
		if err != nil {
			t.Fatalf("AssignActivity failed: %v", err)
		}
		if !assigned.Scheduled() {
			t.Fatalf("expected assigned activity to be scheduled: %+v", assigned)
		}
		if *assigned.WeekDay != scheduler.Monday || *assigned.StartHour != 9 || *assigned.MaintainerUsername != "bob" {
			t.Fatalf("unexpected assignment fields: %+v", assigned)
		}

		stored, err := repo.GetActivity(context.Background(), 7)
		if err != nil || !stored.Scheduled() {
			t.Fatalf("expected stored activity to be scheduled, got %+v err %v", stored, err)
		}
	})
}

func TestAssignmentService_LockTableReleasesIdleEntries(t *testing.T) {
	t.Parallel()

	repo := newActivityRepositoryStub()
	for id := int64(1); id <= 4; id++ {
		repo.seed(Activity{ID: id, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 30, Week: 10})
	}
	users := newUserDirectoryStub(maintainer("bob"))
	blocks := newAvailabilityRepositoryStub()
	blocks.seed(AvailabilityBlock{ID: 1, MaintainerUsername: "bob", WeekDay: scheduler.Monday, StartHour: 8, EndHour: 16})
	svc := assignmentFixture(repo, users, blocks)

	planner := Principal{Username: "planner", Role: RolePlanner}

	var wg sync.WaitGroup
	for id := int64(1); id <= 4; id++ {
		for attempt := 0; attempt < 3; attempt++ {
			wg.Add(1)
			go func(id int64, start int) {
				defer wg.Done()
				_, _ = svc.AssignActivity(context.Background(), AssignActivityParams{
					Principal: planner, ActivityID: id, MaintainerUsername: "bob", Week: 10, WeekDay: "monday", StartHour: start,
				})
			}(id, 8+int(id))
		}
	}
	wg.Wait()

	svc.mu.Lock()
	remaining := len(svc.locks)
	svc.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected the lock table to be empty after all requests finished, found %d entries", remaining)
	}
}

func TestAssignmentService_UnassignActivity(t *testing.T) {
	t.Parallel()

	t.Run("clears assignment fields", func(t *testing.T) {
		t.Parallel()

		repo := newActivityRepositoryStub()
		day := scheduler.Tuesday
		username := "bob"
		start := 10
		repo.seed(Activity{ID: 3, Type: ActivityPlanned, Site: "Milan/Fleet", Typology: "electrical", EstimatedMinutes: 60, Week: 4, WeekDay: &day, StartHour: &start, MaintainerUsername: &username})
		svc := assignmentFixture(repo, newUserDirectoryStub(), newAvailabilityRepositoryStub())

		cleared, err := svc.UnassignActivity(context.Background(), Principal{Username: "root", Role: RoleAdmin}, 3)
		if err != nil {
			t.Fatalf("UnassignActivity failed: %v", err)
		}
		if cleared.Scheduled() || cleared.WeekDay != nil || cleared.StartHour != nil || cleared.MaintainerUsername != nil {
			t.Fatalf("expected cleared assignment, got %+v", cleared)
		}
	})

	t.Run("rejects maintainers", func(t *testing.T) {
		t.Parallel()

		svc := assignmentFixture(newActivityRepositoryStub(), newUserDirectoryStub(), newAvailabilityRepositoryStub())
		_, err := svc.UnassignActivity(context.Background(), Principal{Username: "bob", Role: RoleMaintainer}, 3)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
