package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/maintenance-scheduler/internal/scheduler"
)

// AvailabilityReader exposes the availability lookups needed when assigning.
type AvailabilityReader interface {
	ListBlocksForMaintainerOnDay(ctx context.Context, username string, weekDay scheduler.Weekday) ([]AvailabilityBlock, error)
}

// AssignmentService places maintenance activities on maintainer calendars.
// Assignments to the same activity are serialized through a per-activity lock
// so that concurrent requests cannot both pass the conflict check.
type AssignmentService struct {
	activities   ActivityRepository
	availability AvailabilityReader
	users        UserDirectory
	window       WorkWindow
	now          func() time.Time
	logger       *slog.Logger

	mu    sync.Mutex
	locks map[int64]*activityLock
}

// activityLock serializes assignment attempts on one activity id. Entries are
// reference counted so the lock table only holds ids with in-flight requests.
type activityLock struct {
	mu   sync.Mutex
	refs int
}

// NewAssignmentService wires dependencies for assignment operations.
func NewAssignmentService(activities ActivityRepository, availability AvailabilityReader, users UserDirectory, window WorkWindow, now func() time.Time) *AssignmentService {
	return NewAssignmentServiceWithLogger(activities, availability, users, window, now, nil)
}

// NewAssignmentServiceWithLogger constructs an AssignmentService with a specified logger.
func NewAssignmentServiceWithLogger(activities ActivityRepository, availability AvailabilityReader, users UserDirectory, window WorkWindow, now func() time.Time, logger *slog.Logger) *AssignmentService {
	if now == nil {
		now = time.Now
	}
	if window.Hours <= 0 {
		window = WorkWindow{Start: 8, Hours: 8}
	}
	return &AssignmentService{
		activities:   activities,
		availability: availability,
		users:        users,
		window:       window,
		now:          now,
		logger:       defaultLogger(logger),
		locks:        make(map[int64]*activityLock),
	}
}

func (s *AssignmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AssignmentService", operation, attrs...)
}

func (s *AssignmentService) lockActivity(id int64) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &activityLock{}
		s.locks[id] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// AssignActivity validates and persists an assignment. The checks run in a
// fixed order: authorization, activity existence, maintainer existence and
// role, slot validity, availability coverage, and conflict detection.
func (s *AssignmentService) AssignActivity(ctx context.Context, params AssignActivityParams) (activity Activity, err error) {
	if s == nil {
		return Activity{}, fmt.Errorf("AssignmentService is nil")
	}
	if s.activities == nil {
		return Activity{}, fmt.Errorf("activity repository not configured")
	}

	logger := s.loggerWith(ctx, "AssignActivity",
		"activity_id", params.ActivityID,
		"maintainer", params.MaintainerUsername,
		"week", params.Week,
		"week_day", params.WeekDay,
		"start_hour", params.StartHour,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "assignment rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "activity assigned")
	}()

	if !params.Principal.Role.CanSchedule() {
		return Activity{}, ErrUnauthorized
	}

	unlock := s.lockActivity(params.ActivityID)
	defer unlock()

	existing, err := s.activities.GetActivity(ctx, params.ActivityID)
	if err != nil {
		return Activity{}, mapActivityRepoError(err)
	}

	username := strings.TrimSpace(params.MaintainerUsername)
	maintainer, err := s.lookupMaintainer(ctx, username)
	if err != nil {
		return Activity{}, err
	}

	vErr := &ValidationError{}
	weekDay, ok := scheduler.ParseWeekday(params.WeekDay)
	if !ok {
		vErr.add("week_day", "week day must be a lowercase weekday name")
	}
	if params.Week < 1 || params.Week > 52 {
		vErr.add("week", "week must be between 1 and 52")
	}
	if !s.window.Contains(params.StartHour) {
		vErr.add("start_time", fmt.Sprintf("start time must be between %d and %d", s.window.Start, s.window.End()))
	}
	if vErr.HasErrors() {
		return Activity{}, vErr
	}

	start, end := scheduler.HourSpan(params.StartHour, existing.EstimatedMinutes)

	blocks, err := s.listBlocks(ctx, maintainer.Username, weekDay)
	if err != nil {
		return Activity{}, err
	}
	if !scheduler.Covers(toSchedulerBlocks(blocks), start, end) {
		return Activity{}, ErrMaintainerUnavailable
	}

	assigned, err := s.activities.ListAssignedOnDay(ctx, maintainer.Username, params.Week, weekDay, existing.ID)
	if err != nil {
		return Activity{}, mapActivityRepoError(err)
	}
	candidate := scheduler.Assignment{
		ActivityID:       existing.ID,
		StartHour:        params.StartHour,
		EstimatedMinutes: existing.EstimatedMinutes,
	}
	if scheduler.HasConflict(toSchedulerAssignments(assigned), candidate) {
		return Activity{}, ErrSchedulingConflict
	}

	updated := existing
	updated.WeekDay = &weekDay
	startHour := params.StartHour
	updated.StartHour = &startHour
	maintainerUsername := maintainer.Username
	updated.MaintainerUsername = &maintainerUsername
	updated.Week = params.Week
	updated.UpdatedAt = s.now()

	persisted, err := s.activities.UpdateActivity(ctx, updated)
	if err != nil {
		return Activity{}, mapActivityRepoError(err)
	}
	return persisted, nil
}

// UnassignActivity clears the assignment fields of an activity.
func (s *AssignmentService) UnassignActivity(ctx context.Context, principal Principal, activityID int64) (Activity, error) {
	if s == nil {
		return Activity{}, fmt.Errorf("AssignmentService is nil")
	}
	if s.activities == nil {
		return Activity{}, fmt.Errorf("activity repository not configured")
	}
	if !principal.Role.CanSchedule() {
		return Activity{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "UnassignActivity", "activity_id", activityID)

	unlock := s.lockActivity(activityID)
	defer unlock()

	existing, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return Activity{}, mapActivityRepoError(err)
	}

	updated := existing
	updated.WeekDay = nil
	updated.StartHour = nil
	updated.MaintainerUsername = nil
	updated.UpdatedAt = s.now()

	persisted, err := s.activities.UpdateActivity(ctx, updated)
	if err != nil {
		err = mapActivityRepoError(err)
		logger.ErrorContext(ctx, "failed to unassign activity", "error", err, "error_kind", ErrorKind(err))
		return Activity{}, err
	}

	logger.InfoContext(ctx, "activity unassigned")
	return persisted, nil
}

func (s *AssignmentService) lookupMaintainer(ctx context.Context, username string) (User, error) {
	if s.users == nil {
		return User{Username: username, Role: RoleMaintainer}, nil
	}
	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		if isNotFoundError(err) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if user.Role != RoleMaintainer {
		return User{}, ErrInvalidRole
	}
	return user, nil
}

func (s *AssignmentService) listBlocks(ctx context.Context, username string, weekDay scheduler.Weekday) ([]AvailabilityBlock, error) {
	if s.availability == nil {
		return nil, nil
	}
	return s.availability.ListBlocksForMaintainerOnDay(ctx, username, weekDay)
}

func toSchedulerBlocks(blocks []AvailabilityBlock) []scheduler.Block {
	out := make([]scheduler.Block, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, scheduler.Block{
			Weekday:   block.WeekDay,
			StartHour: block.StartHour,
			EndHour:   block.EndHour,
		})
	}
	return out
}
