package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/maintenance-scheduler/internal/scheduler"
)

// AvailabilityRepository captures the persistence interactions for availability blocks.
type AvailabilityRepository interface {
	CreateBlock(ctx context.Context, block AvailabilityBlock) (AvailabilityBlock, error)
	GetBlock(ctx context.Context, id int64) (AvailabilityBlock, error)
	ListBlocksForMaintainer(ctx context.Context, username string) ([]AvailabilityBlock, error)
	ListBlocksForMaintainerOnDay(ctx context.Context, username string, weekDay scheduler.Weekday) ([]AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, id int64) error
}

// MaintainerRoster lists every account holding the maintainer role.
type MaintainerRoster interface {
	ListMaintainers(ctx context.Context) ([]User, error)
}

// AvailabilityService manages maintainer availability blocks and computes
// candidate slots for unassigned activities.
type AvailabilityService struct {
	blocks     AvailabilityRepository
	activities ActivityRepository
	users      UserDirectory
	roster     MaintainerRoster
	window     WorkWindow
	now        func() time.Time
	logger     *slog.Logger
}

// NewAvailabilityService wires dependencies for availability operations.
func NewAvailabilityService(blocks AvailabilityRepository, activities ActivityRepository, users UserDirectory, roster MaintainerRoster, window WorkWindow, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(blocks, activities, users, roster, window, now, nil)
}

// NewAvailabilityServiceWithLogger constructs an AvailabilityService with a specified logger.
func NewAvailabilityServiceWithLogger(blocks AvailabilityRepository, activities ActivityRepository, users UserDirectory, roster MaintainerRoster, window WorkWindow, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	if window.Hours <= 0 {
		window = WorkWindow{Start: 8, Hours: 8}
	}
	return &AvailabilityService{
		blocks:     blocks,
		activities: activities,
		users:      users,
		roster:     roster,
		window:     window,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

func (s *AvailabilityService) authorizeFor(principal Principal, username string) error {
	if principal.Role.CanSchedule() {
		return nil
	}
	if principal.Role == RoleMaintainer && principal.Username == username {
		return nil
	}
	return ErrUnauthorized
}

// DeclareAvailability records a weekly availability block for a maintainer.
// Schedulers may declare for any maintainer, maintainers only for themselves.
func (s *AvailabilityService) DeclareAvailability(ctx context.Context, params DeclareAvailabilityParams) (AvailabilityBlock, error) {
	if s == nil {
		return AvailabilityBlock{}, fmt.Errorf("AvailabilityService is nil")
	}
	if s.blocks == nil {
		return AvailabilityBlock{}, fmt.Errorf("availability repository not configured")
	}

	username := strings.TrimSpace(params.MaintainerUsername)
	if err := s.authorizeFor(params.Principal, username); err != nil {
		return AvailabilityBlock{}, err
	}

	logger := s.loggerWith(ctx, "DeclareAvailability", "maintainer", username)

	vErr := &ValidationError{}
	weekDay, ok := scheduler.ParseWeekday(params.Input.WeekDay)
	if !ok {
		vErr.add("week_day", "week day must be a lowercase weekday name")
	}
	if params.Input.StartHour < 0 || params.Input.StartHour > 23 {
		vErr.add("start_hour", "start hour must be between 0 and 23")
	}
	if params.Input.EndHour < 1 || params.Input.EndHour > 24 {
		vErr.add("end_hour", "end hour must be between 1 and 24")
	}
	if params.Input.EndHour <= params.Input.StartHour {
		vErr.add("hours", "end hour must be after start hour")
	}
	if vErr.HasErrors() {
		return AvailabilityBlock{}, vErr
	}

	if s.users != nil {
		user, err := s.users.GetUser(ctx, username)
		if err != nil {
			if isNotFoundError(err) {
				return AvailabilityBlock{}, ErrNotFound
			}
			return AvailabilityBlock{}, err
		}
		if user.Role != RoleMaintainer {
			return AvailabilityBlock{}, ErrInvalidRole
		}
	}

	createdAt := s.now()
	block := AvailabilityBlock{
		MaintainerUsername: username,
		WeekDay:            weekDay,
		StartHour:          params.Input.StartHour,
		EndHour:            params.Input.EndHour,
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}

	persisted, err := s.blocks.CreateBlock(ctx, block)
	if err != nil {
		err = mapActivityRepoError(err)
		logger.ErrorContext(ctx, "failed to declare availability", "error", err, "error_kind", ErrorKind(err))
		return AvailabilityBlock{}, err
	}

	logger.InfoContext(ctx, "availability declared", "week_day", string(persisted.WeekDay))
	return persisted, nil
}

// ListAvailability returns every availability block declared for a maintainer,
// ordered by weekday then start hour.
func (s *AvailabilityService) ListAvailability(ctx context.Context, principal Principal, username string) ([]AvailabilityBlock, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if s.blocks == nil {
		return nil, fmt.Errorf("availability repository not configured")
	}

	username = strings.TrimSpace(username)
	if err := s.authorizeFor(principal, username); err != nil {
		return nil, err
	}

	blocks, err := s.blocks.ListBlocksForMaintainer(ctx, username)
	if err != nil {
		return nil, mapActivityRepoError(err)
	}

	ordered := make([]AvailabilityBlock, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].WeekDay == ordered[j].WeekDay {
			return ordered[i].StartHour < ordered[j].StartHour
		}
		return weekdayIndex(ordered[i].WeekDay) < weekdayIndex(ordered[j].WeekDay)
	})
	return ordered, nil
}

// RemoveAvailability deletes a previously declared block.
func (s *AvailabilityService) RemoveAvailability(ctx context.Context, principal Principal, username string, blockID int64) error {
	if s == nil {
		return fmt.Errorf("AvailabilityService is nil")
	}
	if s.blocks == nil {
		return fmt.Errorf("availability repository not configured")
	}

	username = strings.TrimSpace(username)
	if err := s.authorizeFor(principal, username); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "RemoveAvailability", "maintainer", username, "block_id", blockID)

	block, err := s.blocks.GetBlock(ctx, blockID)
	if err != nil {
		return mapActivityRepoError(err)
	}
	if block.MaintainerUsername != username {
		return ErrNotFound
	}

	if err := s.blocks.DeleteBlock(ctx, blockID); err != nil {
		err = mapActivityRepoError(err)
		logger.ErrorContext(ctx, "failed to remove availability", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "availability removed")
	return nil
}

// ProposeSlots computes every start hour at which the activity could be
// assigned during its week: the maintainer holds the maintainer role, a
// single availability block covers the full span, the start hour lies in the
// work window, and no existing assignment overlaps.
func (s *AvailabilityService) ProposeSlots(ctx context.Context, principal Principal, activityID int64) ([]SlotProposal, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if s.blocks == nil || s.activities == nil {
		return nil, fmt.Errorf("availability service not fully configured")
	}
	if !principal.Role.CanSchedule() {
		return nil, ErrUnauthorized
	}

	activity, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return nil, mapActivityRepoError(err)
	}

	var maintainers []User
	if s.roster != nil {
		maintainers, err = s.roster.ListMaintainers(ctx)
		if err != nil {
			return nil, err
		}
	}

	proposals := make([]SlotProposal, 0)
	for _, maintainer := range maintainers {
		if maintainer.Role != RoleMaintainer {
			continue
		}
		for _, day := range scheduler.Weekdays() {
			slots, err := s.proposeForDay(ctx, activity, maintainer.Username, day)
			if err != nil {
				return nil, err
			}
			proposals = append(proposals, slots...)
		}
	}
	return proposals, nil
}

func (s *AvailabilityService) proposeForDay(ctx context.Context, activity Activity, username string, day scheduler.Weekday) ([]SlotProposal, error) {
	blocks, err := s.blocks.ListBlocksForMaintainerOnDay(ctx, username, day)
	if err != nil {
		return nil, mapActivityRepoError(err)
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	assigned, err := s.activities.ListAssignedOnDay(ctx, username, activity.Week, day, activity.ID)
	if err != nil {
		return nil, mapActivityRepoError(err)
	}
	existing := toSchedulerAssignments(assigned)

	proposals := make([]SlotProposal, 0)
	seen := make(map[int]struct{})
	for _, block := range blocks {
		for hour := block.StartHour; hour < block.EndHour; hour++ {
			if _, ok := seen[hour]; ok {
				continue
			}
			if !s.window.Contains(hour) {
				continue
			}
			start, end := scheduler.HourSpan(hour, activity.EstimatedMinutes)
			covered := scheduler.Block{Weekday: day, StartHour: block.StartHour, EndHour: block.EndHour}.CoveredBy(start, end)
			if !covered {
				continue
			}
			candidate := scheduler.Assignment{
				ActivityID:       activity.ID,
				StartHour:        hour,
				EstimatedMinutes: activity.EstimatedMinutes,
			}
			if scheduler.HasConflict(existing, candidate) {
				continue
			}
			seen[hour] = struct{}{}
			proposals = append(proposals, SlotProposal{
				MaintainerUsername: username,
				WeekDay:            day,
				StartHour:          hour,
			})
		}
	}

	sort.Slice(proposals, func(i, j int) bool { return proposals[i].StartHour < proposals[j].StartHour })
	return proposals, nil
}

func weekdayIndex(day scheduler.Weekday) int {
	for i, candidate := range scheduler.Weekdays() {
		if candidate == day {
			return i
		}
	}
	return len(scheduler.Weekdays())
}
