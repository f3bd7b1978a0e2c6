package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/scheduler"
)

// ActivityRepository captures the persistence interactions needed by the
// activity and assignment services.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity Activity) (Activity, error)
	GetActivity(ctx context.Context, id int64) (Activity, error)
	UpdateActivity(ctx context.Context, activity Activity) (Activity, error)
	DeleteActivity(ctx context.Context, id int64) error
	ListActivities(ctx context.Context, query ActivityQuery, page PageRequest) ([]Activity, PageInfo, error)
	// ListAssignedOnDay returns every activity assigned to the maintainer on
	// the given week and weekday, excluding excludeID when it is non-zero.
	ListAssignedOnDay(ctx context.Context, username string, week int, weekDay scheduler.Weekday, excludeID int64) ([]Activity, error)
}

// ActivityQuery narrows activity listings. Nil fields are ignored.
type ActivityQuery struct {
	Week               *int
	WeekDay            *scheduler.Weekday
	MaintainerUsername *string
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	GetUser(ctx context.Context, username string) (User, error)
}

// ActivityService orchestrates validation and persistence for maintenance activities.
type ActivityService struct {
	activities ActivityRepository
	users      UserDirectory
	now        func() time.Time
	logger     *slog.Logger
}

// NewActivityService wires dependencies for activity operations.
func NewActivityService(activities ActivityRepository, users UserDirectory, now func() time.Time) *ActivityService {
	return NewActivityServiceWithLogger(activities, users, now, nil)
}

// NewActivityServiceWithLogger constructs an ActivityService with a specified logger.
func NewActivityServiceWithLogger(activities ActivityRepository, users UserDirectory, now func() time.Time, logger *slog.Logger) *ActivityService {
	if now == nil {
		now = time.Now
	}
	return &ActivityService{
		activities: activities,
		users:      users,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

func (s *ActivityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ActivityService", operation, attrs...)
}

// CreateActivity validates the request before delegating to persistence.
func (s *ActivityService) CreateActivity(ctx context.Context, params CreateActivityParams) (Activity, error) {
	if s == nil {
		return Activity{}, fmt.Errorf("ActivityService is nil")
	}
	if !params.Principal.Role.CanSchedule() {
		return Activity{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "CreateActivity", "site", strings.TrimSpace(params.Input.Site))

	input := params.Input
	vErr := &ValidationError{}
	activityType := validateActivityCore(input.Type, input.Site, input.Typology, input.EstimatedMinutes, input.Week, vErr)
	if vErr.HasErrors() {
		return Activity{}, vErr
	}

	createdAt := s.now()
	activity := Activity{
		Type:             activityType,
		Site:             strings.TrimSpace(input.Site),
		Typology:         strings.TrimSpace(input.Typology),
		Description:      input.Description,
		Interruptible:    input.Interruptible,
		Materials:        input.Materials,
		WorkspaceNotes:   input.WorkspaceNotes,
		EstimatedMinutes: input.EstimatedMinutes,
		Week:             input.Week,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}

	if s.activities == nil {
		return activity, nil
	}

	persisted, err := s.activities.CreateActivity(ctx, activity)
	if err != nil {
		err = mapActivityRepoError(err)
		logger.ErrorContext(ctx, "failed to create activity", "error", err, "error_kind", ErrorKind(err))
		return Activity{}, err
	}

	logger.InfoContext(ctx, "activity created", "activity_id", persisted.ID, "week", persisted.Week)
	return persisted, nil
}

// GetActivity returns a single activity visible to any authenticated principal.
func (s *ActivityService) GetActivity(ctx context.Context, principal Principal, activityID int64) (Activity, error) {
	if s == nil {
		return Activity{}, fmt.Errorf("ActivityService is nil")
	}
	if s.activities == nil {
		return Activity{}, fmt.Errorf("activity repository not configured")
	}
	if principal.Username == "" {
		return Activity{}, ErrUnauthorized
	}

	activity, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return Activity{}, mapActivityRepoError(err)
	}
	return activity, nil
}

// UpdateActivity applies a partial update to the descriptive fields of an
// activity. Assignment fields change only through the assignment service.
func (s *ActivityService) UpdateActivity(ctx context.Context, params UpdateActivityParams) (Activity, error) {
	if s == nil {
		return Activity{}, fmt.Errorf("ActivityService is nil")
	}
	if !params.Principal.Role.CanSchedule() {
		return Activity{}, ErrUnauthorized
	}
	if s.activities == nil {
		return Activity{}, fmt.Errorf("activity repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateActivity", "activity_id", params.ActivityID)

	existing, err := s.activities.GetActivity(ctx, params.ActivityID)
	if err != nil {
		return Activity{}, mapActivityRepoError(err)
	}

	updated := existing
	update := params.Update
	vErr := &ValidationError{}

	if update.Type != nil {
		activityType, ok := ParseActivityType(*update.Type)
		if !ok {
			vErr.add("activity_type", "activity type must be one of planned, unplanned, extra")
		} else {
			updated.Type = activityType
		}
	}
	if update.Site != nil {
		if strings.TrimSpace(*update.Site) == "" {
			vErr.add("site", "site is required")
		} else {
			updated.Site = strings.TrimSpace(*update.Site)
		}
	}
	if update.Typology != nil {
		if strings.TrimSpace(*update.Typology) == "" {
			vErr.add("typology", "typology is required")
		} else {
			updated.Typology = strings.TrimSpace(*update.Typology)
		}
	}
	if update.Description != nil {
		updated.Description = *update.Description
	}
	if update.Interruptible != nil {
		updated.Interruptible = *update.Interruptible
	}
	if update.Materials != nil {
		updated.Materials = update.Materials
	}
	if update.WorkspaceNotes != nil {
		updated.WorkspaceNotes = update.WorkspaceNotes
	}
	if update.EstimatedMinutes != nil {
		if *update.EstimatedMinutes <= 0 {
			vErr.add("estimated_time", "estimated time must be a positive number of minutes")
		} else {
			updated.EstimatedMinutes = *update.EstimatedMinutes
		}
	}
	if update.Week != nil {
		if *update.Week < 1 || *update.Week > 52 {
			vErr.add("week", "week must be between 1 and 52")
		} else {
			updated.Week = *update.Week
		}
	}

	if vErr.HasErrors() {
		return Activity{}, vErr
	}

	// Moving a scheduled activity to another week invalidates its slot, and a
	// larger estimate may no longer fit the slot it was given. In both cases
	// the assignment is cleared and must be re-established.
	if existing.Scheduled() && (updated.Week != existing.Week || updated.EstimatedMinutes > existing.EstimatedMinutes) {
		updated.WeekDay = nil
		updated.StartHour = nil
		updated.MaintainerUsername = nil
	}

	updated.UpdatedAt = s.now()

	persisted, err := s.activities.UpdateActivity(ctx, updated)
	if err != nil {
		err = mapActivityRepoError(err)
		logger.ErrorContext(ctx, "failed to update activity", "error", err, "error_kind", ErrorKind(err))
		return Activity{}, err
	}

	logger.InfoContext(ctx, "activity updated")
	return persisted, nil
}

// DeleteActivity removes an activity for schedulers.
func (s *ActivityService) DeleteActivity(ctx context.Context, principal Principal, activityID int64) error {
	if s == nil {
		return fmt.Errorf("ActivityService is nil")
	}
	if !principal.Role.CanSchedule() {
		return ErrUnauthorized
	}
	if s.activities == nil {
		return fmt.Errorf("activity repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteActivity", "activity_id", activityID)

	if err := s.activities.DeleteActivity(ctx, activityID); err != nil {
		err = mapActivityRepoError(err)
		logger.ErrorContext(ctx, "failed to delete activity", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "activity deleted")
	return nil
}

// ListActivities returns a page of activities. Maintainers see only their own
// assignments; schedulers see everything and may filter freely.
func (s *ActivityService) ListActivities(ctx context.Context, params ListActivitiesParams) ([]Activity, PageInfo, error) {
	if s == nil {
		return nil, PageInfo{}, fmt.Errorf("ActivityService is nil")
	}
	if s.activities == nil {
		return nil, PageInfo{}, fmt.Errorf("activity repository not configured")
	}
	if params.Principal.Username == "" {
		return nil, PageInfo{}, ErrUnauthorized
	}

	query := ActivityQuery{
		Week:               params.Week,
		WeekDay:            params.WeekDay,
		MaintainerUsername: params.Username,
	}
	if params.Principal.Role == RoleMaintainer {
		own := params.Principal.Username
		if query.MaintainerUsername != nil && *query.MaintainerUsername != own {
			return nil, PageInfo{}, ErrUnauthorized
		}
		query.MaintainerUsername = &own
	}

	activities, info, err := s.activities.ListActivities(ctx, query, PageRequest{Page: params.Page, PageSize: params.PageSize})
	if err != nil {
		return nil, PageInfo{}, mapActivityRepoError(err)
	}
	return activities, info, nil
}

// DailyWorkloads reports, for each weekday of the given week, the total
// estimated minutes and activity count assigned to the maintainer.
func (s *ActivityService) DailyWorkloads(ctx context.Context, principal Principal, username string, week int) ([]DailyWorkload, error) {
	if s == nil {
		return nil, fmt.Errorf("ActivityService is nil")
	}
	if s.activities == nil {
		return nil, fmt.Errorf("activity repository not configured")
	}

	username = strings.TrimSpace(username)
	if !principal.Role.CanSchedule() && principal.Username != username {
		return nil, ErrUnauthorized
	}
	if week < 1 || week > 52 {
		vErr := &ValidationError{}
		vErr.add("week", "week must be between 1 and 52")
		return nil, vErr
	}

	if s.users != nil {
		user, err := s.users.GetUser(ctx, username)
		if err != nil {
			return nil, mapActivityRepoError(err)
		}
		if user.Role != RoleMaintainer {
			return nil, ErrInvalidRole
		}
	}

	workloads := make([]DailyWorkload, 0, len(scheduler.Weekdays()))
	for _, day := range scheduler.Weekdays() {
		activities, err := s.activities.ListAssignedOnDay(ctx, username, week, day, 0)
		if err != nil {
			return nil, mapActivityRepoError(err)
		}
		workloads = append(workloads, DailyWorkload{
			WeekDay:        day,
			TotalEstimated: scheduler.TotalEstimatedTime(toSchedulerAssignments(activities)),
			ActivityCount:  len(activities),
		})
	}
	return workloads, nil
}

func toSchedulerAssignments(activities []Activity) []scheduler.Assignment {
	assignments := make([]scheduler.Assignment, 0, len(activities))
	for _, activity := range activities {
		if activity.StartHour == nil {
			continue
		}
		assignments = append(assignments, scheduler.Assignment{
			ActivityID:       activity.ID,
			StartHour:        *activity.StartHour,
			EstimatedMinutes: activity.EstimatedMinutes,
		})
	}
	return assignments
}

func validateActivityCore(activityType, site, typology string, estimatedMinutes, week int, vErr *ValidationError) ActivityType {
	parsed, ok := ParseActivityType(activityType)
	if !ok {
		vErr.add("activity_type", "activity type must be one of planned, unplanned, extra")
	}
	if strings.TrimSpace(site) == "" {
		vErr.add("site", "site is required")
	}
	if strings.TrimSpace(typology) == "" {
		vErr.add("typology", "typology is required")
	}
	if estimatedMinutes <= 0 {
		vErr.add("estimated_time", "estimated time must be a positive number of minutes")
	}
	if week < 1 || week > 52 {
		vErr.add("week", "week must be between 1 and 52")
	}
	return parsed
}

func mapActivityRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("week", "week must be between 1 and 52")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("maintainer_username", "maintainer does not exist")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
