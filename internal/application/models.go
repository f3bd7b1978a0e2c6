package application

import (
	"strings"
	"time"

	"github.com/example/maintenance-scheduler/internal/scheduler"
)

// Role identifies the permission level attached to a user account.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleMaintainer Role = "maintainer"
	RolePlanner    Role = "planner"
)

// ParseRole normalizes and validates a role name.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleMaintainer:
		return RoleMaintainer, true
	case RolePlanner:
		return RolePlanner, true
	}
	return "", false
}

// CanSchedule reports whether the role may assign activities to maintainers.
func (r Role) CanSchedule() bool {
	return r == RoleAdmin || r == RolePlanner
}

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	Username string
	Role     Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ActivityType classifies a maintenance work order.
type ActivityType string

const (
	ActivityPlanned   ActivityType = "planned"
	ActivityUnplanned ActivityType = "unplanned"
	ActivityExtra     ActivityType = "extra"
)

// ParseActivityType normalizes and validates an activity type name.
func ParseActivityType(value string) (ActivityType, bool) {
	switch ActivityType(strings.ToLower(strings.TrimSpace(value))) {
	case ActivityPlanned:
		return ActivityPlanned, true
	case ActivityUnplanned:
		return ActivityUnplanned, true
	case ActivityExtra:
		return ActivityExtra, true
	}
	return "", false
}

// Activity represents a persisted maintenance work order. WeekDay, StartHour,
// and MaintainerUsername are nil until the activity is scheduled; an activity
// is either fully unscheduled or fully scheduled.
type Activity struct {
	ID                 int64
	Type               ActivityType
	Site               string
	Typology           string
	Description        string
	Interruptible      bool
	Materials          *string
	WorkspaceNotes     *string
	EstimatedMinutes   int
	Week               int
	WeekDay            *scheduler.Weekday
	StartHour          *int
	MaintainerUsername *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Scheduled reports whether the activity has been placed on a slot.
func (a Activity) Scheduled() bool {
	return a.WeekDay != nil && a.StartHour != nil && a.MaintainerUsername != nil
}

// ActivityInput captures caller provided activity fields for creation.
type ActivityInput struct {
	Type             string
	Site             string
	Typology         string
	Description      string
	Interruptible    bool
	Materials        *string
	WorkspaceNotes   *string
	EstimatedMinutes int
	Week             int
}

// ActivityUpdate captures a partial update: only non-nil fields are applied.
type ActivityUpdate struct {
	Type             *string
	Site             *string
	Typology         *string
	Description      *string
	Interruptible    *bool
	Materials        *string
	WorkspaceNotes   *string
	EstimatedMinutes *int
	Week             *int
}

// CreateActivityParams wraps the data required to create an activity.
type CreateActivityParams struct {
	Principal Principal
	Input     ActivityInput
}

// UpdateActivityParams wraps the data required to partially update an activity.
type UpdateActivityParams struct {
	Principal  Principal
	ActivityID int64
	Update     ActivityUpdate
}

// ListActivitiesParams wraps the data required to list activities.
type ListActivitiesParams struct {
	Principal Principal
	Week      *int
	WeekDay   *scheduler.Weekday
	Username  *string
	Page      int
	PageSize  int
}

// PageRequest identifies the slice of a listing to return, pages starting
// from 1. Zero values fall back to the listing defaults.
type PageRequest struct {
	Page     int
	PageSize int
}

// PageInfo describes the pagination state of a listing result.
type PageInfo struct {
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasNext     bool
	HasPrev     bool
}

// AssignActivityParams wraps an assignment request: place the activity on the
// maintainer's calendar at the given week, weekday, and start hour.
type AssignActivityParams struct {
	Principal          Principal
	ActivityID         int64
	MaintainerUsername string
	Week               int
	WeekDay            string
	StartHour          int
}

// AvailabilityBlock represents a maintainer's recurring weekly availability
// window. Hours form the half-open range [StartHour, EndHour).
type AvailabilityBlock struct {
	ID                 int64
	MaintainerUsername string
	WeekDay            scheduler.Weekday
	StartHour          int
	EndHour            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AvailabilityInput captures caller provided availability fields.
type AvailabilityInput struct {
	WeekDay   string
	StartHour int
	EndHour   int
}

// DeclareAvailabilityParams wraps the data required to declare a block.
type DeclareAvailabilityParams struct {
	Principal          Principal
	MaintainerUsername string
	Input              AvailabilityInput
}

// SlotProposal identifies a start hour at which an activity could be assigned
// to a maintainer without violating availability or existing assignments.
type SlotProposal struct {
	MaintainerUsername string
	WeekDay            scheduler.Weekday
	StartHour          int
}

// DailyWorkload reports the total estimated minutes assigned to a maintainer
// on one weekday of a week.
type DailyWorkload struct {
	WeekDay        scheduler.Weekday
	TotalEstimated int
	ActivityCount  int
}

// User represents an account exposed by the application services. The
// password hash never leaves the persistence boundary through this type.
type User struct {
	Username  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserInput captures caller provided user attributes for creation.
type UserInput struct {
	Username string
	Password string
	Role     string
}

// UserUpdate captures a partial user update: only non-nil fields are applied.
type UserUpdate struct {
	Password *string
	Role     *string
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update an existing user.
type UpdateUserParams struct {
	Principal Principal
	Username  string
	Update    UserUpdate
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	Username  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	User    User
	Session Session
}

// ChangePasswordParams captures the data required to rotate a password.
type ChangePasswordParams struct {
	Principal   Principal
	OldPassword string
	NewPassword string
}

// WorkWindow defines the configured range of hours during which any activity
// may be scheduled. Valid start hours satisfy Start <= h <= Start+Hours,
// matching the persisted check constraint.
type WorkWindow struct {
	Start int
	Hours int
}

// End returns the inclusive upper bound of the window.
func (w WorkWindow) End() int {
	return w.Start + w.Hours
}

// Contains reports whether the hour lies within the window.
func (w WorkWindow) Contains(hour int) bool {
	return hour >= w.Start && hour <= w.End()
}
