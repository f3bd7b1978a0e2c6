package persistence

import (
	"context"
	"time"
)

// Page identifies a slice of a result set, pages starting from 1.
type Page struct {
	Number int
	Size   int
}

// DefaultPage mirrors the listing defaults used across the API.
func DefaultPage() Page {
	return Page{Number: 1, Size: 10}
}

// Normalize clamps invalid page parameters to the defaults.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPage().Size
	}
	return p
}

// Offset returns the number of rows to skip for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageMeta describes the pagination state of a listing response.
type PageMeta struct {
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasNext     bool
	HasPrev     bool
}

// NewPageMeta derives pagination metadata from a page and a total row count.
func NewPageMeta(page Page, totalItems int) PageMeta {
	page = page.Normalize()
	totalPages := 0
	if totalItems > 0 {
		totalPages = (totalItems + page.Size - 1) / page.Size
	}
	return PageMeta{
		CurrentPage: page.Number,
		PageSize:    page.Size,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNext:     page.Number < totalPages,
		HasPrev:     page.Number > 1 && totalPages > 0,
	}
}

// ActivityFilter narrows activity listings. Nil fields are ignored.
type ActivityFilter struct {
	Week               *int
	WeekDay            *string
	MaintainerUsername *string
}

// UserRepository exposes CRUD operations for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context, page Page) ([]User, PageMeta, error)
	ListUsersByRole(ctx context.Context, role string) ([]User, error)
	DeleteUser(ctx context.Context, username string) error
}

// ActivityRepository stores maintenance activities and their assignments.
type ActivityRepository interface {
	// CreateActivity persists the activity and returns it with the
	// store-assigned identifier populated.
	CreateActivity(ctx context.Context, activity Activity) (Activity, error)
	UpdateActivity(ctx context.Context, activity Activity) error
	GetActivity(ctx context.Context, id int64) (Activity, error)
	ListActivities(ctx context.Context, filter ActivityFilter, page Page) ([]Activity, PageMeta, error)
	// ListActivitiesForMaintainerOnDay returns every activity assigned to the
	// maintainer on the given week and weekday, excluding excludeID when it is
	// non-zero. Used by conflict detection when (re)assigning an activity.
	ListActivitiesForMaintainerOnDay(ctx context.Context, username string, week int, weekDay string, excludeID int64) ([]Activity, error)
	DeleteActivity(ctx context.Context, id int64) error
}

// AvailabilityRepository stores maintainer availability blocks.
type AvailabilityRepository interface {
	CreateBlock(ctx context.Context, block AvailabilityBlock) (AvailabilityBlock, error)
	GetBlock(ctx context.Context, id int64) (AvailabilityBlock, error)
	ListBlocksForMaintainer(ctx context.Context, username string) ([]AvailabilityBlock, error)
	ListBlocksForMaintainerOnDay(ctx context.Context, username, weekDay string) ([]AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, id int64) error
	DeleteBlocksForMaintainer(ctx context.Context, username string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
