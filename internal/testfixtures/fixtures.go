package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/scheduler"
)

var (
	userCounter     uint64
	activityCounter uint64
	blockCounter    uint64
	sessionCounter  uint64
)

var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user account that can be
// materialised for application or persistence tests.
type UserFixture struct {
	Username     string
	PasswordHash string
	Role         application.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic maintainer fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		Username:     fmt.Sprintf("user%03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         application.RoleMaintainer,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) {
		f.Username = username
	}
}

// WithRole overrides the generated role.
func WithRole(role application.Role) UserOption {
	return func(f *UserFixture) {
		f.Role = role
	}
}

// WithPasswordHash overrides the generated password hash.
func WithPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserTimestamps sets both timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application converts the fixture into an application layer user.
func (f UserFixture) Application() application.User {
	return application.User{
		Username:  f.Username,
		Role:      f.Role,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Credentials converts the fixture into the credential view used by the auth service.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasswordHash: f.PasswordHash,
	}
}

// Principal converts the fixture into an authenticated principal.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{Username: f.Username, Role: f.Role}
}

// Persistence converts the fixture into a persistence layer user.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		Username:     f.Username,
		PasswordHash: f.PasswordHash,
		Role:         string(f.Role),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// --------------------------- Activity fixtures ---------------------------

// ActivityFixture represents a deterministic maintenance activity.
type ActivityFixture struct {
	ID                 int64
	Type               application.ActivityType
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

// ActivityOption configures the generated activity fixture.
type ActivityOption func(*ActivityFixture)

// NewActivityFixture returns a deterministic unscheduled activity with
// optional overrides.
func NewActivityFixture(opts ...ActivityOption) ActivityFixture {
	idx := atomic.AddUint64(&activityCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ActivityFixture{
		ID:               int64(idx),
		Type:             application.ActivityPlanned,
		Site:             "Fuorigrotta",
		Typology:         "electrical",
		Description:      fmt.Sprintf("maintenance task %03d", idx),
		Interruptible:    true,
		EstimatedMinutes: 60,
		Week:             14,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithActivityID overrides the generated activity identifier.
func WithActivityID(id int64) ActivityOption {
	return func(f *ActivityFixture) {
		f.ID = id
	}
}

// WithActivityType overrides the generated activity type.
func WithActivityType(activityType application.ActivityType) ActivityOption {
	return func(f *ActivityFixture) {
		f.Type = activityType
	}
}

// WithEstimatedMinutes overrides the estimated duration.
func WithEstimatedMinutes(minutes int) ActivityOption {
	return func(f *ActivityFixture) {
		f.EstimatedMinutes = minutes
	}
}

// WithWeek overrides the calendar week.
func WithWeek(week int) ActivityOption {
	return func(f *ActivityFixture) {
		f.Week = week
	}
}

// WithAssignment schedules the activity on the given slot.
func WithAssignment(username string, day scheduler.Weekday, startHour int) ActivityOption {
	return func(f *ActivityFixture) {
		f.MaintainerUsername = &username
		f.WeekDay = &day
		f.StartHour = &startHour
	}
}

// WithMaterials sets the materials note.
func WithMaterials(materials string) ActivityOption {
	return func(f *ActivityFixture) {
		f.Materials = &materials
	}
}

// Application converts the fixture into an application layer activity.
func (f ActivityFixture) Application() application.Activity {
	return application.Activity{
		ID:                 f.ID,
		Type:               f.Type,
		Site:               f.Site,
		Typology:           f.Typology,
		Description:        f.Description,
		Interruptible:      f.Interruptible,
		Materials:          f.Materials,
		WorkspaceNotes:     f.WorkspaceNotes,
		EstimatedMinutes:   f.EstimatedMinutes,
		Week:               f.Week,
		WeekDay:            f.WeekDay,
		StartHour:          f.StartHour,
		MaintainerUsername: f.MaintainerUsername,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Persistence converts the fixture into a persistence layer activity.
func (f ActivityFixture) Persistence() persistence.Activity {
	activity := persistence.Activity{
		ID:                 f.ID,
		Type:               string(f.Type),
		Site:               f.Site,
		Typology:           f.Typology,
		Description:        f.Description,
		Interruptible:      f.Interruptible,
		Materials:          f.Materials,
		WorkspaceNotes:     f.WorkspaceNotes,
		EstimatedMinutes:   f.EstimatedMinutes,
		Week:               f.Week,
		StartHour:          f.StartHour,
		MaintainerUsername: f.MaintainerUsername,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
	if f.WeekDay != nil {
		day := string(*f.WeekDay)
		activity.WeekDay = &day
	}
	return activity
}

// Input converts the fixture into the creation input accepted by the activity service.
func (f ActivityFixture) Input() application.ActivityInput {
	return application.ActivityInput{
		Type:             string(f.Type),
		Site:             f.Site,
		Typology:         f.Typology,
		Description:      f.Description,
		Interruptible:    f.Interruptible,
		Materials:        f.Materials,
		WorkspaceNotes:   f.WorkspaceNotes,
		EstimatedMinutes: f.EstimatedMinutes,
		Week:             f.Week,
	}
}

// ------------------------- Availability fixtures -------------------------

// AvailabilityFixture represents a deterministic weekly availability block.
type AvailabilityFixture struct {
	ID                 int64
	MaintainerUsername string
	WeekDay            scheduler.Weekday
	StartHour          int
	EndHour            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AvailabilityOption configures the generated availability fixture.
type AvailabilityOption func(*AvailabilityFixture)

// NewAvailabilityFixture returns a deterministic monday morning block with
// optional overrides.
func NewAvailabilityFixture(opts ...AvailabilityOption) AvailabilityFixture {
	idx := atomic.AddUint64(&blockCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := AvailabilityFixture{
		ID:                 int64(idx),
		MaintainerUsername: fmt.Sprintf("user%03d", idx),
		WeekDay:            scheduler.Monday,
		StartHour:          8,
		EndHour:            12,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBlockMaintainer overrides the owning maintainer.
func WithBlockMaintainer(username string) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.MaintainerUsername = username
	}
}

// WithBlockSlot overrides the weekday and hour range.
func WithBlockSlot(day scheduler.Weekday, startHour, endHour int) AvailabilityOption {
	return func(f *AvailabilityFixture) {
		f.WeekDay = day
		f.StartHour = startHour
		f.EndHour = endHour
	}
}

// Application converts the fixture into an application layer block.
func (f AvailabilityFixture) Application() application.AvailabilityBlock {
	return application.AvailabilityBlock{
		ID:                 f.ID,
		MaintainerUsername: f.MaintainerUsername,
		WeekDay:            f.WeekDay,
		StartHour:          f.StartHour,
		EndHour:            f.EndHour,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Persistence converts the fixture into a persistence layer block.
func (f AvailabilityFixture) Persistence() persistence.AvailabilityBlock {
	return persistence.AvailabilityBlock{
		ID:                 f.ID,
		MaintainerUsername: f.MaintainerUsername,
		WeekDay:            string(f.WeekDay),
		StartHour:          f.StartHour,
		EndHour:            f.EndHour,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// --------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic authentication session.
type SessionFixture struct {
	ID        string
	Username  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic active session with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		Username:  fmt.Sprintf("user%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionUsername overrides the owning username.
func WithSessionUsername(username string) SessionOption {
	return func(f *SessionFixture) {
		f.Username = username
	}
}

// WithSessionToken overrides the opaque token.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiry overrides the expiry instant.
func WithSessionExpiry(expiresAt time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = expiresAt
	}
}

// Revoked marks the session as revoked at the given instant.
func Revoked(revokedAt time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.RevokedAt = &revokedAt
	}
}

// Application converts the fixture into an application layer session.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:        f.ID,
		Username:  f.Username,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		RevokedAt: f.RevokedAt,
	}
}

// Persistence converts the fixture into a persistence layer session.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		Username:  f.Username,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		RevokedAt: f.RevokedAt,
	}
}
