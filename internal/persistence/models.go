package persistence

import "time"

// User represents an account in the maintenance scheduler domain. The
// username is the primary identity.
type User struct {
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Activity represents a maintenance work order stored in persistence.
// WeekDay, StartHour, and MaintainerUsername are nil until the activity is
// scheduled; the three are always set or cleared together.
type Activity struct {
	ID                 int64
	Type               string
	Site               string
	Typology           string
	Description        string
	Interruptible      bool
	Materials          *string
	WorkspaceNotes     *string
	EstimatedMinutes   int
	Week               int
	WeekDay            *string
	StartHour          *int
	MaintainerUsername *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AvailabilityBlock represents a maintainer's recurring weekly availability
// window on a given weekday. Hours form the half-open range [StartHour, EndHour).
type AvailabilityBlock struct {
	ID                 int64
	MaintainerUsername string
	WeekDay            string
	StartHour          int
	EndHour            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	Username  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
