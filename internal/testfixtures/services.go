package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/maintenance-scheduler/internal/application"
)

// DefaultWorkWindow mirrors the production default scheduling window.
var DefaultWorkWindow = application.WorkWindow{Start: 8, Hours: 8}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	WorkWindow  application.WorkWindow
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("token"),
		WorkWindow:  DefaultWorkWindow,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("token")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithWorkWindow overrides the scheduling window used by the factory.
func WithWorkWindow(window application.WorkWindow) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.WorkWindow = window
	}
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users        application.UserRepository
	HashPassword application.PasswordHasher
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	hash := deps.HashPassword
	if hash == nil {
		hash = func(password string) (string, error) { return "hashed:" + password, nil }
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewUserServiceWithLogger(
		deps.Users,
		hash,
		now,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	token := deps.TokenGenerator
	if token == nil {
		token = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		deps.PasswordVerify,
		token,
		now,
		deps.SessionTTL,
		deps.Logger,
	)
}

// ActivityServiceDeps captures dependencies for constructing an activity service.
type ActivityServiceDeps struct {
	Activities application.ActivityRepository
	Users      application.UserDirectory
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewActivityService builds an activity service using the supplied dependencies.
func (f *ServiceFactory) NewActivityService(deps ActivityServiceDeps) *application.ActivityService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewActivityServiceWithLogger(
		deps.Activities,
		deps.Users,
		now,
		deps.Logger,
	)
}

// AssignmentServiceDeps captures dependencies for constructing an assignment service.
type AssignmentServiceDeps struct {
	Activities   application.ActivityRepository
	Availability application.AvailabilityReader
	Users        application.UserDirectory
	Window       application.WorkWindow
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAssignmentService builds an assignment service using the supplied dependencies.
func (f *ServiceFactory) NewAssignmentService(deps AssignmentServiceDeps) *application.AssignmentService {
	window := deps.Window
	if window == (application.WorkWindow{}) {
		window = f.WorkWindow
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAssignmentServiceWithLogger(
		deps.Activities,
		deps.Availability,
		deps.Users,
		window,
		now,
		deps.Logger,
	)
}

// AvailabilityServiceDeps captures dependencies for constructing an availability service.
type AvailabilityServiceDeps struct {
	Blocks     application.AvailabilityRepository
	Activities application.ActivityRepository
	Users      application.UserDirectory
	Roster     application.MaintainerRoster
	Window     application.WorkWindow
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewAvailabilityService builds an availability service using the supplied dependencies.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	window := deps.Window
	if window == (application.WorkWindow{}) {
		window = f.WorkWindow
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewAvailabilityServiceWithLogger(
		deps.Blocks,
		deps.Activities,
		deps.Users,
		deps.Roster,
		window,
		now,
		deps.Logger,
	)
}
