package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/maintenance-scheduler/internal/application"
	"github.com/example/maintenance-scheduler/internal/config"
	httptransport "github.com/example/maintenance-scheduler/internal/http"
	"github.com/example/maintenance-scheduler/internal/persistence"
	"github.com/example/maintenance-scheduler/internal/persistence/sqlite"
	"github.com/example/maintenance-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/maintenance-scheduler/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	users := sqlite.NewUserRepository(pool)
	activities := sqlite.NewActivityRepository(pool)
	availability := sqlite.NewAvailabilityRepository(pool)
	sessions := sqlite.NewSessionRepository(pool)

	if err := bootstrapAdmin(ctx, logger, users, cfg); err != nil {
		logger.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	now := time.Now
	window := application.WorkWindow{Start: cfg.WorkStartHour, Hours: cfg.WorkHours}

	userStore := newUserStore(users)
	activityStore := newActivityStore(activities)
	availabilityStore := newAvailabilityStore(availability)
	sessionStore := newSessionStore(sessions)

	userService := application.NewUserServiceWithLogger(userStore, nil, now, logger)
	authService := application.NewAuthServiceWithLogger(userStore, sessionStore, nil, uuid.NewString, now, cfg.SessionTTL, logger)
	activityService := application.NewActivityServiceWithLogger(activityStore, userStore, now, logger)
	assignmentService := application.NewAssignmentServiceWithLogger(activityStore, availabilityStore, userStore, window, now, logger)
	availabilityService := application.NewAvailabilityServiceWithLogger(availabilityStore, activityStore, userStore, userStore, window, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:        httptransport.NewAuthHandler(authService, logger),
		Users:       httptransport.NewUserHandler(userService, logger),
		Activities:  httptransport.NewActivityHandler(activityService, assignmentService, logger),
		Maintainers: httptransport.NewMaintainerHandler(availabilityService, activityService, logger),
		Session:     httptransport.RequireSession(authService, logger),
		Middleware:  []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("maintenance scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// bootstrapAdmin seeds the configured admin account so a fresh database has a
// user able to log in. An account that already exists is left untouched.
func bootstrapAdmin(ctx context.Context, logger *slog.Logger, users *sqlite.UserRepository, cfg config.Config) error {
	if cfg.BootstrapAdminUsername == "" {
		return nil
	}

	if _, err := users.GetUser(ctx, cfg.BootstrapAdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	hash, err := application.CreatePasswordHash(cfg.BootstrapAdminPassword, application.DefaultArgon2idParams)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = users.CreateUser(ctx, persistence.User{
		Username:     cfg.BootstrapAdminUsername,
		PasswordHash: hash,
		Role:         string(application.RoleAdmin),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, persistence.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("bootstrapped admin account", "username", cfg.BootstrapAdminUsername)
	return nil
}

// userStore bridges the persistence user repository to the application
// interfaces that consume accounts: UserRepository, CredentialStore,
// UserDirectory, and MaintainerRoster.
type userStore struct {
	repo *sqlite.UserRepository
}

func newUserStore(repo *sqlite.UserRepository) *userStore {
	return &userStore{repo: repo}
}

func (s *userStore) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := s.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := s.repo.GetUser(ctx, user.Username)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (s *userStore) GetUser(ctx context.Context, username string) (application.User, error) {
	stored, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (s *userStore) UpdateUser(ctx context.Context, user application.User, passwordHash *string) (application.User, error) {
	current, err := s.repo.GetUser(ctx, user.Username)
	if err != nil {
		return application.User{}, err
	}
	hash := current.PasswordHash
	if passwordHash != nil {
		hash = *passwordHash
	}
	if err := s.repo.UpdateUser(ctx, toPersistenceUser(user, hash)); err != nil {
		return application.User{}, err
	}
	stored, err := s.repo.GetUser(ctx, user.Username)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (s *userStore) DeleteUser(ctx context.Context, username string) error {
	return s.repo.DeleteUser(ctx, username)
}

func (s *userStore) ListUsers(ctx context.Context, page application.PageRequest) ([]application.User, application.PageInfo, error) {
	models, meta, err := s.repo.ListUsers(ctx, persistence.Page{Number: page.Page, Size: page.PageSize})
	if err != nil {
		return nil, application.PageInfo{}, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, toPageInfo(meta), nil
}

func (s *userStore) ListMaintainers(ctx context.Context) ([]application.User, error) {
	models, err := s.repo.ListUsersByRole(ctx, string(application.RoleMaintainer))
	if err != nil {
		return nil, err
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (s *userStore) GetUserCredentials(ctx context.Context, username string) (application.UserCredentials, error) {
	stored, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (s *userStore) SetPasswordHash(ctx context.Context, username, passwordHash string, updatedAt time.Time) error {
	current, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return err
	}
	current.PasswordHash = passwordHash
	current.UpdatedAt = updatedAt
	return s.repo.UpdateUser(ctx, current)
}

// activityStore bridges the persistence activity repository to the
// application ActivityRepository interface.
type activityStore struct {
	repo *sqlite.ActivityRepository
}

func newActivityStore(repo *sqlite.ActivityRepository) *activityStore {
	return &activityStore{repo: repo}
}

func (s *activityStore) CreateActivity(ctx context.Context, activity application.Activity) (application.Activity, error) {
	stored, err := s.repo.CreateActivity(ctx, toPersistenceActivity(activity))
	if err != nil {
		return application.Activity{}, err
	}
	return toApplicationActivity(stored), nil
}

func (s *activityStore) GetActivity(ctx context.Context, id int64) (application.Activity, error) {
	stored, err := s.repo.GetActivity(ctx, id)
	if err != nil {
		return application.Activity{}, err
	}
	return toApplicationActivity(stored), nil
}

func (s *activityStore) UpdateActivity(ctx context.Context, activity application.Activity) (application.Activity, error) {
	if err := s.repo.UpdateActivity(ctx, toPersistenceActivity(activity)); err != nil {
		return application.Activity{}, err
	}
	stored, err := s.repo.GetActivity(ctx, activity.ID)
	if err != nil {
		return application.Activity{}, err
	}
	return toApplicationActivity(stored), nil
}

func (s *activityStore) DeleteActivity(ctx context.Context, id int64) error {
	return s.repo.DeleteActivity(ctx, id)
}

func (s *activityStore) ListActivities(ctx context.Context, query application.ActivityQuery, page application.PageRequest) ([]application.Activity, application.PageInfo, error) {
	filter := persistence.ActivityFilter{
		Week:               query.Week,
		MaintainerUsername: query.MaintainerUsername,
	}
	if query.WeekDay != nil {
		day := string(*query.WeekDay)
		filter.WeekDay = &day
	}
	models, meta, err := s.repo.ListActivities(ctx, filter, persistence.Page{Number: page.Page, Size: page.PageSize})
	if err != nil {
		return nil, application.PageInfo{}, err
	}
	activities := make([]application.Activity, 0, len(models))
	for _, model := range models {
		activities = append(activities, toApplicationActivity(model))
	}
	return activities, toPageInfo(meta), nil
}

func (s *activityStore) ListAssignedOnDay(ctx context.Context, username string, week int, weekDay scheduler.Weekday, excludeID int64) ([]application.Activity, error) {
	models, err := s.repo.ListActivitiesForMaintainerOnDay(ctx, username, week, string(weekDay), excludeID)
	if err != nil {
		return nil, err
	}
	activities := make([]application.Activity, 0, len(models))
	for _, model := range models {
		activities = append(activities, toApplicationActivity(model))
	}
	return activities, nil
}

// availabilityStore bridges the persistence availability repository to the
// application AvailabilityRepository and AvailabilityReader interfaces.
type availabilityStore struct {
	repo *sqlite.AvailabilityRepository
}

func newAvailabilityStore(repo *sqlite.AvailabilityRepository) *availabilityStore {
	return &availabilityStore{repo: repo}
}

func (s *availabilityStore) CreateBlock(ctx context.Context, block application.AvailabilityBlock) (application.AvailabilityBlock, error) {
	stored, err := s.repo.CreateBlock(ctx, toPersistenceBlock(block))
	if err != nil {
		return application.AvailabilityBlock{}, err
	}
	return toApplicationBlock(stored), nil
}

func (s *availabilityStore) GetBlock(ctx context.Context, id int64) (application.AvailabilityBlock, error) {
	stored, err := s.repo.GetBlock(ctx, id)
	if err != nil {
		return application.AvailabilityBlock{}, err
	}
	return toApplicationBlock(stored), nil
}

func (s *availabilityStore) ListBlocksForMaintainer(ctx context.Context, username string) ([]application.AvailabilityBlock, error) {
	models, err := s.repo.ListBlocksForMaintainer(ctx, username)
	if err != nil {
		return nil, err
	}
	return toApplicationBlocks(models), nil
}

func (s *availabilityStore) ListBlocksForMaintainerOnDay(ctx context.Context, username string, weekDay scheduler.Weekday) ([]application.AvailabilityBlock, error) {
	models, err := s.repo.ListBlocksForMaintainerOnDay(ctx, username, string(weekDay))
	if err != nil {
		return nil, err
	}
	return toApplicationBlocks(models), nil
}

func (s *availabilityStore) DeleteBlock(ctx context.Context, id int64) error {
	return s.repo.DeleteBlock(ctx, id)
}

// sessionStore bridges the persistence session repository to the application
// SessionRepository interface.
type sessionStore struct {
	repo *sqlite.SessionRepository
}

func newSessionStore(repo *sqlite.SessionRepository) *sessionStore {
	return &sessionStore{repo: repo}
}

func (s *sessionStore) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := s.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (s *sessionStore) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (s *sessionStore) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := s.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (s *sessionStore) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return s.repo.DeleteExpiredSessions(ctx, reference)
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		Username:  model.Username,
		Role:      application.Role(model.Role),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		Username:     user.Username,
		PasswordHash: passwordHash,
		Role:         string(user.Role),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationActivity(model persistence.Activity) application.Activity {
	activity := application.Activity{
		ID:                 model.ID,
		Type:               application.ActivityType(model.Type),
		Site:               model.Site,
		Typology:           model.Typology,
		Description:        model.Description,
		Interruptible:      model.Interruptible,
		Materials:          cloneString(model.Materials),
		WorkspaceNotes:     cloneString(model.WorkspaceNotes),
		EstimatedMinutes:   model.EstimatedMinutes,
		Week:               model.Week,
		StartHour:          cloneInt(model.StartHour),
		MaintainerUsername: cloneString(model.MaintainerUsername),
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
	if model.WeekDay != nil {
		day := scheduler.Weekday(*model.WeekDay)
		activity.WeekDay = &day
	}
	return activity
}

func toPersistenceActivity(activity application.Activity) persistence.Activity {
	model := persistence.Activity{
		ID:                 activity.ID,
		Type:               string(activity.Type),
		Site:               activity.Site,
		Typology:           activity.Typology,
		Description:        activity.Description,
		Interruptible:      activity.Interruptible,
		Materials:          cloneString(activity.Materials),
		WorkspaceNotes:     cloneString(activity.WorkspaceNotes),
		EstimatedMinutes:   activity.EstimatedMinutes,
		Week:               activity.Week,
		StartHour:          cloneInt(activity.StartHour),
		MaintainerUsername: cloneString(activity.MaintainerUsername),
		CreatedAt:          activity.CreatedAt,
		UpdatedAt:          activity.UpdatedAt,
	}
	if activity.WeekDay != nil {
		day := string(*activity.WeekDay)
		model.WeekDay = &day
	}
	return model
}

func toApplicationBlock(model persistence.AvailabilityBlock) application.AvailabilityBlock {
	return application.AvailabilityBlock{
		ID:                 model.ID,
		MaintainerUsername: model.MaintainerUsername,
		WeekDay:            scheduler.Weekday(model.WeekDay),
		StartHour:          model.StartHour,
		EndHour:            model.EndHour,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

func toApplicationBlocks(models []persistence.AvailabilityBlock) []application.AvailabilityBlock {
	blocks := make([]application.AvailabilityBlock, 0, len(models))
	for _, model := range models {
		blocks = append(blocks, toApplicationBlock(model))
	}
	return blocks
}

func toPersistenceBlock(block application.AvailabilityBlock) persistence.AvailabilityBlock {
	return persistence.AvailabilityBlock{
		ID:                 block.ID,
		MaintainerUsername: block.MaintainerUsername,
		WeekDay:            string(block.WeekDay),
		StartHour:          block.StartHour,
		EndHour:            block.EndHour,
		CreatedAt:          block.CreatedAt,
		UpdatedAt:          block.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		Username:  model.Username,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		Username:  session.Username,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toPageInfo(meta persistence.PageMeta) application.PageInfo {
	return application.PageInfo{
		CurrentPage: meta.CurrentPage,
		PageSize:    meta.PageSize,
		TotalItems:  meta.TotalItems,
		TotalPages:  meta.TotalPages,
		HasNext:     meta.HasNext,
		HasPrev:     meta.HasPrev,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
