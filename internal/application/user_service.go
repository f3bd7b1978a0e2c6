package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/maintenance-scheduler/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, user User, passwordHash *string) (User, error)
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context, page PageRequest) ([]User, PageInfo, error)
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// UserService orchestrates validation, authorization, and persistence for user accounts.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hashPassword PasswordHasher, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hashPassword, now, nil)
}

// NewUserServiceWithLogger constructs a UserService with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hashPassword PasswordHasher, now func() time.Time, logger *slog.Logger) *UserService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:        users,
		hashPassword: hashPassword,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new account for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if !params.Principal.IsAdmin() {
		return User{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "CreateUser", "username", strings.TrimSpace(params.Input.Username))

	normalized := normalizeUserInput(params.Input)
	role, vErr := validateUserInput(normalized)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		logger.ErrorContext(ctx, "failed to hash password", "error", err)
		return User{}, err
	}

	user := User{
		Username:  normalized.Username,
		Role:      role,
		CreatedAt: s.now(),
	}
	user.UpdatedAt = user.CreatedAt

	if s.users == nil {
		return user, nil
	}

	persisted, err := s.users.CreateUser(ctx, user, hash)
	if err != nil {
		err = mapUserRepoError(err)
		logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
		return User{}, err
	}

	logger.InfoContext(ctx, "user created", "role", string(persisted.Role))
	return persisted, nil
}

// GetUser returns a single account. Administrators may read any account,
// other principals only their own.
func (s *UserService) GetUser(ctx context.Context, principal Principal, username string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	username = strings.TrimSpace(username)
	if !principal.IsAdmin() && principal.Username != username {
		return User{}, ErrUnauthorized
	}

	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// UpdateUser applies a partial update to an existing account for administrators.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if !params.Principal.IsAdmin() {
		return User{}, ErrUnauthorized
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "UpdateUser", "username", username)

	existing, err := s.users.GetUser(ctx, username)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}

	vErr := &ValidationError{}
	updated := existing

	if params.Update.Role != nil {
		role, ok := ParseRole(*params.Update.Role)
		if !ok {
			vErr.add("role", "role must be one of admin, maintainer, planner")
		} else {
			updated.Role = role
		}
	}

	var hash *string
	if params.Update.Password != nil {
		if len(*params.Update.Password) < 8 {
			vErr.add("password", "password must be at least 8 characters")
		} else {
			hashed, hashErr := s.hashPassword(*params.Update.Password)
			if hashErr != nil {
				logger.ErrorContext(ctx, "failed to hash password", "error", hashErr)
				return User{}, hashErr
			}
			hash = &hashed
		}
	}

	if vErr.HasErrors() {
		return User{}, vErr
	}

	updated.UpdatedAt = s.now()

	persisted, err := s.users.UpdateUser(ctx, updated, hash)
	if err != nil {
		err = mapUserRepoError(err)
		logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
		return User{}, err
	}

	logger.InfoContext(ctx, "user updated")
	return persisted, nil
}

// DeleteUser removes an account when requested by an administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, username string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	username = strings.TrimSpace(username)
	logger := s.loggerWith(ctx, "DeleteUser", "username", username)

	if err := s.users.DeleteUser(ctx, username); err != nil {
		err = mapUserRepoError(err)
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "user deleted")
	return nil
}

// ListUsers returns a page of accounts for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal, page PageRequest) ([]User, PageInfo, error) {
	if s == nil {
		return nil, PageInfo{}, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin() {
		return nil, PageInfo{}, ErrUnauthorized
	}
	if s.users == nil {
		return nil, PageInfo{}, nil
	}

	users, info, err := s.users.ListUsers(ctx, page)
	if err != nil {
		return nil, PageInfo{}, mapUserRepoError(err)
	}
	return users, info, nil
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Username: strings.TrimSpace(input.Username),
		Password: input.Password,
		Role:     strings.TrimSpace(input.Role),
	}
}

func validateUserInput(input UserInput) (Role, *ValidationError) {
	vErr := &ValidationError{}

	if input.Username == "" {
		vErr.add("username", "username is required")
	} else if strings.ContainsAny(input.Username, " \t/") {
		vErr.add("username", "username must not contain spaces or slashes")
	}

	if len(input.Password) < 8 {
		vErr.add("password", "password must be at least 8 characters")
	}

	role, ok := ParseRole(input.Role)
	if !ok {
		vErr.add("role", "role must be one of admin, maintainer, planner")
	}

	return role, vErr
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("role", "role must be one of admin, maintainer, planner")
		return vErr
	}
	return err
}
