package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/maintenance-scheduler/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const userColumns = "username, password_hash, role, created_at, updated_at"

// CreateUser inserts a new user into the database.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.Username == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	query := `
		INSERT INTO users (username, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Role,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateUser updates an existing user in the database.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.Username == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE users
		SET password_hash = ?, role = ?, updated_at = ?
		WHERE username = ?
	`

	result, err := r.helper.Exec(ctx, query,
		user.PasswordHash,
		user.Role,
		formatTime(user.UpdatedAt),
		user.Username,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetUser retrieves a user by username from the database.
func (r *UserRepository) GetUser(ctx context.Context, username string) (persistence.User, error) {
	if username == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	query := "SELECT " + userColumns + " FROM users WHERE username = ?"
	return r.scanUser(r.helper.QueryRow(ctx, query, username))
}

// ListUsers returns one page of users ordered by username.
func (r *UserRepository) ListUsers(ctx context.Context, page persistence.Page) ([]persistence.User, persistence.PageMeta, error) {
	page = page.Normalize()

	var total int
	if err := r.helper.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, persistence.PageMeta{}, r.mapper.MapError(err)
	}

	query := "SELECT " + userColumns + " FROM users ORDER BY username ASC LIMIT ? OFFSET ?"
	rows, err := r.helper.Query(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, persistence.PageMeta{}, r.mapper.MapError(err)
	}
	defer rows.Close()

	users, err := r.collectUsers(rows)
	if err != nil {
		return nil, persistence.PageMeta{}, err
	}
	return users, persistence.NewPageMeta(page, total), nil
}

// ListUsersByRole returns every user holding the given role, ordered by username.
func (r *UserRepository) ListUsersByRole(ctx context.Context, role string) ([]persistence.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE role = ? ORDER BY username ASC"
	rows, err := r.helper.Query(ctx, query, role)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return r.collectUsers(rows)
}

// DeleteUser removes a user by username. Assigned activities are released and
// availability blocks and sessions are removed through the schema's foreign
// key actions.
func (r *UserRepository) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx, "DELETE FROM users WHERE username = ?", username)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.User{}, persistence.ErrNotFound
		}
		return persistence.User{}, r.mapper.MapError(err)
	}

	if user.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.User{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return user, nil
}

func (r *UserRepository) collectUsers(rows *sql.Rows) ([]persistence.User, error) {
	var users []persistence.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return users, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
