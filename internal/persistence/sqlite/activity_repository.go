package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/maintenance-scheduler/internal/persistence"
)

// ActivityRepository implements persistence.ActivityRepository using SQLite.
type ActivityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewActivityRepository creates a new SQLite activity repository.
func NewActivityRepository(pool *ConnectionPool) *ActivityRepository {
	return &ActivityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const activityColumns = `activity_id, activity_type, site, typology, description, interruptible,
	materials, workspace_notes, estimated_time, week, week_day, start_time,
	maintainer_username, created_at, updated_at`

// CreateActivity persists the activity and returns it with the
// store-assigned identifier populated.
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity persistence.Activity) (persistence.Activity, error) {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	if activity.UpdatedAt.IsZero() {
		activity.UpdatedAt = activity.CreatedAt
	}

	query := `
		INSERT INTO maintenance_activities
			(activity_type, site, typology, description, interruptible, materials,
			 workspace_notes, estimated_time, week, week_day, start_time,
			 maintainer_username, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.helper.Exec(ctx, query,
		activity.Type,
		activity.Site,
		activity.Typology,
		activity.Description,
		activity.Interruptible,
		activity.Materials,
		activity.WorkspaceNotes,
		activity.EstimatedMinutes,
		activity.Week,
		activity.WeekDay,
		activity.StartHour,
		activity.MaintainerUsername,
		formatTime(activity.CreatedAt),
		formatTime(activity.UpdatedAt),
	)
	if err != nil {
		return persistence.Activity{}, r.mapper.MapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Activity{}, fmt.Errorf("failed to get inserted id: %w", err)
	}
	activity.ID = id
	return activity, nil
}

// UpdateActivity rewrites every mutable column of an activity. Writes are
// retried on lock contention since assignments race with listings.
func (r *ActivityRepository) UpdateActivity(ctx context.Context, activity persistence.Activity) error {
	if activity.UpdatedAt.IsZero() {
		activity.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE maintenance_activities
		SET activity_type = ?, site = ?, typology = ?, description = ?,
			interruptible = ?, materials = ?, workspace_notes = ?,
			estimated_time = ?, week = ?, week_day = ?, start_time = ?,
			maintainer_username = ?, updated_at = ?
		WHERE activity_id = ?
	`

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, query,
			activity.Type,
			activity.Site,
			activity.Typology,
			activity.Description,
			activity.Interruptible,
			activity.Materials,
			activity.WorkspaceNotes,
			activity.EstimatedMinutes,
			activity.Week,
			activity.WeekDay,
			activity.StartHour,
			activity.MaintainerUsername,
			formatTime(activity.UpdatedAt),
			activity.ID,
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
	})
}

// GetActivity retrieves an activity by identifier.
func (r *ActivityRepository) GetActivity(ctx context.Context, id int64) (persistence.Activity, error) {
	query := "SELECT " + activityColumns + " FROM maintenance_activities WHERE activity_id = ?"
	return r.scanActivity(r.helper.QueryRow(ctx, query, id))
}

// ListActivities returns one page of activities matching the filter, ordered
// by identifier.
func (r *ActivityRepository) ListActivities(ctx context.Context, filter persistence.ActivityFilter, page persistence.Page) ([]persistence.Activity, persistence.PageMeta, error) {
	page = page.Normalize()

	where, args := buildActivityFilter(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM maintenance_activities" + where
	if err := r.helper.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, persistence.PageMeta{}, r.mapper.MapError(err)
	}

	query := "SELECT " + activityColumns + " FROM maintenance_activities" + where +
		" ORDER BY activity_id ASC LIMIT ? OFFSET ?"
	rows, err := r.helper.Query(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, persistence.PageMeta{}, r.mapper.MapError(err)
	}
	defer rows.Close()

	activities, err := r.collectActivities(rows)
	if err != nil {
		return nil, persistence.PageMeta{}, err
	}
	return activities, persistence.NewPageMeta(page, total), nil
}

// ListActivitiesForMaintainerOnDay returns every activity assigned to the
// maintainer on the given week and weekday, excluding excludeID when it is
// non-zero.
func (r *ActivityRepository) ListActivitiesForMaintainerOnDay(ctx context.Context, username string, week int, weekDay string, excludeID int64) ([]persistence.Activity, error) {
	query := "SELECT " + activityColumns + ` FROM maintenance_activities
		WHERE maintainer_username = ? AND week = ? AND week_day = ?`
	args := []any{username, week, weekDay}
	if excludeID != 0 {
		query += " AND activity_id != ?"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_time ASC, activity_id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return r.collectActivities(rows)
}

// DeleteActivity removes an activity by identifier.
func (r *ActivityRepository) DeleteActivity(ctx context.Context, id int64) error {
	result, err := r.helper.Exec(ctx, "DELETE FROM maintenance_activities WHERE activity_id = ?", id)
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

func buildActivityFilter(filter persistence.ActivityFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Week != nil {
		clauses = append(clauses, "week = ?")
		args = append(args, *filter.Week)
	}
	if filter.WeekDay != nil {
		clauses = append(clauses, "week_day = ?")
		args = append(args, *filter.WeekDay)
	}
	if filter.MaintainerUsername != nil {
		clauses = append(clauses, "maintainer_username = ?")
		args = append(args, *filter.MaintainerUsername)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *ActivityRepository) scanActivity(row rowScanner) (persistence.Activity, error) {
	var activity persistence.Activity
	var createdAtStr, updatedAtStr string
	var weekDay sql.NullString
	var startHour sql.NullInt64
	var maintainer sql.NullString
	var materials sql.NullString
	var workspaceNotes sql.NullString

	err := row.Scan(
		&activity.ID,
		&activity.Type,
		&activity.Site,
		&activity.Typology,
		&activity.Description,
		&activity.Interruptible,
		&materials,
		&workspaceNotes,
		&activity.EstimatedMinutes,
		&activity.Week,
		&weekDay,
		&startHour,
		&maintainer,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Activity{}, persistence.ErrNotFound
		}
		return persistence.Activity{}, r.mapper.MapError(err)
	}

	if materials.Valid {
		activity.Materials = &materials.String
	}
	if workspaceNotes.Valid {
		activity.WorkspaceNotes = &workspaceNotes.String
	}
	if weekDay.Valid {
		activity.WeekDay = &weekDay.String
	}
	if startHour.Valid {
		hour := int(startHour.Int64)
		activity.StartHour = &hour
	}
	if maintainer.Valid {
		activity.MaintainerUsername = &maintainer.String
	}

	if activity.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Activity{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if activity.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Activity{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return activity, nil
}

func (r *ActivityRepository) collectActivities(rows *sql.Rows) ([]persistence.Activity, error) {
	var activities []persistence.Activity
	for rows.Next() {
		activity, err := r.scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return activities, nil
}
