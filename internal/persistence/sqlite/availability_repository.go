package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/maintenance-scheduler/internal/persistence"
)

// AvailabilityRepository implements persistence.AvailabilityRepository using SQLite.
type AvailabilityRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAvailabilityRepository creates a new SQLite availability repository.
func NewAvailabilityRepository(pool *ConnectionPool) *AvailabilityRepository {
	return &AvailabilityRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const availabilityColumns = "id, maintainer_username, week_day, start_hour, end_hour, created_at, updated_at"

// CreateBlock persists an availability block and returns it with the
// store-assigned identifier populated.
func (r *AvailabilityRepository) CreateBlock(ctx context.Context, block persistence.AvailabilityBlock) (persistence.AvailabilityBlock, error) {
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now().UTC()
	}
	if block.UpdatedAt.IsZero() {
		block.UpdatedAt = block.CreatedAt
	}

	query := `
		INSERT INTO availability_blocks
			(maintainer_username, week_day, start_hour, end_hour, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.helper.Exec(ctx, query,
		block.MaintainerUsername,
		block.WeekDay,
		block.StartHour,
		block.EndHour,
		formatTime(block.CreatedAt),
		formatTime(block.UpdatedAt),
	)
	if err != nil {
		return persistence.AvailabilityBlock{}, r.mapper.MapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.AvailabilityBlock{}, fmt.Errorf("failed to get inserted id: %w", err)
	}
	block.ID = id
	return block, nil
}

// GetBlock retrieves an availability block by identifier.
func (r *AvailabilityRepository) GetBlock(ctx context.Context, id int64) (persistence.AvailabilityBlock, error) {
	query := "SELECT " + availabilityColumns + " FROM availability_blocks WHERE id = ?"
	return r.scanBlock(r.helper.QueryRow(ctx, query, id))
}

// ListBlocksForMaintainer returns every block declared for a maintainer.
func (r *AvailabilityRepository) ListBlocksForMaintainer(ctx context.Context, username string) ([]persistence.AvailabilityBlock, error) {
	query := "SELECT " + availabilityColumns + ` FROM availability_blocks
		WHERE maintainer_username = ?
		ORDER BY week_day ASC, start_hour ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, username)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return r.collectBlocks(rows)
}

// ListBlocksForMaintainerOnDay returns the maintainer's blocks for one weekday.
func (r *AvailabilityRepository) ListBlocksForMaintainerOnDay(ctx context.Context, username, weekDay string) ([]persistence.AvailabilityBlock, error) {
	query := "SELECT " + availabilityColumns + ` FROM availability_blocks
		WHERE maintainer_username = ? AND week_day = ?
		ORDER BY start_hour ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, username, weekDay)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return r.collectBlocks(rows)
}

// DeleteBlock removes an availability block by identifier.
func (r *AvailabilityRepository) DeleteBlock(ctx context.Context, id int64) error {
	result, err := r.helper.Exec(ctx, "DELETE FROM availability_blocks WHERE id = ?", id)
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

// DeleteBlocksForMaintainer removes every block declared for a maintainer.
func (r *AvailabilityRepository) DeleteBlocksForMaintainer(ctx context.Context, username string) error {
	_, err := r.helper.Exec(ctx, "DELETE FROM availability_blocks WHERE maintainer_username = ?", username)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *AvailabilityRepository) scanBlock(row rowScanner) (persistence.AvailabilityBlock, error) {
	var block persistence.AvailabilityBlock
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&block.ID,
		&block.MaintainerUsername,
		&block.WeekDay,
		&block.StartHour,
		&block.EndHour,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.AvailabilityBlock{}, persistence.ErrNotFound
		}
		return persistence.AvailabilityBlock{}, r.mapper.MapError(err)
	}

	if block.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.AvailabilityBlock{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if block.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.AvailabilityBlock{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return block, nil
}

func (r *AvailabilityRepository) collectBlocks(rows *sql.Rows) ([]persistence.AvailabilityBlock, error) {
	var blocks []persistence.AvailabilityBlock
	for rows.Next() {
		block, err := r.scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return blocks, nil
}
