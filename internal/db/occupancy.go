package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kenlai212/booking-api-sub001/internal/model"
	"github.com/kenlai212/booking-api-sub001/internal/repository"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
)

const occupancyColumns = `id, asset_id, start_time, end_time, reference_type, reference_id,
	status, created_at, updated_at`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// CreateOccupancy inserts o after checking, in the same transaction, that no
// occupancy of the asset touches [o.StartTime, o.EndTime].
func (db *DB) CreateOccupancy(ctx context.Context, o *model.Occupancy) error {
	if err := o.Validate(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := findIntervals(ctx, tx, o.AssetID, o.StartTime, o.EndTime)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	ok, err := slots.CheckAvailability(o.StartTime, o.EndTime, existing)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotAvailable
	}

	now := time.Now().UTC()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = now
	o.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO occupancies (`+occupancyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.AssetID, toUnix(o.StartTime), toUnix(o.EndTime),
		o.ReferenceType, nullString(o.ReferenceID), o.Status,
		toUnix(now), toUnix(now),
	)
	if err != nil {
		return fmt.Errorf("insert occupancy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.Debug().Str("occupancy_id", o.ID).Str("asset_id", o.AssetID).Msg("occupancy created")
	return nil
}

// GetOccupancy returns occupancy by id.
func (db *DB) GetOccupancy(ctx context.Context, id string) (*model.Occupancy, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+occupancyColumns+` FROM occupancies WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", repository.ErrOccupancyNotFound, id)
	}
	return scanOccupancy(rows)
}

// DeleteOccupancy releases an occupancy and returns the removed record.
func (db *DB) DeleteOccupancy(ctx context.Context, id string) (*model.Occupancy, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT `+occupancyColumns+` FROM occupancies WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", repository.ErrOccupancyNotFound, id)
	}
	o, err := scanOccupancy(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM occupancies WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete occupancy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return o, nil
}

// ListOccupancies returns the asset's occupancies touching [from, to].
func (db *DB) ListOccupancies(ctx context.Context, assetID string, from, to time.Time) ([]model.Occupancy, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+occupancyColumns+`
		FROM occupancies
		WHERE asset_id = ? AND start_time <= ? AND end_time >= ?
		ORDER BY start_time, id`,
		assetID, toUnix(to), toUnix(from),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	occupancies := make([]model.Occupancy, 0)
	for rows.Next() {
		o, err := scanOccupancy(rows)
		if err != nil {
			return nil, err
		}
		occupancies = append(occupancies, *o)
	}
	return occupancies, rows.Err()
}

// FindOccupancies implements slots.OccupancySource.
func (db *DB) FindOccupancies(ctx context.Context, assetID string, start, end time.Time) ([]slots.Interval, error) {
	return findIntervals(ctx, db.DB, assetID, start, end)
}

// findIntervals returns the raw intervals touching [start, end]. Rows whose end
// precedes their start are returned as-is so callers can reject them.
func findIntervals(ctx context.Context, q querier, assetID string, start, end time.Time) ([]slots.Interval, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT start_time, end_time
		FROM occupancies
		WHERE asset_id = ?
		AND ((start_time <= ? AND end_time >= ?) OR end_time < start_time)
		ORDER BY start_time`,
		assetID, toUnix(end), toUnix(start),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intervals := make([]slots.Interval, 0)
	for rows.Next() {
		var s, e int64
		if err := rows.Scan(&s, &e); err != nil {
			return nil, err
		}
		intervals = append(intervals, slots.Interval{StartTime: fromUnix(s), EndTime: fromUnix(e)})
	}
	return intervals, rows.Err()
}

func scanOccupancy(rows *sql.Rows) (*model.Occupancy, error) {
	var o model.Occupancy
	var start, end, createdAt, updatedAt int64
	var referenceID sql.NullString
	if err := rows.Scan(
		&o.ID, &o.AssetID, &start, &end, &o.ReferenceType, &referenceID,
		&o.Status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	o.StartTime = fromUnix(start)
	o.EndTime = fromUnix(end)
	o.CreatedAt = fromUnix(createdAt)
	o.UpdatedAt = fromUnix(updatedAt)
	if referenceID.Valid {
		o.ReferenceID = referenceID.String
	}
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ repository.OccupancyRepository = (*DB)(nil)
