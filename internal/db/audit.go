package db

import (
	"context"
	"fmt"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/events"
	"github.com/kenlai212/booking-api-sub001/internal/model"
)

// AuditEntry is one recorded occupancy event.
type AuditEntry struct {
	ID          int64     `json:"id"`
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	OccupancyID string    `json:"occupancy_id"`
	AssetID     string    `json:"asset_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubscribeAudit records every occupancy event published on bus.
func (db *DB) SubscribeAudit(bus *events.EventBus) {
	handler := func(e events.Event) error {
		return db.RecordEvent(context.Background(), e)
	}
	bus.Subscribe(events.OccupancyCreated, handler)
	bus.Subscribe(events.OccupancyReleased, handler)
}

// RecordEvent stores an occupancy event. Redelivery of the same event is ignored.
func (db *DB) RecordEvent(ctx context.Context, e events.Event) error {
	var o model.Occupancy
	if err := e.Decode(&o); err != nil {
		return err
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO occupancy_audit (
			event_id, event_type, occupancy_id, asset_id, start_time, end_time, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, o.ID, o.AssetID, toUnix(o.StartTime), toUnix(o.EndTime),
		string(e.Payload), toUnix(createdAt),
	)
	if err != nil {
		return fmt.Errorf("record %s audit: %w", e.Type, err)
	}
	return nil
}

// ListAudit returns the audit trail of an occupancy, oldest first.
func (db *DB) ListAudit(ctx context.Context, occupancyID string) ([]AuditEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, event_id, event_type, occupancy_id, asset_id, start_time, end_time, created_at
		FROM occupancy_audit
		WHERE occupancy_id = ?
		ORDER BY id`,
		occupancyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0)
	for rows.Next() {
		var a AuditEntry
		var start, end, createdAt int64
		if err := rows.Scan(&a.ID, &a.EventID, &a.EventType, &a.OccupancyID, &a.AssetID, &start, &end, &createdAt); err != nil {
			return nil, err
		}
		a.StartTime = fromUnix(start)
		a.EndTime = fromUnix(end)
		a.CreatedAt = fromUnix(createdAt)
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
