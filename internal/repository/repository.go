package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/model"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
)

var (
	// ErrNotAvailable is returned when an occupancy would overlap an existing one.
	ErrNotAvailable = errors.New("time range is not available")
	// ErrOccupancyNotFound matches slots.ErrNotFound with errors.Is.
	ErrOccupancyNotFound = fmt.Errorf("occupancy %w", slots.ErrNotFound)
)

// OccupancyRepository is implemented by every occupancy store.
type OccupancyRepository interface {
	slots.OccupancySource

	// CreateOccupancy assigns an ID and persists o unless it overlaps an
	// existing occupancy of the same asset.
	CreateOccupancy(ctx context.Context, o *model.Occupancy) error
	GetOccupancy(ctx context.Context, id string) (*model.Occupancy, error)
	// DeleteOccupancy releases the occupancy and returns what was removed.
	DeleteOccupancy(ctx context.Context, id string) (*model.Occupancy, error)
	// ListOccupancies returns the asset's occupancies touching [from, to], by start time.
	ListOccupancies(ctx context.Context, assetID string, from, to time.Time) ([]model.Occupancy, error)
	PingContext(ctx context.Context) error
	Close() error
}
