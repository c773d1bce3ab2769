package service

import (
	"context"
	"errors"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/events"
	"github.com/kenlai212/booking-api-sub001/internal/metrics"
	"github.com/kenlai212/booking-api-sub001/internal/model"
	"github.com/kenlai212/booking-api-sub001/internal/repository"
	"github.com/rs/zerolog"
)

// OccupancyService records and releases occupancies and announces the changes.
type OccupancyService struct {
	repo   repository.OccupancyRepository
	bus    events.Publisher
	logger *zerolog.Logger
}

func NewOccupancyService(repo repository.OccupancyRepository, bus events.Publisher, logger *zerolog.Logger) *OccupancyService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &OccupancyService{repo: repo, bus: bus, logger: logger}
}

// CreateOccupancy persists o and publishes occupancy.created.
func (s *OccupancyService) CreateOccupancy(ctx context.Context, o *model.Occupancy) error {
	if err := s.repo.CreateOccupancy(ctx, o); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotAvailable):
			metrics.IncOccupancyWrite("create", "conflict")
		default:
			metrics.IncOccupancyWrite("create", "error")
		}
		return err
	}
	metrics.IncOccupancyWrite("create", "ok")

	s.logger.Info().
		Str("occupancy_id", o.ID).
		Str("asset_id", o.AssetID).
		Time("start_time", o.StartTime).
		Time("end_time", o.EndTime).
		Str("reference_type", o.ReferenceType).
		Msg("occupancy created")

	s.publish(events.OccupancyCreated, o)
	return nil
}

// ReleaseOccupancy deletes the occupancy and publishes occupancy.released.
func (s *OccupancyService) ReleaseOccupancy(ctx context.Context, id string) (*model.Occupancy, error) {
	o, err := s.repo.DeleteOccupancy(ctx, id)
	if err != nil {
		metrics.IncOccupancyWrite("release", "error")
		return nil, err
	}
	metrics.IncOccupancyWrite("release", "ok")

	s.logger.Info().Str("occupancy_id", o.ID).Str("asset_id", o.AssetID).Msg("occupancy released")

	s.publish(events.OccupancyReleased, o)
	return o, nil
}

func (s *OccupancyService) GetOccupancy(ctx context.Context, id string) (*model.Occupancy, error) {
	return s.repo.GetOccupancy(ctx, id)
}

func (s *OccupancyService) ListOccupancies(ctx context.Context, assetID string, from, to time.Time) ([]model.Occupancy, error) {
	return s.repo.ListOccupancies(ctx, assetID, from, to)
}

// Event delivery is best effort; the write already succeeded.
func (s *OccupancyService) publish(eventType string, o *model.Occupancy) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, o); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("occupancy_id", o.ID).Msg("failed to publish event")
	}
}
