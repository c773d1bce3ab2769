package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kenlai212/booking-api-sub001/internal/model"
	"github.com/kenlai212/booking-api-sub001/internal/repository"
	"github.com/kenlai212/booking-api-sub001/internal/slots"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const collectionName = "occupancies"

// Store keeps occupancies in a MongoDB collection.
type Store struct {
	coll    *mongo.Collection
	timeout time.Duration
	logger  *zerolog.Logger

	// Writes are serialised per process; the overlap check and insert are
	// not atomic on the server.
	writeMu sync.Mutex
}

// Connect dials uri, pings the primary and returns a store on database.occupancies.
func Connect(ctx context.Context, uri, database string, timeout time.Duration, logger *zerolog.Logger) (*Store, error) {
	ctxConnect, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctxConnect, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctxConnect, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := NewStore(client.Database(database).Collection(collectionName), timeout, logger)
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	store.logger.Info().Str("database", database).Msg("connected to MongoDB")
	return store, nil
}

// NewStore wraps an existing collection.
func NewStore(coll *mongo.Collection, timeout time.Duration, logger *zerolog.Logger) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Store{coll: coll, timeout: timeout, logger: logger}
}

// EnsureIndexes creates the indexes used by the availability queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "assetId", Value: 1}, {Key: "startTime", Value: 1}, {Key: "endTime", Value: 1}},
			Options: options.Index().SetName("asset_start_end_idx"),
		},
		{
			Keys:    bson.D{{Key: "referenceType", Value: 1}, {Key: "referenceId", Value: 1}},
			Options: options.Index().SetName("reference_idx"),
		},
	}

	if _, err := s.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create occupancy indexes: %w", err)
	}
	return nil
}

// CreateOccupancy inserts o unless it touches an existing occupancy of the asset.
func (s *Store) CreateOccupancy(ctx context.Context, o *model.Occupancy) error {
	if err := o.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.FindOccupancies(ctx, o.AssetID, o.StartTime, o.EndTime)
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

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("insert occupancy: %w", err)
	}

	s.logger.Debug().Str("occupancy_id", o.ID).Str("asset_id", o.AssetID).Msg("occupancy created")
	return nil
}

// GetOccupancy returns occupancy by id.
func (s *Store) GetOccupancy(ctx context.Context, id string) (*model.Occupancy, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var o model.Occupancy
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", repository.ErrOccupancyNotFound, id)
		}
		return nil, fmt.Errorf("find occupancy: %w", err)
	}
	return &o, nil
}

// DeleteOccupancy releases an occupancy and returns the removed document.
func (s *Store) DeleteOccupancy(ctx context.Context, id string) (*model.Occupancy, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var o model.Occupancy
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", repository.ErrOccupancyNotFound, id)
		}
		return nil, fmt.Errorf("delete occupancy: %w", err)
	}
	return &o, nil
}

// ListOccupancies returns the asset's occupancies touching [from, to].
func (s *Store) ListOccupancies(ctx context.Context, assetID string, from, to time.Time) ([]model.Occupancy, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{
		"assetId":   assetID,
		"startTime": bson.M{"$lte": to.UTC()},
		"endTime":   bson.M{"$gte": from.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch occupancies: %w", err)
	}
	defer cursor.Close(ctx)

	occupancies := make([]model.Occupancy, 0)
	if err := cursor.All(ctx, &occupancies); err != nil {
		return nil, fmt.Errorf("error decoding occupancies: %w", err)
	}
	return occupancies, nil
}

// FindOccupancies implements slots.OccupancySource. Documents whose end
// precedes their start are included so callers can reject them.
func (s *Store) FindOccupancies(ctx context.Context, assetID string, start, end time.Time) ([]slots.Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "startTime", Value: 1}}).
		SetProjection(bson.M{"startTime": 1, "endTime": 1})

	cursor, err := s.coll.Find(ctx, overlapFilter(assetID, start, end), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch occupancies: %w", err)
	}
	defer cursor.Close(ctx)

	var occupancies []model.Occupancy
	if err := cursor.All(ctx, &occupancies); err != nil {
		return nil, fmt.Errorf("error decoding occupancies: %w", err)
	}
	return model.Intervals(occupancies), nil
}

func overlapFilter(assetID string, start, end time.Time) bson.M {
	return bson.M{
		"assetId": assetID,
		"$or": bson.A{
			bson.M{
				"startTime": bson.M{"$lte": end.UTC()},
				"endTime":   bson.M{"$gte": start.UTC()},
			},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$endTime", "$startTime"}}},
		},
	}
}

func (s *Store) PingContext(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.coll.Database().Client().Disconnect(ctx)
}

var _ repository.OccupancyRepository = (*Store)(nil)
