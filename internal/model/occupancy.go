package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/slots"
)

const (
	ReferenceBooking     = "BOOKING"
	ReferenceMaintenance = "MAINTENANCE"
	ReferenceBlocked     = "BLOCKED"

	StatusAwaitingConfirmation = "AWAITING_CONFIRMATION"
	StatusConfirmed            = "CONFIRMED"
)

// Occupancy is a span of time during which an asset cannot be booked.
type Occupancy struct {
	ID            string    `json:"id" bson:"_id"`
	AssetID       string    `json:"asset_id" bson:"assetId"`
	StartTime     time.Time `json:"start_time" bson:"startTime"`
	EndTime       time.Time `json:"end_time" bson:"endTime"`
	ReferenceType string    `json:"reference_type" bson:"referenceType"`
	ReferenceID   string    `json:"reference_id,omitempty" bson:"referenceId,omitempty"`
	Status        string    `json:"status" bson:"status"`
	CreatedAt     time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updatedAt"`
}

// Interval returns the occupied span.
func (o *Occupancy) Interval() slots.Interval {
	return slots.Interval{StartTime: o.StartTime, EndTime: o.EndTime}
}

func (o *Occupancy) Duration() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}

// ContainsTime reports whether t falls within [StartTime, EndTime].
func (o *Occupancy) ContainsTime(t time.Time) bool {
	return !t.Before(o.StartTime) && !t.After(o.EndTime)
}

// OverlapsWith uses closed intervals: touching boundaries overlap.
func (o *Occupancy) OverlapsWith(other *Occupancy) bool {
	return slots.Conflicts(o.StartTime, o.EndTime, other.Interval())
}

// Validate checks the fields required to persist an occupancy and fills defaults.
// Times are truncated to whole seconds, the resolution slots and stores work in.
func (o *Occupancy) Validate() error {
	o.AssetID = strings.TrimSpace(o.AssetID)
	if o.AssetID == "" {
		return fmt.Errorf("%w: asset_id is required", slots.ErrInvalidInput)
	}
	if o.StartTime.IsZero() || o.EndTime.IsZero() {
		return fmt.Errorf("%w: start_time and end_time are required", slots.ErrInvalidInput)
	}
	o.StartTime = o.StartTime.Truncate(time.Second)
	o.EndTime = o.EndTime.Truncate(time.Second)
	if o.EndTime.Before(o.StartTime) {
		return fmt.Errorf("%w: end_time is before start_time", slots.ErrInvalidInput)
	}

	if o.ReferenceType == "" {
		o.ReferenceType = ReferenceBooking
	}
	switch o.ReferenceType {
	case ReferenceBooking, ReferenceMaintenance, ReferenceBlocked:
	default:
		return fmt.Errorf("%w: unknown reference_type %q", slots.ErrInvalidInput, o.ReferenceType)
	}

	if o.Status == "" {
		o.Status = StatusAwaitingConfirmation
	}
	switch o.Status {
	case StatusAwaitingConfirmation, StatusConfirmed:
	default:
		return fmt.Errorf("%w: unknown status %q", slots.ErrInvalidInput, o.Status)
	}
	return nil
}

// Intervals converts occupancies into the intervals the availability check consumes.
func Intervals(occupancies []Occupancy) []slots.Interval {
	out := make([]slots.Interval, 0, len(occupancies))
	for i := range occupancies {
		out = append(out, occupancies[i].Interval())
	}
	return out
}
