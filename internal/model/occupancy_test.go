package model

import (
	"testing"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/slots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datetime(year int, month time.Month, day, hour, minute, sec int) time.Time {
	return time.Date(year, month, day, hour, minute, sec, 0, time.UTC)
}

func TestOccupancy_Duration(t *testing.T) {
	o := Occupancy{
		StartTime: datetime(2026, 1, 15, 10, 0, 0),
		EndTime:   datetime(2026, 1, 15, 12, 30, 0),
	}
	assert.Equal(t, 2*time.Hour+30*time.Minute, o.Duration())
}

func TestOccupancy_OverlapsWith(t *testing.T) {
	existing := Occupancy{
		StartTime: datetime(2026, 1, 15, 10, 0, 0),
		EndTime:   datetime(2026, 1, 15, 13, 59, 59),
	}

	// No overlap - before
	before := Occupancy{
		StartTime: datetime(2026, 1, 15, 8, 0, 0),
		EndTime:   datetime(2026, 1, 15, 9, 59, 59),
	}
	assert.False(t, existing.OverlapsWith(&before))

	// No overlap - after
	after := Occupancy{
		StartTime: datetime(2026, 1, 15, 14, 0, 0),
		EndTime:   datetime(2026, 1, 15, 16, 0, 0),
	}
	assert.False(t, existing.OverlapsWith(&after))

	// Overlap - touches end
	touching := Occupancy{
		StartTime: datetime(2026, 1, 15, 13, 59, 59),
		EndTime:   datetime(2026, 1, 15, 15, 0, 0),
	}
	assert.True(t, existing.OverlapsWith(&touching))

	// Overlap - contained
	contained := Occupancy{
		StartTime: datetime(2026, 1, 15, 11, 0, 0),
		EndTime:   datetime(2026, 1, 15, 13, 0, 0),
	}
	assert.True(t, existing.OverlapsWith(&contained))
}

func TestOccupancy_ContainsTime(t *testing.T) {
	o := Occupancy{
		StartTime: datetime(2026, 1, 15, 10, 0, 0),
		EndTime:   datetime(2026, 1, 15, 13, 59, 59),
	}

	assert.True(t, o.ContainsTime(datetime(2026, 1, 15, 10, 0, 0)))
	assert.True(t, o.ContainsTime(datetime(2026, 1, 15, 13, 59, 59)))
	assert.False(t, o.ContainsTime(datetime(2026, 1, 15, 14, 0, 0)))
	assert.False(t, o.ContainsTime(datetime(2026, 1, 15, 9, 59, 59)))
}

func TestOccupancy_Validate(t *testing.T) {
	valid := func() Occupancy {
		return Occupancy{
			AssetID:   "boat-1",
			StartTime: datetime(2026, 1, 15, 10, 0, 0),
			EndTime:   datetime(2026, 1, 15, 10, 59, 59),
		}
	}

	o := valid()
	require.NoError(t, o.Validate())
	assert.Equal(t, ReferenceBooking, o.ReferenceType)
	assert.Equal(t, StatusAwaitingConfirmation, o.Status)

	frac := valid()
	frac.StartTime = frac.StartTime.Add(400 * time.Millisecond)
	frac.EndTime = frac.EndTime.Add(900 * time.Millisecond)
	require.NoError(t, frac.Validate())
	assert.True(t, frac.StartTime.Equal(datetime(2026, 1, 15, 10, 0, 0)))
	assert.True(t, frac.EndTime.Equal(datetime(2026, 1, 15, 10, 59, 59)))

	tests := []struct {
		name   string
		mutate func(o *Occupancy)
	}{
		{"missing asset", func(o *Occupancy) { o.AssetID = "  " }},
		{"missing start", func(o *Occupancy) { o.StartTime = time.Time{} }},
		{"end before start", func(o *Occupancy) { o.EndTime = o.StartTime.Add(-time.Second) }},
		{"unknown reference type", func(o *Occupancy) { o.ReferenceType = "PARTY" }},
		{"unknown status", func(o *Occupancy) { o.Status = "CANCELLED" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(&o)
			assert.ErrorIs(t, o.Validate(), slots.ErrInvalidInput)
		})
	}
}

func TestIntervals(t *testing.T) {
	occupancies := []Occupancy{
		{StartTime: datetime(2026, 1, 15, 9, 0, 0), EndTime: datetime(2026, 1, 15, 9, 59, 59)},
		{StartTime: datetime(2026, 1, 15, 12, 0, 0), EndTime: datetime(2026, 1, 15, 12, 59, 59)},
	}

	intervals := Intervals(occupancies)
	require.Len(t, intervals, 2)
	assert.Equal(t, datetime(2026, 1, 15, 12, 0, 0), intervals[1].StartTime)
	assert.Empty(t, Intervals(nil))
}
