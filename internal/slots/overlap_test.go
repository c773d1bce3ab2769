package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute, sec int) time.Time {
	return time.Date(2026, 1, 15, hour, minute, sec, 0, time.UTC)
}

func TestIsAvailable(t *testing.T) {
	existing := []Interval{{StartTime: at(9, 0, 0), EndTime: at(10, 59, 59)}}

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		existing []Interval
		expected bool
	}{
		{"start on existing end boundary", at(10, 0, 0), at(10, 59, 59), existing, false},
		{"strictly after", at(11, 0, 0), at(11, 59, 59), existing, true},
		{"strictly before", at(7, 0, 0), at(8, 59, 59), existing, true},
		{"end touches existing start", at(8, 0, 0), at(9, 0, 0), existing, false},
		{"start touches existing end", at(10, 59, 59), at(11, 30, 0), existing, false},
		{"inside existing", at(9, 30, 0), at(10, 0, 0), existing, false},
		{"covers existing", at(8, 0, 0), at(12, 0, 0), existing, false},
		{"identical", at(9, 0, 0), at(10, 59, 59), existing, false},
		{"no existing intervals", at(9, 0, 0), at(10, 0, 0), nil, true},
		{
			name:  "second interval conflicts",
			start: at(13, 0, 0),
			end:   at(13, 59, 59),
			existing: []Interval{
				{StartTime: at(6, 0, 0), EndTime: at(6, 59, 59)},
				{StartTime: at(13, 30, 0), EndTime: at(14, 59, 59)},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAvailable(tt.start, tt.end, tt.existing))
		})
	}
}

func TestIsAvailable_TouchingBoundariesConflict(t *testing.T) {
	a, b := at(12, 0, 0), at(12, 59, 59)
	existing := []Interval{{StartTime: a, EndTime: b}}

	for _, d := range []time.Duration{0, time.Second, time.Minute, time.Hour} {
		assert.False(t, IsAvailable(b, b.Add(d), existing), "candidate starting at existing end, length %s", d)
		assert.False(t, IsAvailable(a.Add(-d), a, existing), "candidate ending at existing start, length %s", d)
	}
}

func TestIsAvailable_DisjointIntervalsDoNotConflict(t *testing.T) {
	a, b := at(12, 0, 0), at(12, 59, 59)
	existing := []Interval{{StartTime: a, EndTime: b}}

	for _, d := range []time.Duration{time.Second, time.Minute, time.Hour} {
		assert.True(t, IsAvailable(b.Add(time.Second), b.Add(time.Second+d), existing))
		assert.True(t, IsAvailable(a.Add(-time.Second-d), a.Add(-time.Second), existing))
	}
}

func TestConflicts_AdjacentHourlySlots(t *testing.T) {
	occupied := Interval{StartTime: at(11, 0, 0), EndTime: at(11, 59, 59)}

	// The slot before ends one second before the occupancy starts.
	assert.False(t, Conflicts(at(10, 0, 0), at(10, 59, 59), occupied))
	assert.False(t, Conflicts(at(12, 0, 0), at(12, 59, 59), occupied))

	// Closing the gap makes them touch.
	assert.True(t, Conflicts(at(10, 0, 0), at(11, 0, 0), occupied))
}

func TestCheckAvailability(t *testing.T) {
	existing := []Interval{{StartTime: at(9, 0, 0), EndTime: at(9, 59, 59)}}

	ok, err := CheckAvailability(at(10, 0, 0), at(10, 59, 59), existing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckAvailability(at(9, 30, 0), at(10, 30, 0), existing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckAvailability(at(11, 0, 0), at(10, 0, 0), existing)
	assert.ErrorIs(t, err, ErrInvalidInput)

	malformed := []Interval{{StartTime: at(9, 0, 0), EndTime: at(8, 0, 0)}}
	_, err = CheckAvailability(at(10, 0, 0), at(10, 59, 59), malformed)
	assert.ErrorIs(t, err, ErrMalformedInterval)
}

func TestInterval_Valid(t *testing.T) {
	assert.True(t, Interval{StartTime: at(9, 0, 0), EndTime: at(10, 0, 0)}.Valid())
	assert.True(t, Interval{StartTime: at(9, 0, 0), EndTime: at(9, 0, 0)}.Valid())
	assert.False(t, Interval{StartTime: at(10, 0, 0), EndTime: at(9, 0, 0)}.Valid())
}
