package slots

import (
	"fmt"
	"time"
)

// Interval is an occupied span of time. Both ends are inclusive.
type Interval struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Valid reports whether the interval does not end before it starts.
func (i Interval) Valid() bool {
	return !i.EndTime.Before(i.StartTime)
}

// Conflicts reports whether [start, end] touches or overlaps existing.
// Touching endpoints conflict: a slot ending at 10:59:59 conflicts with an
// occupancy starting at 10:59:59. Generated slots are one second apart so that
// neighbours never touch.
func Conflicts(start, end time.Time, existing Interval) bool {
	a, b := existing.StartTime, existing.EndTime

	startsInside := !start.Before(a) && !start.After(b)
	endsInside := !end.Before(a) && !end.After(b)
	covers := !start.After(a) && !end.Before(b)

	return startsInside || endsInside || covers
}

// IsAvailable reports whether [start, end] conflicts with none of existing.
func IsAvailable(start, end time.Time, existing []Interval) bool {
	for _, iv := range existing {
		if Conflicts(start, end, iv) {
			return false
		}
	}
	return true
}

// CheckAvailability is IsAvailable with input validation. A candidate that ends
// before it starts is rejected with ErrInvalidInput, a malformed existing
// interval with ErrMalformedInterval.
func CheckAvailability(start, end time.Time, existing []Interval) (bool, error) {
	if end.Before(start) {
		return false, fmt.Errorf("%w: end time %s is before start time %s",
			ErrInvalidInput, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if err := validateIntervals(existing); err != nil {
		return false, err
	}
	return IsAvailable(start, end, existing), nil
}

func validateIntervals(intervals []Interval) error {
	for i, iv := range intervals {
		if !iv.Valid() {
			return fmt.Errorf("%w: interval %d ends at %s before it starts at %s",
				ErrMalformedInterval, i, iv.EndTime.Format(time.RFC3339), iv.StartTime.Format(time.RFC3339))
		}
	}
	return nil
}
