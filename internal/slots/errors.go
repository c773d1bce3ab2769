package slots

import "errors"

var (
	// ErrInvalidInput is returned for a missing or unparsable date or time, or a start time
	// outside the operating window.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when no generated slot contains the requested start time.
	ErrNotFound = errors.New("not found")
	// ErrMalformedInterval is returned when an occupancy ends before it starts.
	ErrMalformedInterval = errors.New("malformed interval")
)
