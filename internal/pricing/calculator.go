package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kenlai212/booking-api-sub001/internal/slots"
)

var (
	ErrInvalidRange = errors.New("end time is before start time")
	ErrBelowMinimum = errors.New("booking is shorter than the minimum duration")
	ErrAboveMaximum = errors.New("booking is longer than the maximum duration")
)

// Calculator prices a booking window as a whole number of units.
type Calculator struct {
	UnitPrice   float64
	Currency    string
	Unit        time.Duration
	MinDuration time.Duration // 0 disables
	MaxDuration time.Duration // 0 disables
	Gap         time.Duration // added to end-start so that 05:00:00-05:59:59 is one hour
}

// NewCalculator returns an hourly calculator with a one second slot gap.
func NewCalculator(unitPrice float64, currency string) *Calculator {
	return &Calculator{
		UnitPrice: unitPrice,
		Currency:  currency,
		Unit:      time.Hour,
		Gap:       time.Second,
	}
}

// Units returns the billable units of [start, end], rounded up.
func (c *Calculator) Units(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("%w: %s < %s", ErrInvalidRange, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	d := end.Sub(start) + c.Gap
	if c.MinDuration > 0 && d < c.MinDuration {
		return 0, fmt.Errorf("%w: %s < %s", ErrBelowMinimum, d, c.MinDuration)
	}
	if c.MaxDuration > 0 && d > c.MaxDuration {
		return 0, fmt.Errorf("%w: %s > %s", ErrAboveMaximum, d, c.MaxDuration)
	}

	unit := c.Unit
	if unit <= 0 {
		unit = time.Hour
	}
	return int(math.Ceil(float64(d) / float64(unit))), nil
}

// CalculateTotal implements slots.Pricer.
func (c *Calculator) CalculateTotal(_ context.Context, start, end time.Time) (slots.Price, error) {
	units, err := c.Units(start, end)
	if err != nil {
		return slots.Price{}, err
	}
	return slots.Price{
		TotalAmount: float64(units) * c.UnitPrice,
		Currency:    c.Currency,
	}, nil
}
