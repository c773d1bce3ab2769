package slots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultDayStart    = "05:00:00"
	DefaultDayEnd      = "19:59:59"
	DefaultGranularity = time.Hour
	DefaultGap         = time.Second

	dateLayout      = "2006-01-02"
	localTimeLayout = "2006-01-02T15:04:05"
)

// Slot represents a bookable window of a day.
type Slot struct {
	Index       int       `json:"index"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Available   bool      `json:"available"`
	TotalAmount *float64  `json:"total_amount,omitempty"`
	Currency    string    `json:"currency,omitempty"`
}

// Price is the cost of a booking window.
type Price struct {
	TotalAmount float64 `json:"total_amount"`
	Currency    string  `json:"currency"`
}

// OccupancySource returns the occupied intervals of an asset that touch [start, end].
type OccupancySource interface {
	FindOccupancies(ctx context.Context, assetID string, start, end time.Time) ([]Interval, error)
}

// Pricer prices a booking window.
type Pricer interface {
	CalculateTotal(ctx context.Context, start, end time.Time) (Price, error)
}

// Config holds the day window and slot shape for one asset.
type Config struct {
	DayStart    string // "05:00:00"
	DayEnd      string // "19:59:59"
	AssetID     string
	Location    *time.Location
	Granularity time.Duration // slots end on granularity boundaries of the wall clock
	Gap         time.Duration // distance between one slot's end and the next slot's start
}

// DefaultConfig returns the 05:00:00-19:59:59 hourly configuration in UTC.
func DefaultConfig(assetID string) Config {
	return Config{
		DayStart:    DefaultDayStart,
		DayEnd:      DefaultDayEnd,
		AssetID:     assetID,
		Location:    time.UTC,
		Granularity: DefaultGranularity,
		Gap:         DefaultGap,
	}
}

// Generator builds and annotates the slots of a day for a single asset.
type Generator struct {
	cfg       Config
	open      clock
	close     clock
	occupancy OccupancySource
	pricer    Pricer
	logger    *zerolog.Logger
}

// NewGenerator validates cfg and creates a generator.
func NewGenerator(cfg Config, occupancy OccupancySource, pricer Pricer, logger *zerolog.Logger) (*Generator, error) {
	if occupancy == nil {
		return nil, fmt.Errorf("occupancy source is required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricer is required")
	}
	if cfg.AssetID == "" {
		return nil, fmt.Errorf("asset id is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = DefaultGranularity
	}
	if cfg.Gap <= 0 {
		cfg.Gap = DefaultGap
	}
	if cfg.Gap >= cfg.Granularity {
		return nil, fmt.Errorf("gap %s must be shorter than granularity %s", cfg.Gap, cfg.Granularity)
	}
	if cfg.DayStart == "" {
		cfg.DayStart = DefaultDayStart
	}
	if cfg.DayEnd == "" {
		cfg.DayEnd = DefaultDayEnd
	}

	open, err := parseClock(cfg.DayStart)
	if err != nil {
		return nil, fmt.Errorf("parse day start: %w", err)
	}
	closing, err := parseClock(cfg.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("parse day end: %w", err)
	}
	if closing.before(open) {
		return nil, fmt.Errorf("day end %s is before day start %s", cfg.DayEnd, cfg.DayStart)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Generator{
		cfg:       cfg,
		open:      open,
		close:     closing,
		occupancy: occupancy,
		pricer:    pricer,
		logger:    logger,
	}, nil
}

// Config returns the effective configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// DayWindow returns the operating window of the calendar date of t in the asset's location.
func (g *Generator) DayWindow(t time.Time) (dayStart, dayEnd time.Time) {
	return g.open.on(t, g.cfg.Location), g.close.on(t, g.cfg.Location)
}

// GenerateSlots generates the ordered slots of [dayStart, dayEnd] using the configured shape.
func (g *Generator) GenerateSlots(dayStart, dayEnd time.Time) []Slot {
	return GenerateSlots(dayStart, dayEnd, g.cfg.Granularity, g.cfg.Gap)
}

// GetSlots returns all slots of targetDate (YYYY-MM-DD) with availability set.
func (g *Generator) GetSlots(ctx context.Context, targetDate string) ([]Slot, error) {
	date, err := g.parseDate(targetDate)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := g.DayWindow(date)
	return g.daySlots(ctx, dayStart, dayEnd)
}

// GetEndSlots returns every legal end slot for a booking starting at startTime,
// each priced from startTime to the slot's end. The result is the run of
// available slots beginning with the slot that contains startTime.
func (g *Generator) GetEndSlots(ctx context.Context, startTime string) ([]Slot, error) {
	start, err := g.parseStartTime(startTime)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := g.DayWindow(start)
	if start.Before(dayStart) || start.After(dayEnd) {
		return nil, fmt.Errorf("%w: start time %s is outside operating hours %s-%s",
			ErrInvalidInput, start.Format(time.RFC3339), g.cfg.DayStart, g.cfg.DayEnd)
	}

	daySlots, err := g.daySlots(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	startSlot, ok := FindSlot(daySlots, start)
	if !ok {
		return nil, fmt.Errorf("%w: no slot contains start time %s", ErrNotFound, start.Format(time.RFC3339))
	}

	run := AvailableRun(daySlots, startSlot.Index)
	endSlots := make([]Slot, 0, len(run))
	for _, s := range run {
		price, err := g.pricer.CalculateTotal(ctx, start, s.EndTime)
		if err != nil {
			return nil, err
		}
		amount := price.TotalAmount
		s.TotalAmount = &amount
		s.Currency = price.Currency
		endSlots = append(endSlots, s)
	}

	g.logger.Debug().
		Str("asset_id", g.cfg.AssetID).
		Time("start_time", start).
		Int("start_index", startSlot.Index).
		Int("end_slots", len(endSlots)).
		Msg("end slots computed")

	return endSlots, nil
}

func (g *Generator) daySlots(ctx context.Context, dayStart, dayEnd time.Time) ([]Slot, error) {
	slots := g.GenerateSlots(dayStart, dayEnd)

	existing, err := g.occupancy.FindOccupancies(ctx, g.cfg.AssetID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if err := validateIntervals(existing); err != nil {
		return nil, err
	}

	g.logger.Debug().
		Str("asset_id", g.cfg.AssetID).
		Time("day_start", dayStart).
		Int("slots", len(slots)).
		Int("occupancies", len(existing)).
		Msg("day slots generated")

	return SetAvailabilities(slots, existing), nil
}

func (g *Generator) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: target date is required", ErrInvalidInput)
	}
	date, err := time.ParseInLocation(dateLayout, s, g.cfg.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: target date %q is not a valid YYYY-MM-DD date", ErrInvalidInput, s)
	}
	return date, nil
}

// parseStartTime accepts RFC 3339, or a local time without offset which is read
// in the asset's location.
func (g *Generator) parseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: start time is required", ErrInvalidInput)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(g.cfg.Location), nil
	}
	t, err := time.ParseInLocation(localTimeLayout, s, g.cfg.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start time %q is not a valid RFC 3339 timestamp", ErrInvalidInput, s)
	}
	return t, nil
}

// GenerateSlots builds the slots of [dayStart, dayEnd]. Each slot ends at the
// last instant before the next granularity boundary of its own wall clock
// (for hourly slots, hh:59:59 of the hour it starts in), and the next slot
// starts gap after that. A slot that would end after dayEnd is not emitted.
func GenerateSlots(dayStart, dayEnd time.Time, granularity, gap time.Duration) []Slot {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	if gap <= 0 || gap >= granularity {
		gap = DefaultGap
	}

	slots := make([]Slot, 0)
	start := dayStart
	for {
		end := bucketEnd(start, granularity, gap)
		if end.After(dayEnd) {
			break
		}
		slots = append(slots, Slot{
			Index:     len(slots),
			StartTime: start,
			EndTime:   end,
		})
		if !end.Before(dayEnd) {
			break
		}
		start = end.Add(gap)
	}
	return slots
}

// SetAvailabilities returns a copy of slots with Available set against existing.
func SetAvailabilities(slots []Slot, existing []Interval) []Slot {
	annotated := make([]Slot, len(slots))
	for i, s := range slots {
		s.Available = IsAvailable(s.StartTime, s.EndTime, existing)
		annotated[i] = s
	}
	return annotated
}

// FindSlot returns the slot whose [StartTime, EndTime] contains t.
func FindSlot(slots []Slot, t time.Time) (Slot, bool) {
	for _, s := range slots {
		if !t.Before(s.StartTime) && !t.After(s.EndTime) {
			return s, true
		}
	}
	return Slot{}, false
}

// AvailableRun returns the available slots from index from onward, stopping at
// the first unavailable one.
func AvailableRun(slots []Slot, from int) []Slot {
	run := make([]Slot, 0)
	if from < 0 {
		return run
	}
	for i := from; i < len(slots); i++ {
		if !slots[i].Available {
			break
		}
		run = append(run, slots[i])
	}
	return run
}

// GetAvailableSlots returns only available slots.
func GetAvailableSlots(slots []Slot) []Slot {
	available := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// bucketEnd returns the last instant, gap before the granularity boundary that
// follows t on t's wall clock.
func bucketEnd(t time.Time, granularity, gap time.Duration) time.Time {
	sinceMidnight := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())

	boundary := (sinceMidnight/granularity + 1) * granularity
	end := boundary - gap

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0,
		int(end/time.Second), int(end%time.Second), t.Location())
}

// clock is a wall-clock time of day.
type clock struct {
	hour, minute, second int
}

func parseClock(s string) (clock, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return clock{hour: t.Hour(), minute: t.Minute(), second: t.Second()}, nil
		}
	}
	return clock{}, fmt.Errorf("invalid time format: %s", s)
}

func (c clock) before(other clock) bool {
	if c.hour != other.hour {
		return c.hour < other.hour
	}
	if c.minute != other.minute {
		return c.minute < other.minute
	}
	return c.second < other.second
}

func (c clock) on(t time.Time, loc *time.Location) time.Time {
	d := t.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.hour, c.minute, c.second, 0, loc)
}
