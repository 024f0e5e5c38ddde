package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lumenspa/booking/internal/model"
)

// ReservationReader is the slice of the reservation store the calculator
// needs: non-cancelled appointments for one staff member within a range.
type ReservationReader interface {
	ListForStaffRange(ctx context.Context, staffID string, start, end time.Time) ([]model.Appointment, error)
}

// Calculator computes bookable slots for a staff member on a date.
//
// The result is a snapshot: a slot returned here can still be lost to a
// concurrent booking, which the commit path surfaces as a conflict.
type Calculator struct {
	grid          Grid
	reservations  ReservationReader
	durationAware bool
}

type Option func(*Calculator)

// WithDurationAware makes a booking occupy ceil(duration/step) consecutive
// slots instead of just its nominal one.
func WithDurationAware(on bool) Option {
	return func(c *Calculator) { c.durationAware = on }
}

func NewCalculator(grid Grid, reservations ReservationReader, opts ...Option) *Calculator {
	c := &Calculator{grid: grid, reservations: reservations}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) Grid() Grid {
	return c.grid
}

// SlotsFor returns the ordered free slot start times for staffID on date.
// No staff selected means no slots. A store failure is returned as an
// error so callers fail closed instead of offering a fully open day.
func (c *Calculator) SlotsFor(ctx context.Context, staffID string, date time.Time) ([]time.Time, error) {
	if strings.TrimSpace(staffID) == "" {
		return nil, nil
	}

	dayStart, dayEnd := DayBounds(date)
	appts, err := c.reservations.ListForStaffRange(ctx, staffID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list appointments for staff %s: %w", staffID, err)
	}

	occupied := make(map[SlotKey]struct{}, len(appts))
	step := time.Duration(c.grid.StepMinutes) * time.Minute
	for _, a := range appts {
		if a.Status == model.StatusCancelled {
			continue
		}
		occupied[KeyOf(a.ScheduledAt)] = struct{}{}
		if !c.durationAware {
			continue
		}
		for t := a.ScheduledAt.Add(step); t.Before(a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)); t = t.Add(step) {
			occupied[KeyOf(t)] = struct{}{}
		}
	}

	var free []time.Time
	for _, slot := range c.grid.Slots(date) {
		if _, taken := occupied[KeyOf(slot)]; taken {
			continue
		}
		free = append(free, slot)
	}
	return free, nil
}
