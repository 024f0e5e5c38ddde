package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumenspa/booking/internal/model"
)

type fakeReader struct {
	appts []model.Appointment
	err   error
}

func (f *fakeReader) ListForStaffRange(_ context.Context, _ string, _, _ time.Time) ([]model.Appointment, error) {
	return f.appts, f.err
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func TestDefaultGridSlots(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	slots := DefaultGrid().Slots(day)
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if !slots[0].Equal(at(day, 9, 0)) {
		t.Fatalf("first slot %s", slots[0])
	}
	if !slots[15].Equal(at(day, 16, 30)) {
		t.Fatalf("last slot %s", slots[15])
	}
}

func TestSlotsForExcludesBookedSlot(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	reader := &fakeReader{appts: []model.Appointment{
		{StaffID: "st1", ScheduledAt: at(day, 10, 0), Status: model.StatusBooked, DurationMinutes: 30},
	}}
	calc := NewCalculator(DefaultGrid(), reader)

	slots, err := calc.SlotsFor(context.Background(), "st1", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Equal(at(day, 10, 0)) {
			t.Fatal("10:00 should be excluded")
		}
	}
}

func TestSlotsForCancelledDoesNotBlock(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	reader := &fakeReader{appts: []model.Appointment{
		{StaffID: "st1", ScheduledAt: at(day, 10, 0), Status: model.StatusCancelled, DurationMinutes: 30},
	}}
	calc := NewCalculator(DefaultGrid(), reader)

	slots, err := calc.SlotsFor(context.Background(), "st1", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected full grid of 16, got %d", len(slots))
	}
}

func TestSlotsForCompletedBlocks(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	reader := &fakeReader{appts: []model.Appointment{
		{StaffID: "st1", ScheduledAt: at(day, 9, 30), Status: model.StatusCompleted, DurationMinutes: 30},
	}}
	calc := NewCalculator(DefaultGrid(), reader)

	slots, err := calc.SlotsFor(context.Background(), "st1", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots, got %d", len(slots))
	}
}

func TestSlotsForNoStaffSelected(t *testing.T) {
	reader := &fakeReader{err: errors.New("should not be called")}
	calc := NewCalculator(DefaultGrid(), reader)

	slots, err := calc.SlotsFor(context.Background(), "  ", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestSlotsForFailsClosedOnStoreError(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	calc := NewCalculator(DefaultGrid(), reader)

	slots, err := calc.SlotsFor(context.Background(), "st1", time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if slots != nil {
		t.Fatalf("expected no slots on error, got %d", len(slots))
	}
}

func TestSlotsForEmptyDayReturnsFullGrid(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	calc := NewCalculator(DefaultGrid(), &fakeReader{})

	slots, err := calc.SlotsFor(context.Background(), "st1", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected full grid, got %d", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].After(slots[i-1]) {
			t.Fatal("slots must be ascending")
		}
	}
}

func TestSlotsForDurationAware(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	reader := &fakeReader{appts: []model.Appointment{
		// 90-minute service at 10:00 occupies 10:00, 10:30 and 11:00.
		{StaffID: "st1", ScheduledAt: at(day, 10, 0), Status: model.StatusBooked, DurationMinutes: 90},
	}}

	calc := NewCalculator(DefaultGrid(), reader, WithDurationAware(true))
	slots, err := calc.SlotsFor(context.Background(), "st1", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 13 {
		t.Fatalf("expected 13 slots, got %d", len(slots))
	}
	blocked := map[string]bool{"10:00": true, "10:30": true, "11:00": true}
	for _, s := range slots {
		if blocked[s.Format("15:04")] {
			t.Fatalf("slot %s should be blocked", s.Format("15:04"))
		}
	}

	// Default mode blocks only the nominal slot.
	calc = NewCalculator(DefaultGrid(), reader)
	slots, err = calc.SlotsFor(context.Background(), "st1", day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots in nominal mode, got %d", len(slots))
	}
}

func TestGridContains(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	g := DefaultGrid()
	if !g.Contains(at(day, 16, 30)) {
		t.Fatal("16:30 is a slot")
	}
	if g.Contains(at(day, 17, 0)) {
		t.Fatal("17:00 is not a slot (closing hour exclusive)")
	}
	if g.Contains(at(day, 10, 15)) {
		t.Fatal("10:15 is off-grid")
	}
}
