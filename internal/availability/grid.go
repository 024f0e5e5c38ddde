package availability

import "time"

// Grid is the fixed daily schedule: slots every StepMinutes from OpenHour
// up to but excluding CloseHour. The default spa day is 09:00-17:00 in
// 30-minute steps, last slot 16:30.
type Grid struct {
	OpenHour    int
	CloseHour   int
	StepMinutes int
}

func DefaultGrid() Grid {
	return Grid{OpenHour: 9, CloseHour: 17, StepMinutes: 30}
}

// Slots returns the day's slot start times in ascending order, in the
// location of the given date.
func (g Grid) Slots(date time.Time) []time.Time {
	if g.StepMinutes <= 0 || g.CloseHour <= g.OpenHour {
		return nil
	}
	open := time.Date(date.Year(), date.Month(), date.Day(), g.OpenHour, 0, 0, 0, date.Location())
	close := time.Date(date.Year(), date.Month(), date.Day(), g.CloseHour, 0, 0, 0, date.Location())

	var slots []time.Time
	step := time.Duration(g.StepMinutes) * time.Minute
	for t := open; t.Before(close); t = t.Add(step) {
		slots = append(slots, t)
	}
	return slots
}

// Contains reports whether t is exactly a slot start on its day.
func (g Grid) Contains(t time.Time) bool {
	for _, s := range g.Slots(t) {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

// DayBounds returns the half-open [startOfDay, nextDay) range for a date.
func DayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// SlotKey is the grid coordinate of an occupied time ("hour:minute").
type SlotKey struct {
	Hour   int
	Minute int
}

func KeyOf(t time.Time) SlotKey {
	return SlotKey{Hour: t.Hour(), Minute: t.Minute()}
}
