package wizard

import (
	"fmt"
	"time"
)

// IsPastDate reports whether date can no longer be booked. A date passes when it
// is strictly after now or falls on the same calendar day as now.
func IsPastDate(date, now time.Time) bool {
	return !date.After(now) && !SameDay(date, now)
}

// SameDay compares calendar days in date's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsDateAvailable reports whether date's weekday is marked active.
func IsDateAvailable(date time.Time, availability []DayAvailability) bool {
	wd := int(date.Weekday())
	for _, d := range availability {
		if d.DayOfWeek == wd && d.IsActive {
			return true
		}
	}
	return false
}

// AllDaysActive is the fail-open weekly availability.
func AllDaysActive() []DayAvailability {
	out := make([]DayAvailability, 0, 7)
	for d := 0; d < 7; d++ {
		out = append(out, DayAvailability{DayOfWeek: d, IsActive: true})
	}
	return out
}

// DefaultSlots is the fixed 09:00-17:00 hourly ladder.
func DefaultSlots() []TimeSlot {
	out := make([]TimeSlot, 0, 8)
	for h := 9; h < 17; h++ {
		out = append(out, TimeSlot{
			StartTime: fmt.Sprintf("%02d:00", h),
			EndTime:   fmt.Sprintf("%02d:00", h+1),
		})
	}
	return out
}

// ParseDate reads a YYYY-MM-DD calendar date at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, loc)
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CombineDateTime places an "HH:MM" clock time on date's calendar day.
func CombineDateTime(date time.Time, clock string) (time.Time, error) {
	tod, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, date.Location()), nil
}
