package timeseries

import (
	"fmt"
	"time"
)

// Granularity selects how a timestamp is reduced to a year-independent key.
type Granularity string

const (
	DayOfYear Granularity = "day_of_year"
	MonthDay  Granularity = "month_day"
	Month     Granularity = "month"
	ISOWeek   Granularity = "iso_week"
)

// ParseGranularity validates a granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case DayOfYear, MonthDay, Month, ISOWeek:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedGranularity, s)
}

// CalendarKey is a position within a year at a given granularity. Ordinal
// orders keys of the same granularity: day of year (1-366), month*100+day,
// month (1-12) or ISO week (1-53).
type CalendarKey struct {
	Granularity Granularity `json:"granularity"`
	Ordinal     int         `json:"ordinal"`
}

// KeyFor derives the calendar key of t. The key is computed in t's own
// location, so callers control which local calendar applies.
func KeyFor(t time.Time, g Granularity) (CalendarKey, error) {
	switch g {
	case DayOfYear:
		return CalendarKey{Granularity: g, Ordinal: t.YearDay()}, nil
	case MonthDay:
		return CalendarKey{Granularity: g, Ordinal: int(t.Month())*100 + t.Day()}, nil
	case Month:
		return CalendarKey{Granularity: g, Ordinal: int(t.Month())}, nil
	case ISOWeek:
		_, week := t.ISOWeek()
		return CalendarKey{Granularity: g, Ordinal: week}, nil
	}
	return CalendarKey{}, fmt.Errorf("%w: %q", ErrUnsupportedGranularity, g)
}

// Label renders the key for display and for chart axes.
func (k CalendarKey) Label() string {
	switch k.Granularity {
	case DayOfYear:
		return fmt.Sprintf("D%03d", k.Ordinal)
	case MonthDay:
		return fmt.Sprintf("%02d-%02d", k.Ordinal/100, k.Ordinal%100)
	case Month:
		return fmt.Sprintf("M%02d", k.Ordinal)
	case ISOWeek:
		return fmt.Sprintf("W%02d", k.Ordinal)
	}
	return fmt.Sprintf("%s:%d", k.Granularity, k.Ordinal)
}

func (k CalendarKey) String() string {
	return k.Label()
}
