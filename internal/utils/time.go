package contextutils

import (
	"time"
	// zone database for hosts without /usr/share/zoneinfo
	_ "time/tzdata"
)

// DateLayout is the calendar date format used on the wire and in DATE columns
const DateLayout = "2006-01-02"

// LoadLocation resolves a configured time zone name, falling back to UTC.
// Returns the location and the effective zone name.
func LoadLocation(timezone string) (*time.Location, string) {
	if timezone == "" {
		return time.UTC, "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, timezone
}

// ParseDate parses a YYYY-MM-DD date string as midnight in loc.
// If the date format is invalid, the returned error is an ErrInvalidFormat.
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation(DateLayout, dateStr, loc)
	if err != nil {
		return time.Time{}, WrapErrorf(ErrInvalidFormat, "invalid date %q", dateStr)
	}
	return date, nil
}

// StartOfDay truncates t to midnight in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween returns the number of whole calendar days from `from` to `to`.
// Both values are compared by their calendar date in UTC, so DST shifts never produce
// fractional days.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// TrailingDays returns the n calendar dates ending with today, oldest first
func TrailingDays(today time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, n)
	for i := 0; i < n; i++ {
		days[i] = today.AddDate(0, 0, i-(n-1))
	}
	return days
}
