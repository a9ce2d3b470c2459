// Package timeutil provides calendar-day helpers for a configurable timezone.
// Streaks count calendar days in the server's zone, not 24-hour periods.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// LoadLocation resolves an IANA zone name. Empty and "UTC" return time.UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// DaysBetween returns the number of calendar days from one date to another in loc.
// Negative when to is on an earlier day. DST transitions do not affect the result.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	loc = orUTC(loc)
	f := from.In(loc)
	t := to.In(loc)
	// Compare the dates at UTC midnight so a 23 or 25 hour day still counts as one.
	fromDate := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	toDate := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDate.Sub(fromDate).Hours() / 24)
}

// FormatRelative formats t relative to now: "just now", "5 minutes ago", "in 3 days".
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		return "in " + formatDuration(-d)
	}
	if d < time.Minute {
		return "just now"
	}
	return formatDuration(d) + " ago"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
