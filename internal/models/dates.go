package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// DateOnly truncates t to its calendar date in UTC, keeping the wall-clock date of t's location
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekEndingDate returns the Sunday on or after workDate.
// Payroll weeks run Monday through Sunday, so a Sunday is its own week ending.
func WeekEndingDate(workDate time.Time) time.Time {
	d := DateOnly(workDate)
	daysUntilSunday := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, daysUntilSunday)
}

// WeekStartDate returns the Monday that opens the week ending on weekEnding
func WeekStartDate(weekEnding time.Time) time.Time {
	return DateOnly(weekEnding).AddDate(0, 0, -6)
}

// IsWeekCompleted reports whether the week ending on weekEnding lies strictly
// before the week that contains asOf
func IsWeekCompleted(weekEnding, asOf time.Time) bool {
	return DateOnly(weekEnding).Before(WeekEndingDate(asOf))
}

// DatesInRange returns every calendar date from start to end inclusive
func DatesInRange(start, end time.Time) []time.Time {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return nil
	}
	dates := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}
