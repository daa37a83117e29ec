package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Clock is a wall-clock time of day stored as minutes after midnight.
// Maps to a PostgreSQL TIME column.
type Clock int

// ParseClock parses HH:MM or HH:MM:SS
func ParseClock(value string) (Clock, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		t, err = time.Parse("15:04:05", value)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
		}
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// MustParseClock is ParseClock for constants; it panics on bad input
func MustParseClock(value string) Clock {
	c, err := ParseClock(value)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalJSON renders the clock as "HH:MM"
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "HH:MM" or "HH:MM:SS"
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements the driver.Valuer interface
func (c Clock) Value() (driver.Value, error) {
	return c.String() + ":00", nil
}

// Scan implements the sql.Scanner interface
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	case time.Time:
		*c = Clock(v.Hour()*60 + v.Minute())
		return nil
	case nil:
		*c = 0
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Clock", src)
	}
}

func (c *Clock) scanString(s string) error {
	// lib/pq may append fractional seconds
	if len(s) > 8 {
		s = s[:8]
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeWindow is a half-open interval [Start, End) within a single day
type TimeWindow struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// NewTimeWindow builds a window and rejects windows that end before they start
func NewTimeWindow(start, end Clock) (TimeWindow, error) {
	if end < start {
		return TimeWindow{}, ErrInvalidInput(fmt.Sprintf("end time %s is before start time %s", end, start))
	}
	return TimeWindow{Start: start, End: end}, nil
}

// ParseTimeWindow parses optional start/end strings, falling back to def when both are absent
func ParseTimeWindow(start, end *string, def TimeWindow) (TimeWindow, error) {
	if start == nil && end == nil {
		return def, nil
	}
	if start == nil || end == nil {
		return TimeWindow{}, ErrInvalidInput("start_time and end_time must be supplied together")
	}
	s, err := ParseClock(*start)
	if err != nil {
		return TimeWindow{}, ErrInvalidInput(err.Error())
	}
	e, err := ParseClock(*end)
	if err != nil {
		return TimeWindow{}, ErrInvalidInput(err.Error())
	}
	return NewTimeWindow(s, e)
}

// IsZeroLength reports whether the window covers no time at all
func (w TimeWindow) IsZeroLength() bool {
	return w.End == w.Start
}

// Overlaps uses half-open comparison. A zero-length window conflicts with any
// window on the same date.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	if w.IsZeroLength() || other.IsZeroLength() {
		return true
	}
	return w.Start < other.End && other.Start < w.End
}

// Hours returns the window length in hours
func (w TimeWindow) Hours() decimal.Decimal {
	return decimal.NewFromInt(int64(w.End - w.Start)).Div(decimal.NewFromInt(60)).Round(2)
}

func (w TimeWindow) String() string {
	return w.Start.String() + "-" + w.End.String()
}
