package models

import (
	"strings"
	"time"
)

// LockWeekRequest is the manual admin trigger for one week
type LockWeekRequest struct {
	WeekEndingDate string  `json:"week_ending_date" binding:"required"`
	EmployeeID     *string `json:"employee_id,omitempty"`
}

// Parse validates the week ending date. It must be a Sunday.
func (r *LockWeekRequest) Parse() (time.Time, error) {
	return parseWeekEnding(r.WeekEndingDate)
}

// UnlockWeekRequest reopens one employee's week
type UnlockWeekRequest struct {
	EmployeeID     string `json:"employee_id" binding:"required"`
	WeekEndingDate string `json:"week_ending_date" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
}

// Parse validates the unlock request
func (r *UnlockWeekRequest) Parse() (time.Time, error) {
	if strings.TrimSpace(r.EmployeeID) == "" {
		return time.Time{}, ErrInvalidInput("employee_id is required")
	}
	if strings.TrimSpace(r.Reason) == "" {
		return time.Time{}, ErrInvalidInput("reason is required to unlock a week")
	}
	return parseWeekEnding(r.WeekEndingDate)
}

func parseWeekEnding(value string) (time.Time, error) {
	d, err := ParseDate(value)
	if err != nil {
		return time.Time{}, ErrInvalidInput(err.Error())
	}
	if d.Weekday() != time.Sunday {
		return time.Time{}, ErrInvalidInput("week_ending_date must be a Sunday")
	}
	return d, nil
}

// WeekLockAction names a lock manager event
type WeekLockAction string

const (
	WeekLockScheduled WeekLockAction = "week_lock_scheduled"
	WeekLockManual    WeekLockAction = "week_lock"
	WeekUnlock        WeekLockAction = "week_unlock"
)

// WeekLockEvent is emitted after a lock or unlock commits
type WeekLockEvent struct {
	Action         WeekLockAction `json:"action"`
	WeekEndingDate *string        `json:"week_ending_date,omitempty"`
	EmployeeID     *string        `json:"employee_id,omitempty"`
	RowsAffected   int64          `json:"rows_affected"`
	Actor          string         `json:"actor"`
	Reason         *string        `json:"reason,omitempty"`
	At             time.Time      `json:"at"`
}

// WeekLockResult is returned by the lock endpoints
type WeekLockResult struct {
	Locked int64 `json:"locked"`
}

// WeekUnlockResult is returned by the unlock endpoint
type WeekUnlockResult struct {
	Unlocked    int64     `json:"unlocked"`
	RelockAfter time.Time `json:"relock_after"`
}
