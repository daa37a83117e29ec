package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the business rule taxonomy. Typed errors below match
// them through errors.Is.
var (
	ErrBlockingConflict    = errors.New("blocking conflict")
	ErrScheduleConflict    = errors.New("schedule conflict")
	ErrWeekLocked          = errors.New("week locked")
	ErrInvalidHours        = errors.New("invalid hours")
	ErrNotFound            = errors.New("not found")
	ErrTransactionConflict = errors.New("transaction conflict")
	ErrJobClosed           = errors.New("job closed")
	ErrForbidden           = errors.New("forbidden")
)

// ErrInvalidInput creates a validation error
func ErrInvalidInput(message string) error {
	return &ValidationError{Message: message}
}

// ValidationError represents a validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound builds a NotFoundError for any printable id
func NewNotFound(entity string, id interface{}) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// BlockingConflictError is returned when an approved absence covers the date
type BlockingConflictError struct {
	EmployeeID string
	Date       time.Time
	Conflicts  []BlockingConflict
}

func (e *BlockingConflictError) Error() string {
	reason := ""
	if len(e.Conflicts) > 0 {
		reason = string(e.Conflicts[0].Reason)
	}
	return fmt.Sprintf("%s is unavailable on %s (%s)", e.EmployeeID, e.Date.Format(DateLayout), reason)
}

func (e *BlockingConflictError) Is(target error) bool {
	return target == ErrBlockingConflict
}

// ScheduleConflictError is returned when the window overlaps another assignment
// and no override was requested
type ScheduleConflictError struct {
	EmployeeID string
	Date       time.Time
	Conflicts  []ScheduleConflict
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("%s already has %d overlapping assignment(s) on %s", e.EmployeeID, len(e.Conflicts), e.Date.Format(DateLayout))
}

func (e *ScheduleConflictError) Is(target error) bool {
	return target == ErrScheduleConflict
}

// WeekLockedError is returned for any write into a locked payroll week
type WeekLockedError struct {
	EmployeeID     string
	WeekEndingDate time.Time
}

func (e *WeekLockedError) Error() string {
	return fmt.Sprintf("week ending %s is locked for %s", e.WeekEndingDate.Format(DateLayout), e.EmployeeID)
}

func (e *WeekLockedError) Is(target error) bool {
	return target == ErrWeekLocked
}

// InvalidHoursError reports an out-of-bounds hours value in a batch
type InvalidHoursError struct {
	Index   int
	Message string
}

func (e *InvalidHoursError) Error() string {
	if e.Index < 0 {
		return e.Message
	}
	return fmt.Sprintf("entry %d: %s", e.Index, e.Message)
}

func (e *InvalidHoursError) Is(target error) bool {
	return target == ErrInvalidHours
}

// JobClosedError is returned when crew is assigned to a terminal job
type JobClosedError struct {
	JobID  int64
	Status JobStatus
}

func (e *JobClosedError) Error() string {
	return fmt.Sprintf("job %d is %s and cannot be scheduled", e.JobID, e.Status)
}

func (e *JobClosedError) Is(target error) bool {
	return target == ErrJobClosed
}
