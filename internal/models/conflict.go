package models

import "time"

// ConflictKind classifies a proposed assignment
type ConflictKind string

const (
	ConflictClear    ConflictKind = "clear"
	ConflictSchedule ConflictKind = "schedule_conflict"
	ConflictBlocking ConflictKind = "blocking_conflict"
)

// BlockingConflict is an approved absence covering the proposed date
type BlockingConflict struct {
	AvailabilityID int64         `json:"availability_id"`
	Reason         AbsenceReason `json:"reason"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
}

// ScheduleConflict is another assignment overlapping the proposed window
type ScheduleConflict struct {
	AssignmentID   int64      `json:"assignment_id"`
	ConflictingJob int64      `json:"conflicting_job"`
	Window         TimeWindow `json:"window"`
}

// ConflictResult carries every conflict found for one (employee, date, window)
type ConflictResult struct {
	Kind     ConflictKind       `json:"kind"`
	Blocking []BlockingConflict `json:"blocking,omitempty"`
	Schedule []ScheduleConflict `json:"schedule,omitempty"`
}

// IsClear reports whether the assignment can be written without override
func (r ConflictResult) IsClear() bool {
	return r.Kind == ConflictClear
}

// IsBlocking reports whether the assignment can never be written
func (r ConflictResult) IsBlocking() bool {
	return r.Kind == ConflictBlocking
}

// AsError converts a non-clear result to its typed error
func (r ConflictResult) AsError(employeeID string, date time.Time) error {
	switch r.Kind {
	case ConflictBlocking:
		return &BlockingConflictError{EmployeeID: employeeID, Date: date, Conflicts: r.Blocking}
	case ConflictSchedule:
		return &ScheduleConflictError{EmployeeID: employeeID, Date: date, Conflicts: r.Schedule}
	}
	return nil
}

// ConflictCheckRequest is the query form of CheckConflict
type ConflictCheckRequest struct {
	EmployeeID          string  `form:"employee" binding:"required"`
	Date                string  `form:"date" binding:"required"`
	StartTime           *string `form:"start_time" binding:"omitempty,clock"`
	EndTime             *string `form:"end_time" binding:"omitempty,clock"`
	ExcludingAssignment *int64  `form:"excluding_assignment_id"`
}
