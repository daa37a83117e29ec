package models

import (
	"strings"
	"time"
)

// AbsenceReason classifies why an employee is unavailable
type AbsenceReason string

const (
	AbsenceVacation  AbsenceReason = "vacation"
	AbsenceSick      AbsenceReason = "sick"
	AbsencePersonal  AbsenceReason = "personal"
	AbsenceEmergency AbsenceReason = "emergency"
	AbsenceOther     AbsenceReason = "other"
)

// IsValid reports whether r is a known reason
func (r AbsenceReason) IsValid() bool {
	switch r {
	case AbsenceVacation, AbsenceSick, AbsencePersonal, AbsenceEmergency, AbsenceOther:
		return true
	}
	return false
}

// ApprovalStatus is the review state of an availability record.
// Denial is a status, records are never deleted.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalDenied   ApprovalStatus = "denied"
)

// AvailabilityRecord is an absence over an inclusive date range
type AvailabilityRecord struct {
	ID          int64          `json:"id" db:"id"`
	EmployeeID  string         `json:"employee_id" db:"employee_id"`
	StartDate   time.Time      `json:"start_date" db:"start_date"`
	EndDate     time.Time      `json:"end_date" db:"end_date"`
	Reason      AbsenceReason  `json:"reason" db:"reason"`
	Status      ApprovalStatus `json:"status" db:"status"`
	AllDay      bool           `json:"all_day" db:"all_day"`
	StartTime   *Clock         `json:"start_time,omitempty" db:"start_time"`
	EndTime     *Clock         `json:"end_time,omitempty" db:"end_time"`
	Notes       *string        `json:"notes,omitempty" db:"notes"`
	RequestedBy string         `json:"requested_by" db:"requested_by"`
	ReviewedBy  *string        `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt  *time.Time     `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewNotes *string        `json:"review_notes,omitempty" db:"review_notes"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// Covers reports whether date falls inside the record's range
func (a *AvailabilityRecord) Covers(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(a.StartDate)) && !d.After(DateOnly(a.EndDate))
}

// Blocks reports whether the record participates in conflict detection on date
func (a *AvailabilityRecord) Blocks(date time.Time) bool {
	return a.Status == ApprovalApproved && a.Covers(date)
}

// AbsenceRequest is the self-service request for time off
type AbsenceRequest struct {
	EmployeeID string  `json:"employee_id" binding:"required"`
	StartDate  string  `json:"start_date" binding:"required"`
	EndDate    string  `json:"end_date" binding:"required"`
	Reason     string  `json:"reason" binding:"required,oneof=vacation sick personal emergency other"`
	AllDay     *bool   `json:"all_day,omitempty"`
	StartTime  *string `json:"start_time,omitempty" binding:"omitempty,clock"`
	EndTime    *string `json:"end_time,omitempty" binding:"omitempty,clock"`
	Notes      *string `json:"notes,omitempty"`
}

// ParsedAbsence holds the typed values of a validated AbsenceRequest
type ParsedAbsence struct {
	EmployeeID string
	StartDate  time.Time
	EndDate    time.Time
	Reason     AbsenceReason
	AllDay     bool
	Window     *TimeWindow
	Notes      *string
}

// Parse validates the request and converts it to typed values
func (r *AbsenceRequest) Parse() (*ParsedAbsence, error) {
	if strings.TrimSpace(r.EmployeeID) == "" {
		return nil, ErrInvalidInput("employee_id is required")
	}
	reason := AbsenceReason(r.Reason)
	if !reason.IsValid() {
		return nil, ErrInvalidInput("reason must be one of vacation, sick, personal, emergency, other")
	}
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return nil, ErrInvalidInput(err.Error())
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return nil, ErrInvalidInput(err.Error())
	}
	if end.Before(start) {
		return nil, ErrInvalidInput("end_date must not be before start_date")
	}

	parsed := &ParsedAbsence{
		EmployeeID: r.EmployeeID,
		StartDate:  start,
		EndDate:    end,
		Reason:     reason,
		AllDay:     true,
		Notes:      r.Notes,
	}
	if r.AllDay != nil {
		parsed.AllDay = *r.AllDay
	}
	if !parsed.AllDay {
		if r.StartTime == nil || r.EndTime == nil {
			return nil, ErrInvalidInput("start_time and end_time are required for partial-day absences")
		}
		window, err := ParseTimeWindow(r.StartTime, r.EndTime, TimeWindow{})
		if err != nil {
			return nil, err
		}
		parsed.Window = &window
	}
	return parsed, nil
}

// ReviewAbsenceRequest approves or denies a pending absence
type ReviewAbsenceRequest struct {
	Status string  `json:"status" binding:"required,oneof=approved denied"`
	Notes  *string `json:"notes,omitempty"`
}
