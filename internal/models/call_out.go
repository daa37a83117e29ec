package models

import (
	"strings"
	"time"
)

// CallOutRequest reports an employee unavailable for a date range
type CallOutRequest struct {
	EmployeeID         string  `json:"employee_id" binding:"required"`
	StartDate          string  `json:"start_date" binding:"required"`
	EndDate            string  `json:"end_date" binding:"required"`
	Reason             string  `json:"reason" binding:"required,oneof=vacation sick personal emergency other"`
	RemoveFromSchedule *bool   `json:"remove_from_schedule,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}

// CallOut is the validated form of CallOutRequest
type CallOut struct {
	EmployeeID         string
	StartDate          time.Time
	EndDate            time.Time
	Reason             AbsenceReason
	RemoveFromSchedule bool
	Notes              *string
}

// Parse validates the request. RemoveFromSchedule defaults to true.
func (r *CallOutRequest) Parse() (*CallOut, error) {
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

	remove := true
	if r.RemoveFromSchedule != nil {
		remove = *r.RemoveFromSchedule
	}
	return &CallOut{
		EmployeeID:         r.EmployeeID,
		StartDate:          start,
		EndDate:            end,
		Reason:             reason,
		RemoveFromSchedule: remove,
		Notes:              r.Notes,
	}, nil
}

// AffectedJob describes one (job, date) crew touched by a call-out
type AffectedJob struct {
	JobID             int64    `json:"job_id"`
	Date              string   `json:"date"`
	WasLead           bool     `json:"was_lead"`
	PromotedTo        *string  `json:"promoted_to,omitempty"`
	RemainingCrew     []string `json:"remaining_crew"`
	NeedsReassignment bool     `json:"needs_reassignment"`
}

// CallOutReport is returned to the caller and handed to notifications
type CallOutReport struct {
	EmployeeID      string        `json:"employee"`
	UnavailableFrom string        `json:"unavailable_from"`
	UnavailableTo   string        `json:"unavailable_to"`
	Reason          AbsenceReason `json:"reason"`
	AvailabilityID  int64         `json:"availability_id"`
	Reused          bool          `json:"reused"`
	AffectedJobs    []AffectedJob `json:"affected_jobs"`
}

// NeedsAttention reports whether any crew was left empty
func (r *CallOutReport) NeedsAttention() bool {
	for _, j := range r.AffectedJobs {
		if j.NeedsReassignment {
			return true
		}
	}
	return false
}
