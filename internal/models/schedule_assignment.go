package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleAssignment places one employee on one job for one date.
// (job_id, work_date, employee_id) is unique.
type ScheduleAssignment struct {
	ID             int64           `json:"id" db:"id"`
	JobID          int64           `json:"job_id" db:"job_id"`
	WorkDate       time.Time       `json:"work_date" db:"work_date"`
	EmployeeID     string          `json:"employee_id" db:"employee_id"`
	IsLead         bool            `json:"is_lead" db:"is_lead"`
	StartTime      Clock           `json:"start_time" db:"start_time"`
	EndTime        Clock           `json:"end_time" db:"end_time"`
	ScheduledHours decimal.Decimal `json:"scheduled_hours" db:"scheduled_hours"`
	Overridden     bool            `json:"overridden" db:"overridden"`
	OverrideReason *string         `json:"override_reason,omitempty" db:"override_reason"`
	AssignedBy     string          `json:"assigned_by" db:"assigned_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Window returns the assignment's time window
func (a *ScheduleAssignment) Window() TimeWindow {
	return TimeWindow{Start: a.StartTime, End: a.EndTime}
}

// AssignCrewRequest adds employees to a job on one or more dates
type AssignCrewRequest struct {
	Dates          []string         `json:"dates" binding:"required,min=1,dive,required"`
	Employees      []string         `json:"employees" binding:"required,min=1,dive,required"`
	StartTime      *string          `json:"start_time,omitempty" binding:"omitempty,clock"`
	EndTime        *string          `json:"end_time,omitempty" binding:"omitempty,clock"`
	ScheduledHours *decimal.Decimal `json:"scheduled_hours,omitempty"`
	LeadEmployee   *string          `json:"lead_employee,omitempty"`
	Override       bool             `json:"override"`
	OverrideReason *string          `json:"override_reason,omitempty"`
}

// CrewAssignment is the parsed, deduplicated form of AssignCrewRequest
type CrewAssignment struct {
	JobID          int64
	Dates          []time.Time
	Employees      []string
	Window         TimeWindow
	ScheduledHours decimal.Decimal
	LeadEmployee   *string
	Override       bool
	OverrideReason *string
}

// Parse validates the request against defaultWindow and returns sorted, unique dates and employees
func (r *AssignCrewRequest) Parse(jobID int64, defaultWindow TimeWindow) (*CrewAssignment, error) {
	if jobID <= 0 {
		return nil, ErrInvalidInput("job id must be positive")
	}
	if len(r.Dates) == 0 {
		return nil, ErrInvalidInput("at least one date is required")
	}
	if len(r.Employees) == 0 {
		return nil, ErrInvalidInput("at least one employee is required")
	}

	window, err := ParseTimeWindow(r.StartTime, r.EndTime, defaultWindow)
	if err != nil {
		return nil, err
	}

	seenDates := map[time.Time]bool{}
	dates := make([]time.Time, 0, len(r.Dates))
	for _, raw := range r.Dates {
		d, err := ParseDate(raw)
		if err != nil {
			return nil, ErrInvalidInput(err.Error())
		}
		if !seenDates[d] {
			seenDates[d] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	seenEmployees := map[string]bool{}
	employees := make([]string, 0, len(r.Employees))
	for _, e := range r.Employees {
		e = strings.TrimSpace(e)
		if e == "" {
			return nil, ErrInvalidInput("employee ids must not be blank")
		}
		if !seenEmployees[e] {
			seenEmployees[e] = true
			employees = append(employees, e)
		}
	}
	sort.Strings(employees)

	if r.LeadEmployee != nil && !seenEmployees[*r.LeadEmployee] {
		return nil, ErrInvalidInput("lead_employee must be one of employees")
	}

	hours := window.Hours()
	if r.ScheduledHours != nil {
		if r.ScheduledHours.IsNegative() || r.ScheduledHours.GreaterThan(decimal.NewFromInt(24)) {
			return nil, ErrInvalidInput("scheduled_hours must be between 0 and 24")
		}
		hours = *r.ScheduledHours
	}

	return &CrewAssignment{
		JobID:          jobID,
		Dates:          dates,
		Employees:      employees,
		Window:         window,
		ScheduledHours: hours,
		LeadEmployee:   r.LeadEmployee,
		Override:       r.Override,
		OverrideReason: r.OverrideReason,
	}, nil
}

// UpdateAssignmentRequest changes the window, hours or lead flag of one assignment
type UpdateAssignmentRequest struct {
	StartTime      *string          `json:"start_time,omitempty" binding:"omitempty,clock"`
	EndTime        *string          `json:"end_time,omitempty" binding:"omitempty,clock"`
	ScheduledHours *decimal.Decimal `json:"scheduled_hours,omitempty"`
	IsLead         *bool            `json:"is_lead,omitempty"`
	Override       bool             `json:"override"`
	OverrideReason *string          `json:"override_reason,omitempty"`
}

// Validate validates the update request
func (r *UpdateAssignmentRequest) Validate() error {
	if r.StartTime == nil && r.EndTime == nil && r.ScheduledHours == nil && r.IsLead == nil {
		return ErrInvalidInput("nothing to update")
	}
	if (r.StartTime == nil) != (r.EndTime == nil) {
		return ErrInvalidInput("start_time and end_time must be supplied together")
	}
	if r.ScheduledHours != nil && (r.ScheduledHours.IsNegative() || r.ScheduledHours.GreaterThan(decimal.NewFromInt(24))) {
		return ErrInvalidInput("scheduled_hours must be between 0 and 24")
	}
	return nil
}

// PairConflict reports why an (employee, date) pair was not written
type PairConflict struct {
	EmployeeID string         `json:"employee_id"`
	Date       string         `json:"date"`
	Result     ConflictResult `json:"result"`
}

// AssignCrewResult is the outcome of AssignCrew
type AssignCrewResult struct {
	Created   []ScheduleAssignment `json:"created"`
	Conflicts []PairConflict       `json:"conflicts"`
}

// RemoveCrewResult is the outcome of RemoveCrew
type RemoveCrewResult struct {
	Removed           ScheduleAssignment `json:"removed"`
	PromotedTo        *string            `json:"promoted_to,omitempty"`
	RemainingCrew     []string           `json:"remaining_crew"`
	NeedsReassignment bool               `json:"needs_reassignment"`
}

// Err returns the first conflict as a typed error when nothing was written,
// so an all-conflict request surfaces as 409
func (r *AssignCrewResult) Err() error {
	if len(r.Created) > 0 || len(r.Conflicts) == 0 {
		return nil
	}
	first := r.Conflicts[0]
	date, _ := ParseDate(first.Date)
	return first.Result.AsError(first.EmployeeID, date)
}
