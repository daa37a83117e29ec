package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDailyHours bounds a single entry and the sum of a day's batch
var MaxDailyHours = decimal.NewFromInt(24)

// OvertimeThreshold is the weekly hour count above which hours are overtime
var OvertimeThreshold = decimal.NewFromInt(40)

// TimeCategory classifies hours not worked against a job
type TimeCategory string

const (
	CategoryShop     TimeCategory = "shop"
	CategoryTravel   TimeCategory = "travel"
	CategoryTraining TimeCategory = "training"
	CategoryAdmin    TimeCategory = "admin"
	CategoryOther    TimeCategory = "other"
)

// IsValid reports whether c is a known category
func (c TimeCategory) IsValid() bool {
	switch c {
	case CategoryShop, CategoryTravel, CategoryTraining, CategoryAdmin, CategoryOther:
		return true
	}
	return false
}

// TimeEntry is hours actually worked by one employee on one date.
// Rates are captured when the entry is written and never recalculated.
type TimeEntry struct {
	ID             int64           `json:"id" db:"id"`
	JobID          *int64          `json:"job_id,omitempty" db:"job_id"`
	Category       *TimeCategory   `json:"category,omitempty" db:"category"`
	EmployeeID     string          `json:"employee_id" db:"employee_id"`
	WorkDate       time.Time       `json:"work_date" db:"work_date"`
	HoursWorked    decimal.Decimal `json:"hours_worked" db:"hours_worked"`
	BillableRate   decimal.Decimal `json:"billable_rate" db:"billable_rate"`
	PayRate        decimal.Decimal `json:"pay_rate" db:"pay_rate"`
	WeekEndingDate time.Time       `json:"week_ending_date" db:"week_ending_date"`
	IsLocked       bool            `json:"is_locked" db:"is_locked"`
	LockedAt       *time.Time      `json:"locked_at,omitempty" db:"locked_at"`
	RelockAfter    *time.Time      `json:"relock_after,omitempty" db:"relock_after"`
	Notes          *string         `json:"notes,omitempty" db:"notes"`
	EnteredBy      string          `json:"entered_by" db:"entered_by"`
	DeletedAt      *time.Time      `json:"-" db:"deleted_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// BillableAmount is hours worked times the captured billable rate
func (e *TimeEntry) BillableAmount() decimal.Decimal {
	return e.HoursWorked.Mul(e.BillableRate)
}

// PayAmount is hours worked times the captured pay rate
func (e *TimeEntry) PayAmount() decimal.Decimal {
	return e.HoursWorked.Mul(e.PayRate)
}

// MarshalJSON adds the derived amounts to the stored fields
func (e TimeEntry) MarshalJSON() ([]byte, error) {
	type entry TimeEntry
	return json.Marshal(struct {
		entry
		BillableAmount decimal.Decimal `json:"billable_amount"`
		PayAmount      decimal.Decimal `json:"pay_amount"`
	}{
		entry:          entry(e),
		BillableAmount: e.BillableAmount(),
		PayAmount:      e.PayAmount(),
	})
}

// Key identifies the entry's slot for its employee and date
func (e *TimeEntry) Key() string {
	if e.JobID != nil {
		return fmt.Sprintf("job:%d", *e.JobID)
	}
	if e.Category != nil {
		return "category:" + string(*e.Category)
	}
	return ""
}

// TimeEntryInput is one line of a daily batch
type TimeEntryInput struct {
	JobID    *int64          `json:"job_id,omitempty"`
	Category *string         `json:"category,omitempty"`
	Hours    decimal.Decimal `json:"hours"`
	Notes    *string         `json:"notes,omitempty"`
}

// Key identifies the input's slot; used to reject duplicates in a batch
func (i *TimeEntryInput) Key() string {
	if i.JobID != nil {
		return fmt.Sprintf("job:%d", *i.JobID)
	}
	if i.Category != nil {
		return "category:" + *i.Category
	}
	return ""
}

// RecordTimeEntriesRequest is a day's worth of entries for one employee
type RecordTimeEntriesRequest struct {
	EmployeeID string           `json:"employee_id" binding:"required"`
	WorkDate   string           `json:"work_date" binding:"required"`
	Entries    []TimeEntryInput `json:"entries" binding:"required,min=1"`
}

// TimeEntryBatch is the validated form of RecordTimeEntriesRequest
type TimeEntryBatch struct {
	EmployeeID     string
	WorkDate       time.Time
	WeekEndingDate time.Time
	Entries        []TimeEntryInput
}

// Parse validates the whole batch. Any invalid line rejects the batch.
func (r *RecordTimeEntriesRequest) Parse() (*TimeEntryBatch, error) {
	if strings.TrimSpace(r.EmployeeID) == "" {
		return nil, ErrInvalidInput("employee_id is required")
	}
	workDate, err := ParseDate(r.WorkDate)
	if err != nil {
		return nil, ErrInvalidInput(err.Error())
	}
	if len(r.Entries) == 0 {
		return nil, ErrInvalidInput("at least one entry is required")
	}

	seen := make(map[string]int, len(r.Entries))
	total := decimal.Zero
	for i := range r.Entries {
		in := &r.Entries[i]
		if (in.JobID == nil) == (in.Category == nil) {
			return nil, ErrInvalidInput(fmt.Sprintf("entry %d: exactly one of job_id or category is required", i))
		}
		if in.JobID != nil && *in.JobID <= 0 {
			return nil, ErrInvalidInput(fmt.Sprintf("entry %d: job_id must be positive", i))
		}
		if in.Category != nil && !TimeCategory(*in.Category).IsValid() {
			return nil, ErrInvalidInput(fmt.Sprintf("entry %d: unknown category %q", i, *in.Category))
		}
		if err := ValidateHours(in.Hours); err != nil {
			return nil, &InvalidHoursError{Index: i, Message: err.Error()}
		}
		if prev, dup := seen[in.Key()]; dup {
			return nil, ErrInvalidInput(fmt.Sprintf("entry %d duplicates entry %d", i, prev))
		}
		seen[in.Key()] = i
		total = total.Add(in.Hours)
	}
	if total.GreaterThan(MaxDailyHours) {
		return nil, &InvalidHoursError{Index: -1, Message: fmt.Sprintf("batch totals %s hours, more than %s in one day", total.String(), MaxDailyHours.String())}
	}

	return &TimeEntryBatch{
		EmployeeID:     r.EmployeeID,
		WorkDate:       workDate,
		WeekEndingDate: WeekEndingDate(workDate),
		Entries:        r.Entries,
	}, nil
}

// ValidateHours enforces 0 < hours <= 24
func ValidateHours(hours decimal.Decimal) error {
	if !hours.IsPositive() {
		return fmt.Errorf("hours must be greater than 0")
	}
	if hours.GreaterThan(MaxDailyHours) {
		return fmt.Errorf("hours must not exceed %s", MaxDailyHours.String())
	}
	if hours.Exponent() < -2 && !hours.Equal(hours.Truncate(2)) {
		return fmt.Errorf("hours must have at most 2 decimal places")
	}
	return nil
}

// UpdateTimeEntryRequest edits hours or notes; rates are not re-resolved
type UpdateTimeEntryRequest struct {
	Hours *decimal.Decimal `json:"hours,omitempty"`
	Notes *string          `json:"notes,omitempty"`
}

// Validate validates the update request
func (r *UpdateTimeEntryRequest) Validate() error {
	if r.Hours == nil && r.Notes == nil {
		return ErrInvalidInput("nothing to update")
	}
	if r.Hours != nil {
		if err := ValidateHours(*r.Hours); err != nil {
			return &InvalidHoursError{Index: -1, Message: err.Error()}
		}
	}
	return nil
}

// JobLaborSummary rolls up every live entry for a job
type JobLaborSummary struct {
	JobID      int64           `json:"job_id" db:"job_id"`
	EntryCount int             `json:"entry_count" db:"entry_count"`
	TotalHours decimal.Decimal `json:"total_hours" db:"total_hours"`
	LaborCost  decimal.Decimal `json:"labor_cost" db:"labor_cost"`
	Revenue    decimal.Decimal `json:"revenue" db:"revenue"`
	Margin     decimal.Decimal `json:"margin"`
}

// EmployeeWeekSummary is one employee's entries and totals for a payroll week
type EmployeeWeekSummary struct {
	EmployeeID     string          `json:"employee_id"`
	WeekEndingDate string          `json:"week_ending_date"`
	Entries        []TimeEntry     `json:"entries"`
	TotalHours     decimal.Decimal `json:"total_hours"`
	RegularHours   decimal.Decimal `json:"regular_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	TotalPay       decimal.Decimal `json:"total_pay"`
	TotalBillable  decimal.Decimal `json:"total_billable"`
	IsLocked       bool            `json:"is_locked"`
}

// SummarizeWeek totals entries and splits hours at the overtime threshold
func SummarizeWeek(employeeID string, weekEnding time.Time, entries []TimeEntry) *EmployeeWeekSummary {
	s := &EmployeeWeekSummary{
		EmployeeID:     employeeID,
		WeekEndingDate: DateOnly(weekEnding).Format(DateLayout),
		Entries:        entries,
		TotalHours:     decimal.Zero,
		TotalPay:       decimal.Zero,
		TotalBillable:  decimal.Zero,
	}
	if s.Entries == nil {
		s.Entries = []TimeEntry{}
	}
	for i := range entries {
		s.TotalHours = s.TotalHours.Add(entries[i].HoursWorked)
		s.TotalPay = s.TotalPay.Add(entries[i].PayAmount())
		s.TotalBillable = s.TotalBillable.Add(entries[i].BillableAmount())
		if entries[i].IsLocked {
			s.IsLocked = true
		}
	}
	s.RegularHours = decimal.Min(s.TotalHours, OvertimeThreshold)
	s.OvertimeHours = decimal.Max(s.TotalHours.Sub(OvertimeThreshold), decimal.Zero)
	return s
}
