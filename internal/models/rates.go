package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus mirrors the work order status owned by the job service
type JobStatus string

const (
	JobStatusScheduled  JobStatus = "scheduled"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusOnHold     JobStatus = "on_hold"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether crew can no longer be scheduled on the job
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// Job is the read-only view of a work order this service needs
type Job struct {
	ID         int64     `json:"id" db:"id"`
	CustomerID *int64    `json:"customer_id,omitempty" db:"customer_id"`
	JobType    *string   `json:"job_type,omitempty" db:"job_type"`
	Status     JobStatus `json:"status" db:"status"`
}

// Employee is the read-only view of a user directory entry
type Employee struct {
	Username     string          `json:"username" db:"username"`
	Role         string          `json:"role" db:"role"`
	HourlyRate   decimal.Decimal `json:"hourly_rate" db:"hourly_rate"`
	OvertimeRate decimal.Decimal `json:"overtime_rate" db:"overtime_rate"`
	IsActive     bool            `json:"is_active" db:"is_active"`
}

// PayRate is an effective-dated employee compensation row
type PayRate struct {
	EmployeeID    string          `json:"employee_id" db:"employee_id"`
	HourlyRate    decimal.Decimal `json:"hourly_rate" db:"hourly_rate"`
	OvertimeRate  decimal.Decimal `json:"overtime_rate" db:"overtime_rate"`
	EffectiveFrom time.Time       `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty" db:"effective_to"`
}

// BillingRate is an effective-dated customer-facing hourly rate. A row with
// neither CustomerID nor JobType set is the default rate.
type BillingRate struct {
	ID            int64           `json:"id" db:"id"`
	CustomerID    *int64          `json:"customer_id,omitempty" db:"customer_id"`
	JobType       *string         `json:"job_type,omitempty" db:"job_type"`
	HourlyRate    decimal.Decimal `json:"hourly_rate" db:"hourly_rate"`
	EffectiveFrom time.Time       `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty" db:"effective_to"`
}

// ActiveOn reports whether the rate applies on date
func (r BillingRate) ActiveOn(date time.Time) bool {
	d := DateOnly(date)
	if DateOnly(r.EffectiveFrom).After(d) {
		return false
	}
	return r.EffectiveTo == nil || !DateOnly(*r.EffectiveTo).Before(d)
}

// ResolveBillingRate picks the billable rate for a job on date using the
// priority customer-specific > job-type > default. Within a tier the most
// recently effective row wins. ok is false when nothing applies.
func ResolveBillingRate(rates []BillingRate, job Job, date time.Time) (decimal.Decimal, bool) {
	var customer, jobType, fallback *BillingRate
	pick := func(current *BillingRate, candidate BillingRate) *BillingRate {
		if current == nil || candidate.EffectiveFrom.After(current.EffectiveFrom) {
			c := candidate
			return &c
		}
		return current
	}

	for _, r := range rates {
		if !r.ActiveOn(date) {
			continue
		}
		switch {
		case r.CustomerID != nil:
			if job.CustomerID != nil && *r.CustomerID == *job.CustomerID {
				customer = pick(customer, r)
			}
		case r.JobType != nil:
			if job.JobType != nil && *r.JobType == *job.JobType {
				jobType = pick(jobType, r)
			}
		default:
			fallback = pick(fallback, r)
		}
	}

	switch {
	case customer != nil:
		return customer.HourlyRate, true
	case jobType != nil:
		return jobType.HourlyRate, true
	case fallback != nil:
		return fallback.HourlyRate, true
	}
	return decimal.Zero, false
}
