package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/shopspring/decimal"
)

const timeEntryColumns = `
	id, job_id, category, employee_id, work_date, hours_worked, billable_rate, pay_rate,
	week_ending_date, is_locked, locked_at, relock_after, notes, entered_by,
	deleted_at, created_at, updated_at`

// TimeEntryRepository handles time_entries database operations
type TimeEntryRepository struct {
	q Queryer
}

// NewTimeEntryRepository creates a new TimeEntryRepository
func NewTimeEntryRepository(q Queryer) *TimeEntryRepository {
	return &TimeEntryRepository{q: q}
}

// WithTx returns a repository bound to tx
func (r *TimeEntryRepository) WithTx(tx Queryer) *TimeEntryRepository {
	return &TimeEntryRepository{q: tx}
}

// IsWeekLocked reports whether the employee's week is frozen. An admin
// unlock still inside its grace period opens the week. Otherwise, when the
// employee has live entries in the week, their lock flag decides, and a
// completed week without any counts as locked once any entry in it has been
// locked.
func (r *TimeEntryRepository) IsWeekLocked(ctx context.Context, employeeID string, weekEnding time.Time, weekCompleted bool, now time.Time) (bool, error) {
	query := `
		SELECT CASE
			WHEN EXISTS (
				SELECT 1 FROM week_unlocks
				WHERE employee_id = $1 AND week_ending_date = $2 AND relock_after > $4
			) THEN false
			WHEN EXISTS (
				SELECT 1 FROM time_entries
				WHERE employee_id = $1 AND week_ending_date = $2 AND deleted_at IS NULL
			) THEN EXISTS (
				SELECT 1 FROM time_entries
				WHERE employee_id = $1 AND week_ending_date = $2 AND deleted_at IS NULL AND is_locked = true
			)
			ELSE $3::boolean AND EXISTS (
				SELECT 1 FROM time_entries
				WHERE week_ending_date = $2 AND deleted_at IS NULL AND is_locked = true
			)
		END
	`

	var locked bool
	if err := r.q.GetContext(ctx, &locked, query, employeeID, weekEnding, weekCompleted, now); err != nil {
		return false, fmt.Errorf("failed to check week lock: %w", err)
	}
	return locked, nil
}

// Upsert writes the entry into its (job or category, employee, date) slot.
// Re-writing an existing slot replaces its hours, notes and rates with the
// values resolved for this write. A locked slot is never touched; the caller
// gets WeekLocked.
func (r *TimeEntryRepository) Upsert(ctx context.Context, e *models.TimeEntry) error {
	conflictTarget := `(job_id, employee_id, work_date) WHERE job_id IS NOT NULL AND deleted_at IS NULL`
	if e.JobID == nil {
		conflictTarget = `(category, employee_id, work_date) WHERE job_id IS NULL AND deleted_at IS NULL`
	}

	query := `
		INSERT INTO time_entries (
			job_id, category, employee_id, work_date, hours_worked,
			billable_rate, pay_rate, week_ending_date, notes, entered_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ` + conflictTarget + ` DO UPDATE SET
			hours_worked = EXCLUDED.hours_worked,
			billable_rate = EXCLUDED.billable_rate,
			pay_rate = EXCLUDED.pay_rate,
			notes = COALESCE(EXCLUDED.notes, time_entries.notes),
			entered_by = EXCLUDED.entered_by,
			updated_at = NOW()
		WHERE time_entries.is_locked = false
		RETURNING ` + timeEntryColumns

	err := r.q.GetContext(ctx, e, query,
		e.JobID,
		e.Category,
		e.EmployeeID,
		e.WorkDate,
		e.HoursWorked,
		e.BillableRate,
		e.PayRate,
		e.WeekEndingDate,
		e.Notes,
		e.EnteredBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.WeekLockedError{EmployeeID: e.EmployeeID, WeekEndingDate: e.WeekEndingDate}
	}
	if err != nil {
		return fmt.Errorf("failed to record time entry: %w", err)
	}
	return nil
}

// GetByID retrieves a live entry and row-locks it
func (r *TimeEntryRepository) GetByID(ctx context.Context, id int64) (*models.TimeEntry, error) {
	query := `SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`

	var e models.TimeEntry
	if err := r.q.GetContext(ctx, &e, query, id); err != nil {
		return nil, notFound(err, "time entry", id)
	}
	return &e, nil
}

// Update changes hours and/or notes on an unlocked entry. Rates stay as captured.
func (r *TimeEntryRepository) Update(ctx context.Context, id int64, hours *decimal.Decimal, notes *string) (*models.TimeEntry, error) {
	query := `
		UPDATE time_entries
		SET hours_worked = COALESCE($2, hours_worked),
			notes = COALESCE($3, notes),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND is_locked = false
		RETURNING ` + timeEntryColumns

	var e models.TimeEntry
	err := r.q.GetContext(ctx, &e, query, id, hours, notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFound("unlocked time entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update time entry: %w", err)
	}
	return &e, nil
}

// SoftDelete marks an unlocked entry deleted
func (r *TimeEntryRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE time_entries
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL AND is_locked = false
	`

	result, err := r.q.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.NewNotFound("unlocked time entry", id)
	}
	return nil
}

// ListForEmployeeDate returns the employee's live entries on date
func (r *TimeEntryRepository) ListForEmployeeDate(ctx context.Context, employeeID string, date time.Time) ([]models.TimeEntry, error) {
	query := `SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE employee_id = $1 AND work_date = $2 AND deleted_at IS NULL
		ORDER BY id`

	entries := []models.TimeEntry{}
	if err := r.q.SelectContext(ctx, &entries, query, employeeID, date); err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	return entries, nil
}

// ListForEmployeeWeek returns the employee's live entries in a payroll week
func (r *TimeEntryRepository) ListForEmployeeWeek(ctx context.Context, employeeID string, weekEnding time.Time) ([]models.TimeEntry, error) {
	query := `SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE employee_id = $1 AND week_ending_date = $2 AND deleted_at IS NULL
		ORDER BY work_date, id`

	entries := []models.TimeEntry{}
	if err := r.q.SelectContext(ctx, &entries, query, employeeID, weekEnding); err != nil {
		return nil, fmt.Errorf("failed to list week entries: %w", err)
	}
	return entries, nil
}

// JobLaborSummary aggregates every live entry for a job
func (r *TimeEntryRepository) JobLaborSummary(ctx context.Context, jobID int64) (*models.JobLaborSummary, error) {
	query := `
		SELECT
			$1::bigint AS job_id,
			COUNT(*) AS entry_count,
			COALESCE(SUM(hours_worked), 0) AS total_hours,
			COALESCE(SUM(hours_worked * pay_rate), 0) AS labor_cost,
			COALESCE(SUM(hours_worked * billable_rate), 0) AS revenue
		FROM time_entries
		WHERE job_id = $1 AND deleted_at IS NULL
	`

	var s models.JobLaborSummary
	if err := r.q.GetContext(ctx, &s, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to summarize labor for job %d: %w", jobID, err)
	}
	s.Margin = s.Revenue.Sub(s.LaborCost)
	return &s, nil
}

// LockCompletedWeeks locks every unlocked entry whose week ends before
// cutoff, skipping (employee, week) pairs still inside an unlock grace period
func (r *TimeEntryRepository) LockCompletedWeeks(ctx context.Context, cutoff, now time.Time) (int64, error) {
	query := `
		UPDATE time_entries t
		SET is_locked = true, locked_at = $2, relock_after = NULL, updated_at = $2
		WHERE t.week_ending_date < $1
			AND t.is_locked = false
			AND t.deleted_at IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM time_entries g
				WHERE g.employee_id = t.employee_id
					AND g.week_ending_date = t.week_ending_date
					AND g.relock_after > $2
			)
			AND NOT EXISTS (
				SELECT 1 FROM week_unlocks u
				WHERE u.employee_id = t.employee_id
					AND u.week_ending_date = t.week_ending_date
					AND u.relock_after > $2
			)
	`
	return r.execCount(ctx, "lock completed weeks", query, cutoff, now)
}

// LockWeek locks one week for one employee, or for everyone when employeeID is nil
func (r *TimeEntryRepository) LockWeek(ctx context.Context, weekEnding time.Time, employeeID *string, now time.Time) (int64, error) {
	query := `
		UPDATE time_entries
		SET is_locked = true, locked_at = $3, relock_after = NULL, updated_at = $3
		WHERE week_ending_date = $1
			AND ($2::text IS NULL OR employee_id = $2)
			AND is_locked = false
			AND deleted_at IS NULL
	`
	return r.execCount(ctx, "lock week", query, weekEnding, employeeID, now)
}

// UnlockWeek reopens one employee's week until relockAfter
func (r *TimeEntryRepository) UnlockWeek(ctx context.Context, employeeID string, weekEnding, relockAfter time.Time) (int64, error) {
	query := `
		UPDATE time_entries
		SET is_locked = false, locked_at = NULL, relock_after = $3, updated_at = NOW()
		WHERE employee_id = $1
			AND week_ending_date = $2
			AND is_locked = true
			AND deleted_at IS NULL
	`
	return r.execCount(ctx, "unlock week", query, employeeID, weekEnding, relockAfter)
}

// RecordUnlock keeps the admin unlock for (employee, week) until relockAfter.
// It holds the week open even when the employee has no entries in it yet.
func (r *TimeEntryRepository) RecordUnlock(ctx context.Context, employeeID string, weekEnding, relockAfter time.Time, reason, unlockedBy string) error {
	query := `
		INSERT INTO week_unlocks (employee_id, week_ending_date, relock_after, reason, unlocked_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (employee_id, week_ending_date) DO UPDATE SET
			relock_after = EXCLUDED.relock_after,
			reason = EXCLUDED.reason,
			unlocked_by = EXCLUDED.unlocked_by,
			created_at = NOW()
	`
	if _, err := r.q.ExecContext(ctx, query, employeeID, weekEnding, relockAfter, reason, unlockedBy); err != nil {
		return fmt.Errorf("failed to record week unlock: %w", err)
	}
	return nil
}

// ClearUnlocks ends any unlock grace for the week, for one employee or everyone
func (r *TimeEntryRepository) ClearUnlocks(ctx context.Context, weekEnding time.Time, employeeID *string) error {
	query := `
		DELETE FROM week_unlocks
		WHERE week_ending_date = $1
			AND ($2::text IS NULL OR employee_id = $2)
	`
	if _, err := r.q.ExecContext(ctx, query, weekEnding, employeeID); err != nil {
		return fmt.Errorf("failed to clear week unlocks: %w", err)
	}
	return nil
}

func (r *TimeEntryRepository) execCount(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
