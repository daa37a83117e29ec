package database

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/models"
)

const assignmentColumns = `
	id, job_id, work_date, employee_id, is_lead, start_time, end_time,
	scheduled_hours, overridden, override_reason, assigned_by, created_at, updated_at`

// ScheduleAssignmentRepository handles schedule_assignments database operations
type ScheduleAssignmentRepository struct {
	q Queryer
}

// NewScheduleAssignmentRepository creates a new ScheduleAssignmentRepository
func NewScheduleAssignmentRepository(q Queryer) *ScheduleAssignmentRepository {
	return &ScheduleAssignmentRepository{q: q}
}

// WithTx returns a repository bound to tx
func (r *ScheduleAssignmentRepository) WithTx(tx Queryer) *ScheduleAssignmentRepository {
	return &ScheduleAssignmentRepository{q: tx}
}

// GetByID retrieves an assignment. forUpdate row-locks it for the rest of the transaction.
func (r *ScheduleAssignmentRepository) GetByID(ctx context.Context, id int64, forUpdate bool) (*models.ScheduleAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM schedule_assignments WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var a models.ScheduleAssignment
	if err := r.q.GetContext(ctx, &a, query, id); err != nil {
		return nil, notFound(err, "assignment", id)
	}
	return &a, nil
}

// GetByKey retrieves the assignment for (job, date, employee)
func (r *ScheduleAssignmentRepository) GetByKey(ctx context.Context, jobID int64, date time.Time, employeeID string) (*models.ScheduleAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM schedule_assignments
		WHERE job_id = $1 AND work_date = $2 AND employee_id = $3`

	var a models.ScheduleAssignment
	if err := r.q.GetContext(ctx, &a, query, jobID, date, employeeID); err != nil {
		return nil, notFound(err, "assignment", fmt.Sprintf("%d/%s/%s", jobID, date.Format(models.DateLayout), employeeID))
	}
	return &a, nil
}

// ListForEmployeeOnDate returns every assignment an employee holds on date
func (r *ScheduleAssignmentRepository) ListForEmployeeOnDate(ctx context.Context, employeeID string, date time.Time) ([]models.ScheduleAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM schedule_assignments
		WHERE employee_id = $1 AND work_date = $2
		ORDER BY start_time, id`

	assignments := []models.ScheduleAssignment{}
	if err := r.q.SelectContext(ctx, &assignments, query, employeeID, date); err != nil {
		return nil, fmt.Errorf("failed to list assignments for %s: %w", employeeID, err)
	}
	return assignments, nil
}

// ListForEmployeeInRange returns an employee's assignments between from and to inclusive.
// forUpdate row-locks them.
func (r *ScheduleAssignmentRepository) ListForEmployeeInRange(ctx context.Context, employeeID string, from, to time.Time, forUpdate bool) ([]models.ScheduleAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM schedule_assignments
		WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date, job_id`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	assignments := []models.ScheduleAssignment{}
	if err := r.q.SelectContext(ctx, &assignments, query, employeeID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list schedule for %s: %w", employeeID, err)
	}
	return assignments, nil
}

// ListCrew returns a job's crew on date, earliest assigned first
func (r *ScheduleAssignmentRepository) ListCrew(ctx context.Context, jobID int64, date time.Time) ([]models.ScheduleAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM schedule_assignments
		WHERE job_id = $1 AND work_date = $2
		ORDER BY created_at, id`

	crew := []models.ScheduleAssignment{}
	if err := r.q.SelectContext(ctx, &crew, query, jobID, date); err != nil {
		return nil, fmt.Errorf("failed to list crew for job %d: %w", jobID, err)
	}
	return crew, nil
}

// Upsert inserts the assignment or, when the (job, date, employee) row exists,
// updates its window and hours. An existing lead flag is kept.
func (r *ScheduleAssignmentRepository) Upsert(ctx context.Context, a *models.ScheduleAssignment) error {
	query := `
		INSERT INTO schedule_assignments (
			job_id, work_date, employee_id, is_lead, start_time, end_time,
			scheduled_hours, overridden, override_reason, assigned_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (job_id, work_date, employee_id) DO UPDATE SET
			is_lead = schedule_assignments.is_lead OR EXCLUDED.is_lead,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			scheduled_hours = EXCLUDED.scheduled_hours,
			overridden = EXCLUDED.overridden,
			override_reason = EXCLUDED.override_reason,
			assigned_by = EXCLUDED.assigned_by,
			updated_at = NOW()
		RETURNING id, is_lead, created_at, updated_at
	`

	err := r.q.QueryRowxContext(ctx, query,
		a.JobID,
		a.WorkDate,
		a.EmployeeID,
		a.IsLead,
		a.StartTime,
		a.EndTime,
		a.ScheduledHours,
		a.Overridden,
		a.OverrideReason,
		a.AssignedBy,
	).Scan(&a.ID, &a.IsLead, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

// UpdateWindow changes an assignment's window and hours
func (r *ScheduleAssignmentRepository) UpdateWindow(ctx context.Context, a *models.ScheduleAssignment) error {
	query := `
		UPDATE schedule_assignments
		SET start_time = $2, end_time = $3, scheduled_hours = $4,
			overridden = $5, override_reason = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRowxContext(ctx, query,
		a.ID, a.StartTime, a.EndTime, a.ScheduledHours, a.Overridden, a.OverrideReason,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return notFound(err, "assignment", a.ID)
	}
	return nil
}

// ClearLead removes the lead flag from every member of a crew
func (r *ScheduleAssignmentRepository) ClearLead(ctx context.Context, jobID int64, date time.Time) error {
	query := `
		UPDATE schedule_assignments
		SET is_lead = false, updated_at = NOW()
		WHERE job_id = $1 AND work_date = $2 AND is_lead = true
	`
	if _, err := r.q.ExecContext(ctx, query, jobID, date); err != nil {
		return fmt.Errorf("failed to clear lead for job %d: %w", jobID, err)
	}
	return nil
}

// SetLead marks one assignment as its crew's lead. Call ClearLead first.
func (r *ScheduleAssignmentRepository) SetLead(ctx context.Context, id int64) error {
	query := `UPDATE schedule_assignments SET is_lead = true, updated_at = NOW() WHERE id = $1`
	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to set lead: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.NewNotFound("assignment", id)
	}
	return nil
}

// Delete removes one assignment
func (r *ScheduleAssignmentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM schedule_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.NewNotFound("assignment", id)
	}
	return nil
}
