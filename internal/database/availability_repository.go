package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/models"
)

const availabilityColumns = `
	id, employee_id, start_date, end_date, reason, status, all_day, start_time, end_time,
	notes, requested_by, reviewed_by, reviewed_at, review_notes, created_at, updated_at`

// AvailabilityRepository handles availability_records database operations.
// Records are never deleted; denial is a status.
type AvailabilityRepository struct {
	q Queryer
}

// NewAvailabilityRepository creates a new AvailabilityRepository
func NewAvailabilityRepository(q Queryer) *AvailabilityRepository {
	return &AvailabilityRepository{q: q}
}

// WithTx returns a repository bound to tx
func (r *AvailabilityRepository) WithTx(tx Queryer) *AvailabilityRepository {
	return &AvailabilityRepository{q: tx}
}

// Create inserts a record and fills in its id and timestamps
func (r *AvailabilityRepository) Create(ctx context.Context, rec *models.AvailabilityRecord) error {
	query := `
		INSERT INTO availability_records (
			employee_id, start_date, end_date, reason, status, all_day,
			start_time, end_time, notes, requested_by, reviewed_by, reviewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRowxContext(ctx, query,
		rec.EmployeeID,
		rec.StartDate,
		rec.EndDate,
		rec.Reason,
		rec.Status,
		rec.AllDay,
		rec.StartTime,
		rec.EndTime,
		rec.Notes,
		rec.RequestedBy,
		rec.ReviewedBy,
		rec.ReviewedAt,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create availability record: %w", err)
	}
	return nil
}

// GetByID retrieves a record. forUpdate row-locks it.
func (r *AvailabilityRepository) GetByID(ctx context.Context, id int64, forUpdate bool) (*models.AvailabilityRecord, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availability_records WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var rec models.AvailabilityRecord
	if err := r.q.GetContext(ctx, &rec, query, id); err != nil {
		return nil, notFound(err, "availability record", id)
	}
	return &rec, nil
}

// FindApproved returns an approved record with exactly this employee, range
// and reason, or nil when none exists
func (r *AvailabilityRepository) FindApproved(ctx context.Context, employeeID string, start, end time.Time, reason models.AbsenceReason) (*models.AvailabilityRecord, error) {
	query := `SELECT ` + availabilityColumns + `
		FROM availability_records
		WHERE employee_id = $1 AND start_date = $2 AND end_date = $3
			AND reason = $4 AND status = 'approved'
		ORDER BY id
		LIMIT 1`

	var rec models.AvailabilityRecord
	err := r.q.GetContext(ctx, &rec, query, employeeID, start, end, reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find availability record: %w", err)
	}
	return &rec, nil
}

// ListApprovedCovering returns approved records for employee whose range includes date
func (r *AvailabilityRepository) ListApprovedCovering(ctx context.Context, employeeID string, date time.Time) ([]models.AvailabilityRecord, error) {
	query := `SELECT ` + availabilityColumns + `
		FROM availability_records
		WHERE employee_id = $1 AND status = 'approved'
			AND start_date <= $2 AND end_date >= $2
		ORDER BY start_date, id`

	records := []models.AvailabilityRecord{}
	if err := r.q.SelectContext(ctx, &records, query, employeeID, date); err != nil {
		return nil, fmt.Errorf("failed to list approved absences: %w", err)
	}
	return records, nil
}

// ListForEmployee returns records of any status overlapping [from, to]
func (r *AvailabilityRepository) ListForEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]models.AvailabilityRecord, error) {
	query := `SELECT ` + availabilityColumns + `
		FROM availability_records
		WHERE employee_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date, id`

	records := []models.AvailabilityRecord{}
	if err := r.q.SelectContext(ctx, &records, query, employeeID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	return records, nil
}

// ListPending returns every record awaiting review, oldest first
func (r *AvailabilityRepository) ListPending(ctx context.Context) ([]models.AvailabilityRecord, error) {
	query := `SELECT ` + availabilityColumns + `
		FROM availability_records
		WHERE status = 'pending'
		ORDER BY created_at, id`

	records := []models.AvailabilityRecord{}
	if err := r.q.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list pending absences: %w", err)
	}
	return records, nil
}

// Review records the approval decision on a pending record
func (r *AvailabilityRepository) Review(ctx context.Context, rec *models.AvailabilityRecord) error {
	query := `
		UPDATE availability_records
		SET status = $2, reviewed_by = $3, reviewed_at = $4, review_notes = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING updated_at
	`

	err := r.q.QueryRowxContext(ctx, query,
		rec.ID, rec.Status, rec.ReviewedBy, rec.ReviewedAt, rec.ReviewNotes,
	).Scan(&rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrInvalidInput("availability record has already been reviewed")
	}
	if err != nil {
		return fmt.Errorf("failed to review availability record: %w", err)
	}
	return nil
}
