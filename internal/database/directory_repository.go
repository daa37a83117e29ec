package database

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DirectoryRepository reads the job, employee and rate tables owned by other
// services. Nothing here writes.
type DirectoryRepository struct {
	q Queryer
}

// NewDirectoryRepository creates a new DirectoryRepository
func NewDirectoryRepository(q Queryer) *DirectoryRepository {
	return &DirectoryRepository{q: q}
}

// WithTx returns a repository bound to tx
func (r *DirectoryRepository) WithTx(tx Queryer) *DirectoryRepository {
	return &DirectoryRepository{q: tx}
}

// GetJob retrieves a job by id
func (r *DirectoryRepository) GetJob(ctx context.Context, jobID int64) (*models.Job, error) {
	query := `SELECT id, customer_id, job_type, status FROM jobs WHERE id = $1`

	var job models.Job
	if err := r.q.GetContext(ctx, &job, query, jobID); err != nil {
		return nil, notFound(err, "job", jobID)
	}
	return &job, nil
}

// GetEmployee retrieves an employee by username
func (r *DirectoryRepository) GetEmployee(ctx context.Context, username string) (*models.Employee, error) {
	query := `
		SELECT username, role, hourly_rate, overtime_rate, is_active
		FROM employees
		WHERE username = $1
	`

	var e models.Employee
	if err := r.q.GetContext(ctx, &e, query, username); err != nil {
		return nil, notFound(err, "employee", username)
	}
	return &e, nil
}

// RequireActiveEmployees returns NotFound for the first username that is
// unknown or inactive
func (r *DirectoryRepository) RequireActiveEmployees(ctx context.Context, usernames []string) error {
	query := `
		SELECT username
		FROM employees
		WHERE username = ANY($1) AND is_active = true
	`

	var found []string
	if err := r.q.SelectContext(ctx, &found, query, pq.Array(usernames)); err != nil {
		return fmt.Errorf("failed to look up employees: %w", err)
	}

	active := make(map[string]bool, len(found))
	for _, u := range found {
		active[u] = true
	}
	for _, u := range usernames {
		if !active[u] {
			return models.NewNotFound("employee", u)
		}
	}
	return nil
}

// PayRate returns the employee's hourly pay rate effective on date, falling
// back to the directory rate when no effective-dated row applies
func (r *DirectoryRepository) PayRate(ctx context.Context, employeeID string, date time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(
			(SELECT pr.hourly_rate
			 FROM employee_pay_rates pr
			 WHERE pr.employee_id = e.username
				AND pr.effective_from <= $2
				AND (pr.effective_to IS NULL OR pr.effective_to >= $2)
			 ORDER BY pr.effective_from DESC
			 LIMIT 1),
			e.hourly_rate
		)
		FROM employees e
		WHERE e.username = $1
	`

	var rate decimal.Decimal
	if err := r.q.GetContext(ctx, &rate, query, employeeID, date); err != nil {
		return decimal.Zero, notFound(err, "employee", employeeID)
	}
	return rate, nil
}

// BillingRate resolves the billable hourly rate for job on date. Candidate rows
// are fetched here and ranked by models.ResolveBillingRate.
func (r *DirectoryRepository) BillingRate(ctx context.Context, job *models.Job, date time.Time) (decimal.Decimal, error) {
	query := `
		SELECT id, customer_id, job_type, hourly_rate, effective_from, effective_to
		FROM billing_rates
		WHERE effective_from <= $3
			AND (effective_to IS NULL OR effective_to >= $3)
			AND (
				customer_id = $1
				OR (customer_id IS NULL AND job_type = $2)
				OR (customer_id IS NULL AND job_type IS NULL)
			)
	`

	rates := []models.BillingRate{}
	if err := r.q.SelectContext(ctx, &rates, query, job.CustomerID, job.JobType, date); err != nil {
		return decimal.Zero, fmt.Errorf("failed to load billing rates: %w", err)
	}

	rate, ok := models.ResolveBillingRate(rates, *job, date)
	if !ok {
		return decimal.Zero, models.NewNotFound("billing rate for job", job.ID)
	}
	return rate, nil
}
