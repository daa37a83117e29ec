package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TimeLedgerService records worked hours with the billable and pay rates in
// force on the work date. Every write holds the shared week lock.
type TimeLedgerService struct {
	db        database.DB
	entries   *database.TimeEntryRepository
	directory *database.DirectoryRepository
	logger    *logrus.Logger
	now       func() time.Time
}

// NewTimeLedgerService creates a new TimeLedgerService
func NewTimeLedgerService(db database.DB, logger *logrus.Logger) *TimeLedgerService {
	return &TimeLedgerService{
		db:        db,
		entries:   database.NewTimeEntryRepository(db),
		directory: database.NewDirectoryRepository(db),
		logger:    logger,
		now:       time.Now,
	}
}

// RecordTimeEntries validates the whole batch, then writes it in one
// transaction. A locked week rejects the batch without writing anything.
func (s *TimeLedgerService) RecordTimeEntries(ctx context.Context, actor models.Actor, req *models.RecordTimeEntriesRequest) ([]models.TimeEntry, error) {
	batch, err := req.Parse()
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(batch.EmployeeID) {
		return nil, models.ErrForbidden
	}

	var recorded []models.TimeEntry
	err = s.db.WithTx(ctx, func(tx database.Queryer) error {
		recorded = make([]models.TimeEntry, 0, len(batch.Entries))
		entries := s.entries.WithTx(tx)
		directory := s.directory.WithTx(tx)

		if err := database.LockWeekShared(ctx, tx); err != nil {
			return err
		}
		if _, err := directory.GetEmployee(ctx, batch.EmployeeID); err != nil {
			return err
		}
		if err := s.requireOpenWeek(ctx, entries, batch.EmployeeID, batch.WeekEndingDate); err != nil {
			return err
		}

		// Entries not in this batch keep their hours; the day as a whole must fit
		existing, err := entries.ListForEmployeeDate(ctx, batch.EmployeeID, batch.WorkDate)
		if err != nil {
			return err
		}
		replaced := make(map[string]bool, len(batch.Entries))
		total := decimal.Zero
		for i := range batch.Entries {
			replaced[batch.Entries[i].Key()] = true
			total = total.Add(batch.Entries[i].Hours)
		}
		for i := range existing {
			if !replaced[existing[i].Key()] {
				total = total.Add(existing[i].HoursWorked)
			}
		}
		if total.GreaterThan(models.MaxDailyHours) {
			return &models.InvalidHoursError{Index: -1, Message: fmt.Sprintf(
				"%s would have %s hours on %s, more than %s",
				batch.EmployeeID, total.String(), batch.WorkDate.Format(models.DateLayout), models.MaxDailyHours.String())}
		}

		payRate, err := directory.PayRate(ctx, batch.EmployeeID, batch.WorkDate)
		if err != nil {
			return err
		}

		for i := range batch.Entries {
			in := batch.Entries[i]
			entry := &models.TimeEntry{
				JobID:          in.JobID,
				EmployeeID:     batch.EmployeeID,
				WorkDate:       batch.WorkDate,
				HoursWorked:    in.Hours,
				BillableRate:   decimal.Zero,
				PayRate:        payRate,
				WeekEndingDate: batch.WeekEndingDate,
				Notes:          in.Notes,
				EnteredBy:      actor.Username,
			}
			if in.JobID != nil {
				job, err := directory.GetJob(ctx, *in.JobID)
				if err != nil {
					return err
				}
				if entry.BillableRate, err = directory.BillingRate(ctx, job, batch.WorkDate); err != nil {
					return err
				}
			} else {
				category := models.TimeCategory(*in.Category)
				entry.Category = &category
			}

			if err := entries.Upsert(ctx, entry); err != nil {
				return err
			}
			recorded = append(recorded, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id": batch.EmployeeID,
		"work_date":   batch.WorkDate.Format(models.DateLayout),
		"entries":     len(recorded),
		"actor":       actor.Username,
	}).Info("Time entries recorded")

	return recorded, nil
}

// UpdateTimeEntry edits hours and/or notes. Captured rates are kept.
func (s *TimeLedgerService) UpdateTimeEntry(ctx context.Context, actor models.Actor, id int64, req *models.UpdateTimeEntryRequest) (*models.TimeEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *models.TimeEntry
	err := s.db.WithTx(ctx, func(tx database.Queryer) error {
		entries := s.entries.WithTx(tx)

		if err := database.LockWeekShared(ctx, tx); err != nil {
			return err
		}
		current, err := s.editable(ctx, entries, actor, id)
		if err != nil {
			return err
		}

		if req.Hours != nil {
			day, err := entries.ListForEmployeeDate(ctx, current.EmployeeID, current.WorkDate)
			if err != nil {
				return err
			}
			total := *req.Hours
			for i := range day {
				if day[i].ID != current.ID {
					total = total.Add(day[i].HoursWorked)
				}
			}
			if total.GreaterThan(models.MaxDailyHours) {
				return &models.InvalidHoursError{Index: -1, Message: fmt.Sprintf(
					"day would total %s hours, more than %s", total.String(), models.MaxDailyHours.String())}
			}
		}

		updated, err = entries.Update(ctx, id, req.Hours, req.Notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTimeEntry soft-deletes an entry in an open week
func (s *TimeLedgerService) DeleteTimeEntry(ctx context.Context, actor models.Actor, id int64) error {
	return s.db.WithTx(ctx, func(tx database.Queryer) error {
		entries := s.entries.WithTx(tx)

		if err := database.LockWeekShared(ctx, tx); err != nil {
			return err
		}
		if _, err := s.editable(ctx, entries, actor, id); err != nil {
			return err
		}
		return entries.SoftDelete(ctx, id, s.now().UTC())
	})
}

// JobLaborSummary rolls up hours, labor cost, revenue and margin for a job
func (s *TimeLedgerService) JobLaborSummary(ctx context.Context, jobID int64) (*models.JobLaborSummary, error) {
	if _, err := s.directory.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.entries.JobLaborSummary(ctx, jobID)
}

// EmployeeWeekSummary returns the payroll week containing date
func (s *TimeLedgerService) EmployeeWeekSummary(ctx context.Context, actor models.Actor, employeeID string, date time.Time) (*models.EmployeeWeekSummary, error) {
	if !actor.CanActFor(employeeID) {
		return nil, models.ErrForbidden
	}
	weekEnding := models.WeekEndingDate(date)

	entries, err := s.entries.ListForEmployeeWeek(ctx, employeeID, weekEnding)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	locked, err := s.entries.IsWeekLocked(ctx, employeeID, weekEnding, models.IsWeekCompleted(weekEnding, now), now)
	if err != nil {
		return nil, err
	}

	summary := models.SummarizeWeek(employeeID, weekEnding, entries)
	summary.IsLocked = locked
	return summary, nil
}

func (s *TimeLedgerService) requireOpenWeek(ctx context.Context, entries *database.TimeEntryRepository, employeeID string, weekEnding time.Time) error {
	now := s.now().UTC()
	locked, err := entries.IsWeekLocked(ctx, employeeID, weekEnding, models.IsWeekCompleted(weekEnding, now), now)
	if err != nil {
		return err
	}
	if locked {
		return &models.WeekLockedError{EmployeeID: employeeID, WeekEndingDate: weekEnding}
	}
	return nil
}

// editable loads an entry for update and refuses locked or foreign rows
func (s *TimeLedgerService) editable(ctx context.Context, entries *database.TimeEntryRepository, actor models.Actor, id int64) (*models.TimeEntry, error) {
	current, err := entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(current.EmployeeID) {
		return nil, models.ErrForbidden
	}
	if current.IsLocked {
		return nil, &models.WeekLockedError{EmployeeID: current.EmployeeID, WeekEndingDate: current.WeekEndingDate}
	}
	return current, nil
}
