package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// CallOutService marks an employee unavailable and pulls them off every
// affected crew in one transaction
type CallOutService struct {
	db           database.DB
	assignments  *database.ScheduleAssignmentRepository
	availability *database.AvailabilityRepository
	directory    *database.DirectoryRepository
	audit        *AuditService
	notifier     *NotificationService
	logger       *logrus.Logger
	now          func() time.Time
}

// NewCallOutService creates a new CallOutService
func NewCallOutService(
	db database.DB,
	audit *AuditService,
	notifier *NotificationService,
	logger *logrus.Logger,
) *CallOutService {
	return &CallOutService{
		db:           db,
		assignments:  database.NewScheduleAssignmentRepository(db),
		availability: database.NewAvailabilityRepository(db),
		directory:    database.NewDirectoryRepository(db),
		audit:        audit,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// ProcessCallOut records an approved absence (reusing an identical one) and,
// when requested, removes the employee from every assignment in the range.
// Managers are notified after commit.
func (s *CallOutService) ProcessCallOut(ctx context.Context, actor models.Actor, req *models.CallOutRequest) (*models.CallOutReport, error) {
	callOut, err := req.Parse()
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(callOut.EmployeeID) {
		return nil, models.ErrForbidden
	}

	dates := models.DatesInRange(callOut.StartDate, callOut.EndDate)
	if len(dates) > MaxScheduleRangeDays {
		return nil, models.ErrInvalidInput(fmt.Sprintf("call-out covers %d days, at most %d allowed", len(dates), MaxScheduleRangeDays))
	}

	var report *models.CallOutReport
	err = s.db.WithTx(ctx, func(tx database.Queryer) error {
		report = &models.CallOutReport{
			EmployeeID:      callOut.EmployeeID,
			UnavailableFrom: callOut.StartDate.Format(models.DateLayout),
			UnavailableTo:   callOut.EndDate.Format(models.DateLayout),
			Reason:          callOut.Reason,
			AffectedJobs:    []models.AffectedJob{},
		}
		assignments := s.assignments.WithTx(tx)
		availability := s.availability.WithTx(tx)

		if _, err := s.directory.WithTx(tx).GetEmployee(ctx, callOut.EmployeeID); err != nil {
			return err
		}

		// Same keys AssignCrew takes, so no assignment lands mid call-out
		keys := make([]string, 0, len(dates))
		for _, d := range dates {
			keys = append(keys, employeeDateKey(callOut.EmployeeID, d))
		}
		if err := database.LockKeys(ctx, tx, keys); err != nil {
			return err
		}

		existing, err := availability.FindApproved(ctx, callOut.EmployeeID, callOut.StartDate, callOut.EndDate, callOut.Reason)
		if err != nil {
			return err
		}
		if existing != nil {
			report.AvailabilityID = existing.ID
			report.Reused = true
		} else {
			reviewedAt := s.now().UTC()
			rec := &models.AvailabilityRecord{
				EmployeeID:  callOut.EmployeeID,
				StartDate:   callOut.StartDate,
				EndDate:     callOut.EndDate,
				Reason:      callOut.Reason,
				Status:      models.ApprovalApproved,
				AllDay:      true,
				Notes:       callOut.Notes,
				RequestedBy: actor.Username,
				ReviewedBy:  &actor.Username,
				ReviewedAt:  &reviewedAt,
			}
			if err := availability.Create(ctx, rec); err != nil {
				return err
			}
			report.AvailabilityID = rec.ID
		}

		if callOut.RemoveFromSchedule {
			rows, err := assignments.ListForEmployeeInRange(ctx, callOut.EmployeeID, callOut.StartDate, callOut.EndDate, true)
			if err != nil {
				return err
			}
			for _, row := range rows {
				if err := assignments.Delete(ctx, row.ID); err != nil {
					return err
				}
				promoted, remaining, err := promoteLead(ctx, assignments, row.JobID, row.WorkDate, row.IsLead)
				if err != nil {
					return err
				}
				report.AffectedJobs = append(report.AffectedJobs, models.AffectedJob{
					JobID:             row.JobID,
					Date:              row.WorkDate.Format(models.DateLayout),
					WasLead:           row.IsLead,
					PromotedTo:        promoted,
					RemainingCrew:     remaining,
					NeedsReassignment: len(remaining) == 0,
				})
			}
		}

		return s.audit.LogEvent(ctx, tx, NewAuditEvent(actor, AuditCallOut, "availability_record", report.AvailabilityID, map[string]interface{}{
			"employee_id":          callOut.EmployeeID,
			"unavailable_from":     report.UnavailableFrom,
			"unavailable_to":       report.UnavailableTo,
			"reason":               callOut.Reason,
			"reused":               report.Reused,
			"remove_from_schedule": callOut.RemoveFromSchedule,
			"affected_jobs":        len(report.AffectedJobs),
		}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id":     report.EmployeeID,
		"availability_id": report.AvailabilityID,
		"affected_jobs":   len(report.AffectedJobs),
		"needs_attention": report.NeedsAttention(),
		"actor":           actor.Username,
	}).Info("Call-out processed")

	s.notifier.NotifyCallOut(ctx, report)
	return report, nil
}
