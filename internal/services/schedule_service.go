package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxScheduleRangeDays bounds schedule reads and call-out ranges
const MaxScheduleRangeDays = 366

// ScheduleService handles business logic for crew assignments
type ScheduleService struct {
	db          database.DB
	assignments *database.ScheduleAssignmentRepository
	directory   *database.DirectoryRepository
	conflicts   *ConflictService
	audit       *AuditService
	logger      *logrus.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	db database.DB,
	conflicts *ConflictService,
	audit *AuditService,
	logger *logrus.Logger,
) *ScheduleService {
	return &ScheduleService{
		db:          db,
		assignments: database.NewScheduleAssignmentRepository(db),
		directory:   database.NewDirectoryRepository(db),
		conflicts:   conflicts,
		audit:       audit,
		logger:      logger,
	}
}

// AssignCrew writes every (employee, date) pair that passes conflict
// detection and reports the rest. Blocking pairs are never written; schedule
// conflicts are written only with override and are audited.
func (s *ScheduleService) AssignCrew(ctx context.Context, actor models.Actor, jobID int64, req *models.AssignCrewRequest) (*models.AssignCrewResult, error) {
	plan, err := req.Parse(jobID, s.conflicts.DefaultWindow())
	if err != nil {
		return nil, err
	}

	var result *models.AssignCrewResult
	err = s.db.WithTx(ctx, func(tx database.Queryer) error {
		result = &models.AssignCrewResult{
			Created:   []models.ScheduleAssignment{},
			Conflicts: []models.PairConflict{},
		}
		assignments := s.assignments.WithTx(tx)
		directory := s.directory.WithTx(tx)

		job, err := directory.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return &models.JobClosedError{JobID: job.ID, Status: job.Status}
		}
		if err := directory.RequireActiveEmployees(ctx, plan.Employees); err != nil {
			return err
		}

		keys := make([]string, 0, len(plan.Dates)*len(plan.Employees))
		for _, d := range plan.Dates {
			for _, e := range plan.Employees {
				keys = append(keys, employeeDateKey(e, d))
			}
		}
		if err := database.LockKeys(ctx, tx, keys); err != nil {
			return err
		}

		for _, date := range plan.Dates {
			// Lead goes first so ClearLead runs before the other rows are returned
			for _, employeeID := range leadFirst(plan.Employees, plan.LeadEmployee) {
				var exclude *int64
				existing, err := assignments.GetByKey(ctx, jobID, date, employeeID)
				switch {
				case err == nil:
					exclude = &existing.ID
				case !errors.Is(err, models.ErrNotFound):
					return err
				}

				check, err := s.conflicts.check(ctx, tx, employeeID, date, plan.Window, exclude)
				if err != nil {
					return err
				}

				overridden := false
				switch check.Kind {
				case models.ConflictBlocking:
					result.Conflicts = append(result.Conflicts, pairConflict(employeeID, date, check))
					continue
				case models.ConflictSchedule:
					if !plan.Override {
						result.Conflicts = append(result.Conflicts, pairConflict(employeeID, date, check))
						continue
					}
					overridden = true
				}

				isLead := plan.LeadEmployee != nil && *plan.LeadEmployee == employeeID
				if isLead {
					if err := assignments.ClearLead(ctx, jobID, date); err != nil {
						return err
					}
				}

				row := &models.ScheduleAssignment{
					JobID:          jobID,
					WorkDate:       date,
					EmployeeID:     employeeID,
					IsLead:         isLead,
					StartTime:      plan.Window.Start,
					EndTime:        plan.Window.End,
					ScheduledHours: plan.ScheduledHours,
					Overridden:     overridden,
					AssignedBy:     actor.Username,
				}
				if overridden {
					row.OverrideReason = plan.OverrideReason
				}
				if err := assignments.Upsert(ctx, row); err != nil {
					return err
				}

				if overridden {
					if err := s.audit.LogEvent(ctx, tx, NewAuditEvent(actor, AuditScheduleOverride, "schedule_assignment", row.ID, map[string]interface{}{
						"job_id":          jobID,
						"employee_id":     employeeID,
						"work_date":       date.Format(models.DateLayout),
						"window":          plan.Window.String(),
						"conflicts":       check.Schedule,
						"override_reason": plan.OverrideReason,
					})); err != nil {
						return err
					}
				}

				result.Created = append(result.Created, *row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":    jobID,
		"actor":     actor.Username,
		"created":   len(result.Created),
		"conflicts": len(result.Conflicts),
	}).Info("Crew assigned")

	return result, nil
}

// RemoveCrew deletes one assignment. Removing the lead promotes the
// earliest-assigned remaining member.
func (s *ScheduleService) RemoveCrew(ctx context.Context, actor models.Actor, jobID int64, date time.Time, employeeID string) (*models.RemoveCrewResult, error) {
	date = models.DateOnly(date)

	var result *models.RemoveCrewResult
	err := s.db.WithTx(ctx, func(tx database.Queryer) error {
		assignments := s.assignments.WithTx(tx)

		if err := database.LockKeys(ctx, tx, []string{employeeDateKey(employeeID, date)}); err != nil {
			return err
		}

		existing, err := assignments.GetByKey(ctx, jobID, date, employeeID)
		if err != nil {
			return err
		}
		if err := assignments.Delete(ctx, existing.ID); err != nil {
			return err
		}

		promoted, remaining, err := promoteLead(ctx, assignments, jobID, date, existing.IsLead)
		if err != nil {
			return err
		}

		result = &models.RemoveCrewResult{
			Removed:           *existing,
			PromotedTo:        promoted,
			RemainingCrew:     remaining,
			NeedsReassignment: len(remaining) == 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":      jobID,
		"employee_id": employeeID,
		"work_date":   date.Format(models.DateLayout),
		"actor":       actor.Username,
		"promoted":    result.PromotedTo != nil,
	}).Info("Crew member removed")

	return result, nil
}

// UpdateAssignment changes one assignment's window, hours or lead flag. A new
// window is checked against the employee's other assignments that day.
func (s *ScheduleService) UpdateAssignment(ctx context.Context, actor models.Actor, id int64, req *models.UpdateAssignmentRequest) (*models.ScheduleAssignment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *models.ScheduleAssignment
	err := s.db.WithTx(ctx, func(tx database.Queryer) error {
		assignments := s.assignments.WithTx(tx)

		a, err := assignments.GetByID(ctx, id, true)
		if err != nil {
			return err
		}

		job, err := s.directory.WithTx(tx).GetJob(ctx, a.JobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return &models.JobClosedError{JobID: job.ID, Status: job.Status}
		}

		if err := database.LockKeys(ctx, tx, []string{employeeDateKey(a.EmployeeID, a.WorkDate)}); err != nil {
			return err
		}

		changed := false
		if req.StartTime != nil {
			window, err := models.ParseTimeWindow(req.StartTime, req.EndTime, a.Window())
			if err != nil {
				return err
			}

			check, err := s.conflicts.check(ctx, tx, a.EmployeeID, a.WorkDate, window, &a.ID)
			if err != nil {
				return err
			}
			switch {
			case check.IsBlocking():
				return check.AsError(a.EmployeeID, a.WorkDate)
			case check.Kind == models.ConflictSchedule && !req.Override:
				return check.AsError(a.EmployeeID, a.WorkDate)
			}

			a.StartTime, a.EndTime = window.Start, window.End
			a.ScheduledHours = window.Hours()
			a.Overridden = check.Kind == models.ConflictSchedule
			a.OverrideReason = nil
			if a.Overridden {
				a.OverrideReason = req.OverrideReason
				if err := s.audit.LogEvent(ctx, tx, NewAuditEvent(actor, AuditScheduleOverride, "schedule_assignment", a.ID, map[string]interface{}{
					"job_id":          a.JobID,
					"employee_id":     a.EmployeeID,
					"work_date":       a.WorkDate.Format(models.DateLayout),
					"window":          window.String(),
					"conflicts":       check.Schedule,
					"override_reason": req.OverrideReason,
				})); err != nil {
					return err
				}
			}
			changed = true
		}
		if req.ScheduledHours != nil {
			a.ScheduledHours = *req.ScheduledHours
			changed = true
		}
		if changed {
			if err := assignments.UpdateWindow(ctx, a); err != nil {
				return err
			}
		}

		if req.IsLead != nil && *req.IsLead != a.IsLead {
			if err := assignments.ClearLead(ctx, a.JobID, a.WorkDate); err != nil {
				return err
			}
			if *req.IsLead {
				if err := assignments.SetLead(ctx, a.ID); err != nil {
					return err
				}
			}
			a.IsLead = *req.IsLead
		}

		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListJobCrew returns a job's crew on date, earliest assigned first
func (s *ScheduleService) ListJobCrew(ctx context.Context, jobID int64, date time.Time) ([]models.ScheduleAssignment, error) {
	if _, err := s.directory.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.assignments.ListCrew(ctx, jobID, models.DateOnly(date))
}

// ListEmployeeSchedule returns an employee's assignments between from and to inclusive
func (s *ScheduleService) ListEmployeeSchedule(ctx context.Context, employeeID string, from, to time.Time) ([]models.ScheduleAssignment, error) {
	from, to = models.DateOnly(from), models.DateOnly(to)
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return s.assignments.ListForEmployeeInRange(ctx, employeeID, from, to, false)
}

// promoteLead lists the crew left on (job, date) after a removal and, when
// the removed member was lead, promotes the earliest-assigned one
func promoteLead(ctx context.Context, assignments *database.ScheduleAssignmentRepository, jobID int64, date time.Time, wasLead bool) (*string, []string, error) {
	crew, err := assignments.ListCrew(ctx, jobID, date)
	if err != nil {
		return nil, nil, err
	}

	remaining := make([]string, 0, len(crew))
	hasLead := false
	for _, c := range crew {
		remaining = append(remaining, c.EmployeeID)
		hasLead = hasLead || c.IsLead
	}
	if !wasLead || hasLead || len(crew) == 0 {
		return nil, remaining, nil
	}

	next := crew[0]
	if err := assignments.SetLead(ctx, next.ID); err != nil {
		return nil, nil, err
	}
	return &next.EmployeeID, remaining, nil
}

func employeeDateKey(employeeID string, date time.Time) string {
	return "schedule:" + employeeID + ":" + date.Format(models.DateLayout)
}

func leadFirst(employees []string, lead *string) []string {
	if lead == nil {
		return employees
	}
	ordered := make([]string, 0, len(employees))
	ordered = append(ordered, *lead)
	for _, e := range employees {
		if e != *lead {
			ordered = append(ordered, e)
		}
	}
	return ordered
}

func pairConflict(employeeID string, date time.Time, result models.ConflictResult) models.PairConflict {
	return models.PairConflict{
		EmployeeID: employeeID,
		Date:       date.Format(models.DateLayout),
		Result:     result,
	}
}

func validateRange(from, to time.Time) error {
	if to.Before(from) {
		return models.ErrInvalidInput("to must not be before from")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxScheduleRangeDays {
		return models.ErrInvalidInput(fmt.Sprintf("range covers %d days, at most %d allowed", days, MaxScheduleRangeDays))
	}
	return nil
}
