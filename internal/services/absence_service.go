package services

import (
	"context"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// AbsenceService handles self-service time-off requests and their review.
// Approving a request does not touch the schedule; call-outs do that.
type AbsenceService struct {
	db           database.DB
	availability *database.AvailabilityRepository
	directory    *database.DirectoryRepository
	audit        *AuditService
	logger       *logrus.Logger
	now          func() time.Time
}

// NewAbsenceService creates a new AbsenceService
func NewAbsenceService(db database.DB, audit *AuditService, logger *logrus.Logger) *AbsenceService {
	return &AbsenceService{
		db:           db,
		availability: database.NewAvailabilityRepository(db),
		directory:    database.NewDirectoryRepository(db),
		audit:        audit,
		logger:       logger,
		now:          time.Now,
	}
}

// RequestAbsence records a pending absence
func (s *AbsenceService) RequestAbsence(ctx context.Context, actor models.Actor, req *models.AbsenceRequest) (*models.AvailabilityRecord, error) {
	parsed, err := req.Parse()
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(parsed.EmployeeID) {
		return nil, models.ErrForbidden
	}
	if _, err := s.directory.GetEmployee(ctx, parsed.EmployeeID); err != nil {
		return nil, err
	}

	rec := &models.AvailabilityRecord{
		EmployeeID:  parsed.EmployeeID,
		StartDate:   parsed.StartDate,
		EndDate:     parsed.EndDate,
		Reason:      parsed.Reason,
		Status:      models.ApprovalPending,
		AllDay:      parsed.AllDay,
		Notes:       parsed.Notes,
		RequestedBy: actor.Username,
	}
	if parsed.Window != nil {
		rec.StartTime = &parsed.Window.Start
		rec.EndTime = &parsed.Window.End
	}

	if err := s.availability.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"availability_id": rec.ID,
		"employee_id":     rec.EmployeeID,
		"reason":          rec.Reason,
	}).Info("Absence requested")

	return rec, nil
}

// ReviewAbsence approves or denies a pending absence. The decision is final.
func (s *AbsenceService) ReviewAbsence(ctx context.Context, actor models.Actor, id int64, req *models.ReviewAbsenceRequest) (*models.AvailabilityRecord, error) {
	if !actor.IsManager() {
		return nil, models.ErrForbidden
	}
	status := models.ApprovalStatus(req.Status)
	if status != models.ApprovalApproved && status != models.ApprovalDenied {
		return nil, models.ErrInvalidInput("status must be approved or denied")
	}

	var rec *models.AvailabilityRecord
	err := s.db.WithTx(ctx, func(tx database.Queryer) error {
		availability := s.availability.WithTx(tx)

		current, err := availability.GetByID(ctx, id, true)
		if err != nil {
			return err
		}
		if current.Status != models.ApprovalPending {
			return models.ErrInvalidInput("availability record has already been " + string(current.Status))
		}

		reviewedAt := s.now().UTC()
		current.Status = status
		current.ReviewedBy = &actor.Username
		current.ReviewedAt = &reviewedAt
		current.ReviewNotes = req.Notes
		if err := availability.Review(ctx, current); err != nil {
			return err
		}

		rec = current
		return s.audit.LogEvent(ctx, tx, NewAuditEvent(actor, AuditAbsenceReview, "availability_record", current.ID, map[string]interface{}{
			"employee_id": current.EmployeeID,
			"status":      status,
			"start_date":  current.StartDate.Format(models.DateLayout),
			"end_date":    current.EndDate.Format(models.DateLayout),
		}))
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListAvailability returns an employee's records of any status overlapping [from, to]
func (s *AbsenceService) ListAvailability(ctx context.Context, employeeID string, from, to time.Time) ([]models.AvailabilityRecord, error) {
	from, to = models.DateOnly(from), models.DateOnly(to)
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return s.availability.ListForEmployee(ctx, employeeID, from, to)
}

// ListPendingAbsences returns the review queue
func (s *AbsenceService) ListPendingAbsences(ctx context.Context) ([]models.AvailabilityRecord, error) {
	return s.availability.ListPending(ctx)
}
