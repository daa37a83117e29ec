package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/sirupsen/logrus"
)

// WeekLockService freezes completed payroll weeks. Lock and unlock hold the
// exclusive week lock so they never interleave with a ledger write.
type WeekLockService struct {
	db        database.DB
	entries   *database.TimeEntryRepository
	directory *database.DirectoryRepository
	audit     *AuditService
	notifier  *NotificationService
	logger    *logrus.Logger
	grace     time.Duration
	now       func() time.Time
}

// NewWeekLockService creates a new WeekLockService. grace is how long an
// admin unlock holds off the scheduled relock.
func NewWeekLockService(
	db database.DB,
	audit *AuditService,
	notifier *NotificationService,
	logger *logrus.Logger,
	grace time.Duration,
) *WeekLockService {
	return &WeekLockService{
		db:        db,
		entries:   database.NewTimeEntryRepository(db),
		directory: database.NewDirectoryRepository(db),
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
		grace:     grace,
		now:       time.Now,
	}
}

// LockCompletedWeeks locks every entry whose week ended before the week
// containing asOf. Running it twice locks nothing the second time.
func (s *WeekLockService) LockCompletedWeeks(ctx context.Context, asOf time.Time) (int64, error) {
	cutoff := models.WeekEndingDate(asOf)
	now := s.now().UTC()

	var locked int64
	err := s.db.WithTx(ctx, func(tx database.Queryer) error {
		if err := database.LockWeekExclusive(ctx, tx); err != nil {
			return err
		}

		n, err := s.entries.WithTx(tx).LockCompletedWeeks(ctx, cutoff, now)
		if err != nil {
			return err
		}
		locked = n
		if n == 0 {
			return nil
		}

		return s.audit.LogEvent(ctx, tx, NewAuditEvent(models.SystemActor, AuditWeekLock, "time_entry_week", "before:"+cutoff.Format(models.DateLayout), map[string]interface{}{
			"cutoff":        cutoff.Format(models.DateLayout),
			"rows_affected": n,
			"scheduled":     true,
		}))
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"cutoff": cutoff.Format(models.DateLayout),
		"locked": locked,
	}).Info("Completed weeks locked")

	if locked > 0 {
		s.notifier.NotifyWeekLock(ctx, models.WeekLockEvent{
			Action:       models.WeekLockScheduled,
			RowsAffected: locked,
			Actor:        models.SystemActor.Username,
			At:           now,
		})
	}
	return locked, nil
}

// LockWeek locks one completed week now and ends any unlock grace period
// for it. A nil employeeID locks the week for everyone.
func (s *WeekLockService) LockWeek(ctx context.Context, actor models.Actor, req *models.LockWeekRequest) (*models.WeekLockResult, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	weekEnding, err := req.Parse()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !models.IsWeekCompleted(weekEnding, now) {
		return nil, models.ErrInvalidInput(fmt.Sprintf("week ending %s has not finished", weekEnding.Format(models.DateLayout)))
	}

	var locked int64
	err = s.db.WithTx(ctx, func(tx database.Queryer) error {
		if err := database.LockWeekExclusive(ctx, tx); err != nil {
			return err
		}

		entries := s.entries.WithTx(tx)
		n, err := entries.LockWeek(ctx, weekEnding, req.EmployeeID, now)
		if err != nil {
			return err
		}
		locked = n
		if err := entries.ClearUnlocks(ctx, weekEnding, req.EmployeeID); err != nil {
			return err
		}

		return s.audit.LogEvent(ctx, tx, NewAuditEvent(actor, AuditWeekLock, "time_entry_week", weekKey(req.EmployeeID, weekEnding), map[string]interface{}{
			"week_ending_date": weekEnding.Format(models.DateLayout),
			"employee_id":      req.EmployeeID,
			"rows_affected":    n,
		}))
	})
	if err != nil {
		return nil, err
	}

	week := weekEnding.Format(models.DateLayout)
	s.notifier.NotifyWeekLock(ctx, models.WeekLockEvent{
		Action:         models.WeekLockManual,
		WeekEndingDate: &week,
		EmployeeID:     req.EmployeeID,
		RowsAffected:   locked,
		Actor:          actor.Username,
		At:             now,
	})
	return &models.WeekLockResult{Locked: locked}, nil
}

// UnlockWeek reopens one employee's completed week until the grace period
// runs out. The unlock is recorded even when the employee has no entries in
// the week yet, so a missed week can still be filled in. Admin only; the
// reason is audited in the same transaction.
func (s *WeekLockService) UnlockWeek(ctx context.Context, actor models.Actor, req *models.UnlockWeekRequest) (*models.WeekUnlockResult, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	weekEnding, err := req.Parse()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !models.IsWeekCompleted(weekEnding, now) {
		return nil, models.ErrInvalidInput(fmt.Sprintf("week ending %s has not finished", weekEnding.Format(models.DateLayout)))
	}
	relockAfter := now.Add(s.grace)

	var unlocked int64
	err = s.db.WithTx(ctx, func(tx database.Queryer) error {
		if err := database.LockWeekExclusive(ctx, tx); err != nil {
			return err
		}

		if _, err := s.directory.WithTx(tx).GetEmployee(ctx, req.EmployeeID); err != nil {
			return err
		}

		entries := s.entries.WithTx(tx)
		n, err := entries.UnlockWeek(ctx, req.EmployeeID, weekEnding, relockAfter)
		if err != nil {
			return err
		}
		unlocked = n
		if err := entries.RecordUnlock(ctx, req.EmployeeID, weekEnding, relockAfter, req.Reason, actor.Username); err != nil {
			return err
		}

		return s.audit.LogEvent(ctx, tx, NewAuditEvent(actor, AuditWeekUnlock, "time_entry_week", weekKey(&req.EmployeeID, weekEnding), map[string]interface{}{
			"week_ending_date": weekEnding.Format(models.DateLayout),
			"employee_id":      req.EmployeeID,
			"reason":           req.Reason,
			"rows_affected":    n,
			"relock_after":     relockAfter,
		}))
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"employee_id":      req.EmployeeID,
		"week_ending_date": weekEnding.Format(models.DateLayout),
		"unlocked":         unlocked,
		"actor":            actor.Username,
	}).Warn("Payroll week unlocked")

	week := weekEnding.Format(models.DateLayout)
	reason := req.Reason
	s.notifier.NotifyWeekLock(ctx, models.WeekLockEvent{
		Action:         models.WeekUnlock,
		WeekEndingDate: &week,
		EmployeeID:     &req.EmployeeID,
		RowsAffected:   unlocked,
		Actor:          actor.Username,
		Reason:         &reason,
		At:             now,
	})
	return &models.WeekUnlockResult{Unlocked: unlocked, RelockAfter: relockAfter}, nil
}

func weekKey(employeeID *string, weekEnding time.Time) string {
	if employeeID == nil {
		return "*:" + weekEnding.Format(models.DateLayout)
	}
	return *employeeID + ":" + weekEnding.Format(models.DateLayout)
}
