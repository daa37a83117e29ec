package services

import (
	"context"
	"fmt"

	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/pkg/notify"
	"github.com/sirupsen/logrus"
)

// Notification message types
const (
	NotifyTypeCallOut  = "call_out"
	NotifyTypeWeekLock = "week_lock"
)

// NotificationService tells managers about committed changes. Delivery
// failures are logged and never reach the caller.
type NotificationService struct {
	gateway notify.Gateway
	logger  *logrus.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(gateway notify.Gateway, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		gateway: gateway,
		logger:  logger,
	}
}

// NotifyCallOut sends the cascade report. Urgent when a crew was left empty.
func (s *NotificationService) NotifyCallOut(ctx context.Context, report *models.CallOutReport) {
	if s == nil || report == nil {
		return
	}

	subject := fmt.Sprintf("%s unavailable %s to %s (%s)",
		report.EmployeeID, report.UnavailableFrom, report.UnavailableTo, report.Reason)
	if n := len(report.AffectedJobs); n > 0 {
		subject = fmt.Sprintf("%s, %d job day(s) affected", subject, n)
	}

	s.send(ctx, notify.NewMessage(NotifyTypeCallOut, subject, report.NeedsAttention(), report))
}

// NotifyWeekLock sends a lock or unlock event
func (s *NotificationService) NotifyWeekLock(ctx context.Context, event models.WeekLockEvent) {
	if s == nil {
		return
	}

	subject := fmt.Sprintf("%s: %d entries by %s", event.Action, event.RowsAffected, event.Actor)
	if event.WeekEndingDate != nil {
		subject = fmt.Sprintf("%s (week ending %s)", subject, *event.WeekEndingDate)
	}

	s.send(ctx, notify.NewMessage(NotifyTypeWeekLock, subject, event.Action == models.WeekUnlock, event))
}

func (s *NotificationService) send(ctx context.Context, msg notify.Message) {
	fields := logrus.Fields{
		"notification_id": msg.ID,
		"type":            msg.Type,
		"gateway":         s.gateway.GetName(),
		"urgent":          msg.Urgent,
	}

	if err := s.gateway.Send(ctx, msg); err != nil {
		s.logger.WithFields(fields).WithError(err).Error("Failed to deliver notification")
		return
	}
	s.logger.WithFields(fields).Info(msg.Subject)
}
