package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/internal/utils"
	"github.com/sirupsen/logrus"
)

// Audit actions
const (
	AuditScheduleOverride = "schedule_override"
	AuditCallOut          = "call_out"
	AuditAbsenceReview    = "absence_review"
	AuditWeekLock         = "week_lock"
	AuditWeekUnlock       = "week_unlock"
)

// AuditService writes audit_logs rows. It runs on whatever Queryer it is
// handed so the row commits or rolls back with the change it describes.
type AuditService struct {
	enabled bool
	logger  *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(enabled bool, logger *logrus.Logger) *AuditService {
	return &AuditService{
		enabled: enabled,
		logger:  logger,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	Actor      string                 // Username, or "system" for scheduled work
	Action     string                 // e.g. "week_unlock", "schedule_override"
	EntityType string                 // e.g. "time_entry_week", "schedule_assignment"
	EntityID   string                 // Free-form id of the affected entity
	IPAddress  string                 // Client IP address
	UserAgent  string                 // Client user agent
	Details    map[string]interface{} // Additional details as JSONB
}

// NewAuditEvent fills the actor fields from actor
func NewAuditEvent(actor models.Actor, action, entityType string, entityID interface{}, details map[string]interface{}) AuditEvent {
	return AuditEvent{
		Actor:      actor.Username,
		Action:     action,
		EntityType: entityType,
		EntityID:   fmt.Sprint(entityID),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Details:    details,
	}
}

// LogEvent inserts event through q
func (s *AuditService) LogEvent(ctx context.Context, q database.Queryer, event AuditEvent) error {
	if !s.enabled {
		return nil
	}

	details := make(map[string]interface{}, len(event.Details)+1)
	for k, v := range event.Details {
		details[k] = v
	}
	if event.UserAgent != "" {
		details["device_info"] = utils.ParseUserAgent(event.UserAgent)
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	var ip *string
	if event.IPAddress != "" {
		ip = &event.IPAddress
	}

	query := `
		INSERT INTO audit_logs (actor, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = q.ExecContext(ctx, query,
		event.Actor,
		event.Action,
		event.EntityType,
		event.EntityID,
		ip,
		event.UserAgent,
		payload,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"actor":       event.Actor,
		"action":      event.Action,
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID,
	}).Info("Audit event recorded")

	return nil
}
