package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Gateway delivers manager notifications
type Gateway interface {
	// Send delivers one message. The caller decides what a failure means.
	Send(ctx context.Context, msg Message) error

	// GetName returns the name of the gateway implementation
	GetName() string
}

// Message is the envelope every gateway receives
type Message struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Subject   string      `json:"subject"`
	Urgent    bool        `json:"urgent"`
	Payload   interface{} `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewMessage stamps a message with a fresh id and the current time
func NewMessage(msgType, subject string, urgent bool, payload interface{}) Message {
	return Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Subject:   subject,
		Urgent:    urgent,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}
