package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// WebhookGateway posts messages as JSON to a manager-facing endpoint
type WebhookGateway struct {
	url    string
	token  string
	client *http.Client
	logger *logrus.Logger
}

// WebhookConfig holds configuration for the webhook gateway
type WebhookConfig struct {
	URL     string
	Token   string // Optional: sent as a bearer token
	Timeout time.Duration
}

// NewWebhookGateway creates a new webhook gateway client
func NewWebhookGateway(config WebhookConfig, logger *logrus.Logger) *WebhookGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookGateway{
		url:    config.URL,
		token:  config.Token,
		logger: logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WebhookResponse is the optional acknowledgement body
type WebhookResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// Send posts msg and treats any non-2xx status as a failure
func (w *WebhookGateway) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notification-ID", msg.ID)
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("failed to read notification response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected with status %d: %s", resp.StatusCode, string(respBody))
	}

	var ack WebhookResponse
	if len(respBody) > 0 && json.Unmarshal(respBody, &ack) == nil && ack.Status == "error" {
		return fmt.Errorf("notification rejected: %s", ack.Comment)
	}

	if w.logger != nil {
		w.logger.WithFields(logrus.Fields{
			"notification_id": msg.ID,
			"type":            msg.Type,
			"status":          resp.StatusCode,
		}).Debug("Notification delivered")
	}
	return nil
}

// GetName returns the gateway name
func (w *WebhookGateway) GetName() string {
	return "webhook"
}

// LogGateway only logs messages. Used in development mode.
type LogGateway struct {
	logger *logrus.Logger
}

// NewLogGateway creates a new log-only gateway
func NewLogGateway(logger *logrus.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Send logs msg at info level
func (l *LogGateway) Send(ctx context.Context, msg Message) error {
	l.logger.WithFields(logrus.Fields{
		"notification_id": msg.ID,
		"type":            msg.Type,
		"urgent":          msg.Urgent,
		"payload":         msg.Payload,
	}).Info("[DEV MODE] " + msg.Subject)
	return nil
}

// GetName returns the gateway name
func (l *LogGateway) GetName() string {
	return "log"
}
