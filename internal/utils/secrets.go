package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a cryptographically secure random hex secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Secrets are the values an operator pastes into .env on first deploy
type Secrets struct {
	JWTSecret          string
	NotifyWebhookToken string
}

// GenerateSecrets generates the JWT signing secret and the webhook bearer token
func GenerateSecrets() (*Secrets, error) {
	access, err := GenerateSecret(32) // 256-bit
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	webhook, err := GenerateSecret(24)
	if err != nil {
		return nil, fmt.Errorf("failed to generate webhook token: %w", err)
	}
	return &Secrets{
		JWTSecret:          access,
		NotifyWebhookToken: webhook,
	}, nil
}
