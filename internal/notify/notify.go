// Package notify hands outbound messages to whatever delivers them. The API
// never talks SMTP; a mailer consumes the published events.
package notify

import (
	"context"
	"time"
)

// ResetNotification is everything a mailer needs to send a reset link.
type ResetNotification struct {
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name"`
	ResetURL       string    `json:"reset_url"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Notifier delivers notifications.
type Notifier interface {
	NotifyPasswordReset(ctx context.Context, n ResetNotification) error
	Close() error
}
