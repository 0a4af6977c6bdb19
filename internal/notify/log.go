package notify

import (
	"context"

	"github.com/rs/zerolog"

	"climatrack/internal/metrics"
)

// LogNotifier only logs. The reset link is written at debug level so a
// developer can follow it locally; it never shows at the default level.
type LogNotifier struct {
	log zerolog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyPasswordReset(_ context.Context, msg ResetNotification) error {
	n.log.Info().
		Str("recipient", msg.RecipientEmail).
		Time("expires_at", msg.ExpiresAt).
		Msg("password reset requested (no mail transport configured)")
	n.log.Debug().Str("reset_url", msg.ResetURL).Msg("password reset link")
	metrics.NotificationsTotal.WithLabelValues("log", "ok").Inc()
	return nil
}

func (n *LogNotifier) Close() error { return nil }
