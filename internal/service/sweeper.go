package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"climatrack/internal/metrics"
	"climatrack/internal/repository"
)

// Sweeper deletes expired reset tokens and login attempts past retention.
type Sweeper struct {
	tokens    repository.ResetTokenRepository
	attempts  repository.LoginAttemptRepository
	retention time.Duration
	now       Clock
	log       zerolog.Logger
}

// NewSweeper creates a sweeper. now may be nil.
func NewSweeper(
	tokens repository.ResetTokenRepository,
	attempts repository.LoginAttemptRepository,
	retention time.Duration,
	now Clock,
	log zerolog.Logger,
) *Sweeper {
	if now == nil {
		now = utcNow
	}
	if retention < recentAttemptsWindow {
		retention = recentAttemptsWindow
	}
	return &Sweeper{tokens: tokens, attempts: attempts, retention: retention, now: now, log: log}
}

// Sweep runs one pass and returns the number of rows removed per table.
func (s *Sweeper) Sweep(ctx context.Context) (tokens, attempts int64, err error) {
	now := s.now()

	tokens, err = s.tokens.DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	metrics.SweptRowsTotal.WithLabelValues("password_reset_tokens").Add(float64(tokens))

	attempts, err = s.attempts.DeleteBefore(ctx, now.Add(-s.retention))
	if err != nil {
		return tokens, 0, err
	}
	metrics.SweptRowsTotal.WithLabelValues("login_attempts").Add(float64(attempts))
	return tokens, attempts, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tokens, attempts, err := s.Sweep(ctx)
			if err != nil {
				s.log.Warn().Err(err).Msg("sweep failed")
				continue
			}
			if tokens > 0 || attempts > 0 {
				s.log.Info().Int64("reset_tokens", tokens).Int64("login_attempts", attempts).Msg("sweep completed")
			}
		}
	}
}
