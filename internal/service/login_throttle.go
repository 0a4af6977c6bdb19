package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"climatrack/internal/errors"
	"climatrack/internal/metrics"
	"climatrack/internal/model"
	"climatrack/internal/repository"
)

const (
	recentAttemptsWindow = 7 * 24 * time.Hour
	recentAttemptsLimit  = 50
)

// ThrottleStatus is the lockout state of an (email, ip) pair.
type ThrottleStatus struct {
	IsBlocked   bool `json:"is_blocked"`
	Attempts    int  `json:"attempts"`
	MaxAttempts int  `json:"max_attempts"`
}

// LoginThrottle reads and appends the login attempt ledger.
type LoginThrottle interface {
	// Check counts failed attempts of (email, ip) inside the lockout window. Read only.
	Check(ctx context.Context, email, ip string) (*ThrottleStatus, error)
	// Record appends an attempt. It never fails the caller.
	Record(ctx context.Context, email string, success bool, ip string)
	// Recent lists the newest attempts of the last seven days.
	Recent(ctx context.Context) ([]model.LoginAttempt, error)
}

type loginThrottle struct {
	attempts repository.LoginAttemptRepository
	settings SecuritySettingsService
	now      Clock
	log      zerolog.Logger
}

// NewLoginThrottle creates a throttle. now may be nil.
func NewLoginThrottle(
	attempts repository.LoginAttemptRepository,
	settings SecuritySettingsService,
	now Clock,
	log zerolog.Logger,
) LoginThrottle {
	if now == nil {
		now = utcNow
	}
	return &loginThrottle{attempts: attempts, settings: settings, now: now, log: log}
}

func (t *loginThrottle) Check(ctx context.Context, email, ip string) (*ThrottleStatus, error) {
	settings, err := t.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	since := t.now().Add(-settings.LockoutWindow())
	failed, err := t.attempts.CountFailedSince(ctx, email, ip, since)
	if err != nil {
		return nil, errors.Unavailable(err)
	}

	return &ThrottleStatus{
		IsBlocked:   failed >= int64(settings.MaxLoginAttempts),
		Attempts:    int(failed),
		MaxAttempts: settings.MaxLoginAttempts,
	}, nil
}

func (t *loginThrottle) Record(ctx context.Context, email string, success bool, ip string) {
	result := "failure"
	if success {
		result = "success"
	}
	metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()

	err := t.attempts.Create(ctx, &model.LoginAttempt{
		Email:     email,
		IPAddress: ip,
		Success:   success,
		CreatedAt: t.now(),
	})
	if err != nil {
		t.log.Warn().Err(err).Str("ip", ip).Bool("success", success).Msg("record login attempt")
	}
}

func (t *loginThrottle) Recent(ctx context.Context) ([]model.LoginAttempt, error) {
	attempts, err := t.attempts.ListSince(ctx, t.now().Add(-recentAttemptsWindow), recentAttemptsLimit)
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	if attempts == nil {
		attempts = []model.LoginAttempt{}
	}
	return attempts, nil
}
