package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/metrics"
	"climatrack/internal/model"
	"climatrack/internal/notify"
	"climatrack/internal/repository"
)

// ResetOptions configures reset links.
type ResetOptions struct {
	BaseURL string
	Path    string
	TTL     time.Duration
}

// PasswordResetService runs the forgot-password flow.
type PasswordResetService interface {
	// RequestReset issues a token for a known email. Unknown emails return nil
	// too, so callers cannot tell which accounts exist.
	RequestReset(ctx context.Context, email, ip string) error
	// ValidateToken is read only and returns the token owner.
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
	// ConsumeReset sets a new password and burns every token of the owner.
	ConsumeReset(ctx context.Context, token, newPassword, ip string) error
}

type passwordResetService struct {
	tx       repository.Transactor
	users    repository.UserRepository
	tokens   repository.ResetTokenRepository
	policy   *PasswordPolicy
	hasher   auth.PasswordHasher
	notifier notify.Notifier
	activity ActivityService
	opts     ResetOptions
	now      Clock
	log      zerolog.Logger
}

// NewPasswordResetService creates a reset service. now may be nil.
func NewPasswordResetService(
	tx repository.Transactor,
	users repository.UserRepository,
	tokens repository.ResetTokenRepository,
	policy *PasswordPolicy,
	hasher auth.PasswordHasher,
	notifier notify.Notifier,
	activity ActivityService,
	opts ResetOptions,
	now Clock,
	log zerolog.Logger,
) PasswordResetService {
	if now == nil {
		now = utcNow
	}
	return &passwordResetService{
		tx:       tx,
		users:    users,
		tokens:   tokens,
		policy:   policy,
		hasher:   hasher,
		notifier: notifier,
		activity: activity,
		opts:     opts,
		now:      now,
		log:      log,
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, email, ip string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.PasswordResetsTotal.WithLabelValues("requested", "unknown_email").Inc()
			s.log.Debug().Str("ip", ip).Msg("reset requested for unknown email")
			return nil
		}
		metrics.PasswordResetsTotal.WithLabelValues("requested", "error").Inc()
		return errors.Unavailable(err)
	}

	token, tokenHash, err := auth.NewResetToken()
	if err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("requested", "error").Inc()
		return err
	}
	expiresAt := s.now().Add(s.opts.TTL)

	if err := s.tokens.Create(ctx, &model.PasswordResetToken{
		TokenHash: tokenHash,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("requested", "error").Inc()
		return errors.Unavailable(err)
	}
	metrics.PasswordResetsTotal.WithLabelValues("requested", "ok").Inc()

	err = s.notifier.NotifyPasswordReset(ctx, notify.ResetNotification{
		RecipientEmail: user.Email,
		RecipientName:  user.Name,
		ResetURL:       s.resetURL(token),
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("reset notification not delivered")
	}

	s.activity.Record(ctx, ActivityEntry{UserID: user.ID, Action: model.ActionPasswordResetReq, IP: ip})
	return nil
}

func (s *passwordResetService) resetURL(token string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + s.opts.Path + "?token=" + url.QueryEscape(token)
}

func (s *passwordResetService) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	row, err := s.lookup(ctx, s.tokens, token)
	if err != nil {
		return uuid.Nil, err
	}
	return row.UserID, nil
}

// lookup resolves token through tokens and checks its expiry.
func (s *passwordResetService) lookup(ctx context.Context, tokens repository.ResetTokenRepository, token string) (*model.PasswordResetToken, error) {
	if token == "" {
		return nil, errors.ErrInvalidToken
	}
	row, err := tokens.FindByHash(ctx, auth.HashResetToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInvalidToken
		}
		return nil, errors.Unavailable(err)
	}
	if row.Expired(s.now()) {
		return nil, errors.ErrExpiredToken
	}
	return row, nil
}

func (s *passwordResetService) ConsumeReset(ctx context.Context, token, newPassword, ip string) error {
	// Dead tokens fail before the policy check and before paying for a hash.
	if _, err := s.lookup(ctx, s.tokens, token); err != nil {
		s.countConsume(err)
		return err
	}
	if err := s.policy.Check(ctx, newPassword); err != nil {
		s.countConsume(err)
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.countConsume(err)
		return err
	}

	var owner uuid.UUID
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx *repository.Store) error {
		row, err := s.lookup(ctx, tx.ResetTokens, token)
		if err != nil {
			return err
		}

		claimed, err := tx.ResetTokens.Claim(ctx, row.TokenHash, s.now())
		if err != nil {
			return errors.Unavailable(err)
		}
		if !claimed {
			return errors.ErrInvalidToken
		}

		if err := tx.Users.UpdatePassword(ctx, row.UserID, hash); err != nil {
			return errors.Unavailable(err)
		}
		if _, err := tx.ResetTokens.DeleteByUser(ctx, row.UserID); err != nil {
			return errors.Unavailable(err)
		}
		owner = row.UserID
		return nil
	})
	s.countConsume(err)
	if err != nil {
		return err
	}

	s.log.Info().Str("user_id", owner.String()).Msg("password reset completed")
	s.activity.Record(ctx, ActivityEntry{UserID: owner, Action: model.ActionPasswordReset, IP: ip})
	return nil
}

func (s *passwordResetService) countConsume(err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrInvalidToken):
		result = "invalid"
	case errors.Is(err, errors.ErrExpiredToken):
		result = "expired"
	case errors.Is(err, errors.ErrValidation):
		result = "rejected"
	default:
		result = "error"
	}
	metrics.PasswordResetsTotal.WithLabelValues("consumed", result).Inc()
}
