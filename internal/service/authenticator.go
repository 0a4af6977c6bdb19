package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/metrics"
	"climatrack/internal/model"
	"climatrack/internal/repository"
)

// Principal is the public view of an authenticated user.
type Principal struct {
	ID    uuid.UUID  `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  model.Role `json:"role"`
}

func principalOf(u *model.User) *Principal {
	return &Principal{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Authenticator checks credentials.
type Authenticator interface {
	// Authenticate returns ErrInvalidCredentials both for an unknown email and a
	// wrong password.
	Authenticate(ctx context.Context, email, password string) (*Principal, error)
}

type authenticator struct {
	users     repository.UserRepository
	hasher    auth.PasswordHasher
	dummyHash string
	log       zerolog.Logger
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(users repository.UserRepository, hasher auth.PasswordHasher, log zerolog.Logger) Authenticator {
	// compared against when the email is unknown so both failures cost one hash
	dummy, _ := hasher.Hash(uuid.NewString())
	return &authenticator{users: users, hasher: hasher, dummyHash: dummy, log: log}
}

func (a *authenticator) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if a.dummyHash != "" {
				_ = a.hasher.Compare(a.dummyHash, password)
			}
			a.log.Debug().Str("reason", "unknown_email").Msg("authentication failed")
			return nil, errors.ErrInvalidCredentials
		}
		return nil, errors.Unavailable(err)
	}

	if err := a.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			a.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("stored password hash unreadable")
		}
		a.log.Debug().Str("reason", "password_mismatch").Str("user_id", user.ID.String()).Msg("authentication failed")
		return nil, errors.ErrInvalidCredentials
	}

	return principalOf(user), nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *Principal `json:"user"`
}

// LoginService runs the full login: throttle check, authentication, ledger
// append and session issue.
type LoginService interface {
	Login(ctx context.Context, email, password, ip string) (*LoginResult, error)
}

type loginService struct {
	authenticator Authenticator
	throttle      LoginThrottle
	sessions      *auth.SessionManager
	activity      ActivityService
	log           zerolog.Logger
}

// NewLoginService creates a login service.
func NewLoginService(
	authenticator Authenticator,
	throttle LoginThrottle,
	sessions *auth.SessionManager,
	activity ActivityService,
	log zerolog.Logger,
) LoginService {
	return &loginService{
		authenticator: authenticator,
		throttle:      throttle,
		sessions:      sessions,
		activity:      activity,
		log:           log,
	}
}

// Login returns ErrThrottled while (email, ip) is locked out. Blocked attempts
// are not appended to the ledger, so they do not extend the lockout.
func (s *loginService) Login(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	status, err := s.throttle.Check(ctx, email, ip)
	if err != nil {
		return nil, err
	}
	if status.IsBlocked {
		metrics.LoginAttemptsTotal.WithLabelValues("blocked").Inc()
		s.log.Warn().Str("ip", ip).Int("attempts", status.Attempts).Msg("login blocked by throttle")
		return nil, errors.ErrThrottled
	}

	principal, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidCredentials) {
			s.throttle.Record(ctx, email, false, ip)
		}
		return nil, err
	}
	s.throttle.Record(ctx, email, true, ip)

	token, expiresAt, err := s.sessions.Issue(principal.ID, principal.Role)
	if err != nil {
		return nil, err
	}

	s.activity.Record(ctx, ActivityEntry{UserID: principal.ID, Action: model.ActionLogin, IP: ip})
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: principal}, nil
}
