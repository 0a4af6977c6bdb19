package service

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"climatrack/internal/auth"
	"climatrack/internal/db/dbtest"
	"climatrack/internal/model"
	"climatrack/internal/notify"
	"climatrack/internal/repository"
)

// testClock is a settable Clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureNotifier keeps every notification it is handed.
type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.ResetNotification
	err  error
}

func (n *captureNotifier) NotifyPasswordReset(_ context.Context, msg notify.ResetNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *captureNotifier) Close() error { return nil }

func (n *captureNotifier) last(t *testing.T) notify.ResetNotification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no reset notification sent")
	return n.sent[len(n.sent)-1]
}

// token extracts the raw reset token from the last reset link.
func (n *captureNotifier) token(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(n.last(t).ResetURL)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

// testEnv wires the real services over a throwaway SQLite database.
type testEnv struct {
	store    *repository.Store
	clock    *testClock
	hasher   auth.PasswordHasher
	sessions *auth.SessionManager
	notifier *captureNotifier

	activity       ActivityService
	settings       SecuritySettingsService
	policy         *PasswordPolicy
	throttle       LoginThrottle
	authenticator  Authenticator
	login          LoginService
	reset          PasswordResetService
	users          UserService
	climatizadores ClimatizadorService
	manutencoes    ManutencaoService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := zerolog.Nop()
	store := repository.NewStore(dbtest.New(t))
	clock := newTestClock()
	hasher := auth.NewBcryptHasher(4)

	env := &testEnv{
		store:    store,
		clock:    clock,
		hasher:   hasher,
		sessions: auth.NewSessionManager("test-secret", time.Hour).WithClock(clock.Now),
		notifier: &captureNotifier{},
	}
	env.activity = NewActivityService(store.Activity, log)
	env.settings = NewSecuritySettingsService(store.Settings, nil, env.activity, log)
	env.policy = NewPasswordPolicy(env.settings, false)
	env.throttle = NewLoginThrottle(store.LoginAttempts, env.settings, clock.Now, log)
	env.authenticator = NewAuthenticator(store.Users, hasher, log)
	env.login = NewLoginService(env.authenticator, env.throttle, env.sessions, env.activity, log)
	env.reset = NewPasswordResetService(store, store.Users, store.ResetTokens, env.policy, hasher,
		env.notifier, env.activity,
		ResetOptions{BaseURL: "https://app.example.com/", Path: "/redefinir-senha", TTL: time.Hour},
		clock.Now, log)
	env.users = NewUserService(store, store.Users, env.policy, hasher, env.activity, log)
	env.climatizadores = NewClimatizadorService(store.Climatizadores, nil, clock.Now, log)
	env.manutencoes = NewManutencaoService(store, store.Manutencoes, store.Climatizadores, nil, log)

	_, err := env.settings.Bootstrap(context.Background())
	require.NoError(t, err)
	return env
}

// createUser stores a user directly, bypassing the password policy.
func (e *testEnv) createUser(t *testing.T, email, password string, role model.Role) *model.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	user := &model.User{Name: "User " + email, Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, e.store.Users.Create(context.Background(), user))
	return user
}

func adminActor(u *model.User) Actor {
	return Actor{UserID: u.ID, Role: model.RoleAdmin, IP: "10.0.0.1"}
}
