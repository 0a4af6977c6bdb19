package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatrack/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSessionManager_IssueAndDecode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewSessionManager("secret", 0).WithClock(fixedClock(now))
	userID := uuid.New()

	token, expiresAt, err := m.Issue(userID, model.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*24*time.Hour), expiresAt)

	session, err := m.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, model.RoleOperator, session.Role)
	assert.True(t, session.ExpiresAt.Equal(expiresAt))
}

func TestSessionManager_DecodeFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewSessionManager("secret", time.Hour).WithClock(fixedClock(now))
	userID := uuid.New()

	valid, _, err := m.Issue(userID, model.RoleAdmin)
	require.NoError(t, err)

	other, _, err := NewSessionManager("other-secret", time.Hour).WithClock(fixedClock(now)).Issue(userID, model.RoleAdmin)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role: model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: model.Role("ROOT"),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		clock time.Time
	}{
		{"empty", "", now},
		{"malformed", "not.a.jwt", now},
		{"bad signature", other, now},
		{"alg none", noneToken, now},
		{"unknown role", unknownRole, now},
		{"expired", valid, now.Add(time.Hour + time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.WithClock(fixedClock(tt.clock))
			session, err := m.Decode(tt.token)
			assert.ErrorIs(t, err, ErrInvalidSession)
			assert.Nil(t, session)
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, h.Compare(hash, "secret123"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, h.Compare("not-a-hash", "secret123"))
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, 10, NewBcryptHasher(0).cost)
	assert.Equal(t, 4, NewBcryptHasher(1).cost)
	assert.Equal(t, 31, NewBcryptHasher(99).cost)
}

func TestNewResetToken(t *testing.T) {
	token, hash, err := NewResetToken()
	require.NoError(t, err)

	assert.Len(t, token, 64)
	assert.Len(t, hash, 64)
	assert.NotEqual(t, token, hash)
	assert.Equal(t, hash, HashResetToken(token))

	again, _, err := NewResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, again)
}
