package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"climatrack/internal/model"
)

// DefaultSessionTTL is the lifetime of a session token.
const DefaultSessionTTL = 30 * 24 * time.Hour

// ErrInvalidSession is returned by Decode for malformed, forged or expired tokens.
var ErrInvalidSession = errors.New("invalid session token")

// Claims are the JWT claims of a session token. The subject is the user id.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Session is what a decoded token proves.
type Session struct {
	UserID    uuid.UUID  `json:"user_id"`
	Role      model.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// SessionManager issues and decodes stateless HS256 session tokens.
// Tokens cannot be revoked; a role change shows up only in tokens issued afterwards.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewSessionManager creates a session manager. ttl <= 0 selects DefaultSessionTTL.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// WithClock replaces the time source.
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// TTL returns the token lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the user.
func (m *SessionManager) Issue(userID uuid.UUID, role model.Role) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Decode verifies the signature and expiry of a token. Every failure is ErrInvalidSession.
func (m *SessionManager) Decode(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	if claims.ExpiresAt == nil || !claims.VerifyExpiresAt(m.now(), true) {
		return nil, ErrInvalidSession
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidSession
	}

	return &Session{
		UserID:    userID,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
