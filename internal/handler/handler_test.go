package handler

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/middleware"
	"climatrack/internal/model"
	"climatrack/internal/service"
)

type MockLoginService struct {
	mock.Mock
}

func (m *MockLoginService) Login(ctx context.Context, email, password, ip string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

type MockPasswordResetService struct {
	mock.Mock
}

func (m *MockPasswordResetService) RequestReset(ctx context.Context, email, ip string) error {
	return m.Called(ctx, email, ip).Error(0)
}

func (m *MockPasswordResetService) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPasswordResetService) ConsumeReset(ctx context.Context, token, newPassword, ip string) error {
	return m.Called(ctx, token, newPassword, ip).Error(0)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		req     interface{}
		wantMsg string
	}{
		{"missing email", &LoginRequest{Password: "x"}, "email is required"},
		{"bad email", &LoginRequest{Email: "nope", Password: "x"}, "email must be a valid email"},
		{"both missing", &LoginRequest{}, "email is required; password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrValidation))
			assert.Equal(t, tt.wantMsg, errors.MapErrorToHTTP(err).Message)
		})
	}

	assert.NoError(t, v.Validate(&LoginRequest{Email: "ana@example.com", Password: "x"}))
}

func TestAuthHandler_Login(t *testing.T) {
	sessions := auth.NewSessionManager("test-secret", time.Hour)

	t.Run("sets session cookie", func(t *testing.T) {
		login := new(MockLoginService)
		expires := time.Now().Add(time.Hour).UTC()
		login.On("Login", mock.Anything, "ana@example.com", "Secret123!", mock.Anything).
			Return(&service.LoginResult{Token: "tok", ExpiresAt: expires}, nil)

		h := NewAuthHandler(login, new(MockPasswordResetService), sessions, true)
		e := newEcho()
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"Secret123!"}`), rec)

		require.NoError(t, h.Login(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"token":"tok"`)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.SessionCookie, cookies[0].Name)
		assert.Equal(t, "tok", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		login.AssertExpectations(t)
	})

	t.Run("returns service error unchanged", func(t *testing.T) {
		login := new(MockLoginService)
		login.On("Login", mock.Anything, "ana@example.com", "wrong", mock.Anything).
			Return(nil, errors.ErrInvalidCredentials)

		h := NewAuthHandler(login, new(MockPasswordResetService), sessions, false)
		e := newEcho()
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"wrong"}`), httptest.NewRecorder())

		assert.Same(t, errors.ErrInvalidCredentials, h.Login(c))
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		login := new(MockLoginService)
		h := NewAuthHandler(login, new(MockPasswordResetService), sessions, false)
		e := newEcho()
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"email":`), httptest.NewRecorder())

		err := h.Login(c)
		assert.True(t, stderrors.Is(err, errors.ErrValidation))
		login.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Session(t *testing.T) {
	sessions := auth.NewSessionManager("test-secret", time.Hour)
	h := NewAuthHandler(new(MockLoginService), new(MockPasswordResetService), sessions, false)
	e := newEcho()

	userID := uuid.New()
	token, _, err := sessions.Issue(userID, model.RoleTechnician)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	require.NoError(t, h.Session(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.String())
	assert.Contains(t, rec.Body.String(), `"role":"TECHNICIAN"`)

	anon := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	err = h.Session(e.NewContext(anon, httptest.NewRecorder()))
	var he *echo.HTTPError
	require.True(t, stderrors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	h := NewAuthHandler(new(MockLoginService), new(MockPasswordResetService), auth.NewSessionManager("s", time.Hour), false)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Logout(newEcho().NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), rec)))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestAuthHandler_PasswordReset(t *testing.T) {
	sessions := auth.NewSessionManager("test-secret", time.Hour)

	t.Run("request answers the same for any email", func(t *testing.T) {
		reset := new(MockPasswordResetService)
		reset.On("RequestReset", mock.Anything, "ghost@example.com", mock.Anything).Return(nil)

		h := NewAuthHandler(new(MockLoginService), reset, sessions, false)
		rec := httptest.NewRecorder()
		c := newEcho().NewContext(jsonRequest(http.MethodPost, "/api/auth/password-reset/request", `{"email":"ghost@example.com"}`), rec)

		require.NoError(t, h.RequestReset(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "if the email is registered")
		reset.AssertExpectations(t)
	})

	t.Run("validate reads the query token", func(t *testing.T) {
		reset := new(MockPasswordResetService)
		reset.On("ValidateToken", mock.Anything, "abc").Return(uuid.New(), nil)
		reset.On("ValidateToken", mock.Anything, "old").Return(uuid.Nil, errors.ErrExpiredToken)

		h := NewAuthHandler(new(MockLoginService), reset, sessions, false)
		e := newEcho()

		rec := httptest.NewRecorder()
		require.NoError(t, h.ValidateReset(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/password-reset/validate?token=abc", nil), rec)))
		assert.JSONEq(t, `{"valid":true}`, rec.Body.String())

		err := h.ValidateReset(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/password-reset/validate?token=old", nil), httptest.NewRecorder()))
		assert.Same(t, errors.ErrExpiredToken, err)
	})

	t.Run("consume passes token and new password", func(t *testing.T) {
		reset := new(MockPasswordResetService)
		reset.On("ConsumeReset", mock.Anything, "abc", "NewSecret1!", mock.Anything).Return(nil)

		h := NewAuthHandler(new(MockLoginService), reset, sessions, false)
		rec := httptest.NewRecorder()
		c := newEcho().NewContext(jsonRequest(http.MethodPost, "/api/auth/password-reset/consume", `{"token":"abc","new_password":"NewSecret1!"}`), rec)

		require.NoError(t, h.ConsumeReset(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		reset.AssertExpectations(t)
	})

	t.Run("consume requires a token", func(t *testing.T) {
		reset := new(MockPasswordResetService)
		h := NewAuthHandler(new(MockLoginService), reset, sessions, false)
		c := newEcho().NewContext(jsonRequest(http.MethodPost, "/api/auth/password-reset/consume", `{"new_password":"NewSecret1!"}`), httptest.NewRecorder())

		assert.True(t, stderrors.Is(h.ConsumeReset(c), errors.ErrValidation))
		reset.AssertNotCalled(t, "ConsumeReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHealthHandler_Readiness(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return stderrors.New("dial tcp: refused") })

	tests := []struct {
		name       string
		deps       map[string]Pinger
		wantStatus int
		wantBody   string
	}{
		{"all up", map[string]Pinger{"database": up}, http.StatusOK, `{"status":"ok","checks":{"database":"up"}}`},
		{"one down", map[string]Pinger{"database": up, "redis": down}, http.StatusServiceUnavailable,
			`{"status":"degraded","checks":{"database":"up","redis":"down"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.deps)
			rec := httptest.NewRecorder()
			require.NoError(t, h.Readiness(newEcho().NewContext(httptest.NewRequest(http.MethodGet, "/readyz", nil), rec)))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestParams(t *testing.T) {
	e := newEcho()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")

	c.SetParamValues("42")
	id, err := uintParam(c, "id")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"0", "-1", "abc"} {
		c.SetParamValues(bad)
		_, err := uintParam(c, "id")
		assert.True(t, stderrors.Is(err, errors.ErrValidation), bad)
	}

	c.SetParamValues("not-a-uuid")
	_, err = uuidParam(c, "id")
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}
