package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/middleware"
	"climatrack/internal/model"
	"climatrack/internal/service"
)

// AuthHandler handles login, session and password reset endpoints.
type AuthHandler struct {
	login         service.LoginService
	reset         service.PasswordResetService
	sessions      *auth.SessionManager
	secureCookies bool
}

// NewAuthHandler creates a new auth handler. secureCookies marks the session
// cookie Secure.
func NewAuthHandler(
	login service.LoginService,
	reset service.PasswordResetService,
	sessions *auth.SessionManager,
	secureCookies bool,
) *AuthHandler {
	return &AuthHandler{login: login, reset: reset, sessions: sessions, secureCookies: secureCookies}
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetRequest asks for a password reset link.
type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ConsumeResetRequest sets a new password with a reset token.
type ConsumeResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	UserID    uuid.UUID  `json:"user_id"`
	Role      model.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// ValidateResetResponse is returned for a usable reset token.
type ValidateResetResponse struct {
	Valid bool `json:"valid"`
}

// Login godoc
// @Summary Login
// @Description Authenticates and returns a session token, also set as the session_token cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.login.Login(c.Request().Context(), req.Email, req.Password, c.RealIP())
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, result)
}

// Session godoc
// @Summary Current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	session, err := h.sessions.Decode(middleware.TokenFromRequest(c.Request()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "no valid session",
			Code:  "UNAUTHORIZED",
		})
	}
	return c.JSON(http.StatusOK, SessionResponse{
		UserID:    session.UserID,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout godoc
// @Summary Logout
// @Description Clears the session cookie. Issued tokens stay valid until they expire.
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return ok(c, "logged out")
}

// RequestReset godoc
// @Summary Request a password reset link
// @Description Always answers 200 so callers cannot tell which emails are registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /auth/password-reset/request [post]
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req ResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.reset.RequestReset(c.Request().Context(), req.Email, c.RealIP()); err != nil {
		return err
	}
	return ok(c, "if the email is registered, a reset link has been sent")
}

// ValidateReset godoc
// @Summary Check a reset token without using it
// @Tags auth
// @Produce json
// @Param token query string true "Reset token"
// @Success 200 {object} ValidateResetResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /auth/password-reset/validate [get]
func (h *AuthHandler) ValidateReset(c echo.Context) error {
	if _, err := h.reset.ValidateToken(c.Request().Context(), c.QueryParam("token")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ValidateResetResponse{Valid: true})
}

// ConsumeReset godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ConsumeResetRequest true "Token and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /auth/password-reset/consume [post]
func (h *AuthHandler) ConsumeReset(c echo.Context) error {
	var req ConsumeResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.reset.ConsumeReset(c.Request().Context(), req.Token, req.NewPassword, c.RealIP()); err != nil {
		return err
	}
	return ok(c, "password updated")
}
