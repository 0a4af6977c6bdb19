package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"climatrack/internal/middleware"
	"climatrack/internal/service"
)

// SecurityHandler exposes the security policy and the login ledger.
type SecurityHandler struct {
	settings service.SecuritySettingsService
	throttle service.LoginThrottle
}

// NewSecurityHandler creates a new security handler.
func NewSecurityHandler(settings service.SecuritySettingsService, throttle service.LoginThrottle) *SecurityHandler {
	return &SecurityHandler{settings: settings, throttle: throttle}
}

// GetSettings godoc
// @Summary Current security settings
// @Tags security
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SecuritySettings
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /security/settings [get]
func (h *SecurityHandler) GetSettings(c echo.Context) error {
	settings, err := h.settings.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update security settings
// @Description Only the fields present in the body change.
// @Tags security
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.SettingsPatch true "Fields to change"
// @Success 200 {object} model.SecuritySettings
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /security/settings [patch]
func (h *SecurityHandler) UpdateSettings(c echo.Context) error {
	var patch service.SettingsPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	settings, err := h.settings.Update(c.Request().Context(), middleware.ActorFrom(c), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// LoginAttempts godoc
// @Summary Recent login attempts
// @Description Attempts of the last seven days, newest first, at most 50.
// @Tags security
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.LoginAttempt
// @Failure 403 {object} errors.ErrorResponse
// @Router /security/login-attempts [get]
func (h *SecurityHandler) LoginAttempts(c echo.Context) error {
	attempts, err := h.throttle.Recent(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, attempts)
}
