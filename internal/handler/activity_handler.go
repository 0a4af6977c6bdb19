package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"climatrack/internal/service"
)

// ActivityHandler serves the audit log.
type ActivityHandler struct {
	svc service.ActivityService
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(svc service.ActivityService) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

// List godoc
// @Summary Recent activity
// @Tags logs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ActivityLog
// @Failure 403 {object} errors.ErrorResponse
// @Router /logs [get]
func (h *ActivityHandler) List(c echo.Context) error {
	logs, err := h.svc.Recent(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}
