package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"climatrack/internal/middleware"
	"climatrack/internal/model"
	"climatrack/internal/service"
)

// UserHandler handles user administration and the caller's profile.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// CreateUserRequest represents a new user.
type CreateUserRequest struct {
	Name     string     `json:"name" validate:"required,max=255"`
	Email    string     `json:"email" validate:"required,email,max=255"`
	Password string     `json:"password" validate:"required"`
	Role     model.Role `json:"role" validate:"required"`
}

// RegisterRequest is an anonymous sign-up. It carries no role.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest holds the fields to change.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty"`
}

// ChangeRoleRequest sets the role of a user.
type ChangeRoleRequest struct {
	Role model.Role `json:"role" validate:"required"`
}

// ChangePasswordRequest changes the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, at most 100"
// @Param search query string false "Matches name or email"
// @Success 200 {object} service.Page[model.User]
// @Failure 403 {object} errors.ErrorResponse
// @Router /usuarios [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	page, err := h.svc.List(c.Request().Context(), middleware.ActorFrom(c),
		c.QueryParam("search"), intQuery(c, "page"), intQuery(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetUser godoc
// @Summary Get user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /usuarios/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.svc.Get(c.Request().Context(), middleware.ActorFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /usuarios [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Create(c.Request().Context(), middleware.ActorFrom(c), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Register godoc
// @Summary Self-registration
// @Description Creates a VIEWER account. Served only when self-registration is enabled.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/cadastro [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Register(c.Request().Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, c.RealIP())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// UpdateUser godoc
// @Summary Update user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /usuarios/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Update(c.Request().Context(), middleware.ActorFrom(c), id, service.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ChangeRole godoc
// @Summary Change user role
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body ChangeRoleRequest true "New role"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Router /usuarios/{id}/role [patch]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req ChangeRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.svc.ChangeRole(c.Request().Context(), middleware.ActorFrom(c), id, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete user
// @Description The last ADMIN and the caller cannot be deleted.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /usuarios/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return ok(c, "user deleted")
}

// Profile godoc
// @Summary Caller's profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Router /perfil [get]
func (h *UserHandler) Profile(c echo.Context) error {
	user, err := h.svc.Profile(c.Request().Context(), middleware.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change own password
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /perfil/senha [patch]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	err := h.svc.ChangePassword(c.Request().Context(), middleware.ActorFrom(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return ok(c, "password updated")
}
