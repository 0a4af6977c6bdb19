package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"climatrack/internal/middleware"
	"climatrack/internal/model"
	"climatrack/internal/service"
)

// ClimatizadorHandler handles air-conditioning units and their maintenance.
type ClimatizadorHandler struct {
	climatizadores service.ClimatizadorService
	manutencoes    service.ManutencaoService
}

// NewClimatizadorHandler creates a new climatizador handler.
func NewClimatizadorHandler(climatizadores service.ClimatizadorService, manutencoes service.ManutencaoService) *ClimatizadorHandler {
	return &ClimatizadorHandler{climatizadores: climatizadores, manutencoes: manutencoes}
}

// ClimatizadorRequest represents a unit.
type ClimatizadorRequest struct {
	Modelo            string                   `json:"modelo" validate:"required,max=100"`
	Marca             string                   `json:"marca" validate:"required,max=100"`
	NumeroSerie       string                   `json:"numero_serie" validate:"required,max=50"`
	Localizacao       string                   `json:"localizacao" validate:"required,max=255"`
	DataInstalacao    *time.Time               `json:"data_instalacao,omitempty"`
	UltimaManutencao  *time.Time               `json:"ultima_manutencao,omitempty"`
	ProximaManutencao *time.Time               `json:"proxima_manutencao,omitempty"`
	Status            model.ClimatizadorStatus `json:"status,omitempty"`
}

func (r ClimatizadorRequest) input() service.ClimatizadorInput {
	return service.ClimatizadorInput{
		Modelo:            r.Modelo,
		Marca:             r.Marca,
		NumeroSerie:       r.NumeroSerie,
		Localizacao:       r.Localizacao,
		DataInstalacao:    r.DataInstalacao,
		UltimaManutencao:  r.UltimaManutencao,
		ProximaManutencao: r.ProximaManutencao,
		Status:            r.Status,
	}
}

// ManutencaoRequest represents a maintenance record.
type ManutencaoRequest struct {
	DataManutencao    time.Time                 `json:"data_manutencao"`
	Tipo              model.ManutencaoTipo      `json:"tipo" validate:"required"`
	Descricao         string                    `json:"descricao"`
	Tecnico           string                    `json:"tecnico" validate:"required,max=100"`
	Custo             decimal.Decimal           `json:"custo"`
	Status            *model.ClimatizadorStatus `json:"status,omitempty"`
	ProximaManutencao *time.Time                `json:"proxima_manutencao,omitempty"`
}

func (r ManutencaoRequest) input() service.ManutencaoInput {
	return service.ManutencaoInput{
		DataManutencao:    r.DataManutencao,
		Tipo:              r.Tipo,
		Descricao:         r.Descricao,
		Tecnico:           r.Tecnico,
		Custo:             r.Custo,
		Status:            r.Status,
		ProximaManutencao: r.ProximaManutencao,
	}
}

// List godoc
// @Summary List climatizadores
// @Tags climatizadores
// @Produce json
// @Security BearerAuth
// @Param status query string false "Ativo, Inativo or Manutenção"
// @Param search query string false "Matches modelo, marca, localizacao or numero_serie"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, at most 100"
// @Success 200 {object} service.Page[model.Climatizador]
// @Router /climatizadores [get]
func (h *ClimatizadorHandler) List(c echo.Context) error {
	page, err := h.climatizadores.List(c.Request().Context(), service.ClimatizadorQuery{
		Status: model.ClimatizadorStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
		Page:   intQuery(c, "page"),
		Limit:  intQuery(c, "limit"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get godoc
// @Summary Get climatizador
// @Tags climatizadores
// @Produce json
// @Security BearerAuth
// @Param id path int true "Climatizador ID"
// @Success 200 {object} model.Climatizador
// @Failure 404 {object} errors.ErrorResponse
// @Router /climatizadores/{id} [get]
func (h *ClimatizadorHandler) Get(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	unit, err := h.climatizadores.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, unit)
}

// Create godoc
// @Summary Register climatizador
// @Tags climatizadores
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClimatizadorRequest true "Climatizador"
// @Success 201 {object} model.Climatizador
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /climatizadores [post]
func (h *ClimatizadorHandler) Create(c echo.Context) error {
	var req ClimatizadorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	unit, err := h.climatizadores.Create(c.Request().Context(), middleware.ActorFrom(c), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, unit)
}

// Update godoc
// @Summary Replace climatizador
// @Tags climatizadores
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Climatizador ID"
// @Param request body ClimatizadorRequest true "Climatizador"
// @Success 200 {object} model.Climatizador
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /climatizadores/{id} [put]
func (h *ClimatizadorHandler) Update(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req ClimatizadorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	unit, err := h.climatizadores.Update(c.Request().Context(), middleware.ActorFrom(c), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, unit)
}

// Delete godoc
// @Summary Delete climatizador
// @Description Its maintenance records are deleted too.
// @Tags climatizadores
// @Produce json
// @Security BearerAuth
// @Param id path int true "Climatizador ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /climatizadores/{id} [delete]
func (h *ClimatizadorHandler) Delete(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.climatizadores.Delete(c.Request().Context(), middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return ok(c, "climatizador deleted")
}

// Stats godoc
// @Summary Dashboard counters
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ClimatizadorStats
// @Router /dashboard/stats [get]
func (h *ClimatizadorHandler) Stats(c echo.Context) error {
	stats, err := h.climatizadores.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// ListAllManutencoes godoc
// @Summary List maintenance records of every climatizador
// @Tags manutencoes
// @Produce json
// @Security BearerAuth
// @Param tipo query string false "Preventiva or Corretiva"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, at most 100"
// @Success 200 {object} service.Page[model.Manutencao]
// @Failure 400 {object} errors.ErrorResponse
// @Router /manutencoes [get]
func (h *ClimatizadorHandler) ListAllManutencoes(c echo.Context) error {
	page, err := h.manutencoes.List(c.Request().Context(), service.ManutencaoQuery{
		Tipo:  model.ManutencaoTipo(c.QueryParam("tipo")),
		Page:  intQuery(c, "page"),
		Limit: intQuery(c, "limit"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// ListManutencoes godoc
// @Summary Maintenance history of a climatizador
// @Tags manutencoes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Climatizador ID"
// @Success 200 {array} model.Manutencao
// @Failure 404 {object} errors.ErrorResponse
// @Router /climatizadores/{id}/manutencoes [get]
func (h *ClimatizadorHandler) ListManutencoes(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	list, err := h.manutencoes.ListByClimatizador(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// CreateManutencao godoc
// @Summary Register maintenance
// @Tags manutencoes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Climatizador ID"
// @Param request body ManutencaoRequest true "Maintenance"
// @Success 201 {object} model.Manutencao
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /climatizadores/{id}/manutencoes [post]
func (h *ClimatizadorHandler) CreateManutencao(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req ManutencaoRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.manutencoes.Create(c.Request().Context(), middleware.ActorFrom(c), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

// GetManutencao godoc
// @Summary Get maintenance
// @Tags manutencoes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Manutencao ID"
// @Success 200 {object} model.Manutencao
// @Failure 404 {object} errors.ErrorResponse
// @Router /manutencoes/{id} [get]
func (h *ClimatizadorHandler) GetManutencao(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	m, err := h.manutencoes.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// UpdateManutencao godoc
// @Summary Replace maintenance
// @Description The unit's ultima_manutencao follows its newest record.
// @Tags manutencoes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Manutencao ID"
// @Param request body ManutencaoRequest true "Maintenance"
// @Success 200 {object} model.Manutencao
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /manutencoes/{id} [put]
func (h *ClimatizadorHandler) UpdateManutencao(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req ManutencaoRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.manutencoes.Update(c.Request().Context(), middleware.ActorFrom(c), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// DeleteManutencao godoc
// @Summary Delete maintenance
// @Tags manutencoes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Manutencao ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /manutencoes/{id} [delete]
func (h *ClimatizadorHandler) DeleteManutencao(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.manutencoes.Delete(c.Request().Context(), middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return ok(c, "manutencao deleted")
}
