package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"climatrack/internal/cache"
	"climatrack/internal/errors"
	"climatrack/internal/model"
	"climatrack/internal/repository"
)

// Roles allowed to delete maintenance records. Registering one follows
// ClimatizadorWriters.
var ManutencaoDeleters = []model.Role{model.RoleAdmin, model.RoleManager}

// ManutencaoInput describes a maintenance performed on a unit. Status and
// ProximaManutencao, when set, are copied to the unit.
type ManutencaoInput struct {
	DataManutencao    time.Time
	Tipo              model.ManutencaoTipo
	Descricao         string
	Tecnico           string
	Custo             decimal.Decimal
	Status            *model.ClimatizadorStatus
	ProximaManutencao *time.Time
}

func (in *ManutencaoInput) normalize() error {
	in.Tecnico = strings.TrimSpace(in.Tecnico)
	in.Descricao = strings.TrimSpace(in.Descricao)

	switch {
	case in.DataManutencao.IsZero():
		return errors.Validation("data_manutencao is required")
	case in.Tipo != model.ManutencaoPreventiva && in.Tipo != model.ManutencaoCorretiva:
		return errors.Validation(fmt.Sprintf("invalid tipo %q, expected %s or %s", in.Tipo, model.ManutencaoPreventiva, model.ManutencaoCorretiva))
	case in.Tecnico == "":
		return errors.Validation("tecnico is required")
	case in.Custo.IsNegative():
		return errors.Validation("custo cannot be negative")
	case in.Status != nil && !in.Status.Valid():
		return errors.Validation(fmt.Sprintf("invalid status %q", *in.Status))
	}
	in.Custo = in.Custo.Round(2)
	return nil
}

// ManutencaoQuery filters and pages the listing across all units.
type ManutencaoQuery struct {
	Tipo  model.ManutencaoTipo
	Page  int
	Limit int
}

// ManutencaoService manages maintenance records.
type ManutencaoService interface {
	List(ctx context.Context, q ManutencaoQuery) (*Page[model.Manutencao], error)
	ListByClimatizador(ctx context.Context, climatizadorID uint) ([]model.Manutencao, error)
	Get(ctx context.Context, id uint) (*model.Manutencao, error)
	Create(ctx context.Context, actor Actor, climatizadorID uint, in ManutencaoInput) (*model.Manutencao, error)
	// Update replaces the record's fields. The record stays on its unit,
	// whose ultima_manutencao is recomputed from its newest record.
	Update(ctx context.Context, actor Actor, id uint, in ManutencaoInput) (*model.Manutencao, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type manutencaoService struct {
	tx             repository.Transactor
	manutencoes    repository.ManutencaoRepository
	climatizadores repository.ClimatizadorRepository
	cache          *cache.Client
	log            zerolog.Logger
}

// NewManutencaoService creates a new maintenance service. cache may be nil.
func NewManutencaoService(
	tx repository.Transactor,
	manutencoes repository.ManutencaoRepository,
	climatizadores repository.ClimatizadorRepository,
	cache *cache.Client,
	log zerolog.Logger,
) ManutencaoService {
	return &manutencaoService{
		tx:             tx,
		manutencoes:    manutencoes,
		climatizadores: climatizadores,
		cache:          cache,
		log:            log,
	}
}

func (s *manutencaoService) List(ctx context.Context, q ManutencaoQuery) (*Page[model.Manutencao], error) {
	if q.Tipo != "" && q.Tipo != model.ManutencaoPreventiva && q.Tipo != model.ManutencaoCorretiva {
		return nil, errors.Validation(fmt.Sprintf("invalid tipo %q", q.Tipo))
	}
	page, limit, offset := normalizePage(q.Page, q.Limit)
	list, total, err := s.manutencoes.List(ctx, repository.ManutencaoFilter{
		Tipo:   q.Tipo,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	return newPage(list, total, page, limit), nil
}

func (s *manutencaoService) ListByClimatizador(ctx context.Context, climatizadorID uint) ([]model.Manutencao, error) {
	if _, err := s.climatizadores.FindByID(ctx, climatizadorID); err != nil {
		return nil, storeError(err, "climatizador not found")
	}
	list, err := s.manutencoes.ListByClimatizador(ctx, climatizadorID)
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	if list == nil {
		list = []model.Manutencao{}
	}
	return list, nil
}

func (s *manutencaoService) Get(ctx context.Context, id uint) (*model.Manutencao, error) {
	m, err := s.manutencoes.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "manutencao not found")
	}
	return m, nil
}

// Create inserts the record and moves the unit's ultima_manutencao forward
// while holding the unit row lock, so concurrent records never move it back.
func (s *manutencaoService) Create(ctx context.Context, actor Actor, climatizadorID uint, in ManutencaoInput) (*model.Manutencao, error) {
	if err := authorize(actor, ClimatizadorWriters...); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	m := &model.Manutencao{
		ClimatizadorID: climatizadorID,
		DataManutencao: in.DataManutencao,
		Tipo:           in.Tipo,
		Descricao:      in.Descricao,
		Tecnico:        in.Tecnico,
		Custo:          in.Custo,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx *repository.Store) error {
		unit, err := tx.Climatizadores.FindByIDForUpdate(ctx, climatizadorID)
		if err != nil {
			return storeError(err, "climatizador not found")
		}
		if err := tx.Manutencoes.Create(ctx, m); err != nil {
			return storeError(err, "climatizador not found")
		}

		cols := map[string]interface{}{}
		if unit.UltimaManutencao == nil || in.DataManutencao.After(*unit.UltimaManutencao) {
			cols["ultima_manutencao"] = in.DataManutencao
		}
		if in.Status != nil {
			cols["status"] = *in.Status
		}
		if in.ProximaManutencao != nil {
			cols["proxima_manutencao"] = *in.ProximaManutencao
		}
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Climatizadores.UpdateColumns(ctx, climatizadorID, cols); err != nil {
			return errors.Unavailable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, climatizadorCacheKey(climatizadorID), statsCacheKey)
	s.log.Info().
		Uint("climatizador_id", climatizadorID).
		Uint("manutencao_id", m.ID).
		Str("tipo", string(m.Tipo)).
		Msg("manutencao registered")
	return m, nil
}

func (s *manutencaoService) Update(ctx context.Context, actor Actor, id uint, in ManutencaoInput) (*model.Manutencao, error) {
	if err := authorize(actor, ClimatizadorWriters...); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var climatizadorID uint
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx *repository.Store) error {
		current, err := tx.Manutencoes.FindByID(ctx, id)
		if err != nil {
			return storeError(err, "manutencao not found")
		}
		climatizadorID = current.ClimatizadorID
		if _, err := tx.Climatizadores.FindByIDForUpdate(ctx, climatizadorID); err != nil {
			return storeError(err, "climatizador not found")
		}

		if err := tx.Manutencoes.UpdateColumns(ctx, id, map[string]interface{}{
			"data_manutencao": in.DataManutencao,
			"tipo":            in.Tipo,
			"descricao":       in.Descricao,
			"tecnico":         in.Tecnico,
			"custo":           in.Custo,
		}); err != nil {
			return errors.Unavailable(err)
		}

		// Moving a date backwards can hand "latest" to another record.
		latest, err := tx.Manutencoes.LatestByClimatizador(ctx, climatizadorID)
		if err != nil {
			return errors.Unavailable(err)
		}
		cols := map[string]interface{}{"ultima_manutencao": latest.DataManutencao}
		if in.Status != nil {
			cols["status"] = *in.Status
		}
		if in.ProximaManutencao != nil {
			cols["proxima_manutencao"] = *in.ProximaManutencao
		}
		if err := tx.Climatizadores.UpdateColumns(ctx, climatizadorID, cols); err != nil {
			return errors.Unavailable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, climatizadorCacheKey(climatizadorID), statsCacheKey)
	s.log.Info().
		Uint("climatizador_id", climatizadorID).
		Uint("manutencao_id", id).
		Msg("manutencao updated")
	return s.Get(ctx, id)
}

func (s *manutencaoService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := authorize(actor, ManutencaoDeleters...); err != nil {
		return err
	}
	m, err := s.manutencoes.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "manutencao not found")
	}
	if err := s.manutencoes.Delete(ctx, id); err != nil {
		return storeError(err, "manutencao not found")
	}
	_ = s.cache.Delete(ctx, climatizadorCacheKey(m.ClimatizadorID), statsCacheKey)
	return nil
}
