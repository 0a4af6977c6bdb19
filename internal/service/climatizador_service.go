package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"climatrack/internal/cache"
	"climatrack/internal/errors"
	"climatrack/internal/model"
	"climatrack/internal/repository"
)

const (
	climatizadorCacheTTL = 5 * time.Minute
	statsCacheKey        = "climatizador:stats"
	statsCacheTTL        = 30 * time.Second
	maxNumeroSerieLen    = 50
)

// Roles allowed to register and edit units, and to delete them.
var (
	ClimatizadorWriters  = []model.Role{model.RoleAdmin, model.RoleManager, model.RoleTechnician}
	ClimatizadorDeleters = []model.Role{model.RoleAdmin, model.RoleManager}
)

var errNumeroSerieTaken = errors.Conflict("numero_serie already registered")

func climatizadorCacheKey(id uint) string {
	return fmt.Sprintf("climatizador:%d", id)
}

// ClimatizadorInput holds the fields of a unit. An empty Status means Ativo.
type ClimatizadorInput struct {
	Modelo            string
	Marca             string
	NumeroSerie       string
	Localizacao       string
	DataInstalacao    *time.Time
	UltimaManutencao  *time.Time
	ProximaManutencao *time.Time
	Status            model.ClimatizadorStatus
}

func (in *ClimatizadorInput) normalize() error {
	in.Modelo = strings.TrimSpace(in.Modelo)
	in.Marca = strings.TrimSpace(in.Marca)
	in.NumeroSerie = strings.TrimSpace(in.NumeroSerie)
	in.Localizacao = strings.TrimSpace(in.Localizacao)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"modelo", in.Modelo},
		{"marca", in.Marca},
		{"numero_serie", in.NumeroSerie},
		{"localizacao", in.Localizacao},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	if utf8.RuneCountInString(in.NumeroSerie) > maxNumeroSerieLen {
		return errors.Validation(fmt.Sprintf("numero_serie must be at most %d characters", maxNumeroSerieLen))
	}
	if in.Status == "" {
		in.Status = model.ClimatizadorStatusAtivo
	}
	if !in.Status.Valid() {
		return errors.Validation(fmt.Sprintf("invalid status %q", in.Status))
	}
	return nil
}

func (in ClimatizadorInput) apply(c *model.Climatizador) {
	c.Modelo = in.Modelo
	c.Marca = in.Marca
	c.NumeroSerie = in.NumeroSerie
	c.Localizacao = in.Localizacao
	c.DataInstalacao = in.DataInstalacao
	c.UltimaManutencao = in.UltimaManutencao
	c.ProximaManutencao = in.ProximaManutencao
	c.Status = in.Status
}

// ClimatizadorQuery filters and pages a listing.
type ClimatizadorQuery struct {
	Status model.ClimatizadorStatus
	Search string
	Page   int
	Limit  int
}

// ClimatizadorService manages air-conditioning units.
type ClimatizadorService interface {
	List(ctx context.Context, q ClimatizadorQuery) (*Page[model.Climatizador], error)
	Get(ctx context.Context, id uint) (*model.Climatizador, error)
	Create(ctx context.Context, actor Actor, in ClimatizadorInput) (*model.Climatizador, error)
	Update(ctx context.Context, actor Actor, id uint, in ClimatizadorInput) (*model.Climatizador, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Stats(ctx context.Context) (*model.ClimatizadorStats, error)
}

type climatizadorService struct {
	repo  repository.ClimatizadorRepository
	cache *cache.Client
	now   Clock
	log   zerolog.Logger
}

// NewClimatizadorService creates a new climatizador service. cache and now may be nil.
func NewClimatizadorService(repo repository.ClimatizadorRepository, cache *cache.Client, now Clock, log zerolog.Logger) ClimatizadorService {
	if now == nil {
		now = utcNow
	}
	return &climatizadorService{repo: repo, cache: cache, now: now, log: log}
}

func (s *climatizadorService) List(ctx context.Context, q ClimatizadorQuery) (*Page[model.Climatizador], error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, errors.Validation(fmt.Sprintf("invalid status %q", q.Status))
	}
	page, limit, offset := normalizePage(q.Page, q.Limit)
	list, total, err := s.repo.List(ctx, repository.ClimatizadorFilter{
		Status: q.Status,
		Search: q.Search,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	return newPage(list, total, page, limit), nil
}

// Get retrieves a unit, using cache when available.
func (s *climatizadorService) Get(ctx context.Context, id uint) (*model.Climatizador, error) {
	key := climatizadorCacheKey(id)
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var cached model.Climatizador
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "climatizador not found")
	}

	if payload, err := json.Marshal(c); err == nil {
		_ = s.cache.Set(ctx, key, payload, climatizadorCacheTTL)
	}
	return c, nil
}

func (s *climatizadorService) Create(ctx context.Context, actor Actor, in ClimatizadorInput) (*model.Climatizador, error) {
	if err := authorize(actor, ClimatizadorWriters...); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	c := &model.Climatizador{}
	in.apply(c)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, climatizadorWriteError(err)
	}
	_ = s.cache.Delete(ctx, statsCacheKey)
	return c, nil
}

func (s *climatizadorService) Update(ctx context.Context, actor Actor, id uint, in ClimatizadorInput) (*model.Climatizador, error) {
	if err := authorize(actor, ClimatizadorWriters...); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "climatizador not found")
	}
	in.apply(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, climatizadorWriteError(err)
	}
	s.invalidate(ctx, id)
	return c, nil
}

// Delete removes the unit together with its maintenance records.
func (s *climatizadorService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := authorize(actor, ClimatizadorDeleters...); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "climatizador not found")
	}
	s.invalidate(ctx, id)
	s.log.Info().Uint("climatizador_id", id).Str("by", actor.UserID.String()).Msg("climatizador deleted")
	return nil
}

func (s *climatizadorService) Stats(ctx context.Context) (*model.ClimatizadorStats, error) {
	if data, _ := s.cache.Get(ctx, statsCacheKey); data != nil {
		var cached model.ClimatizadorStats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.repo.Stats(ctx, s.now())
	if err != nil {
		return nil, errors.Unavailable(err)
	}

	if payload, err := json.Marshal(stats); err == nil {
		_ = s.cache.Set(ctx, statsCacheKey, payload, statsCacheTTL)
	}
	return stats, nil
}

func (s *climatizadorService) invalidate(ctx context.Context, id uint) {
	_ = s.cache.Delete(ctx, climatizadorCacheKey(id), statsCacheKey)
}

func climatizadorWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errNumeroSerieTaken
	}
	return storeError(err, "climatizador not found")
}
