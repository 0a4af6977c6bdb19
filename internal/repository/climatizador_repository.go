package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"climatrack/internal/model"
)

// ClimatizadorFilter narrows and pages a climatizador listing.
type ClimatizadorFilter struct {
	Status model.ClimatizadorStatus
	Search string
	Offset int
	Limit  int
}

// ClimatizadorRepository defines climatizador persistence operations.
type ClimatizadorRepository interface {
	Create(ctx context.Context, c *model.Climatizador) error
	Update(ctx context.Context, c *model.Climatizador) error
	FindByID(ctx context.Context, id uint) (*model.Climatizador, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Climatizador, error)
	List(ctx context.Context, filter ClimatizadorFilter) ([]model.Climatizador, int64, error)
	Delete(ctx context.Context, id uint) error
	UpdateColumns(ctx context.Context, id uint, columns map[string]interface{}) error
	Stats(ctx context.Context, now time.Time) (*model.ClimatizadorStats, error)
}

type climatizadorRepository struct {
	db *gorm.DB
}

// NewClimatizadorRepository creates a new climatizador repository.
func NewClimatizadorRepository(db *gorm.DB) ClimatizadorRepository {
	return &climatizadorRepository{db: db}
}

func (r *climatizadorRepository) Create(ctx context.Context, c *model.Climatizador) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *climatizadorRepository) Update(ctx context.Context, c *model.Climatizador) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error
}

func (r *climatizadorRepository) FindByID(ctx context.Context, id uint) (*model.Climatizador, error) {
	var c model.Climatizador
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByIDForUpdate finds a climatizador by ID with row-level lock for update.
func (r *climatizadorRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Climatizador, error) {
	var c model.Climatizador
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *climatizadorRepository) List(ctx context.Context, filter ClimatizadorFilter) ([]model.Climatizador, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Climatizador{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		q = q.Where("modelo LIKE ? OR marca LIKE ? OR localizacao LIKE ? OR numero_serie LIKE ?", like, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Climatizador
	if err := q.Order("created_at DESC").Order("id DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Delete removes a climatizador and its maintenance records.
func (r *climatizadorRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("climatizador_id = ?", id).Delete(&model.Manutencao{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Climatizador{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *climatizadorRepository) UpdateColumns(ctx context.Context, id uint, columns map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Climatizador{}).
		Where("id = ?", id).
		Updates(columns).Error
}

func (r *climatizadorRepository) Stats(ctx context.Context, now time.Time) (*model.ClimatizadorStats, error) {
	var stats model.ClimatizadorStats
	base := func() *gorm.DB { return r.db.WithContext(ctx).Model(&model.Climatizador{}) }

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ?", model.ClimatizadorStatusAtivo).Count(&stats.Ativos).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ? AND proxima_manutencao <= ?", model.ClimatizadorStatusManutencao, now).
		Count(&stats.ManutencaoNecessaria).Error; err != nil {
		return nil, err
	}
	if err := base().Where("status = ? AND proxima_manutencao > ?", model.ClimatizadorStatusManutencao, now).
		Count(&stats.ManutencaoEmDia).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
