package repository

import (
	"context"

	"gorm.io/gorm"

	"climatrack/internal/model"
)

// ManutencaoFilter narrows and pages a listing across all units.
type ManutencaoFilter struct {
	Tipo   model.ManutencaoTipo
	Offset int
	Limit  int
}

// ManutencaoRepository defines maintenance record persistence operations.
type ManutencaoRepository interface {
	Create(ctx context.Context, m *model.Manutencao) error
	FindByID(ctx context.Context, id uint) (*model.Manutencao, error)
	List(ctx context.Context, filter ManutencaoFilter) ([]model.Manutencao, int64, error)
	ListByClimatizador(ctx context.Context, climatizadorID uint) ([]model.Manutencao, error)
	// LatestByClimatizador returns the unit's most recent record, or
	// gorm.ErrRecordNotFound when it has none.
	LatestByClimatizador(ctx context.Context, climatizadorID uint) (*model.Manutencao, error)
	UpdateColumns(ctx context.Context, id uint, cols map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}

type manutencaoRepository struct {
	db *gorm.DB
}

// NewManutencaoRepository creates a new maintenance repository.
func NewManutencaoRepository(db *gorm.DB) ManutencaoRepository {
	return &manutencaoRepository{db: db}
}

func (r *manutencaoRepository) Create(ctx context.Context, m *model.Manutencao) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindByID finds a maintenance record with its climatizador.
func (r *manutencaoRepository) FindByID(ctx context.Context, id uint) (*model.Manutencao, error) {
	var m model.Manutencao
	if err := r.db.WithContext(ctx).Preload("Climatizador").Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *manutencaoRepository) ListByClimatizador(ctx context.Context, climatizadorID uint) ([]model.Manutencao, error) {
	var list []model.Manutencao
	if err := r.db.WithContext(ctx).
		Where("climatizador_id = ?", climatizadorID).
		Order("data_manutencao DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// List returns records of every unit, newest first, with their climatizador.
func (r *manutencaoRepository) List(ctx context.Context, filter ManutencaoFilter) ([]model.Manutencao, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Manutencao{})
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Manutencao
	if err := q.Preload("Climatizador").
		Order("data_manutencao DESC").Order("id DESC").
		Offset(filter.Offset).Limit(filter.Limit).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *manutencaoRepository) LatestByClimatizador(ctx context.Context, climatizadorID uint) (*model.Manutencao, error) {
	var m model.Manutencao
	if err := r.db.WithContext(ctx).
		Where("climatizador_id = ?", climatizadorID).
		Order("data_manutencao DESC").
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *manutencaoRepository) UpdateColumns(ctx context.Context, id uint, cols map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Manutencao{}).
		Where("id = ?", id).
		Updates(cols).Error
}

func (r *manutencaoRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Manutencao{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
