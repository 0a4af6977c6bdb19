package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"climatrack/internal/model"
)

// SecuritySettingsRepository reads and writes the singleton settings row.
type SecuritySettingsRepository interface {
	Get(ctx context.Context) (*model.SecuritySettings, error)
	// CreateIfAbsent inserts defaults unless the row exists and reports whether it inserted.
	CreateIfAbsent(ctx context.Context, defaults model.SecuritySettings) (bool, error)
	// Update writes only the given columns.
	Update(ctx context.Context, columns map[string]interface{}) error
}

type securitySettingsRepository struct {
	db *gorm.DB
}

// NewSecuritySettingsRepository creates a new settings repository.
func NewSecuritySettingsRepository(db *gorm.DB) SecuritySettingsRepository {
	return &securitySettingsRepository{db: db}
}

func (r *securitySettingsRepository) Get(ctx context.Context) (*model.SecuritySettings, error) {
	var settings model.SecuritySettings
	if err := r.db.WithContext(ctx).Where("id = ?", model.SecuritySettingsID).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *securitySettingsRepository) CreateIfAbsent(ctx context.Context, defaults model.SecuritySettings) (bool, error) {
	defaults.ID = model.SecuritySettingsID
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&defaults)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *securitySettingsRepository) Update(ctx context.Context, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.SecuritySettings{}).
		Where("id = ?", model.SecuritySettingsID).
		Updates(columns).Error
}
