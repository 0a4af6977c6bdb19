package repository

import (
	"context"

	"gorm.io/gorm"

	"climatrack/internal/model"
)

// ActivityLogRepository defines activity log persistence operations.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *model.ActivityLog) error
	ListRecent(ctx context.Context, limit int) ([]model.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository creates a new activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecent returns the newest entries with their user attached.
func (r *activityLogRepository) ListRecent(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	var entries []model.ActivityLog
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
