package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"climatrack/internal/model"
)

// LoginAttemptRepository defines operations on the login ledger.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *model.LoginAttempt) error
	CountFailedSince(ctx context.Context, email, ip string, since time.Time) (int64, error)
	ListSince(ctx context.Context, since time.Time, limit int) ([]model.LoginAttempt, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type loginAttemptRepository struct {
	db *gorm.DB
}

// NewLoginAttemptRepository creates a new login attempt repository.
func NewLoginAttemptRepository(db *gorm.DB) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

func (r *loginAttemptRepository) Create(ctx context.Context, attempt *model.LoginAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *loginAttemptRepository) CountFailedSince(ctx context.Context, email, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LoginAttempt{}).
		Where("email = ? AND ip_address = ? AND success = ? AND created_at >= ?", email, ip, false, since).
		Count(&count).Error
	return count, err
}

func (r *loginAttemptRepository) ListSince(ctx context.Context, since time.Time, limit int) ([]model.LoginAttempt, error) {
	var attempts []model.LoginAttempt
	if err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *loginAttemptRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&model.LoginAttempt{})
	return res.RowsAffected, res.Error
}
