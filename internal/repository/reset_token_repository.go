package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"climatrack/internal/model"
)

// ResetTokenRepository defines password reset token persistence operations.
type ResetTokenRepository interface {
	Create(ctx context.Context, token *model.PasswordResetToken) error
	FindByHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error)
	// Claim deletes the token if it is still unexpired at now and reports
	// whether this call removed it. Only one concurrent caller can win.
	Claim(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type resetTokenRepository struct {
	db *gorm.DB
}

// NewResetTokenRepository creates a new reset token repository.
func NewResetTokenRepository(db *gorm.DB) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

func (r *resetTokenRepository) Create(ctx context.Context, token *model.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *resetTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error) {
	var token model.PasswordResetToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *resetTokenRepository) Claim(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", tokenHash, now).
		Delete(&model.PasswordResetToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *resetTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.PasswordResetToken{})
	return res.RowsAffected, res.Error
}

func (r *resetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.PasswordResetToken{})
	return res.RowsAffected, res.Error
}
