package model

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken is an issued, not yet consumed reset credential.
// Only the SHA-256 of the token is stored.
type PasswordResetToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TokenHash string    `json:"-" gorm:"type:char(64);uniqueIndex;not null"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Expired reports whether the token is past its expiry at now.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
