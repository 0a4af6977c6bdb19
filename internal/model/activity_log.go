package model

import (
	"time"

	"github.com/google/uuid"
)

// Activity actions recorded in the audit log.
const (
	ActionLogin            = "LOGIN"
	ActionPasswordChanged  = "PASSWORD_CHANGED"
	ActionPasswordResetReq = "PASSWORD_RESET_REQUESTED"
	ActionPasswordReset    = "PASSWORD_RESET"
	ActionSettingsUpdated  = "SETTINGS_UPDATED"
	ActionUserCreated      = "USER_CREATED"
	ActionUserRegistered   = "USER_REGISTERED"
	ActionUserUpdated      = "USER_UPDATED"
	ActionUserRoleChanged  = "USER_ROLE_CHANGED"
	ActionUserDeleted      = "USER_DELETED"
)

// ActivityLog is an audit entry of something a user did.
// All entries are kept regardless of outcome; UserID is cleared when the user is deleted.
type ActivityLog struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    *uuid.UUID `json:"user_id,omitempty" gorm:"type:char(36);index"`
	Action    string     `json:"action" gorm:"size:64;not null;index"`
	Details   string     `json:"details,omitempty" gorm:"type:text"`
	IPAddress string     `json:"ip_address,omitempty" gorm:"size:64"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
}
