package model

import "time"

// SecuritySettingsID is the primary key of the single settings row.
const SecuritySettingsID uint = 1

// SecuritySettings is the singleton login and password policy.
// Booleans carry no gorm default so explicit false values are persisted.
type SecuritySettings struct {
	ID                  uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	MaxLoginAttempts    int       `json:"max_login_attempts" gorm:"not null"`
	LockoutDuration     int       `json:"lockout_duration" gorm:"not null"` // minutes
	PasswordMinLength   int       `json:"password_min_length" gorm:"not null"`
	RequireSpecialChar  bool      `json:"require_special_char" gorm:"not null"`
	RequireUppercase    bool      `json:"require_uppercase" gorm:"not null"`
	RequireNumber       bool      `json:"require_number" gorm:"not null"`
	EnableTwoFactorAuth bool      `json:"enable_two_factor_auth" gorm:"not null"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName pins the table name; the plural of "settings" is ambiguous.
func (SecuritySettings) TableName() string {
	return "security_settings"
}

// DefaultSecuritySettings is the row written by the bootstrap step.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		ID:                  SecuritySettingsID,
		MaxLoginAttempts:    5,
		LockoutDuration:     15,
		PasswordMinLength:   8,
		RequireSpecialChar:  true,
		RequireUppercase:    true,
		RequireNumber:       true,
		EnableTwoFactorAuth: false,
	}
}

// LockoutWindow is LockoutDuration as a duration.
func (s SecuritySettings) LockoutWindow() time.Duration {
	return time.Duration(s.LockoutDuration) * time.Minute
}
