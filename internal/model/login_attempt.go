package model

import "time"

// LoginAttempt is one row of the append-only login ledger.
type LoginAttempt struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"size:255;not null;index:idx_login_attempts_lookup,priority:1"`
	IPAddress string    `json:"ip_address" gorm:"size:64;not null;index:idx_login_attempts_lookup,priority:2"`
	Success   bool      `json:"success" gorm:"not null"`
	CreatedAt time.Time `json:"timestamp" gorm:"not null;index;index:idx_login_attempts_lookup,priority:3"`
}
