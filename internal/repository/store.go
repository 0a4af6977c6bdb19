package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories bound to one *gorm.DB, either the pool or a
// single transaction.
type Store struct {
	db *gorm.DB

	Users          UserRepository
	ResetTokens    ResetTokenRepository
	LoginAttempts  LoginAttemptRepository
	Settings       SecuritySettingsRepository
	Activity       ActivityLogRepository
	Climatizadores ClimatizadorRepository
	Manutencoes    ManutencaoRepository
}

// Transactor runs fn inside one database transaction. fn must only use the
// repositories of the Store it receives.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error
}

var _ Transactor = (*Store)(nil)

// NewStore builds every repository over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:             db,
		Users:          NewUserRepository(db),
		ResetTokens:    NewResetTokenRepository(db),
		LoginAttempts:  NewLoginAttemptRepository(db),
		Settings:       NewSecuritySettingsRepository(db),
		Activity:       NewActivityLogRepository(db),
		Climatizadores: NewClimatizadorRepository(db),
		Manutencoes:    NewManutencaoRepository(db),
	}
}

// WithTransaction executes a function within a database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewStore(tx))
	})
}
