package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"climatrack/internal/auth"
	"climatrack/internal/config"
	"climatrack/internal/db"
	"climatrack/internal/model"
	"climatrack/internal/repository"
	"climatrack/internal/service"
	"climatrack/pkg/logger"
)

// seed migrates the schema, creates the security settings row and the first
// ADMIN account. Running it again changes nothing.
func main() {
	cfg := config.MustLoad()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "climatrack-seed"})

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	store := repository.NewStore(gormDB)
	ctx := context.Background()

	settingsService := service.NewSecuritySettingsService(store.Settings, nil, service.NewActivityService(store.Activity, log), log)
	created, err := settingsService.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap security settings")
	}
	log.Info().Bool("created", created).Msg("security settings ready")

	admin, err := seedAdmin(ctx, store, settingsService, auth.NewBcryptHasher(cfg.Auth.BcryptCost), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	}
	log.Info().Str("email", admin.Email).Str("id", admin.ID.String()).Msg("seed completed")
}

// seedAdmin returns the existing account for SEED_ADMIN_EMAIL or creates it.
func seedAdmin(
	ctx context.Context,
	store *repository.Store,
	settings service.SecuritySettingsService,
	hasher auth.PasswordHasher,
	cfg *config.Config,
	log zerolog.Logger,
) (*model.User, error) {
	existing, err := store.Users.FindByEmail(ctx, cfg.Seed.AdminEmail)
	if err == nil {
		log.Info().Str("email", existing.Email).Msg("admin already exists, skipping")
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up %s: %w", cfg.Seed.AdminEmail, err)
	}

	if cfg.Seed.AdminPassword == "" {
		return nil, errors.New("SEED_ADMIN_PASSWORD must be set to create the admin account")
	}
	current, err := settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := service.ValidatePassword(cfg.Seed.AdminPassword, *current, cfg.Auth.EnforceComplexity); err != nil {
		return nil, fmt.Errorf("SEED_ADMIN_PASSWORD: %w", err)
	}

	hash, err := hasher.Hash(cfg.Seed.AdminPassword)
	if err != nil {
		return nil, err
	}
	admin := &model.User{
		Name:         cfg.Seed.AdminName,
		Email:        cfg.Seed.AdminEmail,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := store.Users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	log.Info().Str("email", admin.Email).Msg("admin created")
	return admin, nil
}
