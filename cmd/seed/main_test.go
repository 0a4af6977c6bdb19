package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatrack/internal/auth"
	"climatrack/internal/config"
	"climatrack/internal/db/dbtest"
	apperrors "climatrack/internal/errors"
	"climatrack/internal/model"
	"climatrack/internal/repository"
	"climatrack/internal/service"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()
	store := repository.NewStore(dbtest.New(t))
	settings := service.NewSecuritySettingsService(store.Settings, nil, service.NewActivityService(store.Activity, log), log)
	_, err := settings.Bootstrap(ctx)
	require.NoError(t, err)
	hasher := auth.NewBcryptHasher(4)

	cfg := &config.Config{Seed: config.SeedConfig{
		AdminName:  "Administrador",
		AdminEmail: "admin@climatrack.local",
	}}

	_, err = seedAdmin(ctx, store, settings, hasher, cfg, log)
	require.Error(t, err, "no password configured")

	cfg.Seed.AdminPassword = "short"
	_, err = seedAdmin(ctx, store, settings, hasher, cfg, log)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	cfg.Seed.AdminPassword = "Admin123!"
	first, err := seedAdmin(ctx, store, settings, hasher, cfg, log)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, first.Role)
	require.NoError(t, hasher.Compare(first.PasswordHash, "Admin123!"))

	again, err := seedAdmin(ctx, store, settings, hasher, cfg, log)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}
