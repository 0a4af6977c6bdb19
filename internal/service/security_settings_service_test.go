package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatrack/internal/db/dbtest"
	"climatrack/internal/errors"
	"climatrack/internal/model"
	"climatrack/internal/repository"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestSettingsPatch_Columns(t *testing.T) {
	tests := []struct {
		name    string
		patch   SettingsPatch
		want    map[string]interface{}
		wantErr bool
	}{
		{name: "empty", patch: SettingsPatch{}, want: map[string]interface{}{}},
		{
			name:  "bounds accepted",
			patch: SettingsPatch{MaxLoginAttempts: intPtr(10), LockoutDuration: intPtr(5), PasswordMinLength: intPtr(128)},
			want:  map[string]interface{}{"max_login_attempts": 10, "lockout_duration": 5, "password_min_length": 128},
		},
		{
			name:  "explicit false is kept",
			patch: SettingsPatch{RequireUppercase: boolPtr(false)},
			want:  map[string]interface{}{"require_uppercase": false},
		},
		{name: "attempts too low", patch: SettingsPatch{MaxLoginAttempts: intPtr(0)}, wantErr: true},
		{name: "attempts too high", patch: SettingsPatch{MaxLoginAttempts: intPtr(11)}, wantErr: true},
		{name: "lockout too short", patch: SettingsPatch{LockoutDuration: intPtr(4)}, wantErr: true},
		{name: "lockout too long", patch: SettingsPatch{LockoutDuration: intPtr(61)}, wantErr: true},
		{name: "min length too short", patch: SettingsPatch{PasswordMinLength: intPtr(6)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := tt.patch.columns()
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cols)
		})
	}
}

func TestSecuritySettingsService_BootstrapIsIdempotent(t *testing.T) {
	store := repository.NewStore(dbtest.New(t))
	svc := NewSecuritySettingsService(store.Settings, nil, NewActivityService(store.Activity, zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Get(ctx)
	assert.ErrorIs(t, err, errors.ErrUnavailable, "reads never create the row")

	created, err := svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Bootstrap(ctx)
	require.NoError(t, err)
	assert.False(t, created)

	settings, err := svc.Get(ctx)
	require.NoError(t, err)
	want := model.DefaultSecuritySettings()
	assert.Equal(t, want.MaxLoginAttempts, settings.MaxLoginAttempts)
	assert.Equal(t, want.LockoutDuration, settings.LockoutDuration)
	assert.Equal(t, want.PasswordMinLength, settings.PasswordMinLength)
	assert.True(t, settings.RequireSpecialChar)
	assert.False(t, settings.EnableTwoFactorAuth)
}

func TestSecuritySettingsService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@x.com", "secret123", model.RoleAdmin)

	t.Run("manager is forbidden", func(t *testing.T) {
		_, err := env.settings.Update(ctx, Actor{UserID: admin.ID, Role: model.RoleManager}, SettingsPatch{MaxLoginAttempts: intPtr(3)})
		assert.ErrorIs(t, err, errors.ErrForbidden)
	})

	t.Run("invalid value changes nothing", func(t *testing.T) {
		_, err := env.settings.Update(ctx, adminActor(admin), SettingsPatch{MaxLoginAttempts: intPtr(3), LockoutDuration: intPtr(99)})
		assert.ErrorIs(t, err, errors.ErrValidation)

		settings, err := env.settings.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, settings.MaxLoginAttempts)
	})

	t.Run("partial update", func(t *testing.T) {
		settings, err := env.settings.Update(ctx, adminActor(admin), SettingsPatch{
			MaxLoginAttempts: intPtr(3),
			RequireNumber:    boolPtr(false),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, settings.MaxLoginAttempts)
		assert.False(t, settings.RequireNumber)
		assert.Equal(t, 15, settings.LockoutDuration, "untouched")
		assert.True(t, settings.RequireUppercase, "untouched")
	})

	t.Run("empty patch returns current", func(t *testing.T) {
		settings, err := env.settings.Update(ctx, adminActor(admin), SettingsPatch{})
		require.NoError(t, err)
		assert.Equal(t, 3, settings.MaxLoginAttempts)
	})

	logs, err := env.activity.Recent(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ActionSettingsUpdated, logs[0].Action)
	require.NotNil(t, logs[0].User)
	assert.Equal(t, admin.Email, logs[0].User.Email)
}

func TestValidatePassword(t *testing.T) {
	settings := model.DefaultSecuritySettings()
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name       string
		password   string
		minLength  int
		complexity bool
		wantErr    bool
	}{
		{name: "min length met", password: "abcdefgh", minLength: 8},
		{name: "too short", password: "abcdefg", minLength: 8, wantErr: true},
		{name: "setting below floor still needs 8", password: "abcdefg", minLength: 4, wantErr: true},
		{name: "setting above floor", password: "abcdefghij", minLength: 12, wantErr: true},
		{name: "over bcrypt limit", password: string(long), minLength: 8, wantErr: true},
		{name: "complexity ignored when off", password: "abcdefgh", minLength: 8},
		{name: "complexity met", password: "Abcdefg1!", minLength: 8, complexity: true},
		{name: "missing uppercase", password: "abcdefg1!", minLength: 8, complexity: true, wantErr: true},
		{name: "missing number", password: "Abcdefgh!", minLength: 8, complexity: true, wantErr: true},
		{name: "missing special", password: "Abcdefgh1", minLength: 8, complexity: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := settings
			s.PasswordMinLength = tt.minLength
			err := ValidatePassword(tt.password, s, tt.complexity)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
