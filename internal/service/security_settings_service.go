package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"climatrack/internal/cache"
	"climatrack/internal/errors"
	"climatrack/internal/model"
	"climatrack/internal/repository"
)

const (
	settingsCacheKey = "security:settings"
	settingsCacheTTL = time.Minute
)

// Accepted ranges for the patchable settings.
const (
	MinLoginAttempts   = 1
	MaxLoginAttempts   = 10
	MinLockoutMinutes  = 5
	MaxLockoutMinutes  = 60
	MinPasswordLength  = 8
	MaxPasswordSetting = 128
)

// SettingsPatch carries the fields to change; nil fields stay as they are.
type SettingsPatch struct {
	MaxLoginAttempts   *int  `json:"max_login_attempts,omitempty"`
	LockoutDuration    *int  `json:"lockout_duration,omitempty"`
	PasswordMinLength  *int  `json:"password_min_length,omitempty"`
	RequireSpecialChar *bool `json:"require_special_char,omitempty"`
	RequireUppercase   *bool `json:"require_uppercase,omitempty"`
	RequireNumber      *bool `json:"require_number,omitempty"`
}

// columns validates the patch and returns the columns to write.
func (p SettingsPatch) columns() (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	if p.MaxLoginAttempts != nil {
		v := *p.MaxLoginAttempts
		if v < MinLoginAttempts || v > MaxLoginAttempts {
			return nil, errors.Validation(fmt.Sprintf("max_login_attempts must be between %d and %d", MinLoginAttempts, MaxLoginAttempts))
		}
		cols["max_login_attempts"] = v
	}
	if p.LockoutDuration != nil {
		v := *p.LockoutDuration
		if v < MinLockoutMinutes || v > MaxLockoutMinutes {
			return nil, errors.Validation(fmt.Sprintf("lockout_duration must be between %d and %d minutes", MinLockoutMinutes, MaxLockoutMinutes))
		}
		cols["lockout_duration"] = v
	}
	if p.PasswordMinLength != nil {
		v := *p.PasswordMinLength
		if v < MinPasswordLength || v > MaxPasswordSetting {
			return nil, errors.Validation(fmt.Sprintf("password_min_length must be between %d and %d", MinPasswordLength, MaxPasswordSetting))
		}
		cols["password_min_length"] = v
	}
	if p.RequireSpecialChar != nil {
		cols["require_special_char"] = *p.RequireSpecialChar
	}
	if p.RequireUppercase != nil {
		cols["require_uppercase"] = *p.RequireUppercase
	}
	if p.RequireNumber != nil {
		cols["require_number"] = *p.RequireNumber
	}
	return cols, nil
}

// SecuritySettingsService manages the singleton security policy.
type SecuritySettingsService interface {
	// Bootstrap writes the defaults when no settings exist. Safe to run repeatedly.
	Bootstrap(ctx context.Context) (bool, error)
	Get(ctx context.Context) (*model.SecuritySettings, error)
	Update(ctx context.Context, actor Actor, patch SettingsPatch) (*model.SecuritySettings, error)
}

type securitySettingsService struct {
	repo     repository.SecuritySettingsRepository
	cache    *cache.Client
	activity ActivityService
	log      zerolog.Logger
}

// NewSecuritySettingsService creates a new settings service. cache may be nil.
func NewSecuritySettingsService(
	repo repository.SecuritySettingsRepository,
	cache *cache.Client,
	activity ActivityService,
	log zerolog.Logger,
) SecuritySettingsService {
	return &securitySettingsService{repo: repo, cache: cache, activity: activity, log: log}
}

func (s *securitySettingsService) Bootstrap(ctx context.Context) (bool, error) {
	created, err := s.repo.CreateIfAbsent(ctx, model.DefaultSecuritySettings())
	if err != nil {
		return false, errors.Unavailable(err)
	}
	if created {
		s.log.Info().Msg("security settings initialized with defaults")
	}
	return created, nil
}

// Get never creates the row; a missing row means Bootstrap did not run.
func (s *securitySettingsService) Get(ctx context.Context) (*model.SecuritySettings, error) {
	if data, _ := s.cache.Get(ctx, settingsCacheKey); data != nil {
		var cached model.SecuritySettings
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error().Msg("security settings missing; run the bootstrap step")
			return nil, errors.Unavailable(errors.New("security settings not initialized"))
		}
		return nil, errors.Unavailable(err)
	}

	if payload, err := json.Marshal(settings); err == nil {
		_ = s.cache.Set(ctx, settingsCacheKey, payload, settingsCacheTTL)
	}
	return settings, nil
}

// Update applies the patch. Concurrent updates are last write wins per column.
func (s *securitySettingsService) Update(ctx context.Context, actor Actor, patch SettingsPatch) (*model.SecuritySettings, error) {
	if err := authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	cols, err := patch.columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return s.Get(ctx)
	}

	if err := s.repo.Update(ctx, cols); err != nil {
		return nil, errors.Unavailable(err)
	}
	_ = s.cache.Delete(ctx, settingsCacheKey)

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, storeError(err, "security settings not found")
	}

	changed, _ := json.Marshal(cols)
	s.activity.Record(ctx, ActivityEntry{
		UserID:  actor.UserID,
		Action:  model.ActionSettingsUpdated,
		Details: string(changed),
		IP:      actor.IP,
	})
	return settings, nil
}
