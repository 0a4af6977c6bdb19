package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, time.Hour, cfg.Reset.TokenTTL)
	assert.Equal(t, "/redefinir-senha", cfg.Reset.Path)
	assert.Equal(t, "password.reset.requested", cfg.RabbitMQ.ResetQueue)
	assert.False(t, cfg.Auth.EnforceComplexity)
	assert.False(t, cfg.Auth.SelfRegistration)
	assert.Equal(t, time.Hour, cfg.Maintenance.SweepInterval)
	assert.Equal(t, 256, cfg.RabbitMQ.NotifyBuffer)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file::memory:")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("PASSWORD_COMPLEXITY_ENFORCED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.True(t, cfg.Auth.EnforceComplexity)
}

func TestLoad_RejectsZeroSweepInterval(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "0s")

	_, err := Load()
	assert.ErrorContains(t, err, "SWEEP_INTERVAL")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Env:         "development",
			Database:    DatabaseConfig{Driver: "mysql"},
			Auth:        AuthConfig{JWTSecret: "s3cr3t", SessionTTL: time.Hour},
			Reset:       ResetConfig{TokenTTL: time.Hour},
			RabbitMQ:    RabbitMQConfig{NotifyBuffer: 16, NotifyTimeout: time.Second},
			RateLimit:   RateLimitConfig{Enabled: true, Capacity: 10, Refill: 1, Interval: 30 * time.Second},
			Maintenance: MaintenanceConfig{SweepInterval: time.Hour, LoginAttemptRetention: 24 * time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"dev secret in production", func(c *Config) {
			c.Env = "production"
			c.Auth.JWTSecret = DevJWTSecret
		}, true},
		{"dev secret in development", func(c *Config) { c.Auth.JWTSecret = DevJWTSecret }, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, true},
		{"zero session ttl", func(c *Config) { c.Auth.SessionTTL = 0 }, true},
		{"zero sweep interval", func(c *Config) { c.Maintenance.SweepInterval = 0 }, true},
		{"negative sweep interval", func(c *Config) { c.Maintenance.SweepInterval = -time.Minute }, true},
		{"zero attempt retention", func(c *Config) { c.Maintenance.LoginAttemptRetention = 0 }, true},
		{"zero rate limit capacity", func(c *Config) { c.RateLimit.Capacity = 0 }, true},
		{"zero rate limit refill", func(c *Config) { c.RateLimit.Refill = 0 }, true},
		{"zero rate limit interval", func(c *Config) { c.RateLimit.Interval = 0 }, true},
		{"rate limit off ignores its settings", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: false}
		}, false},
		{"zero notify buffer", func(c *Config) { c.RabbitMQ.NotifyBuffer = 0 }, true},
		{"zero notify timeout", func(c *Config) { c.RabbitMQ.NotifyTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
