package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DevJWTSecret is the fallback signing secret for local runs. Production refuses it.
const DevJWTSecret = "change-me"

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string `env:"SERVER_PORT, default=8080"`
	Env         string `env:"APP_ENV, default=development"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
	LogPretty   bool   `env:"LOG_PRETTY, default=false"`
	SwaggerHost string `env:"SWAGGER_HOST"`
	ResetDB     bool   `env:"RESET_DB, default=false"`

	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Reset       ResetConfig
	RabbitMQ    RabbitMQConfig
	RateLimit   RateLimitConfig
	Maintenance MaintenanceConfig
	Seed        SeedConfig
}

type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER, default=mysql"`
	DSN             string        `env:"DB_DSN, default=root:root@tcp(localhost:3306)/climatrack?charset=utf8mb4&parseTime=True&loc=UTC"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS, default=25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS, default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME, default=30m"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET, default=change-me"`
	SessionTTL time.Duration `env:"SESSION_TTL, default=720h"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`
	// EnforceComplexity turns on the uppercase/number/special flags of the security settings.
	EnforceComplexity bool `env:"PASSWORD_COMPLEXITY_ENFORCED, default=false"`
	// SelfRegistration serves the anonymous sign-up, which only ever creates VIEWER accounts.
	SelfRegistration bool `env:"SELF_REGISTRATION_ENABLED, default=false"`
}

type ResetConfig struct {
	BaseURL  string        `env:"APP_BASE_URL, default=http://localhost:3000"`
	Path     string        `env:"RESET_PATH, default=/redefinir-senha"`
	TokenTTL time.Duration `env:"RESET_TOKEN_TTL, default=1h"`
}

type RabbitMQConfig struct {
	// URL empty means reset notifications are only logged.
	URL        string `env:"RABBITMQ_URL"`
	ResetQueue string `env:"RABBITMQ_RESET_QUEUE, default=password.reset.requested"`
	// Notifications are queued and published off the request path.
	NotifyBuffer  int           `env:"NOTIFY_BUFFER, default=256"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT, default=10s"`
}

type RateLimitConfig struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED, default=true"`
	Capacity int           `env:"RATE_LIMIT_CAPACITY, default=10"`
	Refill   int           `env:"RATE_LIMIT_REFILL, default=1"`
	Interval time.Duration `env:"RATE_LIMIT_INTERVAL, default=30s"`
}

type MaintenanceConfig struct {
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL, default=1h"`
	LoginAttemptRetention time.Duration `env:"LOGIN_ATTEMPT_RETENTION, default=720h"`
}

type SeedConfig struct {
	AdminName     string `env:"SEED_ADMIN_NAME, default=Administrador"`
	AdminEmail    string `env:"SEED_ADMIN_EMAIL, default=admin@climatrack.local"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for main packages.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.Auth.JWTSecret == DevJWTSecret {
		return errors.New("config: JWT_SECRET must be set in production")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.Reset.TokenTTL <= 0 {
		return errors.New("config: RESET_TOKEN_TTL must be positive")
	}
	if c.Maintenance.SweepInterval <= 0 {
		return errors.New("config: SWEEP_INTERVAL must be positive")
	}
	if c.Maintenance.LoginAttemptRetention <= 0 {
		return errors.New("config: LOGIN_ATTEMPT_RETENTION must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Capacity <= 0 {
			return errors.New("config: RATE_LIMIT_CAPACITY must be positive")
		}
		if c.RateLimit.Refill <= 0 {
			return errors.New("config: RATE_LIMIT_REFILL must be positive")
		}
		if c.RateLimit.Interval <= 0 {
			return errors.New("config: RATE_LIMIT_INTERVAL must be positive")
		}
	}
	if c.RabbitMQ.NotifyBuffer <= 0 {
		return errors.New("config: NOTIFY_BUFFER must be positive")
	}
	if c.RabbitMQ.NotifyTimeout <= 0 {
		return errors.New("config: NOTIFY_TIMEOUT must be positive")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}
