package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"climatrack/docs"
	"climatrack/internal/auth"
	"climatrack/internal/cache"
	"climatrack/internal/config"
	"climatrack/internal/db"
	"climatrack/internal/handler"
	"climatrack/internal/notify"
	"climatrack/internal/repository"
	"climatrack/internal/router"
	"climatrack/internal/service"
	"climatrack/pkg/logger"
)

// @title ClimaTrack API
// @version 1.0
// @description Air conditioner inventory and maintenance tracking with session auth, login throttling and password reset.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	cfg := config.MustLoad()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "climatrack",
	})

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}

	if cfg.ResetDB {
		log.Warn().Msg("RESET_DB=true, dropping all tables")
		if err := db.Drop(gormDB); err != nil {
			log.Fatal().Err(err).Msg("drop tables")
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	health := map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error { return db.Ping(ctx, gormDB) }),
	}

	var cacheClient *cache.Client
	if cfg.Redis.Addr != "" {
		cacheClient = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		health["redis"] = cacheClient
	} else {
		log.Info().Msg("REDIS_ADDR empty, caching and rate limiting disabled")
	}

	var delivery notify.Notifier
	if cfg.RabbitMQ.URL != "" {
		delivery = notify.NewAMQPNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.ResetQueue, log)
	} else {
		log.Info().Msg("RABBITMQ_URL empty, reset links are only logged")
		delivery = notify.NewLogNotifier(log)
	}
	// reset requests must answer in the same time whether or not a message goes out
	notifier := notify.NewAsync(delivery, cfg.RabbitMQ.NotifyBuffer, cfg.RabbitMQ.NotifyTimeout, log)

	store := repository.NewStore(gormDB)
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	sessions := auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	activityService := service.NewActivityService(store.Activity, log)
	settingsService := service.NewSecuritySettingsService(store.Settings, cacheClient, activityService, log)
	policy := service.NewPasswordPolicy(settingsService, cfg.Auth.EnforceComplexity)
	throttle := service.NewLoginThrottle(store.LoginAttempts, settingsService, nil, log)
	loginService := service.NewLoginService(
		service.NewAuthenticator(store.Users, hasher, log),
		throttle,
		sessions,
		activityService,
		log,
	)
	resetService := service.NewPasswordResetService(
		store,
		store.Users,
		store.ResetTokens,
		policy,
		hasher,
		notifier,
		activityService,
		service.ResetOptions{BaseURL: cfg.Reset.BaseURL, Path: cfg.Reset.Path, TTL: cfg.Reset.TokenTTL},
		nil,
		log,
	)
	userService := service.NewUserService(store, store.Users, policy, hasher, activityService, log)
	climatizadorService := service.NewClimatizadorService(store.Climatizadores, cacheClient, nil, log)
	manutencaoService := service.NewManutencaoService(store, store.Manutencoes, store.Climatizadores, cacheClient, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	created, err := settingsService.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap security settings")
	}
	if created {
		log.Info().Msg("security settings created with defaults")
	}

	sweeper := service.NewSweeper(store.ResetTokens, store.LoginAttempts, cfg.Maintenance.LoginAttemptRetention, nil, log)
	go sweeper.Run(ctx, cfg.Maintenance.SweepInterval)

	var bucket *cache.Bucket
	if cfg.RateLimit.Enabled {
		bucket = &cache.Bucket{
			Capacity: cfg.RateLimit.Capacity,
			Refill:   cfg.RateLimit.Refill,
			Interval: cfg.RateLimit.Interval,
		}
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.HidePort = true
	router.Register(e, router.Handlers{
		Auth:           handler.NewAuthHandler(loginService, resetService, sessions, cfg.IsProduction()),
		Security:       handler.NewSecurityHandler(settingsService, throttle),
		Users:          handler.NewUserHandler(userService),
		Activity:       handler.NewActivityHandler(activityService),
		Climatizadores: handler.NewClimatizadorHandler(climatizadorService, manutencaoService),
		Health:         handler.NewHealthHandler(health),
	}, router.Options{
		Sessions:         sessions,
		Cache:            cacheClient,
		RateLimit:        bucket,
		SelfRegistration: cfg.Auth.SelfRegistration,
		Log:              log,
	})

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting http server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := notifier.Close(); err != nil {
		log.Warn().Err(err).Msg("close notifier")
	}
	if err := cacheClient.Close(); err != nil {
		log.Warn().Err(err).Msg("close redis")
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("server stopped")
}
