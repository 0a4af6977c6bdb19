package router

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"climatrack/internal/auth"
	"climatrack/internal/cache"
	"climatrack/internal/handler"
	"climatrack/internal/middleware"
	"climatrack/internal/model"
	"climatrack/internal/service"
)

// Handlers groups every HTTP handler.
type Handlers struct {
	Auth           *handler.AuthHandler
	Security       *handler.SecurityHandler
	Users          *handler.UserHandler
	Activity       *handler.ActivityHandler
	Climatizadores *handler.ClimatizadorHandler
	Health         *handler.HealthHandler
}

// Options carries the shared dependencies of the middleware stack.
type Options struct {
	Sessions  *auth.SessionManager
	Cache     *cache.Client
	RateLimit *cache.Bucket // nil disables rate limiting
	// SelfRegistration serves POST /api/auth/cadastro.
	SelfRegistration bool
	Log       zerolog.Logger
	// Registerer and Gatherer default to the prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

var (
	adminOnly      = []model.Role{model.RoleAdmin}
	adminOrManager = []model.Role{model.RoleAdmin, model.RoleManager}
)

// Register wires routes and middleware.
func Register(e *echo.Echo, h Handlers, opts Options) {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Log)

	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestLogger(opts.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "climatrack",
		Subsystem:  "http",
		Registerer: opts.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.NewRouteGuard(opts.Sessions).Middleware())

	e.GET("/healthz", h.Health.Liveness)
	e.GET("/readyz", h.Health.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	limit := func(route string) echo.MiddlewareFunc {
		if opts.RateLimit == nil {
			return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}
		return middleware.RateLimit(opts.Cache, route, *opts.RateLimit)
	}

	// Public routes
	api.POST("/auth/login", h.Auth.Login, limit("login"))
	api.GET("/auth/session", h.Auth.Session)
	api.POST("/auth/logout", h.Auth.Logout)
	api.POST("/auth/password-reset/request", h.Auth.RequestReset, limit("password_reset"))
	api.GET("/auth/password-reset/validate", h.Auth.ValidateReset)
	api.POST("/auth/password-reset/consume", h.Auth.ConsumeReset, limit("password_reset"))
	if opts.SelfRegistration {
		api.POST("/auth/cadastro", h.Users.Register, limit("cadastro"))
	}

	// Every other API route needs a session
	secured := api.Group("", middleware.Session(opts.Sessions))

	secured.GET("/security/settings", h.Security.GetSettings, middleware.RBAC(adminOrManager...))
	secured.PATCH("/security/settings", h.Security.UpdateSettings, middleware.RBAC(adminOnly...))
	secured.GET("/security/login-attempts", h.Security.LoginAttempts, middleware.RBAC(adminOrManager...))

	users := secured.Group("/usuarios", middleware.RBAC(adminOnly...))
	users.GET("", h.Users.ListUsers)
	users.POST("", h.Users.CreateUser)
	users.GET("/:id", h.Users.GetUser)
	users.PUT("/:id", h.Users.UpdateUser)
	users.PATCH("/:id/role", h.Users.ChangeRole)
	users.DELETE("/:id", h.Users.DeleteUser)

	secured.GET("/perfil", h.Users.Profile)
	secured.PATCH("/perfil/senha", h.Users.ChangePassword)

	secured.GET("/logs", h.Activity.List, middleware.RBAC(adminOrManager...))

	secured.GET("/dashboard/stats", h.Climatizadores.Stats)
	secured.GET("/climatizadores", h.Climatizadores.List)
	secured.GET("/climatizadores/:id", h.Climatizadores.Get)
	secured.POST("/climatizadores", h.Climatizadores.Create, middleware.RBAC(service.ClimatizadorWriters...))
	secured.PUT("/climatizadores/:id", h.Climatizadores.Update, middleware.RBAC(service.ClimatizadorWriters...))
	secured.DELETE("/climatizadores/:id", h.Climatizadores.Delete, middleware.RBAC(service.ClimatizadorDeleters...))
	secured.GET("/climatizadores/:id/manutencoes", h.Climatizadores.ListManutencoes)
	secured.POST("/climatizadores/:id/manutencoes", h.Climatizadores.CreateManutencao, middleware.RBAC(service.ClimatizadorWriters...))
	secured.GET("/manutencoes", h.Climatizadores.ListAllManutencoes)
	secured.GET("/manutencoes/:id", h.Climatizadores.GetManutencao)
	secured.PUT("/manutencoes/:id", h.Climatizadores.UpdateManutencao, middleware.RBAC(service.ClimatizadorWriters...))
	secured.DELETE("/manutencoes/:id", h.Climatizadores.DeleteManutencao, middleware.RBAC(service.ManutencaoDeleters...))
}
