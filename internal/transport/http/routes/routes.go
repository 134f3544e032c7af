package routes

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/config"
	"github.com/MitsuharuNakamura/passkey-demo/internal/transport/http/handlers"
	"github.com/MitsuharuNakamura/passkey-demo/internal/transport/http/middleware"
	"github.com/MitsuharuNakamura/passkey-demo/internal/usecase"
	"github.com/MitsuharuNakamura/passkey-demo/web"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Registration *usecase.RegistrationService
	Auth         *usecase.AuthService
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Sessions    *middleware.SessionManager
	Services    ServiceSet
	Users       port.UserRepository
	Cache       CacheChecker
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("metrics middleware disabled", zap.Error(err))
	} else {
		r.Use(metrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 1)
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	passkeyHandler := handlers.NewPasskeyHandler(deps.Services.Registration, deps.Services.Auth, deps.Logger)
	sessionHandler := handlers.NewSessionHandler(deps.Services.Auth, deps.Users, deps.Sessions, deps.Logger)

	api := r.Group("/api")
	api.Use(deps.Sessions.Handler())
	{
		registerGroup := api.Group("/register")
		registerGroup.POST("/start", append(startLimitMiddlewares(deps, "register_start_ip", deps.Config.RateLimit.RegisterMaxAttempts), passkeyHandler.RegisterStart)...)
		registerGroup.POST("/complete", passkeyHandler.RegisterComplete)

		loginGroup := api.Group("/login")
		loginGroup.POST("/start", append(startLimitMiddlewares(deps, "login_start_ip", deps.Config.RateLimit.LoginMaxAttempts), passkeyHandler.LoginStart)...)
		loginGroup.POST("/complete", passkeyHandler.LoginComplete)

		api.POST("/logout", sessionHandler.Logout)
		api.GET("/user", sessionHandler.CurrentUser)
		api.GET("/debug/users", sessionHandler.DebugUsers)
	}

	registerStatic(r, deps.Logger)

	return r
}

// startLimitMiddlewares builds the optional rate limit chain for a ceremony
// start endpoint. Returns an empty slice when limiting is disabled.
func startLimitMiddlewares(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:   name,
		Limit:  limit,
		Window: window,
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

// registerStatic serves the embedded browser client for any path not claimed
// by the API. NoRoute keeps the root free of a wildcard that would collide
// with the /api group.
func registerStatic(r *gin.Engine, log *zap.Logger) {
	assets, err := web.Static()
	if err != nil {
		log.Error("embedded client assets unavailable", zap.Error(err))
		return
	}

	fileServer := http.FileServer(http.FS(assets))
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		path := c.Request.URL.Path
		if path != "/" {
			if _, err := fs.Stat(assets, path[1:]); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
		}

		fileServer.ServeHTTP(c.Writer, c.Request)
	})
}
