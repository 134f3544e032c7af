package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/config"
	kafkainfra "github.com/MitsuharuNakamura/passkey-demo/internal/infra/kafka"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/logger"
	redisinfra "github.com/MitsuharuNakamura/passkey-demo/internal/infra/redis"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/verify"
	"github.com/MitsuharuNakamura/passkey-demo/internal/repository/memory"
	redisrepo "github.com/MitsuharuNakamura/passkey-demo/internal/repository/redis"
	"github.com/MitsuharuNakamura/passkey-demo/internal/transport/http/middleware"
	"github.com/MitsuharuNakamura/passkey-demo/internal/transport/http/routes"
	"github.com/MitsuharuNakamura/passkey-demo/internal/usecase"
)

// Application wires configuration, storage, the verification client, and the
// HTTP surface into a runnable unit.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

// New assembles the application. Redis and Kafka are optional: without a
// Redis host the sessions live in memory, without Kafka brokers the audit
// events go to the log.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var (
		redisClient  *redisinfra.Client
		sessionStore port.SessionStore
		rateLimiter  *middleware.RateLimiter
	)

	if cfg.Redis.Host != "" {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}

		sessionStore = redisrepo.NewSessionRepository(redisClient.Client(), cfg.Session.KeyPrefix, cfg.Session.TTL)

		rateLimitWindow := cfg.RateLimit.WindowDuration
		if rateLimitWindow <= 0 {
			rateLimitWindow = time.Minute
		}
		rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: "passkey:rate-limit",
			TTL:       rateLimitWindow * 2,
		})
		rateLimiter = middleware.NewRateLimiter(rateLimitStore, log)

		log.Info("redis session store initialized",
			zap.String("host", cfg.Redis.Host),
		)
	} else {
		sessionStore = memory.NewSessionStore(cfg.Session.TTL)
		log.Info("redis not configured, using in-memory session store")
	}

	var kafkaProducer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
			kafkaProducer = nil
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	users := memory.NewUserRepository()
	verifier := verify.NewClient(cfg.Twilio, log)

	registrationService := usecase.NewRegistrationService(users, sessionStore, verifier, eventPublisher).
		WithLogger(log).
		WithPendingTTL(cfg.Session.PendingTTL)
	authService := usecase.NewAuthService(users, sessionStore, verifier, eventPublisher).
		WithLogger(log).
		WithPendingTTL(cfg.Session.PendingTTL)

	sessionManager := middleware.NewSessionManager(sessionStore, cfg.Session, log)

	var cache routes.CacheChecker
	if redisClient != nil {
		cache = redisClient
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Sessions:    sessionManager,
		Users:       users,
		Cache:       cache,
		Services: routes.ServiceSet{
			Registration: registrationService,
			Auth:         authService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.kafka != nil {
			_ = a.kafka.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting passkey demo",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
