package app

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/asoasiko/server/internal/module/notification"
	"github.com/asoasiko/server/internal/module/order"
	"github.com/asoasiko/server/internal/module/payment"
	"github.com/asoasiko/server/internal/module/payment/provider"
	"github.com/asoasiko/server/internal/module/user"
	sharedcache "github.com/asoasiko/server/internal/shared/cache"
	"github.com/asoasiko/server/internal/shared/config"
	"github.com/asoasiko/server/internal/shared/database"
	"github.com/asoasiko/server/internal/shared/logger"
	"github.com/asoasiko/server/internal/utils/metrics"
	"github.com/asoasiko/server/internal/utils/middleware"
)

// App represents the application.
type App struct {
	config *config.Config
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine
	logger *zap.Logger

	orderHandler   *order.Handler
	paymentHandler *payment.Handler
	webhookHandler *payment.WebhookHandler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config: cfg,
		logger: log,
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := db.AutoMigrate(
		&user.User{},
		&order.Order{},
		&order.OrderItem{},
		&order.StatusEvent{},
		&payment.WebhookEvent{},
		&payment.CryptoClaim{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	// Redis is optional; without it payment routes run unlimited
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, rate limiting disabled", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	m := metrics.New("asoasiko")

	if err := app.initModules(m); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.router = app.setupRouter(m)
	return app, nil
}

func (a *App) initModules(m *metrics.Metrics) error {
	cfg := a.config

	mailer := notification.NewSMTPEmailSender(&cfg.Notify.SMTP, a.logger)
	var sms notification.Notifier = notification.Noop{}
	if cfg.Notify.SMS.AccountSID != "" {
		sms = notification.NewTwilioSMSSender(&cfg.Notify.SMS, a.logger)
	}

	userRepo := user.NewRepository(a.db)

	orderRepo := order.NewRepository(a.db)
	orderService := order.NewService(orderRepo, userRepo, sms, m, a.logger)
	a.orderHandler = order.NewHandler(orderService)

	registry := payment.NewRegistry()
	registry.Register(provider.NewPaystackGateway(&provider.PaystackConfig{
		SecretKey: cfg.Payment.Paystack.SecretKey,
		BaseURL:   cfg.Payment.Paystack.BaseURL,
		Timeout:   cfg.Payment.Paystack.Timeout,
	}))
	registry.Register(provider.NewStripeGateway(&provider.StripeConfig{
		APIKey:        cfg.Payment.Stripe.APIKey,
		WebhookSecret: cfg.Payment.Stripe.WebhookSecret,
	}))

	var chain provider.ChainVerifier
	if cfg.Payment.Crypto.ExplorerURL != "" {
		chain = provider.NewExplorerVerifier(&provider.ExplorerConfig{
			BaseURL: cfg.Payment.Crypto.ExplorerURL,
			APIKey:  cfg.Payment.Crypto.APIKey,
			Timeout: cfg.Payment.Crypto.Timeout,
		})
	}

	paymentRepo := payment.NewRepository(a.db)
	paymentService := payment.NewService(
		registry, chain, orderService, userRepo, paymentRepo,
		mailer, m, cfg.Payment.Currency, a.logger,
	)

	var limiter gin.HandlerFunc
	if a.redis != nil {
		limiter = middleware.RateLimitByEndpoint(
			sharedcache.NewRateLimiter(a.redis),
			cfg.Payment.InitRateLimit.Limit,
			cfg.Payment.InitRateLimit.Window,
		)
	}
	a.paymentHandler = payment.NewHandler(paymentService, limiter)
	a.webhookHandler = payment.NewWebhookHandler(paymentService, a.logger)

	return nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter(m *metrics.Metrics) *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(m))
	r.Use(cors.Default())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if a.config.Server.SwaggerUI {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	}

	// Webhooks authenticate by signature, not by session
	a.webhookHandler.RegisterRoutes(r.Group(""))

	authed := r.Group("", middleware.Auth(a.config.Auth.JWTSecret))
	a.orderHandler.RegisterRoutes(authed)
	a.paymentHandler.RegisterRoutes(authed)

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := sharedcache.Close(a.redis); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
