package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/admin"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/poll"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/application/reconcile"
	webhookapp "github.com/Navdeepkaurs/ShopifyIngestion/internal/application/webhook"
	domainwebhook "github.com/Navdeepkaurs/ShopifyIngestion/internal/domain/webhook"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/auth"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/cache"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/config"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/logger"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/persistence"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/scheduler"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/shopify"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/telemetry"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/interfaces/http/handler"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/interfaces/http/middleware"
	"github.com/Navdeepkaurs/ShopifyIngestion/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ingestion service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Delivery dedup store: Redis when reachable, in-memory otherwise.
	// The in-memory store does not survive restarts or scale past one
	// replica, so production runs want Redis.
	var deliveryStore domainwebhook.DeliveryStore
	redisStore, err := cache.NewRedisDeliveryStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-memory delivery dedup", zap.Error(err))
		deliveryStore = cache.NewInMemoryDeliveryStore()
	} else {
		deliveryStore = redisStore
		log.Info("Redis delivery dedup store connected", zap.String("addr", cfg.Redis.Addr()))
	}
	defer func() {
		if err := deliveryStore.Close(); err != nil {
			log.Error("Error closing delivery store", zap.Error(err))
		}
	}()

	// Repositories and stores
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	canonicalStore := persistence.NewGormCanonicalStore(db.DB)
	syncTracker := persistence.NewGormSyncTracker(db.DB)

	// Upstream Admin API client
	shopifyClient, err := shopify.NewClient(shopify.Config{
		APIVersion:     cfg.Shopify.APIVersion,
		PageSize:       cfg.Shopify.PageSize,
		BucketCapacity: cfg.Shopify.BucketCapacity,
		RefillPerSec:   cfg.Shopify.RefillPerSec,
		MaxAttempts:    cfg.Shopify.MaxAttempts,
		BackoffBase:    cfg.Shopify.BackoffBase,
		BackoffCap:     cfg.Shopify.BackoffCap,
		RequestTimeout: cfg.Shopify.RequestTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize Shopify client", zap.Error(err))
	}

	// Application services
	reconciler := reconcile.NewReconciler(canonicalStore, log)
	admitter := webhookapp.NewAdmitter(tenantRepo, deliveryStore, reconciler, cfg.Webhook.DedupRetention, log)
	orchestrator := poll.NewOrchestrator(tenantRepo, shopifyClient, reconciler, syncTracker, poll.Config{
		PageSize:       cfg.Shopify.PageSize,
		MaxPagesPerRun: cfg.Sync.MaxPagesPerRun,
	}, log)
	tenantService := admin.NewTenantService(tenantRepo, log)
	jwtService := auth.NewJWTService(cfg.JWT)

	// Background sync scheduler
	syncScheduler, err := scheduler.NewSyncScheduler(scheduler.Config{
		Enabled:      cfg.Scheduler.Enabled,
		PollInterval: cfg.Scheduler.PollInterval,
		WorkerCount:  cfg.Scheduler.WorkerCount,
		JobTimeout:   cfg.Scheduler.JobTimeout,
		HistorySize:  cfg.Scheduler.HistorySize,
		QueueSize:    scheduler.DefaultConfig().QueueSize,
	}, orchestrator, tenantRepo, log)
	if err != nil {
		log.Fatal("Failed to initialize sync scheduler", zap.Error(err))
	}
	if err := syncScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := syncScheduler.Stop(ctx); err != nil {
			log.Error("Error stopping sync scheduler", zap.Error(err))
		}
	}()
	log.Info("Sync scheduler started",
		zap.Bool("periodic", cfg.Scheduler.Enabled),
		zap.Duration("poll_interval", cfg.Scheduler.PollInterval),
		zap.Int("worker_count", cfg.Scheduler.WorkerCount),
	)

	// HTTP handlers
	webhookHandler := handler.NewWebhookHandler(admitter, log)
	tenantHandler := handler.NewTenantHandler(tenantService)
	syncHandler := handler.NewSyncHandler(syncScheduler, tenantRepo, syncTracker)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", healthHandler(db))

	router.New(engine,
		router.WithAPIVersion("v1"),
		router.WithAuth(middleware.JWTAuth(jwtService)),
	).
		Public(webhookHandler).
		Protected(tenantHandler, syncHandler).
		Setup()

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports service and database health
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
