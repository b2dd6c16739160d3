package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	possyncapp "github.com/posbridge/backend/internal/application/possync"
	"github.com/posbridge/backend/internal/domain/possync"
	"github.com/posbridge/backend/internal/infrastructure/cache"
	"github.com/posbridge/backend/internal/infrastructure/config"
	"github.com/posbridge/backend/internal/infrastructure/logger"
	"github.com/posbridge/backend/internal/infrastructure/persistence"
	"github.com/posbridge/backend/internal/infrastructure/pos"
	"github.com/posbridge/backend/internal/infrastructure/scheduler"
	"github.com/posbridge/backend/internal/infrastructure/telemetry"
	"github.com/posbridge/backend/internal/interfaces/http/handler"
	"github.com/posbridge/backend/internal/interfaces/http/middleware"
	"github.com/posbridge/backend/internal/interfaces/http/router"
)

//	@title			PosBridge Sync API
//	@version		1.0
//	@description	Catalog and inventory synchronization between the local commerce backend and external POS providers.

//	@contact.name	API Support
//	@contact.url	https://github.com/posbridge/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting PosBridge Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Run lock and webhook dedup live in Redis when available so multiple
	// instances coordinate; otherwise the database lock and an in-process
	// dedup store cover single-instance deployments.
	var (
		locks possync.RunLockManager
		dedup possync.EventDedupStore
	)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		locks = cache.NewRedisRunLockManager(redisClient, "")
		dedup = cache.NewRedisEventDedupStore(redisClient, "")
		log.Info("Redis connected, using Redis run lock and event dedup")
	} else {
		locks = persistence.NewGormRunLockManager(db.DB)
		dedupStore := cache.NewInMemoryEventDedupStore()
		defer func() {
			_ = dedupStore.Close()
		}()
		dedup = dedupStore
		log.Info("Redis disabled, using database run lock and in-memory event dedup")
	}

	// Initialize repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	mappingRepo := persistence.NewGormPosMappingRepository(db.DB)
	stockLevelRepo := persistence.NewGormStockLevelRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	localCatalog := persistence.NewGormLocalCatalog(db.DB)

	// Provider adapters. Credentials are never stored here; the token service
	// resolves them per request.
	credentials := pos.NewCredentialClient(cfg.Credentials)
	registry := pos.NewRegistry()
	if cfg.Providers.Square.Enabled {
		registry.Register(pos.NewSquareAdapter(cfg.Providers.Square, credentials))
		log.Info("Square adapter registered", zap.String("base_url", cfg.Providers.Square.BaseURL))
	}
	if len(registry.ListAdapters()) == 0 {
		log.Warn("No provider adapters enabled, sync triggers will be rejected")
	}

	// Initialize application services
	executor := possyncapp.NewBatchExecutor(log, uint(cfg.Sync.MaxPushAttempts))
	catalogSyncer := possyncapp.NewCatalogSyncer(mappingRepo, localCatalog, executor, log)
	inventorySyncer := possyncapp.NewInventorySyncer(mappingRepo, stockLevelRepo, localCatalog, executor, log)
	orchestrator := possyncapp.NewOrchestrator(
		integrationRepo, syncLogRepo, locks, registry,
		catalogSyncer, inventorySyncer, log,
		possyncapp.OrchestratorOptions{
			RunDeadline: cfg.Sync.RunDeadline,
			LockTTL:     cfg.Sync.LockTTL,
		},
	)
	webhookService := possyncapp.NewWebhookService(
		integrationRepo, credentials, mappingRepo, dedup, registry,
		orchestrator, log, cfg.Webhook.DedupTTL,
	)
	integrationService := possyncapp.NewIntegrationService(integrationRepo, registry, log)
	syncLogQuery := possyncapp.NewSyncLogQueryService(syncLogRepo)
	mappingQuery := possyncapp.NewMappingQueryService(mappingRepo)

	// Initialize metrics (if enabled)
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled {
		syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
			Meter:  meterProvider.Meter("posbridge.sync"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Failed to initialize sync metrics", zap.Error(err))
		} else {
			orchestrator.SetMetrics(syncMetrics)
			webhookService.SetMetrics(syncMetrics)
			log.Info("Sync metrics enabled", zap.String("endpoint", cfg.Telemetry.CollectorEndpoint))
		}
	}

	// Initialize full-sync scheduler (if enabled)
	if cfg.Scheduler.Enabled {
		fullSyncScheduler, err := scheduler.NewFullSyncScheduler(scheduler.FullSyncSchedulerConfig{
			Enabled:  cfg.Scheduler.Enabled,
			Interval: cfg.Scheduler.Interval,
			Jitter:   cfg.Scheduler.Jitter,
		}, integrationRepo, orchestrator, log)
		if err != nil {
			log.Fatal("Failed to create full-sync scheduler", zap.Error(err))
		}
		if err := fullSyncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start full-sync scheduler", zap.Error(err))
		}
		defer func() {
			if err := fullSyncScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping full-sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Full-sync scheduler started",
			zap.Duration("interval", cfg.Scheduler.Interval),
			zap.Duration("jitter", cfg.Scheduler.Jitter),
		)
	}

	// Initialize HTTP handlers
	syncHandler := handler.NewSyncHandler(orchestrator, syncLogQuery, mappingQuery)
	webhookHandler := handler.NewWebhookHandler(webhookService, log, cfg.Webhook.MaxBodySize)
	integrationHandler := handler.NewIntegrationHandler(integrationService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Sync domain (manual triggers, run history, mapping lookups)
	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("/:provider/full", syncHandler.TriggerFull)
	syncRoutes.POST("/:provider/incremental", syncHandler.TriggerIncremental)
	syncRoutes.GET("/logs", syncHandler.ListLogs)
	syncRoutes.GET("/logs/:id", syncHandler.GetLog)
	syncRoutes.GET("/mappings", syncHandler.ListMappings)

	// Integration domain (provider registration and lifecycle)
	integrationRoutes := router.NewDomainGroup("integration", "/integrations")
	integrationRoutes.POST("", integrationHandler.Register)
	integrationRoutes.GET("", integrationHandler.List)
	integrationRoutes.POST("/:provider/activate", integrationHandler.Activate)
	integrationRoutes.POST("/:provider/deactivate", integrationHandler.Deactivate)

	// Webhook ingest. Providers retry on non-2xx, so this group gets its own
	// per-source rate limit keyed on provider and client address instead of
	// sharing the global one.
	webhookRoutes := router.NewDomainGroup("webhook", "/webhooks")
	if cfg.HTTP.RateLimitEnabled {
		webhookLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		webhookRoutes.Use(middleware.RateLimitByKey(webhookLimiter, func(c *gin.Context) string {
			return c.Param("provider") + ":" + c.ClientIP()
		}))
	}
	webhookRoutes.POST("/pos/:provider", webhookHandler.Receive)

	// Register all domain groups
	r.Register(syncRoutes).
		Register(integrationRoutes).
		Register(webhookRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
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

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
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
