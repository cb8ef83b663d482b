package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/salesinsight/backend/internal/application/analytics"
	"github.com/salesinsight/backend/internal/application/identity"
	"github.com/salesinsight/backend/internal/application/ingest"
	postapp "github.com/salesinsight/backend/internal/application/post"
	"github.com/salesinsight/backend/internal/infrastructure/auth"
	"github.com/salesinsight/backend/internal/infrastructure/cache"
	"github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/salesinsight/backend/internal/infrastructure/logger"
	"github.com/salesinsight/backend/internal/infrastructure/persistence"
	"github.com/salesinsight/backend/internal/infrastructure/scheduler"
	"github.com/salesinsight/backend/internal/infrastructure/storage"
	"github.com/salesinsight/backend/internal/infrastructure/telemetry"
	"github.com/salesinsight/backend/internal/interfaces/http/handler"
	"github.com/salesinsight/backend/internal/interfaces/http/middleware"
	"github.com/salesinsight/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			SalesInsight API
//	@version		1.0
//	@description	Sales file ingestion and analytics backend
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting SalesInsight backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	telemetryCfg := telemetry.ConfigFrom(cfg.Telemetry)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() { _ = tracerProvider.Shutdown(context.Background()) }()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()

	salesMetrics, err := telemetry.NewSalesMetrics(meterProvider.Meter("salesinsight"))
	if err != nil {
		log.Fatal("Failed to create sales metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	dbTracingCfg := telemetry.DefaultDBTracingConfig()
	dbTracingCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracingCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if cfg.Database.Driver == "sqlite" {
		dbTracingCfg.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(dbTracingCfg, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		log.Info("Database schema migrated")
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Cache, blob storage and the ingestion worker pool
	cacheStore, err := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer func() { _ = cacheStore.Close() }()

	blobs, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	pool, err := scheduler.NewPool(scheduler.Config{
		Workers:     cfg.Ingest.Workers,
		QueueSize:   cfg.Ingest.QueueSize,
		TaskTimeout: cfg.Ingest.TaskTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create ingestion pool", zap.Error(err))
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatal("Failed to start ingestion pool", zap.Error(err))
	}

	// Repositories and services
	uploadRepo := persistence.NewGormUploadRepository(db.DB)
	recordRepo := persistence.NewGormFactRecordRepository(db.DB, cfg.Ingest.BatchSize)
	summaryRepo := persistence.NewGormSummaryRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	tokenRepo := persistence.NewGormRefreshTokenRepository(db.DB)
	postRepo := persistence.NewGormPostRepository(db.DB)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identity.NewAuthService(userRepo, tokenRepo, jwtService, log)
	postService := postapp.NewService(postRepo, log)

	processor := ingest.NewProcessor(uploadRepo, recordRepo, summaryRepo, blobs,
		ingest.ProcessorConfig{
			MaxRowErrors: cfg.Ingest.MaxRowErrors,
			CSVDelimiter: cfg.Ingest.Delimiter(),
			XLSXSheet:    cfg.Ingest.XLSXSheet,
		}, log,
		ingest.WithMetrics(salesMetrics),
	)
	uploadService := ingest.NewUploadService(uploadRepo, blobs, pool, processor, log)
	queryService := analytics.NewQueryService(uploadRepo, recordRepo, summaryRepo, cacheStore,
		analytics.Config{CacheTTL: cfg.Analytics.CacheTTL, CachePrefix: cfg.Analytics.CachePrefix}, log,
		analytics.WithCacheRecorder(salesMetrics),
	)

	// HTTP
	systemHandler := handler.NewSystemHandler(cfg.App.Name, serviceVersion)
	systemHandler.AddCheck("database", func(context.Context) error { return db.Ping() })
	systemHandler.AddCheck("cache", func(ctx context.Context) error {
		_, _, err := cacheStore.Get(ctx, "health")
		return err
	})

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine := router.New(router.Config{
		ServiceName: telemetryCfg.ServiceName,
		HTTP:        cfg.HTTP,
		JWTService:  jwtService,
		Logger:      log,
		Tracing:     tracerProvider.IsEnabled(),
		RateLimiter: rateLimiter,
	}, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		User:      handler.NewUserHandler(authService),
		Post:      handler.NewPostHandler(postService),
		File:      handler.NewFileHandler(uploadService, cfg.HTTP.MaxUploadSize),
		Analytics: handler.NewAnalyticsHandler(queryService),
		System:    systemHandler,
	})

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// in-flight uploads finish or fail before the database closes
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping ingestion pool", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
