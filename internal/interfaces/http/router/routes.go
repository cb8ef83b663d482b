package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/salesinsight/backend/internal/infrastructure/auth"
	"github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/salesinsight/backend/internal/infrastructure/logger"
	"github.com/salesinsight/backend/internal/interfaces/http/handler"
	"github.com/salesinsight/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// multipartOverhead is the room left for multipart framing on top of MaxUploadSize
const multipartOverhead = 64 << 10

// Config holds what the engine needs besides the handlers
type Config struct {
	ServiceName string
	HTTP        config.HTTPConfig
	JWTService  *auth.JWTService
	Logger      *zap.Logger

	// Tracing installs otelgin when true. TracerProvider overrides the global one.
	Tracing        bool
	TracerProvider trace.TracerProvider

	// RateLimiter is optional; the caller owns its lifecycle.
	RateLimiter *middleware.RateLimiter
}

// Handlers groups the HTTP handlers mounted by New
type Handlers struct {
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Post      *handler.PostHandler
	File      *handler.FileHandler
	Analytics *handler.AnalyticsHandler
	System    *handler.SystemHandler
}

// New builds the gin engine with the global middleware chain and every API route.
func New(cfg Config, h Handlers) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			cfg.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName:    cfg.ServiceName,
		Enabled:        cfg.Tracing,
		TracerProvider: cfg.TracerProvider,
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg.HTTP)))
	engine.Use(middleware.Secure())
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	engine.GET("/health", h.System.Health)

	jsonLimit := middleware.BodyLimit(cfg.HTTP.MaxBodySize)
	requireAuth := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: cfg.JWTService,
		Logger:     cfg.Logger,
	})

	authRoutes := NewDomainGroup("auth", "/auth").Use(jsonLimit)
	authRoutes.POST("/register", h.Auth.Register)
	authRoutes.POST("/login", h.Auth.Login)
	authRoutes.POST("/refresh", h.Auth.RefreshToken)
	authRoutes.POST("/logout", requireAuth, h.Auth.Logout)

	userRoutes := NewDomainGroup("users", "/users").Use(jsonLimit, requireAuth)
	userRoutes.GET("/me", h.User.GetCurrentUser)

	postRoutes := NewDomainGroup("posts", "/posts").Use(jsonLimit)
	postRoutes.GET("", h.Post.List)
	postRoutes.GET("/:id", h.Post.Get)
	postWrites := postRoutes.Group("posts-write", "").Use(requireAuth)
	postWrites.POST("", h.Post.Create)
	postWrites.PUT("/:id", h.Post.Update)
	postWrites.DELETE("/:id", h.Post.Delete)

	fileRoutes := NewDomainGroup("files", "/files").
		Use(middleware.BodyLimit(cfg.HTTP.MaxUploadSize+multipartOverhead), requireAuth)
	fileRoutes.POST("/upload", h.File.Upload)
	fileRoutes.GET("", h.File.List)
	fileRoutes.GET("/:id/status", h.File.GetStatus)

	analyticsRoutes := NewDomainGroup("analytics", "/analytics").Use(jsonLimit, requireAuth)
	analyticsRoutes.GET("/summary/:file_id", h.Analytics.Summary)
	analyticsRoutes.GET("/products", h.Analytics.Products)
	analyticsRoutes.GET("/regions", h.Analytics.Regions)
	analyticsRoutes.GET("/monthly", h.Analytics.Monthly)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/ping", h.System.Ping)
	systemRoutes.GET("/info", h.System.GetSystemInfo)

	NewRouter(engine, WithAPIVersion("v1")).
		Register(authRoutes).
		Register(userRoutes).
		Register(postRoutes).
		Register(fileRoutes).
		Register(analyticsRoutes).
		Register(systemRoutes).
		Setup()

	return engine
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	cors.MaxAge = 12 * time.Hour
	return cors
}
