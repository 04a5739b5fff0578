// internal/interfaces/http/server.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/product"
	"github.com/your-org/catalog-backend/internal/domain/upload"
	"github.com/your-org/catalog-backend/internal/domain/user"
	"github.com/your-org/catalog-backend/internal/domain/wishlist"
	"github.com/your-org/catalog-backend/internal/infrastructure/cache"
	"github.com/your-org/catalog-backend/internal/infrastructure/database/redis"
	"github.com/your-org/catalog-backend/internal/infrastructure/storage"
	"github.com/your-org/catalog-backend/internal/interfaces/http/handlers"
	"github.com/your-org/catalog-backend/internal/interfaces/http/middleware"
	"github.com/your-org/catalog-backend/internal/interfaces/http/routes"
	"github.com/your-org/catalog-backend/internal/pkg/auth"
	"github.com/your-org/catalog-backend/internal/pkg/email"
	"github.com/your-org/catalog-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	gin         *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	disk        storage.Disk
	mailer      user.Mailer
	log         *logrus.Logger
	startedAt   time.Time
}

// NewServer creates a new HTTP server instance with its routes mounted
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, disk storage.Disk, log *logrus.Logger) *Server {
	return NewServerWithMailer(cfg, db, redisClient, disk, email.NewEmailService(cfg, log), log)
}

// NewServerWithMailer is NewServer with a custom mailer
func NewServerWithMailer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, disk storage.Disk, mailer user.Mailer, log *logrus.Logger) *Server {
	s := &Server{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		disk:        disk,
		mailer:      mailer,
		log:         log,
		startedAt:   time.Now(),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.gin = gin.New()
	if len(cfg.Security.TrustedProxies) > 0 {
		if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			log.WithError(err).Warn("invalid trusted proxies")
		}
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.log.Infof("🚀 HTTP Server starting on port %s", s.config.Server.Port)
	s.log.Infof("🌐 API Base URL: http://localhost:%s/api", s.config.Server.Port)
	s.log.Infof("📊 Health Check: http://localhost:%s/health", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("🛑 Shutting down HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("✅ HTTP server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.log))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	s.gin.Use(middleware.RateLimit(s.config.Security.RateLimitPerMinute, s.redisClient.GetClient(), s.log))
	s.gin.Use(middleware.RequestSizeLimit(s.config.Server.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

// setupRoutes wires services into handlers and mounts them under /api
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	if local, ok := s.disk.(*storage.LocalDisk); ok {
		s.gin.Static("/storage", local.Root())
	}

	catalogCache := cache.NewCatalog(s.redisClient, s.config.Catalog.CacheTTL, s.log)
	uploads := upload.NewService(s.disk, s.config, s.log)
	categories := product.NewCategoryService(s.db, catalogCache, s.config, s.log)
	brands := product.NewBrandService(s.db, catalogCache, uploads, s.config, s.log)
	products := product.NewService(s.db, categories, brands, uploads, catalogCache, s.config, s.log)
	wishlists := wishlist.NewService(s.db, uploads.URL, s.config, s.log)

	jwtManager := auth.NewJWTManager(s.config)
	blacklist := auth.NewBlacklist(s.redisClient.GetClient())
	resets := auth.NewPasswordResets(s.redisClient.GetClient(), s.config)
	users := user.NewService(s.db, s.config, blacklist, resets, s.mailer, s.log)

	h := &routes.Handlers{
		Auth:          handlers.NewAuthHandler(users, s.log),
		Products:      handlers.NewProductHandler(products, wishlists, uploads.URL, s.log),
		AdminProducts: handlers.NewAdminProductHandler(products, pdf.NewService(s.config), uploads.URL, s.log),
		Categories:    handlers.NewCategoryHandler(categories, s.log),
		Brands:        handlers.NewBrandHandler(brands, s.log),
		Wishlist:      handlers.NewWishlistHandler(wishlists, s.log),
		Dashboard:     handlers.NewDashboardHandler(products, wishlists, uploads.URL, s.log),
	}
	guards := routes.Guards{
		Auth:     middleware.AuthMiddleware(jwtManager, blacklist, s.log),
		Optional: middleware.OptionalAuthMiddleware(jwtManager, blacklist),
	}

	routes.SetupRoutes(s.gin.Group("/api"), h, guards)

	s.gin.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Not Found",
			"status":  http.StatusNotFound,
		})
	})
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.log.WithError(err).Error("database health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database ping failed",
		})
		return
	}

	if err := s.redisClient.Health(ctx); err != nil {
		s.log.WithError(err).Error("redis health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "redis ping failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck handles readiness check requests
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
