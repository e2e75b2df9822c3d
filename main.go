package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/solang-dev/solang-keys/src/config"
	"github.com/solang-dev/solang-keys/src/database"
	"github.com/solang-dev/solang-keys/src/handlers"
	"github.com/solang-dev/solang-keys/src/logging"
	"github.com/solang-dev/solang-keys/src/middleware"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories/postgres"
	"github.com/solang-dev/solang-keys/src/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("enforce_quota", cfg.EnforceQuota).
		Msg("starting server")

	// Load tier catalog (built-in defaults unless TIERS_FILE overrides them)
	catalog, err := models.LoadTierCatalog(cfg.TiersFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load tier catalog")
	}
	for _, tier := range catalog.Tiers() {
		quota, _ := catalog.QuotaFor(tier)
		log.Info().Str("tier", string(tier)).Int("credits", quota).Msg("tier registered")
	}

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Msg("database connected")

	// Initialize JWT secret in middleware
	if err := middleware.SetJWTSecret(cfg.JWTSecret); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize JWT secret")
	}

	// Repositories
	keyRepo := postgres.NewKeyRepository(db.GetPool())
	adminRepo := postgres.NewAdminRepository(db.GetPool())

	// Services
	keyService := services.NewKeyService(keyRepo, catalog, services.NewKeyGenerator())
	usageService := services.NewUsageService(keyRepo, catalog)
	validationService := services.NewValidationService(keyRepo, usageService, cfg.EnforceQuota)
	adminService := services.NewAdminService(adminRepo, keyRepo)

	// Auto-seed the first admin user when credentials are provided
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
		hasAdmins, err := adminService.HasAdmins(seedCtx)
		if err != nil {
			log.Error().Err(err).Msg("failed to check for existing admin users")
		} else if !hasAdmins {
			if _, err := adminService.CreateAdminUser(seedCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
				log.Error().Err(err).Msg("failed to create initial admin user")
			} else {
				log.Info().Str("username", cfg.AdminUsername).Msg("initial admin user created")
			}
		}
		seedCancel()
	}

	// Create Gin router
	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	// CORS for the dashboard client
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  allowOrigin(cfg.AllowedOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	setupRoutes(router, db, cfg, catalog, keyService, usageService, validationService, adminService)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server shut down successfully")
}

func setupRoutes(
	router *gin.Engine,
	db *database.Database,
	cfg *config.Config,
	catalog *models.TierCatalog,
	keyService *services.KeyService,
	usageService *services.UsageService,
	validationService *services.ValidationService,
	adminService *services.AdminService,
) {
	healthHandler := handlers.NewHealthHandler(db)
	keysHandler := handlers.NewKeysHandler(keyService)
	usageHandler := handlers.NewUsageHandler(keyService, usageService, catalog)
	validateHandler := handlers.NewValidateHandler(validationService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Health check endpoints
	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/ready", healthHandler.HandleReady)

	sessionAuth := middleware.SessionAuthMiddleware(cfg.RequireConsent)

	// Validation endpoint, called on every downstream request
	router.POST("/api/validate-key",
		sessionAuth,
		middleware.NewAccountRateLimitingMiddleware(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             cfg.RateLimitBurst,
		}),
		validateHandler.HandleValidateKey)

	// Key lifecycle endpoints, consumed by the dashboard
	api := router.Group("/api", sessionAuth)
	{
		api.GET("/keys", keysHandler.HandleListKeys)
		api.POST("/keys", keysHandler.HandleCreateKey)
		api.PUT("/keys/:key_id", keysHandler.HandleRenameKey)
		api.DELETE("/keys/:key_id", keysHandler.HandleDeleteKey)
		api.GET("/keys/:key_id/reveal", keysHandler.HandleRevealKey)

		api.GET("/keys/:key_id/usage", usageHandler.HandleGetUsage)
		api.POST("/keys/:key_id/usage", usageHandler.HandleRecordUsage)

		api.GET("/plan", usageHandler.HandleGetPlan)
	}

	// Admin endpoints
	router.POST("/admin/login",
		middleware.NewIPRateLimitingMiddleware(middleware.RateLimitConfig{RequestsPerMinute: 3, Burst: 1}),
		adminHandler.HandleAdminLogin)
	router.POST("/admin/logout", middleware.AdminAuthMiddleware(), adminHandler.HandleAdminLogout)
	router.GET("/admin/status", middleware.AdminAuthMiddleware(), adminHandler.HandleAdminStatus)
	router.GET("/admin/keys", middleware.AdminAuthMiddleware(), adminHandler.HandleListKeys)
}

// allowOrigin builds the CORS origin check from the comma-separated
// ALLOWED_ORIGINS value. Localhost is always allowed for development.
func allowOrigin(allowed string) func(string) bool {
	var origins []string
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return func(origin string) bool {
		if origin == "http://localhost" || strings.HasPrefix(origin, "http://localhost:") {
			return true
		}
		for _, o := range origins {
			if origin == o {
				return true
			}
		}
		return false
	}
}
