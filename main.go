package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/audit"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/auth"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/config"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/database"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/handlers"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/logging"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/middleware"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/repositories"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/retry"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", cfg.Database.Database),
		zap.String("ingest_platform", cfg.Ingest.PlatformTag),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification))

	ctx := context.Background()

	// Migrations run over database/sql; the service itself uses pgx pools.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		return database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger)
	})
	if err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	// The database may still be coming up when the service starts.
	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("conn", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
			zap.Error(err))
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient == nil {
		logger.Info("Redis not configured; API key cache disabled")
	}

	// Repositories
	integrationRepo := repositories.NewIntegrationRepository()
	automationRepo := repositories.NewAutomationRepository()
	activityRepo := repositories.NewActivityRepository()

	// Services
	keyVerifier := services.NewKeyVerifier(db, integrationRepo, redisClient, cfg.Ingest.KeyCacheTTL, logger)
	runLogger := services.NewRunLogger(cfg.Ingest.PlatformTag, automationRepo, activityRepo, logger)
	automationService := services.NewAutomationService(cfg.Ingest.PlatformTag, automationRepo, activityRepo)
	integrationService := services.NewIntegrationService(integrationRepo, keyVerifier, logger)

	// Auth
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	auditor := audit.NewSecurityAuditor(logger)

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	keyMiddleware := auth.NewAPIKeyMiddleware(keyVerifier, auditor, logger)
	scopeMiddleware := handlers.ScopeMiddleware(database.WithUserContext(db, logger))

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	ingestHandler := handlers.NewIngestHandler(runLogger, automationService, cfg.Ingest.MaxBodyBytes, logger)
	ingestHandler.RegisterRoutes(mux, keyMiddleware, scopeMiddleware)

	integrationsHandler := handlers.NewIntegrationsHandler(integrationService, automationService, auditor, logger)
	integrationsHandler.RegisterRoutes(mux, authMiddleware, scopeMiddleware)

	handler := middleware.CORS(middleware.RequestLogger(logger)(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting orbit-api",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
