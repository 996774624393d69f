package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http"
	mw "github.com/lorrc/service-desk-analytics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-analytics/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/csvimport"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/memory"
	"github.com/lorrc/service-desk-analytics/internal/adapters/secondary/postgres"
	"github.com/lorrc/service-desk-analytics/internal/auth"
	"github.com/lorrc/service-desk-analytics/internal/config"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
	"github.com/lorrc/service-desk-analytics/internal/core/services"
	"github.com/lorrc/service-desk-analytics/internal/infrastructure/logging"
)

// storage is the set of secondary adapters selected by STORAGE_DRIVER.
type storage struct {
	datasets  ports.DatasetRepository
	overrides ports.OverrideRepository
	txManager ports.TransactionManager
	health    httpAdapter.HealthChecker
	close     func()
}

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"storage", cfg.Storage.Driver,
	)

	// 3. Initialize Storage
	ctx := context.Background()
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.close()

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	// 5. Initialize Rate Limiters
	var generalRateLimiter *mw.RateLimiter
	var uploadLimiter func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		uploadCfg := mw.UploadRateLimiterConfig()
		uploadCfg.RequestsPerSecond = cfg.RateLimit.UploadRPS
		uploadCfg.BurstSize = cfg.RateLimit.UploadBurst
		uploadLimiter = mw.NewRateLimitByKey(uploadCfg).PerUser
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Services (Core)
	datasetService := services.NewDatasetService(
		store.datasets,
		store.overrides,
		csvimport.NewParser(),
		store.txManager,
		hub,
	)
	defer datasetService.Shutdown()
	dashboardService := services.NewDashboardService(store.datasets, store.overrides)

	// Handlers (Primary Adapters)
	dashboardHandler := httpAdapter.NewDashboardHandler(dashboardService, errorHandler, logger)
	overrideHandler := httpAdapter.NewOverrideHandler(datasetService, errorHandler, logger)
	datasetHandler := httpAdapter.NewDatasetHandler(
		datasetService,
		dashboardHandler,
		overrideHandler,
		errorHandler,
		httpAdapter.DatasetHandlerConfig{
			MaxUploadBytes: cfg.Upload.MaxBytes,
			UploadLimiter:  uploadLimiter,
		},
		logger,
	)
	meHandler := httpAdapter.NewMeHandler(logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(store.health, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(corsOptions(cfg)))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Mount("/datasets", datasetHandler.Router())
			r.Route("/me", meHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return
	}

	logger.Info("server shutdown complete")
}

// openStorage builds the repositories for the configured driver.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		store := memory.NewStore()
		logger.Warn("using in-memory storage; datasets are lost on restart")
		return &storage{
			datasets:  store.Datasets(),
			overrides: store.Overrides(),
			txManager: store.TransactionManager(),
			health:    store,
			close:     func() {},
		}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database.URL); err != nil {
			return nil, err
		}
		logger.Info("database migrations applied")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("database connection established")

	return &storage{
		datasets:  postgres.NewDatasetRepository(pool),
		overrides: postgres.NewOverrideRepository(pool),
		txManager: postgres.NewTransactionManager(pool),
		health:    pool,
		close:     pool.Close,
	}, nil
}

// corsOptions allows the dashboard origins to call the REST API. Development
// accepts any origin when none are configured.
func corsOptions(cfg *config.Config) cors.Options {
	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 && cfg.IsDevelopment() {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           cfg.CORS.MaxAge,
	}
}
