package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/cache"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/database"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/logging"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/repository"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/routes"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/scheduler"
	"github.com/ahmetcoskunkizilkaya/campus-lostfound/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	cleanupDone := make(chan struct{})
	var (
		db           *gorm.DB
		pgLogHandler *logging.PGHandler
		repo         repository.ItemRepository
		storePing    handlers.PingFunc
	)

	if cfg.UsesPostgres() {
		var err error
		db, err = database.Connect(cfg)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.MigrateShared(db); err != nil {
			slog.Error("shared migration failed", "error", err)
			os.Exit(1)
		}

		pgRepo := repository.NewPostgresItemRepository(db, cfg.QueryTimeout)
		if err := pgRepo.Migrate(); err != nil {
			slog.Error("item migration failed", "error", err)
			os.Exit(1)
		}
		repo = pgRepo
		storePing = func(ctx context.Context) error { return database.Ping(ctx, db) }

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler = logging.NewPGHandler(db, 5*time.Second)
		logging.Setup(cfg.LogLevel, pgLogHandler)

		logging.StartCleanup(db, cfg.LogRetention, cleanupDone)
	} else {
		slog.Warn("using in-memory item store; data is lost on restart")
		repo = repository.NewMemoryItemRepository()
	}

	// Stats cache: Redis when configured, process memory otherwise
	var (
		statsCache  cache.StatsCache
		redisClient *redis.Client
		cachePing   handlers.PingFunc
	)
	if cfg.RedisAddr != "" {
		var err error
		redisClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			slog.Error("redis unavailable, falling back to in-process stats cache", "error", err)
		} else {
			statsCache = cache.NewRedisStatsCache(redisClient, cfg.StatsCacheTTL)
			cachePing = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}
	if statsCache == nil {
		statsCache = cache.NewMemoryStatsCache(cfg.StatsCacheTTL)
	}

	// Services
	itemService := services.NewItemService(repo, statsCache)
	matchService := services.NewMatchService(repo, statsCache, cfg.MatchPoolLimit)
	lifecycleService := services.NewLifecycleService(repo, statsCache, services.LifecycleConfig{
		ExpiryAge: cfg.ItemExpiryAge,
	})
	ledgerService := services.NewLedgerService(repo, services.NewContentFilter(services.BannedWords))
	searchService := services.NewSearchService(repo, statsCache)

	// Expiry sweep
	sweepDone := make(chan struct{})
	scheduler.StartExpirySweep(lifecycleService, cfg.SweepInterval, time.Minute, sweepDone)

	// Handlers
	itemHandler := handlers.NewItemHandler(itemService, matchService, lifecycleService, ledgerService, searchService)
	healthHandler := handlers.NewHealthHandler(storePing, cachePing)
	adminHandler := handlers.NewAdminHandler(lifecycleService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, itemHandler, healthHandler, adminHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(sweepDone)
	close(cleanupDone)
	if pgLogHandler != nil {
		pgLogHandler.Stop()
	}
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	// Close database connections
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				slog.Error("database close error", "error", err)
			}
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
