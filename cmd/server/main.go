package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"hr-backend/internal/admin"
	"hr-backend/internal/auth"
	"hr-backend/internal/config"
	"hr-backend/internal/engine"
	"hr-backend/internal/instrument"
	"hr-backend/internal/logging"
	"hr-backend/internal/metadata"
	"hr-backend/internal/storage"
	"hr-backend/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	logger.Info("config loaded",
		zap.Int("port", cfg.Server.Port),
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name))

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 3. Bootstrap auth tables
	if err := db.Bootstrap(ctx); err != nil {
		logger.Fatal("failed to bootstrap auth tables", zap.Error(err))
	}

	// 4. Registry, metrics, handlers
	reg, err := metadata.Build(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("failed to load entity catalog", zap.Error(err))
	}
	promReg := prometheus.NewRegistry()
	metrics := instrument.NewMetrics(promReg)

	engineHandler, err := engine.NewHandler(db, reg, metrics, logger)
	if err != nil {
		logger.Fatal("failed to compile entity rules", zap.Error(err))
	}
	uploads := storage.NewLocalStorage(cfg.Storage.LocalPath)
	if err := os.MkdirAll(filepath.Join(uploads.Root(), engine.UploadDir), 0o755); err != nil {
		logger.Fatal("failed to create upload directory", zap.Error(err))
	}
	fileHandler := engine.NewFileHandler(uploads, cfg.Storage.MaxFileSize, logger)

	sessions := auth.NewSessionStore(db)
	limiter := auth.NewLoginLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst)
	authHandler := auth.NewAuthHandler(sessions, cfg.Auth.Secret, limiter, metrics, logger)
	adminHandler := admin.NewHandler(db, reg, sessions)

	sweeper := auth.NewSweeper(sessions, time.Duration(cfg.Auth.SweepInterval)*time.Second, logger)
	sweeper.Start()
	defer sweeper.Stop()

	// 5. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: engine.ErrorHandler(logger),
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(instrument.RequestObserver(logger, metrics))

	// 6. Health, metrics and uploaded files
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", instrument.MetricsHandler(promReg))
	registerUploads(app, uploads.Root(), cfg.Server.CORSOrigin)

	// 7. Public auth routes, then the session gate for everything else
	api := app.Group("/api")
	auth.RegisterPublicRoutes(api, authHandler)

	protected := api.Group("", auth.SessionGate(sessions, cfg.Auth.Secret, metrics, logger))
	auth.RegisterPrivateRoutes(protected, authHandler)
	admin.RegisterAdminRoutes(protected, adminHandler)
	engine.RegisterRoutes(protected, engineHandler, fileHandler)

	// 8. Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("starting server", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// registerUploads serves stored uploads without caching. When origin is set,
// that origin may fetch them cross-site (GET and preflight only).
func registerUploads(app *fiber.App, root, origin string) {
	group := app.Group("/uploads", func(c *fiber.Ctx) error {
		err := c.Next()
		c.Set(fiber.HeaderCacheControl, "no-store")
		return err
	})
	if origin != "" {
		group.Use(cors.New(cors.Config{
			AllowOrigins: origin,
			AllowMethods: "GET,OPTIONS",
		}))
	}
	group.Static("/", root)
}
