package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ideafiles/docs"
	"ideafiles/internal/config"
	"ideafiles/internal/database"
	"ideafiles/internal/database/migration"
	handlers "ideafiles/internal/http/handler"
	"ideafiles/internal/http/middleware"
	"ideafiles/internal/logging"
	"ideafiles/internal/otel"
	"ideafiles/internal/ownership"
	"ideafiles/internal/repository/postgres"
	"ideafiles/internal/service"
	"ideafiles/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Idea Files API
// @version 1.0
// @description File attachments for ideas, kept consistent between PostgreSQL metadata and object storage.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logging.New(cfg.Location())

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, log logging.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn(flushCtx, "tracing_shutdown_failed", "error", err.Error())
		}
	}()

	// PostgreSQL connection pool shared by all requests
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return err
	}

	objStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	owners, err := ownership.NewHTTPValidator(cfg.Ownership)
	if err != nil {
		return fmt.Errorf("failed to initialize ownership client: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	fileMetrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register service metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	fileSvc := service.NewFileService(objStore, postgres.NewTxManager(db), owners, cfg.Storage.Bucket,
		service.WithLogger(log.With("component", "file_service")),
		service.WithMetrics(fileMetrics),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.BodyLimit(),
		DisableStartupMessage: true,
	})

	// RequestID first so every later middleware and log line can see it
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(cfg.Location()))
	app.Use(httpMetrics.Handler())
	app.Use(otelfiber.Middleware())

	handlers.RegisterRoutes(app, db, fileSvc, reg)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	listenErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "server_listening", "addr", addr, "storage_driver", cfg.Storage.Driver, "bucket", cfg.Storage.Bucket)
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "server_shutting_down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
