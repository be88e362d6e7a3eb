// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"instrument-service/internal/config"
	"instrument-service/internal/database"
	"instrument-service/internal/handler"
	"instrument-service/internal/instrument"
	"instrument-service/internal/repository"
	"instrument-service/internal/routes"
	"instrument-service/internal/scpi"
	"instrument-service/internal/service"
	"instrument-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB
	eventBus *handler.EventBus

	// Services
	benchService     *service.BenchService
	sweepService     *service.SweepService
	discoveryService *service.DiscoveryService

	// Repositories
	sweepRepo       repository.SweepRepository
	measurementRepo repository.MeasurementRepository

	// Adapter registry
	registry *scpi.Registry
}

// @title Instrument Service API
// @version 1.0.0
// @description Lab bench automation service for SCPI instruments: connection management, measurement sweeps, and live event streaming
// @termsOfService http://swagger.io/terms/

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8086
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "instrument-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg.App)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := app.initializeRegistry(); err != nil {
		return nil, fmt.Errorf("failed to initialize adapter registry: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeDatabase sets up the results store and runs migrations
func (app *Application) initializeDatabase() error {
	db, err := database.New(app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	app.database = db

	migrator := database.NewMigrator(db, app.logger, &app.config.Database)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeRepositories creates repository instances
func (app *Application) initializeRepositories() error {
	app.sweepRepo = repository.NewSweepRepository(app.database, app.logger)
	app.measurementRepo = repository.NewMeasurementRepository(app.database, app.logger)

	app.logger.Info("Repositories initialized successfully")
	return nil
}

// initializeRegistry sets up the instrument adapter registry
func (app *Application) initializeRegistry() error {
	app.registry = scpi.NewRegistry(app.logger)
	instrument.RegisterDefaults(app.registry, app.logger)

	app.logger.Info("Adapter registry initialized successfully",
		zap.Strings("adapters", app.registry.Adapters()),
	)
	return nil
}

// initializeServices creates service instances
func (app *Application) initializeServices() error {
	app.eventBus = handler.NewEventBus(app.logger)
	go app.eventBus.Start()

	benchService, err := service.NewBenchService(
		app.config,
		app.registry,
		app.eventBus,
		app.logger,
	)
	if err != nil {
		return err
	}
	app.benchService = benchService

	app.sweepService = service.NewSweepService(
		app.benchService,
		app.sweepRepo,
		app.measurementRepo,
		app.config,
		app.eventBus,
		app.logger,
	)

	app.discoveryService = service.NewDiscoveryService(app.config, app.registry, app.logger)

	app.logger.Info("Services initialized successfully")
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.benchService,
		app.sweepService,
		app.discoveryService,
		app.eventBus,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	go app.connectBench()
	go app.startCleanupService()

	app.logger.Info("Background services started")
}

// connectBench connects configured instruments at startup. Failures are
// logged and left for operators to retry over the API.
func (app *Application) connectBench() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.benchService.ConnectAll(ctx); err != nil {
		app.logger.Warn("Bench startup connection incomplete", zap.Error(err))
	}
}

// startCleanupService periodically removes old completed sweeps
func (app *Application) startCleanupService() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started")

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

		oldDate := time.Now().AddDate(0, 0, -90)
		deleted, err := app.sweepRepo.DeleteOldRuns(ctx, oldDate)
		if err != nil {
			app.logger.Error("Failed to cleanup old sweep runs", zap.Error(err))
		} else if deleted > 0 {
			app.logger.Info("Cleaned up old sweep runs", zap.Int64("deleted", deleted))
		}

		cancel()
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "instrument-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Leave the bench in a safe state before dropping sessions.
	app.benchService.CloseAll()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}
