package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asklokesh/FireLater-sub015/internal/config"
	"github.com/asklokesh/FireLater-sub015/internal/infra/http"
	"github.com/asklokesh/FireLater-sub015/internal/infra/postgres"
	"github.com/asklokesh/FireLater-sub015/internal/infra/redis"
	"github.com/asklokesh/FireLater-sub015/internal/tracing"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.App.Name)
	if err != nil {
		log.Error("failed to set up tracing", "error", err)
		return 1
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("failed to shut down tracing", "error", err)
		}
	}()

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	// ==========================================================================
	// Repositories
	// ==========================================================================
	repos := NewRepositories(db, redisClient, log)
	if err := repos.Provisioner.EnsureDirectory(ctx); err != nil {
		log.Error("failed to ensure tenant directory", "error", err)
		return 1
	}
	log.Info("repositories initialized")

	// ==========================================================================
	// Job Queue
	// ==========================================================================
	jobClient := NewJobClient(cfg, log)
	defer closeWithLog(jobClient, "job client", log)

	jobAdmin := NewJobAdmin(cfg, log)
	defer closeWithLog(jobAdmin, "job admin", log)

	// ==========================================================================
	// Services
	// ==========================================================================
	services, err := NewServices(cfg, repos, jobClient, log)
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		return 1
	}
	log.Info("services initialized")

	// ==========================================================================
	// Workers
	// ==========================================================================
	worker := NewJobWorker(cfg, services, log)
	if err := worker.Start(); err != nil {
		log.Error("failed to start queue worker", "error", err)
		return 1
	}
	log.Info("queue worker started", "concurrency", cfg.Queue.Concurrency)

	services.Orchestrator.Start()
	log.Info("scheduler started")

	// ==========================================================================
	// HTTP Server
	// ==========================================================================
	handlers := NewHandlers(db, redisClient, jobAdmin, services, log)
	router := http.NewRouter(handlers, log)
	server := http.NewServer(&cfg.Server, router, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop the scheduler first so no new work is enqueued, then drain the
	// worker, then stop accepting HTTP traffic.
	services.Orchestrator.Stop()
	worker.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

// =============================================================================
// Helper Functions
// =============================================================================

func initLogger(cfg *config.Config) *logger.Logger {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
