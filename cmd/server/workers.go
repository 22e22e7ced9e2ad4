package main

import (
	"github.com/asklokesh/FireLater-sub015/internal/config"
	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// NewJobClient creates the enqueue-side queue client.
func NewJobClient(cfg *config.Config, log *logger.Logger) *jobs.Client {
	return jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
}

// NewJobAdmin creates the queue inspection client backing the admin API.
func NewJobAdmin(cfg *config.Config, log *logger.Logger) *jobs.Admin {
	return jobs.NewAdmin(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
}

// NewJobWorker creates the queue worker with every task type bound to its
// processor.
func NewJobWorker(cfg *config.Config, services *Services, log *logger.Logger) *jobs.Worker {
	handlers := jobs.NewTaskHandlers(log).
		WithReports(services.Report).
		WithHealthScores(services.HealthScore).
		WithSLA(services.SLAEvaluator).
		WithNotifications(services.Notification).
		WithSync(services.Sync).
		WithCleanup(services.Cleanup).
		WithActions(services.Engine)

	return jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Queue.Concurrency,
	}, handlers, log)
}
