package main

import (
	"github.com/asklokesh/FireLater-sub015/internal/infra/http"
	"github.com/asklokesh/FireLater-sub015/internal/infra/http/handler"
	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/internal/infra/postgres"
	"github.com/asklokesh/FireLater-sub015/internal/infra/redis"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// NewHandlers creates all HTTP handler instances.
func NewHandlers(db *postgres.DB, redisClient *redis.Client, admin *jobs.Admin, services *Services, log *logger.Logger) http.Handlers {
	return http.Handlers{
		Health:      handler.NewHealthHandler(db, redisClient),
		Tenants:     handler.NewTenantHandler(services.Tenant, log),
		Requests:    handler.NewRequestHandler(services.Approval, log),
		Rules:       handler.NewRuleHandler(services.Rule, log),
		Reports:     handler.NewReportHandler(services.Report, log),
		SLA:         handler.NewSLAHandler(services.SLAPolicy, log),
		HealthScore: handler.NewHealthScoreHandler(services.HealthScore, log),
		Queues:      handler.NewQueueHandler(admin, log),
		Scheduler:   handler.NewSchedulerHandler(services.Orchestrator, log),
	}
}
