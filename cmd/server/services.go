package main

import (
	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/internal/config"
	"github.com/asklokesh/FireLater-sub015/internal/infra/external"
	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/internal/infra/notification"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
	"github.com/asklokesh/FireLater-sub015/pkg/validator"
)

// Services holds all service instances.
type Services struct {
	Bus          *app.EventBus
	Tenant       *app.TenantService
	Approval     *app.ApprovalService
	Rule         *app.RuleService
	SLAPolicy    *app.SLAPolicyService
	SLAEvaluator *app.SLAEvaluator
	Report       *app.ReportService
	HealthScore  *app.HealthScoreService
	Cleanup      *app.CleanupService
	Notification *app.NotificationService
	Sync         *app.SyncService
	Engine       *app.WorkflowEngine
	Orchestrator *app.Orchestrator
}

// NewServices wires the application services together: repositories below,
// the job client for deferred work, and the event bus connecting approval
// transitions to the rule engine.
func NewServices(cfg *config.Config, repos *Repositories, jobClient *jobs.Client, log *logger.Logger) (*Services, error) {
	bus := app.NewEventBus(log)
	v := validator.New()

	s := &Services{
		Bus:          bus,
		Tenant:       app.NewTenantService(repos.Tenant, repos.Provisioner, log),
		Approval:     app.NewApprovalService(repos.Request, repos.Tenant, bus, log),
		Rule:         app.NewRuleService(repos.Rule, repos.ExecutionLog, repos.Tenant, v, log),
		SLAPolicy:    app.NewSLAPolicyService(repos.SLA, repos.Tenant, log),
		SLAEvaluator: app.NewSLAEvaluator(repos.SLA, repos.Tenant, jobClient, cfg.Scheduler.TenantSweepParallel, log),
		Report:       app.NewReportService(repos.Report, repos.Tenant, repos.ReportSource, jobClient, log),
		HealthScore:  app.NewHealthScoreService(repos.HealthScore, repos.Tenant, jobClient, log),
		Notification: newNotificationService(cfg, log),
		Sync:         newSyncService(cfg, log),
	}

	s.Cleanup = app.NewCleanupService(repos.ExecutionLog, repos.Request, repos.Tenant, jobClient, app.RetentionPolicy{
		ExecutionLogDays:  cfg.Retention.ExecutionLogDays,
		StatusHistoryDays: cfg.Retention.StatusHistoryDays,
	}, log)

	registry := app.NewActionRegistry(jobClient, repos.Mutator, log)
	s.Engine = app.NewWorkflowEngine(repos.Rule, repos.ExecutionLog, registry, app.WorkflowEngineConfig{
		PerTenantActionRate:  cfg.Scheduler.PerTenantActionRate,
		PerTenantActionBurst: cfg.Scheduler.PerTenantActionBurst,
	}, log)
	s.Engine.SubscribeTo(bus)

	scheduler := app.NewScheduler(log)
	orchestrator, err := app.NewOrchestrator(scheduler, s.SLAEvaluator, s.Report, s.HealthScore, s.Cleanup, app.OrchestratorConfig{
		SLASweepInterval:    cfg.Scheduler.SLASweepInterval,
		ReportSweepInterval: cfg.Scheduler.ReportSweepInterval,
		HealthScoreInterval: cfg.Scheduler.HealthScoreInterval,
		CleanupInterval:     cfg.Scheduler.CleanupInterval,
	}, log)
	if err != nil {
		return nil, err
	}
	s.Orchestrator = orchestrator

	return s, nil
}

// newNotificationService registers a sender per configured channel. Channels
// left unconfigured fall back to the log sender so rule-driven notifications
// never fail on missing transport in development.
func newNotificationService(cfg *config.Config, log *logger.Logger) *app.NotificationService {
	svc := app.NewNotificationService(log)

	svc.RegisterSender("log", app.LogSender(log))

	if cfg.Notify.SMTPHost != "" {
		svc.RegisterSender("email", notification.NewEmailSender(notification.EmailConfig{
			Host:     cfg.Notify.SMTPHost,
			Port:     cfg.Notify.SMTPPort,
			Username: cfg.Notify.SMTPUsername,
			Password: cfg.Notify.SMTPPassword,
			From:     cfg.Notify.SMTPFrom,
		}, log))
	} else {
		svc.RegisterSender("email", app.LogSender(log))
	}

	if cfg.Notify.SlackWebhook != "" {
		svc.RegisterSender("slack", notification.NewSlackSender(cfg.Notify.SlackWebhook, log))
	} else {
		svc.RegisterSender("slack", app.LogSender(log))
	}

	if cfg.Notify.OpsWebhookURL != "" {
		svc.RegisterSender("ops", notification.NewWebhookSender(cfg.Notify.OpsWebhookURL, log))
	} else {
		svc.RegisterSender("ops", app.LogSender(log))
	}

	return svc
}

func newSyncService(cfg *config.Config, log *logger.Logger) *app.SyncService {
	var target app.ExternalTarget
	if cfg.Sync.Endpoint != "" {
		target = external.NewHTTPTarget(cfg.Sync.Endpoint, log)
	}
	return app.NewSyncService(target, log)
}
