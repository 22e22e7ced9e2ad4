package app

import (
	"context"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// OrchestratorConfig carries the recurring task intervals.
type OrchestratorConfig struct {
	SLASweepInterval    time.Duration
	ReportSweepInterval time.Duration
	HealthScoreInterval time.Duration
	CleanupInterval     time.Duration
}

// Scheduler task names, also the handles the admin trigger endpoint accepts.
const (
	TaskSLASweep     = "sla-sweep"
	TaskReportSweep  = "report-sweep"
	TaskHealthScores = "health-scores"
	TaskCleanup      = "cleanup"
)

// Orchestrator binds the recurring tasks to their services. Each tick only
// enqueues durable work; the heavy lifting happens in queue workers with
// their own retry budgets.
type Orchestrator struct {
	scheduler *Scheduler
	logger    *logger.Logger
}

// NewOrchestrator registers the standard task set on the scheduler.
func NewOrchestrator(
	scheduler *Scheduler,
	sla *SLAEvaluator,
	reports *ReportService,
	health *HealthScoreService,
	cleanup *CleanupService,
	cfg OrchestratorConfig,
	log *logger.Logger,
) (*Orchestrator, error) {
	o := &Orchestrator{
		scheduler: scheduler,
		logger:    log.With("component", "orchestrator"),
	}

	tasks := []struct {
		name     string
		interval time.Duration
		fallback time.Duration
		handler  TaskHandler
	}{
		{TaskSLASweep, cfg.SLASweepInterval, time.Minute, func(ctx context.Context) error {
			return sla.EnqueueSweeps(ctx)
		}},
		{TaskReportSweep, cfg.ReportSweepInterval, time.Minute, func(ctx context.Context) error {
			return reports.EnqueueDue(ctx)
		}},
		{TaskHealthScores, cfg.HealthScoreInterval, 15 * time.Minute, func(ctx context.Context) error {
			return health.EnqueueAll(ctx)
		}},
		{TaskCleanup, cfg.CleanupInterval, 24 * time.Hour, func(ctx context.Context) error {
			return cleanup.EnqueueAll(ctx)
		}},
	}

	for _, t := range tasks {
		interval := t.interval
		if interval <= 0 {
			interval = t.fallback
		}
		if err := o.scheduler.Register(t.name, interval, t.handler); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Start launches the recurring tasks.
func (o *Orchestrator) Start() {
	o.scheduler.Start()
	o.logger.Info("orchestrator started")
}

// Stop stops the recurring tasks and waits for in-flight runs.
func (o *Orchestrator) Stop() {
	o.scheduler.Stop()
	o.logger.Info("orchestrator stopped")
}

// Trigger fires one registered task immediately.
func (o *Orchestrator) Trigger(ctx context.Context, name string) error {
	return o.scheduler.Trigger(ctx, name)
}

// Status lists the registered tasks.
func (o *Orchestrator) Status() []TaskStatus {
	return o.scheduler.Status()
}
