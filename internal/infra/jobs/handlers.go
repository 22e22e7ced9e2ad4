package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// Processor interfaces implemented by the app layer. Keeping them here lets
// the worker depend on behavior, not on concrete services.

// ReportProcessor generates one report run.
type ReportProcessor interface {
	GenerateReport(ctx context.Context, tenantSlug string, reportID shared.ID, scheduledFor time.Time) error
}

// HealthScoreProcessor rebuilds health scores for a tenant.
type HealthScoreProcessor interface {
	RecalculateHealthScores(ctx context.Context, tenantSlug string) error
}

// SLAProcessor runs one SLA sweep for a tenant.
type SLAProcessor interface {
	SweepTenant(ctx context.Context, tenantSlug string, asOf time.Time) error
}

// NotificationProcessor delivers one rendered notification.
type NotificationProcessor interface {
	Deliver(ctx context.Context, tenantSlug, channel, recipient, template string, data map[string]string) error
}

// SyncProcessor pushes one entity change to an external system.
type SyncProcessor interface {
	SyncEntity(ctx context.Context, tenantSlug, entityType, entityID, operation string) error
}

// CleanupProcessor prunes aged records for a tenant.
type CleanupProcessor interface {
	CleanupTenant(ctx context.Context, tenantSlug string) error
}

// WorkflowActionProcessor executes one deferred rule action.
type WorkflowActionProcessor interface {
	ExecuteDeferredAction(ctx context.Context, p WorkflowRuleActionPayload) error
}

// TaskHandlers binds task types to their processors.
type TaskHandlers struct {
	reports      ReportProcessor
	healthScores HealthScoreProcessor
	sla          SLAProcessor
	notification NotificationProcessor
	sync         SyncProcessor
	cleanup      CleanupProcessor
	actions      WorkflowActionProcessor
	logger       *logger.Logger
}

// NewTaskHandlers creates the handler set. Nil processors leave their task
// type unregistered.
func NewTaskHandlers(log *logger.Logger) *TaskHandlers {
	return &TaskHandlers{logger: log.With("component", "job_handlers")}
}

func (h *TaskHandlers) WithReports(p ReportProcessor) *TaskHandlers           { h.reports = p; return h }
func (h *TaskHandlers) WithHealthScores(p HealthScoreProcessor) *TaskHandlers { h.healthScores = p; return h }
func (h *TaskHandlers) WithSLA(p SLAProcessor) *TaskHandlers                  { h.sla = p; return h }
func (h *TaskHandlers) WithNotifications(p NotificationProcessor) *TaskHandlers {
	h.notification = p
	return h
}
func (h *TaskHandlers) WithSync(p SyncProcessor) *TaskHandlers       { h.sync = p; return h }
func (h *TaskHandlers) WithCleanup(p CleanupProcessor) *TaskHandlers { h.cleanup = p; return h }
func (h *TaskHandlers) WithActions(p WorkflowActionProcessor) *TaskHandlers {
	h.actions = p
	return h
}

// Register wires every handler with a bound processor onto the mux.
func (h *TaskHandlers) Register(mux *asynq.ServeMux) {
	if h.reports != nil {
		mux.HandleFunc(TypeReportGenerate, h.handleReportGenerate)
	}
	if h.healthScores != nil {
		mux.HandleFunc(TypeHealthScoreRecalc, h.handleHealthScoreRecalc)
	}
	if h.sla != nil {
		mux.HandleFunc(TypeSLASweep, h.handleSLASweep)
	}
	if h.notification != nil {
		mux.HandleFunc(TypeNotificationSend, h.handleNotificationSend)
	}
	if h.sync != nil {
		mux.HandleFunc(TypeExternalSync, h.handleExternalSync)
	}
	if h.cleanup != nil {
		mux.HandleFunc(TypeCleanupRetention, h.handleCleanupRetention)
	}
	if h.actions != nil {
		mux.HandleFunc(TypeWorkflowRuleAction, h.handleWorkflowRuleAction)
	}
}

// finalize converts non-retryable domain errors into asynq.SkipRetry so the
// task goes straight to the archive instead of burning retries.
func finalize(err error) error {
	if err == nil {
		return nil
	}
	if !shared.IsRetryable(err) && !errors.Is(err, asynq.SkipRetry) {
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}
	return err
}

func (h *TaskHandlers) handleReportGenerate(ctx context.Context, t *asynq.Task) error {
	var p ReportGeneratePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %w", asynq.SkipRetry, err)
	}

	reportID, err := shared.IDFromString(p.ReportID)
	if err != nil {
		return fmt.Errorf("%w: invalid report_id: %w", asynq.SkipRetry, err)
	}

	h.logger.Info("generating report", "tenant", p.TenantSlug, "report_id", p.ReportID, "kind", p.Kind)
	return finalize(h.reports.GenerateReport(ctx, p.TenantSlug, reportID, p.ScheduledFor))
}

func (h *TaskHandlers) handleHealthScoreRecalc(ctx context.Context, t *asynq.Task) error {
	var p HealthScoreRecalcPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %w", asynq.SkipRetry, err)
	}

	h.logger.Info("recalculating health scores", "tenant", p.TenantSlug)
	return finalize(h.healthScores.RecalculateHealthScores(ctx, p.TenantSlug))
}

func (h *TaskHandlers) handleSLASweep(ctx context.Context, t *asynq.Task) error {
	var p SLASweepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %w", asynq.SkipRetry, err)
	}

	h.logger.Info("sweeping SLA deadlines", "tenant", p.TenantSlug, "as_of", p.AsOf)
	return finalize(h.sla.SweepTenant(ctx, p.TenantSlug, p.AsOf))
}

func (h *TaskHandlers) handleNotificationSend(ctx context.Context, t *asynq.Task) error {
	var p NotificationSendPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %w", asynq.SkipRetry, err)
	}

	h.logger.Info("delivering notification",
		"tenant", p.TenantSlug, "channel", p.Channel, "template", p.Template)
	return finalize(h.notification.Deliver(ctx, p.TenantSlug, p.Channel, p.Recipient, p.Template, p.Data))
}

func (h *TaskHandlers) handleExternalSync(ctx context.Context, t *asynq.Task) error {
	var p ExternalSyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %w", asynq.SkipRetry, err)
	}

	h.logger.Info("syncing entity",
		"tenant", p.TenantSlug, "entity_type", p.EntityType, "entity_id", p.EntityID, "op", p.Operation)
	return finalize(h.sync.SyncEntity(ctx, p.TenantSlug, p.EntityType, p.EntityID, p.Operation))
}

func (h *TaskHandlers) handleCleanupRetention(ctx context.Context, t *asynq.Task) error {
	var p CleanupRetentionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %w", asynq.SkipRetry, err)
	}

	h.logger.Info("running retention cleanup", "tenant", p.TenantSlug)
	return finalize(h.cleanup.CleanupTenant(ctx, p.TenantSlug))
}

func (h *TaskHandlers) handleWorkflowRuleAction(ctx context.Context, t *asynq.Task) error {
	var p WorkflowRuleActionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %w", asynq.SkipRetry, err)
	}

	h.logger.Info("executing deferred rule action",
		"tenant", p.TenantSlug, "rule_id", p.RuleID, "action", p.ActionKind)
	return finalize(h.actions.ExecuteDeferredAction(ctx, p))
}
