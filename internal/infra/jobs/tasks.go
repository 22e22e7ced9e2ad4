package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Task types. Every payload carries the tenant slug; handlers resolve the
// tenant before touching any data.
const (
	TypeReportGenerate     = "report:generate"
	TypeHealthScoreRecalc  = "health_score:recalculate"
	TypeSLASweep           = "sla:sweep"
	TypeNotificationSend   = "notification:send"
	TypeExternalSync       = "sync:external"
	TypeCleanupRetention   = "cleanup:retention"
	TypeWorkflowRuleAction = "workflow:action"
)

// ReportGeneratePayload asks a worker to produce one scheduled report run.
type ReportGeneratePayload struct {
	TenantSlug string `json:"tenant_slug"`
	ReportID   string `json:"report_id"`
	Kind       string `json:"kind"`
	// ScheduledFor is the run the schedule asked for, used to de-duplicate
	// against late manual triggers.
	ScheduledFor time.Time `json:"scheduled_for"`
}

// Validate fails fast before the payload reaches a queue.
func (p ReportGeneratePayload) Validate() error {
	if p.TenantSlug == "" {
		return fmt.Errorf("tenant_slug is required")
	}
	if _, err := shared.IDFromString(p.ReportID); err != nil {
		return fmt.Errorf("invalid report_id: %w", err)
	}
	return nil
}

// HealthScoreRecalcPayload triggers a tenant-wide health score rebuild.
type HealthScoreRecalcPayload struct {
	TenantSlug string `json:"tenant_slug"`
}

func (p HealthScoreRecalcPayload) Validate() error {
	if p.TenantSlug == "" {
		return fmt.Errorf("tenant_slug is required")
	}
	return nil
}

// SLASweepPayload asks a worker to flag breached and warning deadlines for
// one tenant. AsOf pins the sweep to the moment the schedule fired so a
// delayed retry evaluates the same cutoff.
type SLASweepPayload struct {
	TenantSlug string    `json:"tenant_slug"`
	AsOf       time.Time `json:"as_of"`
}

func (p SLASweepPayload) Validate() error {
	if p.TenantSlug == "" {
		return fmt.Errorf("tenant_slug is required")
	}
	if p.AsOf.IsZero() {
		return fmt.Errorf("as_of is required")
	}
	return nil
}

// NotificationSendPayload delivers one rendered notification.
type NotificationSendPayload struct {
	TenantSlug string            `json:"tenant_slug"`
	Channel    string            `json:"channel"`
	Recipient  string            `json:"recipient"`
	Template   string            `json:"template"`
	Data       map[string]string `json:"data,omitempty"`
}

func (p NotificationSendPayload) Validate() error {
	if p.TenantSlug == "" {
		return fmt.Errorf("tenant_slug is required")
	}
	if p.Recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	if p.Template == "" {
		return fmt.Errorf("template is required")
	}
	return nil
}

// ExternalSyncPayload pushes an entity change to an external system.
type ExternalSyncPayload struct {
	TenantSlug string `json:"tenant_slug"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Operation  string `json:"operation"`
}

func (p ExternalSyncPayload) Validate() error {
	if p.TenantSlug == "" {
		return fmt.Errorf("tenant_slug is required")
	}
	if _, err := shared.IDFromString(p.EntityID); err != nil {
		return fmt.Errorf("invalid entity_id: %w", err)
	}
	if p.Operation == "" {
		return fmt.Errorf("operation is required")
	}
	return nil
}

// CleanupRetentionPayload prunes aged execution logs and status history for
// one tenant.
type CleanupRetentionPayload struct {
	TenantSlug string `json:"tenant_slug"`
}

func (p CleanupRetentionPayload) Validate() error {
	if p.TenantSlug == "" {
		return fmt.Errorf("tenant_slug is required")
	}
	return nil
}

// WorkflowRuleActionPayload executes one deferred rule action.
type WorkflowRuleActionPayload struct {
	TenantSlug string            `json:"tenant_slug"`
	RuleID     string            `json:"rule_id"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	ActionKind string            `json:"action_kind"`
	Params     map[string]string `json:"params,omitempty"`
}

func (p WorkflowRuleActionPayload) Validate() error {
	if p.TenantSlug == "" {
		return fmt.Errorf("tenant_slug is required")
	}
	if _, err := shared.IDFromString(p.RuleID); err != nil {
		return fmt.Errorf("invalid rule_id: %w", err)
	}
	if p.ActionKind == "" {
		return fmt.Errorf("action_kind is required")
	}
	return nil
}

// validatable lets newTask reject malformed payloads before they hit Redis.
type validatable interface {
	Validate() error
}

func newTask(taskType string, payload validatable, extra ...asynq.Option) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", taskType, err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	opts := append(taskOptions(taskType), extra...)
	return asynq.NewTask(taskType, data, opts...), nil
}

// NewReportGenerateTask creates a report generation task.
func NewReportGenerateTask(p ReportGeneratePayload) (*asynq.Task, error) {
	return newTask(TypeReportGenerate, p)
}

// NewHealthScoreRecalcTask creates a health score recalculation task.
func NewHealthScoreRecalcTask(p HealthScoreRecalcPayload) (*asynq.Task, error) {
	return newTask(TypeHealthScoreRecalc, p)
}

// NewSLASweepTask creates an SLA sweep task for one tenant.
func NewSLASweepTask(p SLASweepPayload) (*asynq.Task, error) {
	return newTask(TypeSLASweep, p)
}

// NewNotificationSendTask creates a notification delivery task, optionally
// delayed.
func NewNotificationSendTask(p NotificationSendPayload, delay time.Duration) (*asynq.Task, error) {
	var extra []asynq.Option
	if delay > 0 {
		extra = append(extra, asynq.ProcessIn(delay))
	}
	return newTask(TypeNotificationSend, p, extra...)
}

// NewExternalSyncTask creates an external synchronization task.
func NewExternalSyncTask(p ExternalSyncPayload) (*asynq.Task, error) {
	return newTask(TypeExternalSync, p)
}

// NewCleanupRetentionTask creates a retention cleanup task for one tenant.
func NewCleanupRetentionTask(p CleanupRetentionPayload) (*asynq.Task, error) {
	return newTask(TypeCleanupRetention, p)
}

// NewWorkflowRuleActionTask creates a deferred rule action task.
func NewWorkflowRuleActionTask(p WorkflowRuleActionPayload) (*asynq.Task, error) {
	return newTask(TypeWorkflowRuleAction, p)
}
