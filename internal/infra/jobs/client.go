package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// Client enqueues background jobs through Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains the Redis connection settings for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
		logger: log.With("component", "job_client"),
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, attrs ...any) error {
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue task",
			append([]any{"type", task.Type(), "error", err}, attrs...)...)
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	c.logger.Info("task queued",
		append([]any{"type", task.Type(), "task_id", info.ID, "queue", info.Queue}, attrs...)...)
	return nil
}

// EnqueueReportGenerate enqueues one scheduled report run.
func (c *Client) EnqueueReportGenerate(ctx context.Context, p ReportGeneratePayload) error {
	task, err := NewReportGenerateTask(p)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, "tenant", p.TenantSlug, "report_id", p.ReportID)
}

// EnqueueHealthScoreRecalc enqueues a tenant-wide health score rebuild.
func (c *Client) EnqueueHealthScoreRecalc(ctx context.Context, p HealthScoreRecalcPayload) error {
	task, err := NewHealthScoreRecalcTask(p)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, "tenant", p.TenantSlug)
}

// EnqueueSLASweep enqueues an SLA sweep for one tenant.
func (c *Client) EnqueueSLASweep(ctx context.Context, p SLASweepPayload) error {
	task, err := NewSLASweepTask(p)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, "tenant", p.TenantSlug, "as_of", p.AsOf)
}

// EnqueueNotification enqueues a notification delivery, optionally delayed.
func (c *Client) EnqueueNotification(ctx context.Context, p NotificationSendPayload, delay time.Duration) error {
	task, err := NewNotificationSendTask(p, delay)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, "tenant", p.TenantSlug, "template", p.Template)
}

// EnqueueExternalSync enqueues an external system synchronization.
func (c *Client) EnqueueExternalSync(ctx context.Context, p ExternalSyncPayload) error {
	task, err := NewExternalSyncTask(p)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, "tenant", p.TenantSlug, "entity_id", p.EntityID)
}

// EnqueueCleanupRetention enqueues a retention cleanup for one tenant.
func (c *Client) EnqueueCleanupRetention(ctx context.Context, p CleanupRetentionPayload) error {
	task, err := NewCleanupRetentionTask(p)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, "tenant", p.TenantSlug)
}

// EnqueueWorkflowRuleAction enqueues a deferred rule action.
func (c *Client) EnqueueWorkflowRuleAction(ctx context.Context, p WorkflowRuleActionPayload) error {
	task, err := NewWorkflowRuleActionTask(p)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, "tenant", p.TenantSlug, "rule_id", p.RuleID, "action", p.ActionKind)
}
