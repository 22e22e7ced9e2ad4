package app

import (
	"context"
	"fmt"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// RetentionPolicy fixes how long append-only records are kept, in days.
type RetentionPolicy struct {
	ExecutionLogDays  int
	StatusHistoryDays int
}

// HistoryPruner deletes aged status history rows. Implemented by the request
// storage layer.
type HistoryPruner interface {
	DeleteStatusHistoryOlderThan(ctx context.Context, tenantSlug string, days int) (int64, error)
}

// CleanupEnqueuer is the slice of the job client the cleanup service needs.
type CleanupEnqueuer interface {
	EnqueueCleanupRetention(ctx context.Context, p jobs.CleanupRetentionPayload) error
}

// CleanupService reaps aged append-only records per the retention policy.
// Deletion is idempotent by construction: rows are selected by age, so a
// retried cleanup deletes whatever the first attempt left.
type CleanupService struct {
	logs     workflowrule.ExecutionLogRepository
	history  HistoryPruner
	tenants  tenant.Repository
	enqueuer CleanupEnqueuer
	policy   RetentionPolicy
	logger   *logger.Logger
}

// NewCleanupService creates a new CleanupService.
func NewCleanupService(logs workflowrule.ExecutionLogRepository, history HistoryPruner, tenants tenant.Repository, enqueuer CleanupEnqueuer, policy RetentionPolicy, log *logger.Logger) *CleanupService {
	if policy.ExecutionLogDays <= 0 {
		policy.ExecutionLogDays = 90
	}
	if policy.StatusHistoryDays <= 0 {
		policy.StatusHistoryDays = 365
	}
	return &CleanupService{
		logs:     logs,
		history:  history,
		tenants:  tenants,
		enqueuer: enqueuer,
		policy:   policy,
		logger:   log.With("service", "cleanup"),
	}
}

// EnqueueAll puts one cleanup task per active tenant on the queue.
func (s *CleanupService) EnqueueAll(ctx context.Context) error {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	var failed int
	for _, t := range tenants {
		err := s.enqueuer.EnqueueCleanupRetention(ctx, jobs.CleanupRetentionPayload{TenantSlug: t.Slug})
		if err != nil {
			failed++
			s.logger.Error("failed to enqueue cleanup", "tenant", t.Slug, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to enqueue cleanup for %d of %d tenants", failed, len(tenants))
	}
	return nil
}

// CleanupTenant prunes one tenant's aged records. Implements the queue's
// cleanup processor contract.
func (s *CleanupService) CleanupTenant(ctx context.Context, tenantSlug string) error {
	logsDeleted, err := s.logs.DeleteOlderThan(ctx, tenantSlug, s.policy.ExecutionLogDays)
	if err != nil {
		return fmt.Errorf("prune execution logs for %s: %w", tenantSlug, err)
	}

	historyDeleted, err := s.history.DeleteStatusHistoryOlderThan(ctx, tenantSlug, s.policy.StatusHistoryDays)
	if err != nil {
		return fmt.Errorf("prune status history for %s: %w", tenantSlug, err)
	}

	s.logger.Info("retention cleanup completed",
		"tenant", tenantSlug,
		"execution_logs_deleted", logsDeleted,
		"status_history_deleted", historyDeleted,
	)
	return nil
}
