package workflowrule

import (
	"context"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Repository provides tenant-partitioned access to workflow rules.
type Repository interface {
	Create(ctx context.Context, tenantSlug string, r *Rule) error
	Update(ctx context.Context, tenantSlug string, r *Rule) error
	GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*Rule, error)
	// ListActive returns active rules for the event ordered by
	// ExecutionOrder ascending.
	ListActive(ctx context.Context, tenantSlug string, entity EntityType, trigger TriggerType) ([]*Rule, error)
	Delete(ctx context.Context, tenantSlug string, id shared.ID) error
}

// ExecutionLogRepository persists append-only execution records.
type ExecutionLogRepository interface {
	Append(ctx context.Context, tenantSlug string, l *ExecutionLog) error
	ListByRule(ctx context.Context, tenantSlug string, ruleID shared.ID, limit int) ([]*ExecutionLog, error)
	// DeleteOlderThan reaps old records per the cleanup retention; returns
	// the number of rows removed.
	DeleteOlderThan(ctx context.Context, tenantSlug string, days int) (int64, error)
}
