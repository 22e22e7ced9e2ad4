package report

import (
	"context"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Repository provides tenant-partitioned access to scheduled reports.
type Repository interface {
	Create(ctx context.Context, tenantSlug string, r *ScheduledReport) error
	Update(ctx context.Context, tenantSlug string, r *ScheduledReport) error
	GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*ScheduledReport, error)
	// ListDue returns active reports whose NextRunAt has elapsed.
	ListDue(ctx context.Context, tenantSlug string, now time.Time) ([]*ScheduledReport, error)
	Delete(ctx context.Context, tenantSlug string, id shared.ID) error
}
