package sla

import (
	"context"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// SweepResult is the row-count outcome of one batch sweep. Breaches are
// reported by count, never by enumerating rows, to stay cheap at scale.
type SweepResult struct {
	ResponseBreaches   int64
	ResolutionBreaches int64
	Warnings           int64
}

// Repository provides SLA policy reads and the idempotent batch sweeps.
type Repository interface {
	Create(ctx context.Context, tenantSlug string, p *Policy) error
	Update(ctx context.Context, tenantSlug string, p *Policy) error
	GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*Policy, error)
	GetActive(ctx context.Context, tenantSlug, entityType string) (*Policy, error)
	ListByTenant(ctx context.Context, tenantSlug string) ([]*Policy, error)

	// MarkBreached flags entities whose response or resolution due time has
	// elapsed without the corresponding event. The write is conditional on
	// the breach flag still being false, so overlapping sweeps flag each
	// row exactly once.
	MarkBreached(ctx context.Context, tenantSlug string, now time.Time) (SweepResult, error)

	// MarkWarnings flags entities past the warning threshold but not yet
	// breached, with the same conditional-write idempotence.
	MarkWarnings(ctx context.Context, tenantSlug string, now time.Time) (int64, error)
}
