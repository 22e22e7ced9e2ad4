package app

import (
	"context"
	"fmt"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// HealthScore is one tenant's operational health snapshot, derived from its
// backlog and SLA posture.
type HealthScore struct {
	TenantSlug       string    `json:"tenant_slug"`
	Score            int       `json:"score"`
	OpenRequests     int       `json:"open_requests"`
	PendingApprovals int       `json:"pending_approvals"`
	BreachedSLAs     int       `json:"breached_slas"`
	ComputedAt       time.Time `json:"computed_at"`
}

// HealthScoreStore recomputes and persists one tenant's score. Implemented
// by the storage layer as a single aggregate query plus an upsert.
type HealthScoreStore interface {
	Recalculate(ctx context.Context, tenantSlug string) (*HealthScore, error)
	Latest(ctx context.Context, tenantSlug string) (*HealthScore, error)
}

// HealthScoreEnqueuer is the slice of the job client the service needs.
type HealthScoreEnqueuer interface {
	EnqueueHealthScoreRecalc(ctx context.Context, p jobs.HealthScoreRecalcPayload) error
}

// HealthScoreService keeps per-tenant health scores fresh. The scheduler
// enqueues one recalculation per tenant per interval; the queue worker lands
// back in RecalculateHealthScores.
type HealthScoreService struct {
	store    HealthScoreStore
	tenants  tenant.Repository
	enqueuer HealthScoreEnqueuer
	logger   *logger.Logger
}

// NewHealthScoreService creates a new HealthScoreService.
func NewHealthScoreService(store HealthScoreStore, tenants tenant.Repository, enqueuer HealthScoreEnqueuer, log *logger.Logger) *HealthScoreService {
	return &HealthScoreService{
		store:    store,
		tenants:  tenants,
		enqueuer: enqueuer,
		logger:   log.With("service", "health_score"),
	}
}

// EnqueueAll puts one recalculation task per active tenant on the queue.
func (s *HealthScoreService) EnqueueAll(ctx context.Context) error {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	var failed int
	for _, t := range tenants {
		err := s.enqueuer.EnqueueHealthScoreRecalc(ctx, jobs.HealthScoreRecalcPayload{TenantSlug: t.Slug})
		if err != nil {
			failed++
			s.logger.Error("failed to enqueue health score recalc", "tenant", t.Slug, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to enqueue health score recalc for %d of %d tenants", failed, len(tenants))
	}
	return nil
}

// RecalculateHealthScores rebuilds one tenant's score. Implements the
// queue's health score processor contract.
func (s *HealthScoreService) RecalculateHealthScores(ctx context.Context, tenantSlug string) error {
	score, err := s.store.Recalculate(ctx, tenantSlug)
	if err != nil {
		return fmt.Errorf("recalculate health score for %s: %w", tenantSlug, err)
	}
	s.logger.Info("health score recalculated",
		"tenant", tenantSlug,
		"score", score.Score,
		"open_requests", score.OpenRequests,
		"breached_slas", score.BreachedSLAs,
	)
	return nil
}

// Latest returns the most recent score for a tenant.
func (s *HealthScoreService) Latest(ctx context.Context, tenantSlug string) (*HealthScore, error) {
	return s.store.Latest(ctx, tenantSlug)
}
