package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// HealthScoreStore materializes per-tenant health scores. Recalculate is one
// aggregate query over the tenant partition followed by an upsert into the
// health_scores singleton row.
type HealthScoreStore struct {
	db *DB
}

// NewHealthScoreStore creates a new HealthScoreStore.
func NewHealthScoreStore(db *DB) *HealthScoreStore {
	return &HealthScoreStore{db: db}
}

// Recalculate rebuilds and persists the tenant's score.
func (s *HealthScoreStore) Recalculate(ctx context.Context, tenantSlug string) (*app.HealthScore, error) {
	schema := schemaFor(tenantSlug)

	query := fmt.Sprintf(`
		SELECT
			(SELECT count(*) FROM %s.requests WHERE status NOT IN ('rejected', 'cancelled', 'completed')),
			(SELECT count(*) FROM %s.approvals WHERE status = 'pending'),
			(SELECT count(*) FROM %s.issues WHERE resolved_at IS NULL AND (sla_response_breached OR sla_resolution_breached))
	`, schema, schema, schema)

	var open, pending, breached int
	if err := s.db.QueryRowContext(ctx, query).Scan(&open, &pending, &breached); err != nil {
		return nil, fmt.Errorf("failed to aggregate health inputs: %w", err)
	}

	score := &app.HealthScore{
		TenantSlug:       tenantSlug,
		Score:            computeScore(open, pending, breached),
		OpenRequests:     open,
		PendingApprovals: pending,
		BreachedSLAs:     breached,
		ComputedAt:       time.Now(),
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s.health_scores (id, score, open_requests, pending_approvals, breached_slas, computed_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			score = EXCLUDED.score,
			open_requests = EXCLUDED.open_requests,
			pending_approvals = EXCLUDED.pending_approvals,
			breached_slas = EXCLUDED.breached_slas,
			computed_at = EXCLUDED.computed_at
	`, schema)
	_, err := s.db.ExecContext(ctx, upsert,
		score.Score, score.OpenRequests, score.PendingApprovals, score.BreachedSLAs, score.ComputedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert health score: %w", err)
	}
	return score, nil
}

// Latest returns the last persisted score without recomputing.
func (s *HealthScoreStore) Latest(ctx context.Context, tenantSlug string) (*app.HealthScore, error) {
	query := fmt.Sprintf(`
		SELECT score, open_requests, pending_approvals, breached_slas, computed_at
		FROM %s.health_scores WHERE id = 1
	`, schemaFor(tenantSlug))

	score := &app.HealthScore{TenantSlug: tenantSlug}
	err := s.db.QueryRowContext(ctx, query).Scan(
		&score.Score, &score.OpenRequests, &score.PendingApprovals, &score.BreachedSLAs, &score.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read health score: %w", err)
	}
	return score, nil
}

// computeScore maps backlog pressure onto 0..100. Breaches weigh heaviest,
// then stale approvals, then sheer open volume.
func computeScore(open, pending, breached int) int {
	score := 100
	score -= breached * 10
	score -= pending * 2
	score -= open
	if score < 0 {
		score = 0
	}
	return score
}
