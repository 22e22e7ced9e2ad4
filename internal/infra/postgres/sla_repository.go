package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/sla"
)

// SLARepository implements sla.Repository. Policies live in sla_policies;
// the batch sweeps run against the tenant's issues table, whose due and
// warning timestamps are stamped at issue creation from the active policy.
type SLARepository struct {
	db *DB
}

// NewSLARepository creates a new SLARepository.
func NewSLARepository(db *DB) *SLARepository {
	return &SLARepository{db: db}
}

const slaPolicyColumns = "id, name, entity_type, targets, warning_threshold_pct, is_active, created_at, updated_at"

// Create persists a policy.
func (r *SLARepository) Create(ctx context.Context, tenantSlug string, p *sla.Policy) error {
	targets, err := toJSONB(p.Targets)
	if err != nil {
		return fmt.Errorf("failed to marshal targets: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.sla_policies (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, schemaFor(tenantSlug), slaPolicyColumns)

	_, err = r.db.ExecContext(ctx, query,
		p.ID.String(), p.Name, p.EntityType, targets, p.WarningThresholdPct,
		p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("SLA_POLICY_EXISTS", "sla policy already exists", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert sla policy: %w", err)
	}
	return nil
}

// Update overwrites a policy by id.
func (r *SLARepository) Update(ctx context.Context, tenantSlug string, p *sla.Policy) error {
	targets, err := toJSONB(p.Targets)
	if err != nil {
		return fmt.Errorf("failed to marshal targets: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s.sla_policies
		SET name = $2, entity_type = $3, targets = $4, warning_threshold_pct = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`, schemaFor(tenantSlug))

	res, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.Name, p.EntityType, targets, p.WarningThresholdPct, p.IsActive, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update sla policy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetByID retrieves one policy.
func (r *SLARepository) GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*sla.Policy, error) {
	query := fmt.Sprintf("SELECT %s FROM %s.sla_policies WHERE id = $1", slaPolicyColumns, schemaFor(tenantSlug))
	return r.scan(tenantSlug, r.db.QueryRowContext(ctx, query, id.String()))
}

// GetActive returns the active policy for an entity type.
func (r *SLARepository) GetActive(ctx context.Context, tenantSlug, entityType string) (*sla.Policy, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s.sla_policies
		WHERE entity_type = $1 AND is_active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`, slaPolicyColumns, schemaFor(tenantSlug))
	return r.scan(tenantSlug, r.db.QueryRowContext(ctx, query, entityType))
}

// ListByTenant returns every policy in the tenant partition.
func (r *SLARepository) ListByTenant(ctx context.Context, tenantSlug string) ([]*sla.Policy, error) {
	query := fmt.Sprintf("SELECT %s FROM %s.sla_policies ORDER BY entity_type, name", slaPolicyColumns, schemaFor(tenantSlug))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sla policies: %w", err)
	}
	defer rows.Close()

	var out []*sla.Policy
	for rows.Next() {
		p, err := r.scan(tenantSlug, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkBreached flags issues whose response or resolution deadline elapsed
// without the corresponding event. Both writes are conditional on the flag
// still being false, so a sweep that overlaps a previous one flags each row
// exactly once and the second pass is a no-op.
func (r *SLARepository) MarkBreached(ctx context.Context, tenantSlug string, now time.Time) (sla.SweepResult, error) {
	schema := schemaFor(tenantSlug)
	var result sla.SweepResult

	responseQuery := fmt.Sprintf(`
		UPDATE %s.issues
		SET sla_response_breached = true, updated_at = $1
		WHERE sla_response_due_at <= $1
		  AND first_responded_at IS NULL
		  AND sla_response_breached = false
	`, schema)
	res, err := r.db.ExecContext(ctx, responseQuery, now)
	if err != nil {
		return result, fmt.Errorf("failed to flag response breaches: %w", err)
	}
	result.ResponseBreaches, _ = res.RowsAffected()

	resolutionQuery := fmt.Sprintf(`
		UPDATE %s.issues
		SET sla_resolution_breached = true, updated_at = $1
		WHERE sla_resolution_due_at <= $1
		  AND resolved_at IS NULL
		  AND sla_resolution_breached = false
	`, schema)
	res, err = r.db.ExecContext(ctx, resolutionQuery, now)
	if err != nil {
		return result, fmt.Errorf("failed to flag resolution breaches: %w", err)
	}
	result.ResolutionBreaches, _ = res.RowsAffected()

	return result, nil
}

// MarkWarnings flags issues past the warning timestamp but not yet resolved
// or breached, with the same conditional-write idempotence as MarkBreached.
func (r *SLARepository) MarkWarnings(ctx context.Context, tenantSlug string, now time.Time) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s.issues
		SET sla_warning = true, updated_at = $1
		WHERE sla_warning_at <= $1
		  AND resolved_at IS NULL
		  AND sla_warning = false
		  AND sla_resolution_breached = false
	`, schemaFor(tenantSlug))

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to flag sla warnings: %w", err)
	}
	return res.RowsAffected()
}

func (r *SLARepository) scan(tenantSlug string, row rowScanner) (*sla.Policy, error) {
	var p sla.Policy
	var id string
	var targets []byte

	err := row.Scan(&id, &p.Name, &p.EntityType, &targets, &p.WarningThresholdPct,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan sla policy: %w", err)
	}

	p.ID, _ = shared.IDFromString(id)
	p.TenantSlug = tenantSlug
	if err := fromJSONB(targets, &p.Targets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal targets: %w", err)
	}
	return &p, nil
}
