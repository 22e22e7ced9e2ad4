package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
)

// TenantRepository implements tenant.Repository against the shared
// public.tenants directory table.
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = "id, slug, name, is_active, created_at, updated_at"

// GetBySlug retrieves a tenant by slug.
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM public.tenants WHERE slug = $1"
	return r.scan(r.db.QueryRowContext(ctx, query, slug))
}

// ListActive returns tenants eligible for background sweeps.
func (r *TenantRepository) ListActive(ctx context.Context) ([]*tenant.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM public.tenants WHERE is_active = true ORDER BY slug"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var out []*tenant.Tenant
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create persists a new tenant.
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := `
		INSERT INTO public.tenants (id, slug, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID.String(), t.Slug, t.Name, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("TENANT_EXISTS", "tenant already exists: "+t.Slug, shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// Update persists tenant changes.
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	query := `
		UPDATE public.tenants
		SET name = $2, is_active = $3, updated_at = $4
		WHERE slug = $1
	`
	result, err := r.db.ExecContext(ctx, query, t.Slug, t.Name, t.IsActive, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TenantRepository) scan(row rowScanner) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var id string
	err := row.Scan(&id, &t.Slug, &t.Name, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	parsed, err := shared.IDFromString(id)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id in row: %w", err)
	}
	t.ID = parsed
	return &t, nil
}
