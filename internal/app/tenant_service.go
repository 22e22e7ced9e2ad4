package app

import (
	"context"
	"fmt"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// SchemaProvisioner creates and migrates one tenant's schema. Implemented by
// the storage layer.
type SchemaProvisioner interface {
	EnsureSchema(ctx context.Context, schemaName string) error
}

// TenantService owns the tenant directory and partition provisioning.
type TenantService struct {
	tenants     tenant.Repository
	provisioner SchemaProvisioner
	logger      *logger.Logger
}

// NewTenantService creates a new TenantService.
func NewTenantService(tenants tenant.Repository, provisioner SchemaProvisioner, log *logger.Logger) *TenantService {
	return &TenantService{
		tenants:     tenants,
		provisioner: provisioner,
		logger:      log.With("service", "tenant"),
	}
}

// Provision creates a tenant and its schema. Creating the schema before the
// directory row means a crash in between leaves an orphan schema, which is
// harmless, rather than a directory entry pointing at nothing.
func (s *TenantService) Provision(ctx context.Context, slug, name string) (*tenant.Tenant, error) {
	t, err := tenant.New(slug, name)
	if err != nil {
		return nil, err
	}

	if _, err := s.tenants.GetBySlug(ctx, t.Slug); err == nil {
		return nil, shared.NewDomainError("TENANT_EXISTS", "tenant already exists: "+t.Slug, shared.ErrAlreadyExists)
	}

	schema := tenant.SchemaName(t.Slug)
	if err := s.provisioner.EnsureSchema(ctx, schema); err != nil {
		return nil, fmt.Errorf("provision schema %s: %w", schema, err)
	}

	if err := s.tenants.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	s.logger.Info("tenant provisioned", "tenant", t.Slug, "schema", schema)
	return t, nil
}

// Get fetches one tenant by slug.
func (s *TenantService) Get(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.tenants.GetBySlug(ctx, slug)
}

// ListActive returns tenants eligible for background work.
func (s *TenantService) ListActive(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.tenants.ListActive(ctx)
}

// Deactivate removes a tenant from all sweeps without touching its data.
func (s *TenantService) Deactivate(ctx context.Context, slug string) error {
	t, err := s.tenants.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	t.Deactivate()
	if err := s.tenants.Update(ctx, t); err != nil {
		return fmt.Errorf("deactivate tenant: %w", err)
	}
	s.logger.Info("tenant deactivated", "tenant", slug)
	return nil
}
