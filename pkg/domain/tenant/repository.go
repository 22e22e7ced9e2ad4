package tenant

import "context"

// Repository provides access to the tenant directory. The directory is the
// only table shared across tenants.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	// ListActive returns tenants eligible for background sweeps.
	ListActive(ctx context.Context) ([]*Tenant, error)
	Create(ctx context.Context, t *Tenant) error
	Update(ctx context.Context, t *Tenant) error
}
