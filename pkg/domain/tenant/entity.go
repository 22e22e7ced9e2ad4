// Package tenant provides the tenant directory. Tenants are the unit of data
// isolation: every other entity lives inside exactly one tenant partition and
// is never referenced across partitions.
package tenant

import (
	"strings"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Tenant is a directory entry for one isolated data partition.
type Tenant struct {
	ID        shared.ID
	Slug      string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an active tenant directory entry.
func New(slug, name string) (*Tenant, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, shared.NewDomainError("TENANT_INVALID_SLUG", "slug is required", shared.ErrValidation)
	}
	now := time.Now()
	return &Tenant{
		ID:        shared.NewID(),
		Slug:      slug,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SchemaName returns the partition schema for this tenant.
func (t *Tenant) SchemaName() string {
	return SchemaName(t.Slug)
}

// Deactivate removes the tenant from background sweeps without deleting data.
func (t *Tenant) Deactivate() {
	t.IsActive = false
	t.UpdatedAt = time.Now()
}

// SchemaName derives the partition schema name from a tenant slug. This is
// the single normalization used by every component that addresses tenant
// data: hyphens map to underscores and every other non-alphanumeric rune is
// dropped.
func SchemaName(slug string) string {
	var b strings.Builder
	b.WriteString("tenant_")
	for _, r := range strings.ToLower(slug) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}
