package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/sla"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

type memoryPolicyStore struct {
	mu       sync.Mutex
	policies map[shared.ID]*sla.Policy
}

func newMemoryPolicyStore() *memoryPolicyStore {
	return &memoryPolicyStore{policies: make(map[shared.ID]*sla.Policy)}
}

func (m *memoryPolicyStore) Create(_ context.Context, _ string, p *sla.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.policies[p.ID] = &cp
	return nil
}

func (m *memoryPolicyStore) Update(_ context.Context, _ string, p *sla.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.policies[p.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *p
	m.policies[p.ID] = &cp
	return nil
}

func (m *memoryPolicyStore) GetByID(_ context.Context, _ string, id shared.ID) (*sla.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryPolicyStore) GetActive(_ context.Context, _ string, entityType string) (*sla.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.policies {
		if p.IsActive && p.EntityType == entityType {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryPolicyStore) ListByTenant(context.Context, string) ([]*sla.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sla.Policy
	for _, p := range m.policies {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryPolicyStore) MarkBreached(context.Context, string, time.Time) (sla.SweepResult, error) {
	return sla.SweepResult{}, nil
}

func (m *memoryPolicyStore) MarkWarnings(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func TestCreatePolicyAppliesOverrides(t *testing.T) {
	svc := NewSLAPolicyService(newMemoryPolicyStore(), newMemoryTenantRepository("acme"), logger.NewNop())

	p, err := svc.CreatePolicy(context.Background(), CreatePolicyInput{
		TenantSlug:          "acme",
		Name:                "issues default",
		EntityType:          "issue",
		WarningThresholdPct: 70,
		Targets: []TargetInput{
			{Priority: "critical", ResponseMinutes: 5, ResolutionMinutes: 60},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 70, p.WarningThresholdPct)
	assert.Equal(t, 5, p.Targets[sla.PriorityCritical].ResponseMinutes)
	// untouched priorities keep the defaults
	assert.Equal(t, sla.DefaultTargets[sla.PriorityLow], p.Targets[sla.PriorityLow])
}

func TestCreatePolicyRejectsBadInput(t *testing.T) {
	svc := NewSLAPolicyService(newMemoryPolicyStore(), newMemoryTenantRepository("acme"), logger.NewNop())

	_, err := svc.CreatePolicy(context.Background(), CreatePolicyInput{
		TenantSlug: "acme", Name: "bad", EntityType: "issue",
		WarningThresholdPct: 150,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreatePolicy(context.Background(), CreatePolicyInput{
		TenantSlug: "acme", Name: "bad", EntityType: "issue",
		Targets: []TargetInput{{Priority: "critical", ResponseMinutes: 120, ResolutionMinutes: 60}},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreatePolicy(context.Background(), CreatePolicyInput{
		TenantSlug: "ghost", Name: "orphan", EntityType: "issue",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetTargetUpdatesPolicy(t *testing.T) {
	store := newMemoryPolicyStore()
	svc := NewSLAPolicyService(store, newMemoryTenantRepository("acme"), logger.NewNop())

	p, err := svc.CreatePolicy(context.Background(), CreatePolicyInput{
		TenantSlug: "acme", Name: "issues", EntityType: "issue",
	})
	require.NoError(t, err)

	updated, err := svc.SetTarget(context.Background(), "acme", p.ID, TargetInput{
		Priority: "high", ResponseMinutes: 30, ResolutionMinutes: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.Targets[sla.PriorityHigh].ResponseMinutes)

	stored, err := store.GetByID(context.Background(), "acme", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, stored.Targets[sla.PriorityHigh].ResolutionMinutes)
}

func TestDeactivatePolicyIsIdempotent(t *testing.T) {
	store := newMemoryPolicyStore()
	svc := NewSLAPolicyService(store, newMemoryTenantRepository("acme"), logger.NewNop())

	p, err := svc.CreatePolicy(context.Background(), CreatePolicyInput{
		TenantSlug: "acme", Name: "issues", EntityType: "issue",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), "acme", p.ID))
	require.NoError(t, svc.Deactivate(context.Background(), "acme", p.ID))

	stored, err := store.GetByID(context.Background(), "acme", p.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}
