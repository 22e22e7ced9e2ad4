package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/sla"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// memorySLARepository simulates the conditional batch sweep: each pending
// breach is flagged at most once no matter how many sweeps run.
type memorySLARepository struct {
	mu sync.Mutex
	// pending breaches per tenant, consumed by the first sweep to see them
	pendingResponse   map[string]int64
	pendingResolution map[string]int64
	pendingWarnings   map[string]int64
	sweepErr          error
	sweeps            int
}

func newMemorySLARepository() *memorySLARepository {
	return &memorySLARepository{
		pendingResponse:   make(map[string]int64),
		pendingResolution: make(map[string]int64),
		pendingWarnings:   make(map[string]int64),
	}
}

func (m *memorySLARepository) Create(context.Context, string, *sla.Policy) error { return nil }
func (m *memorySLARepository) Update(context.Context, string, *sla.Policy) error { return nil }
func (m *memorySLARepository) GetByID(context.Context, string, shared.ID) (*sla.Policy, error) {
	return nil, shared.ErrNotFound
}
func (m *memorySLARepository) GetActive(context.Context, string, string) (*sla.Policy, error) {
	return nil, shared.ErrNotFound
}
func (m *memorySLARepository) ListByTenant(context.Context, string) ([]*sla.Policy, error) {
	return nil, nil
}

func (m *memorySLARepository) MarkBreached(_ context.Context, tenantSlug string, _ time.Time) (sla.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	if m.sweepErr != nil {
		return sla.SweepResult{}, m.sweepErr
	}
	result := sla.SweepResult{
		ResponseBreaches:   m.pendingResponse[tenantSlug],
		ResolutionBreaches: m.pendingResolution[tenantSlug],
	}
	// Conditional write: flagged rows are not flagged again.
	m.pendingResponse[tenantSlug] = 0
	m.pendingResolution[tenantSlug] = 0
	return result, nil
}

func (m *memorySLARepository) MarkWarnings(_ context.Context, tenantSlug string, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	n := m.pendingWarnings[tenantSlug]
	m.pendingWarnings[tenantSlug] = 0
	return n, nil
}

type capturingEnqueuer struct {
	mu            sync.Mutex
	sweeps        []jobs.SLASweepPayload
	notifications []jobs.NotificationSendPayload
	failSweeps    bool
}

func (c *capturingEnqueuer) EnqueueSLASweep(_ context.Context, p jobs.SLASweepPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSweeps {
		return errors.New("redis down")
	}
	c.sweeps = append(c.sweeps, p)
	return nil
}

func (c *capturingEnqueuer) EnqueueNotification(_ context.Context, p jobs.NotificationSendPayload, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, p)
	return nil
}

func TestSweepTenantReportsCounts(t *testing.T) {
	repo := newMemorySLARepository()
	repo.pendingResponse["acme"] = 3
	repo.pendingResolution["acme"] = 1
	repo.pendingWarnings["acme"] = 5

	enq := &capturingEnqueuer{}
	eval := NewSLAEvaluator(repo, newMemoryTenantRepository("acme"), enq, 2, logger.NewNop())

	require.NoError(t, eval.SweepTenant(context.Background(), "acme", time.Now()))

	// A breach summary notification went out.
	require.Len(t, enq.notifications, 1)
	assert.Equal(t, "sla_breach_summary", enq.notifications[0].Template)
	assert.Equal(t, "3", enq.notifications[0].Data["response_breaches"])
}

func TestSweepTenantIdempotent(t *testing.T) {
	repo := newMemorySLARepository()
	repo.pendingResponse["acme"] = 2

	enq := &capturingEnqueuer{}
	eval := NewSLAEvaluator(repo, newMemoryTenantRepository("acme"), enq, 2, logger.NewNop())

	require.NoError(t, eval.SweepTenant(context.Background(), "acme", time.Now()))
	require.NoError(t, eval.SweepTenant(context.Background(), "acme", time.Now()))

	// The second sweep found nothing new: no second notification.
	assert.Len(t, enq.notifications, 1)
}

func TestSweepTenantNoBreachesNoNotification(t *testing.T) {
	repo := newMemorySLARepository()
	repo.pendingWarnings["acme"] = 2

	enq := &capturingEnqueuer{}
	eval := NewSLAEvaluator(repo, newMemoryTenantRepository("acme"), enq, 2, logger.NewNop())

	require.NoError(t, eval.SweepTenant(context.Background(), "acme", time.Now()))
	assert.Empty(t, enq.notifications)
}

func TestEnqueueSweepsOnePerActiveTenant(t *testing.T) {
	repo := newMemorySLARepository()
	enq := &capturingEnqueuer{}
	eval := NewSLAEvaluator(repo, newMemoryTenantRepository("acme", "globex", "initech"), enq, 2, logger.NewNop())

	require.NoError(t, eval.EnqueueSweeps(context.Background()))
	require.Len(t, enq.sweeps, 3)

	// All sweeps in one batch share the same cutoff.
	asOf := enq.sweeps[0].AsOf
	for _, p := range enq.sweeps {
		assert.Equal(t, asOf, p.AsOf)
	}
}

func TestEnqueueSweepsReportsFailures(t *testing.T) {
	repo := newMemorySLARepository()
	enq := &capturingEnqueuer{failSweeps: true}
	eval := NewSLAEvaluator(repo, newMemoryTenantRepository("acme"), enq, 2, logger.NewNop())

	err := eval.EnqueueSweeps(context.Background())
	assert.Error(t, err)
}

func TestSweepAllIsolatesTenantFailures(t *testing.T) {
	repo := newMemorySLARepository()
	enq := &capturingEnqueuer{}
	eval := NewSLAEvaluator(repo, newMemoryTenantRepository("acme", "globex"), enq, 2, logger.NewNop())

	require.NoError(t, eval.SweepAll(context.Background()))
	assert.GreaterOrEqual(t, repo.sweeps, 2)
}

func TestSweepAllSurfacesFirstError(t *testing.T) {
	repo := newMemorySLARepository()
	repo.sweepErr = errors.New("schema missing")
	enq := &capturingEnqueuer{}
	eval := NewSLAEvaluator(repo, newMemoryTenantRepository("acme", "globex"), enq, 2, logger.NewNop())

	err := eval.SweepAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema missing")
}
