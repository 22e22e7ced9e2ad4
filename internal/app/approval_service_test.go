package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/request"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// memoryRequestRepository mirrors the conditional-write semantics of the
// Postgres implementation: the transition out of pending happens under one
// lock, and a second decision on the same approval observes the terminal row
// and fails with ErrAlreadyProcessed.
type memoryRequestRepository struct {
	mu        sync.Mutex
	requests  map[shared.ID]*request.ServiceRequest
	approvals map[shared.ID][]*request.Approval
	history   map[shared.ID][]*request.StatusHistory
}

func newMemoryRequestRepository() *memoryRequestRepository {
	return &memoryRequestRepository{
		requests:  make(map[shared.ID]*request.ServiceRequest),
		approvals: make(map[shared.ID][]*request.Approval),
		history:   make(map[shared.ID][]*request.StatusHistory),
	}
}

func (m *memoryRequestRepository) Create(_ context.Context, _ string, r *request.ServiceRequest, approvals []*request.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.requests[r.ID] = &cp
	for _, a := range approvals {
		ac := *a
		m.approvals[r.ID] = append(m.approvals[r.ID], &ac)
	}
	return nil
}

func (m *memoryRequestRepository) GetByID(_ context.Context, _ string, id shared.ID) (*request.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryRequestRepository) ListApprovals(_ context.Context, _ string, requestID shared.ID) ([]*request.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*request.Approval, 0, len(m.approvals[requestID]))
	for _, a := range m.approvals[requestID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryRequestRepository) ListStatusHistory(_ context.Context, _ string, requestID shared.ID) ([]*request.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*request.StatusHistory, 0, len(m.history[requestID]))
	out = append(out, m.history[requestID]...)
	return out, nil
}

func (m *memoryRequestRepository) ApplyDecision(_ context.Context, _ string, requestID, approvalID shared.ID, d request.Decision) (*request.DecisionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[requestID]
	if !ok {
		return nil, shared.ErrNotFound
	}

	var target *request.Approval
	for _, a := range m.approvals[requestID] {
		if a.ID == approvalID {
			target = a
			break
		}
	}
	if target == nil {
		return nil, shared.ErrNotFound
	}

	// Conditional transition out of pending.
	if target.Status != request.ApprovalStatusPending {
		return nil, shared.ErrAlreadyProcessed
	}

	now := time.Now()
	if d.Status == request.ApprovalStatusDelegated {
		target.ApproverID = d.DelegateTo
	} else {
		target.Status = d.Status
		target.Comment = d.Comment
		target.DecidedBy = &d.ActorID
		target.DecidedAt = &now
	}

	previous := r.Status
	next := request.ComputeAggregateStatus(m.approvals[requestID])
	changed := false
	if next != previous && !previous.IsTerminal() {
		r.Status = next
		r.UpdatedAt = now
		if next == request.StatusApproved {
			r.ApprovedAt = &now
		}
		m.history[requestID] = append(m.history[requestID], &request.StatusHistory{
			ID:         shared.NewID(),
			RequestID:  requestID,
			FromStatus: previous,
			ToStatus:   next,
			ActorID:    d.ActorID,
			CreatedAt:  now,
		})
		changed = true
	}

	var decided *request.Approval
	cp := *target
	decided = &cp
	return &request.DecisionOutcome{
		Approval:       decided,
		PreviousStatus: previous,
		NewStatus:      r.Status,
		StatusChanged:  changed,
	}, nil
}

type memoryTenantRepository struct {
	tenants map[string]*tenant.Tenant
}

func newMemoryTenantRepository(slugs ...string) *memoryTenantRepository {
	m := &memoryTenantRepository{tenants: make(map[string]*tenant.Tenant)}
	for _, slug := range slugs {
		t, _ := tenant.New(slug, slug)
		m.tenants[slug] = t
	}
	return m
}

func (m *memoryTenantRepository) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	t, ok := m.tenants[slug]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (m *memoryTenantRepository) ListActive(_ context.Context) ([]*tenant.Tenant, error) {
	out := make([]*tenant.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTenantRepository) Create(_ context.Context, t *tenant.Tenant) error {
	m.tenants[t.Slug] = t
	return nil
}

func (m *memoryTenantRepository) Update(_ context.Context, t *tenant.Tenant) error {
	m.tenants[t.Slug] = t
	return nil
}

func newApprovalFixture(t *testing.T, approverCount int) (*ApprovalService, *memoryRequestRepository, *EventBus, *request.ServiceRequest, []*request.Approval) {
	t.Helper()

	repo := newMemoryRequestRepository()
	tenants := newMemoryTenantRepository("acme")
	bus := NewEventBus(logger.NewNop())
	svc := NewApprovalService(repo, tenants, bus, logger.NewNop())

	approvers := make([]ApproverInput, 0, approverCount)
	for i := 0; i < approverCount; i++ {
		approvers = append(approvers, ApproverInput{
			Kind:       request.ApproverUser,
			ApproverID: shared.NewID().String(),
		})
	}

	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		TenantSlug:  "acme",
		RequesterID: shared.NewID().String(),
		Title:       "New laptop",
		Approvers:   approvers,
	})
	require.NoError(t, err)

	approvals, err := repo.ListApprovals(context.Background(), "acme", req.ID)
	require.NoError(t, err)
	require.Len(t, approvals, approverCount)

	return svc, repo, bus, req, approvals
}

func TestCreateRequestEntersApproval(t *testing.T) {
	_, _, _, req, _ := newApprovalFixture(t, 2)
	assert.Equal(t, request.StatusPendingApproval, req.Status)
}

func TestCreateRequestWithoutApprovers(t *testing.T) {
	repo := newMemoryRequestRepository()
	svc := NewApprovalService(repo, newMemoryTenantRepository("acme"), NewEventBus(logger.NewNop()), logger.NewNop())

	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		TenantSlug:  "acme",
		RequesterID: shared.NewID().String(),
		Title:       "Just FYI",
	})
	require.NoError(t, err)
	assert.Equal(t, request.StatusSubmitted, req.Status)
}

func TestCreateRequestUnknownTenant(t *testing.T) {
	repo := newMemoryRequestRepository()
	svc := NewApprovalService(repo, newMemoryTenantRepository("acme"), NewEventBus(logger.NewNop()), logger.NewNop())

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		TenantSlug:  "ghost",
		RequesterID: shared.NewID().String(),
		Title:       "Nope",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDecideSingleApproverApproves(t *testing.T) {
	svc, repo, _, req, approvals := newApprovalFixture(t, 1)

	outcome, err := svc.Decide(context.Background(), "acme", req.ID, approvals[0].ID, request.Decision{
		Status:  request.ApprovalStatusApproved,
		ActorID: approvals[0].ApproverID,
	})
	require.NoError(t, err)
	assert.True(t, outcome.StatusChanged)
	assert.Equal(t, request.StatusPendingApproval, outcome.PreviousStatus)
	assert.Equal(t, request.StatusApproved, outcome.NewStatus)

	history, err := repo.ListStatusHistory(context.Background(), "acme", req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, request.StatusPendingApproval, history[0].FromStatus)
	assert.Equal(t, request.StatusApproved, history[0].ToStatus)
}

func TestDecideRejectionIsAbsorbing(t *testing.T) {
	svc, _, _, req, approvals := newApprovalFixture(t, 3)

	outcome, err := svc.Decide(context.Background(), "acme", req.ID, approvals[1].ID, request.Decision{
		Status:  request.ApprovalStatusRejected,
		Comment: "budget freeze",
		ActorID: approvals[1].ApproverID,
	})
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, outcome.NewStatus)
	assert.True(t, outcome.StatusChanged)

	// Remaining steps are already decided by the aggregate; a late approval
	// on another step must not resurrect the request.
	late, err := svc.Decide(context.Background(), "acme", req.ID, approvals[0].ID, request.Decision{
		Status:  request.ApprovalStatusApproved,
		ActorID: approvals[0].ApproverID,
	})
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, late.NewStatus)
	assert.False(t, late.StatusChanged)
}

func TestDecideSecondDecisionConflicts(t *testing.T) {
	svc, _, _, req, approvals := newApprovalFixture(t, 1)

	_, err := svc.Decide(context.Background(), "acme", req.ID, approvals[0].ID, request.Decision{
		Status:  request.ApprovalStatusApproved,
		ActorID: approvals[0].ApproverID,
	})
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), "acme", req.ID, approvals[0].ID, request.Decision{
		Status:  request.ApprovalStatusRejected,
		ActorID: shared.NewID(),
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
}

func TestDecideConcurrentSameApprovalExactlyOneWinner(t *testing.T) {
	svc, _, _, req, approvals := newApprovalFixture(t, 1)

	const racers = 16
	results := make(chan error, racers)

	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		status := request.ApprovalStatusApproved
		if i%2 == 1 {
			status = request.ApprovalStatusRejected
		}
		go func(status request.ApprovalStatus) {
			start.Wait()
			_, err := svc.Decide(context.Background(), "acme", req.ID, approvals[0].ID, request.Decision{
				Status:  status,
				ActorID: shared.NewID(),
			})
			results <- err
		}(status)
	}
	start.Done()

	var wins, conflicts int
	for i := 0; i < racers; i++ {
		err := <-results
		switch {
		case err == nil:
			wins++
		case shared.IsAlreadyProcessed(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)
}

func TestDecideConcurrentChainSingleHistoryRowPerTransition(t *testing.T) {
	svc, repo, _, req, approvals := newApprovalFixture(t, 3)

	var wg sync.WaitGroup
	for _, a := range approvals {
		wg.Add(1)
		go func(a *request.Approval) {
			defer wg.Done()
			_, err := svc.Decide(context.Background(), "acme", req.ID, a.ID, request.Decision{
				Status:  request.ApprovalStatusApproved,
				ActorID: a.ApproverID,
			})
			assert.NoError(t, err)
		}(a)
	}
	wg.Wait()

	got, err := repo.GetByID(context.Background(), "acme", req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusApproved, got.Status)

	// Three concurrent approvals produce exactly one aggregate transition.
	history, err := repo.ListStatusHistory(context.Background(), "acme", req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, request.StatusApproved, history[0].ToStatus)
}

func TestDecideDelegationReassignsWithoutDeciding(t *testing.T) {
	svc, repo, _, req, approvals := newApprovalFixture(t, 1)

	delegate := shared.NewID()
	outcome, err := svc.Decide(context.Background(), "acme", req.ID, approvals[0].ID, request.Decision{
		Status:     request.ApprovalStatusDelegated,
		ActorID:    approvals[0].ApproverID,
		DelegateTo: delegate,
	})
	require.NoError(t, err)
	assert.False(t, outcome.StatusChanged)
	assert.Equal(t, request.StatusPendingApproval, outcome.NewStatus)

	after, err := repo.ListApprovals(context.Background(), "acme", req.ID)
	require.NoError(t, err)
	assert.Equal(t, delegate, after[0].ApproverID)
	assert.Equal(t, request.ApprovalStatusPending, after[0].Status)
}

func TestDecideEmitsEventOnlyOnAggregateChange(t *testing.T) {
	svc, _, bus, req, approvals := newApprovalFixture(t, 2)

	var mu sync.Mutex
	var events []Event
	bus.SubscribeAll(EventHandlerFunc(func(_ context.Context, e Event) error {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		return nil
	}))

	for _, a := range approvals {
		_, err := svc.Decide(context.Background(), "acme", req.ID, a.ID, request.Decision{
			Status:  request.ApprovalStatusApproved,
			ActorID: a.ApproverID,
		})
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, workflowrule.TriggerApproved, events[0].TriggerType)
	assert.Equal(t, req.ID, events[0].EntityID)
}

func TestDecideInvalidDecisionRejectedEarly(t *testing.T) {
	svc, _, _, req, approvals := newApprovalFixture(t, 1)

	_, err := svc.Decide(context.Background(), "acme", req.ID, approvals[0].ID, request.Decision{
		Status: request.ApprovalStatus("maybe"),
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
