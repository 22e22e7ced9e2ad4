package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/internal/infra/http/handler"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/request"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

type stubTenantRepository struct {
	mu      sync.Mutex
	tenants map[string]*tenant.Tenant
}

func newStubTenantRepository() *stubTenantRepository {
	return &stubTenantRepository{tenants: make(map[string]*tenant.Tenant)}
}

func (s *stubTenantRepository) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[slug]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *stubTenantRepository) ListActive(context.Context) ([]*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*tenant.Tenant
	for _, t := range s.tenants {
		if t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubTenantRepository) Create(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.Slug]; ok {
		return shared.ErrAlreadyExists
	}
	cp := *t
	s.tenants[t.Slug] = &cp
	return nil
}

func (s *stubTenantRepository) Update(_ context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.Slug]; !ok {
		return shared.ErrNotFound
	}
	cp := *t
	s.tenants[t.Slug] = &cp
	return nil
}

type stubProvisioner struct {
	schemas []string
	fail    bool
}

func (s *stubProvisioner) EnsureSchema(_ context.Context, schemaName string) error {
	if s.fail {
		return errors.New("schema provisioning failed")
	}
	s.schemas = append(s.schemas, schemaName)
	return nil
}

type stubRequestRepository struct {
	mu        sync.Mutex
	requests  map[shared.ID]*request.ServiceRequest
	approvals map[shared.ID][]*request.Approval
}

func newStubRequestRepository() *stubRequestRepository {
	return &stubRequestRepository{
		requests:  make(map[shared.ID]*request.ServiceRequest),
		approvals: make(map[shared.ID][]*request.Approval),
	}
}

func (s *stubRequestRepository) Create(_ context.Context, _ string, r *request.ServiceRequest, approvals []*request.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.requests[r.ID] = &cp
	for _, a := range approvals {
		ac := *a
		s.approvals[r.ID] = append(s.approvals[r.ID], &ac)
	}
	return nil
}

func (s *stubRequestRepository) GetByID(_ context.Context, _ string, id shared.ID) (*request.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *stubRequestRepository) ListApprovals(_ context.Context, _ string, requestID shared.ID) ([]*request.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*request.Approval, 0, len(s.approvals[requestID]))
	for _, a := range s.approvals[requestID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubRequestRepository) ListStatusHistory(context.Context, string, shared.ID) ([]*request.StatusHistory, error) {
	return nil, nil
}

func (s *stubRequestRepository) ApplyDecision(_ context.Context, _ string, requestID, approvalID shared.ID, d request.Decision) (*request.DecisionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	for _, a := range s.approvals[requestID] {
		if a.ID != approvalID {
			continue
		}
		if a.Status != request.ApprovalStatusPending {
			return nil, shared.ErrAlreadyProcessed
		}
		a.Status = d.Status
		previous := req.Status
		next := request.ComputeAggregateStatus(s.approvals[requestID])
		changed := next != previous
		if changed {
			req.Status = next
		}
		cp := *a
		return &request.DecisionOutcome{
			Approval:       &cp,
			PreviousStatus: previous,
			NewStatus:      req.Status,
			StatusChanged:  changed,
		}, nil
	}
	return nil, shared.ErrNotFound
}

func newTestRouter(t *testing.T) (http.Handler, *stubTenantRepository, *stubRequestRepository) {
	t.Helper()
	log := logger.NewNop()

	tenants := newStubTenantRepository()
	requests := newStubRequestRepository()

	tenantSvc := app.NewTenantService(tenants, &stubProvisioner{}, log)
	approvalSvc := app.NewApprovalService(requests, tenants, app.NewEventBus(log), log)

	router := NewRouter(Handlers{
		Health:   handler.NewHealthHandler(nil, nil),
		Tenants:  handler.NewTenantHandler(tenantSvc, log),
		Requests: handler.NewRequestHandler(approvalSvc, log),
	}, log)
	return router, tenants, requests
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestProvisionAndGetTenant(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tenants", map[string]string{
		"slug": "acme", "name": "Acme Corp",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tenants/acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Slug     string `json:"slug"`
		IsActive bool   `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "acme", got.Slug)
	assert.True(t, got.IsActive)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/tenants", map[string]string{
		"slug": "acme", "name": "Acme again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetUnknownTenantReturns404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tenants/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestDecisionConflictMapsToAlreadyProcessed(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tenants", map[string]string{
		"slug": "acme", "name": "Acme Corp",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	approverID := shared.NewID()
	rec = doJSON(t, router, http.MethodPost, "/api/v1/tenants/acme/requests", map[string]any{
		"requester_id": shared.NewID().String(),
		"title":        "Laptop request",
		"approvers": []map[string]string{
			{"kind": "user", "approver_id": approverID.String()},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID     shared.ID `json:"id"`
		Status string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "pending_approval", created.Status)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tenants/acme/requests/"+created.ID.String()+"/approvals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var approvals []struct {
		ID shared.ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approvals))
	require.Len(t, approvals, 1)

	decisionPath := "/api/v1/tenants/acme/requests/" + created.ID.String() +
		"/approvals/" + approvals[0].ID.String() + "/decision"
	decision := map[string]string{
		"status":   "approved",
		"actor_id": approverID.String(),
	}

	rec = doJSON(t, router, http.MethodPost, decisionPath, decision)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, decisionPath, decision)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ALREADY_PROCESSED", resp.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
