package app

import (
	"context"
	"fmt"

	"github.com/asklokesh/FireLater-sub015/internal/metrics"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/request"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// ApprovalService drives the request approval state machine. All concurrency
// control lives in the repository's conditional writes; this layer validates,
// delegates, and emits events after the decision committed.
type ApprovalService struct {
	requests request.Repository
	tenants  tenant.Repository
	bus      *EventBus
	logger   *logger.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(requests request.Repository, tenants tenant.Repository, bus *EventBus, log *logger.Logger) *ApprovalService {
	return &ApprovalService{
		requests: requests,
		tenants:  tenants,
		bus:      bus,
		logger:   log.With("service", "approval"),
	}
}

// ApproverInput names one approver in a new request's chain.
type ApproverInput struct {
	Kind       request.ApproverKind `validate:"required,oneof=user group"`
	ApproverID string               `validate:"required,uuid"`
}

// CreateRequestInput is the input for creating a service request with its
// approval chain.
type CreateRequestInput struct {
	TenantSlug  string `validate:"required,slug"`
	RequesterID string `validate:"required,uuid"`
	Title       string `validate:"required,min=1,max=200"`
	Description string `validate:"max=4000"`
	Approvers   []ApproverInput
}

// CreateRequest creates a request. With approvers it enters pending_approval
// immediately; without, it stays submitted.
func (s *ApprovalService) CreateRequest(ctx context.Context, input CreateRequestInput) (*request.ServiceRequest, error) {
	if _, err := s.tenants.GetBySlug(ctx, input.TenantSlug); err != nil {
		return nil, fmt.Errorf("resolve tenant %q: %w", input.TenantSlug, err)
	}

	requesterID, err := shared.IDFromString(input.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid requester id format", shared.ErrValidation)
	}

	req, err := request.NewServiceRequest(input.TenantSlug, requesterID, input.Title)
	if err != nil {
		return nil, err
	}
	req.Description = input.Description

	approvals := make([]*request.Approval, 0, len(input.Approvers))
	for i, in := range input.Approvers {
		approverID, err := shared.IDFromString(in.ApproverID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid approver id at step %d", shared.ErrValidation, i+1)
		}
		a, err := request.NewApproval(req.ID, i+1, in.Kind, approverID)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}

	if len(approvals) > 0 {
		if err := req.SubmitForApproval(); err != nil {
			return nil, err
		}
	}

	if err := s.requests.Create(ctx, input.TenantSlug, req, approvals); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("request created",
		"tenant", input.TenantSlug,
		"request_id", req.ID,
		"approvals", len(approvals),
	)

	s.bus.Publish(ctx, Event{
		TenantSlug:  input.TenantSlug,
		EntityType:  workflowrule.EntityRequest,
		EntityID:    req.ID,
		TriggerType: workflowrule.TriggerCreated,
		Snapshot:    requestSnapshot(req),
	})

	return req, nil
}

// GetRequest fetches one request.
func (s *ApprovalService) GetRequest(ctx context.Context, tenantSlug string, id shared.ID) (*request.ServiceRequest, error) {
	return s.requests.GetByID(ctx, tenantSlug, id)
}

// ListApprovals returns the approval chain for a request.
func (s *ApprovalService) ListApprovals(ctx context.Context, tenantSlug string, requestID shared.ID) ([]*request.Approval, error) {
	return s.requests.ListApprovals(ctx, tenantSlug, requestID)
}

// ListStatusHistory returns the aggregate status transitions for a request.
func (s *ApprovalService) ListStatusHistory(ctx context.Context, tenantSlug string, requestID shared.ID) ([]*request.StatusHistory, error) {
	return s.requests.ListStatusHistory(ctx, tenantSlug, requestID)
}

// Decide resolves one approval step. Concurrent decisions on the same step
// resolve to exactly one winner; the losers get ErrAlreadyProcessed and the
// caller is expected to surface that as a conflict, not retry.
func (s *ApprovalService) Decide(ctx context.Context, tenantSlug string, requestID, approvalID shared.ID, d request.Decision) (*request.DecisionOutcome, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.tenants.GetBySlug(ctx, tenantSlug); err != nil {
		return nil, fmt.Errorf("resolve tenant %q: %w", tenantSlug, err)
	}

	outcome, err := s.requests.ApplyDecision(ctx, tenantSlug, requestID, approvalID, d)
	if err != nil {
		if shared.IsAlreadyProcessed(err) {
			metrics.ApprovalConflictsTotal.WithLabelValues(tenantSlug).Inc()
			s.logger.Warn("concurrent decision lost",
				"tenant", tenantSlug,
				"request_id", requestID,
				"approval_id", approvalID,
				"actor", d.ActorID,
			)
		}
		return nil, err
	}

	metrics.ApprovalsDecidedTotal.WithLabelValues(tenantSlug, d.Status.String()).Inc()
	s.logger.Info("approval decided",
		"tenant", tenantSlug,
		"request_id", requestID,
		"approval_id", approvalID,
		"decision", d.Status,
		"aggregate", outcome.NewStatus,
		"aggregate_changed", outcome.StatusChanged,
	)

	// Events fire only on the aggregate transition, so a three-step chain
	// emits one approved event, not three.
	if outcome.StatusChanged {
		trigger := workflowrule.TriggerUpdated
		switch outcome.NewStatus {
		case request.StatusApproved:
			trigger = workflowrule.TriggerApproved
		case request.StatusRejected:
			trigger = workflowrule.TriggerRejected
		}
		s.bus.Publish(ctx, Event{
			TenantSlug:  tenantSlug,
			EntityType:  workflowrule.EntityRequest,
			EntityID:    requestID,
			TriggerType: trigger,
			Snapshot: map[string]any{
				"id":              requestID.String(),
				"status":          outcome.NewStatus.String(),
				"previous_status": outcome.PreviousStatus.String(),
			},
		})
	}

	return outcome, nil
}

func requestSnapshot(r *request.ServiceRequest) map[string]any {
	return map[string]any{
		"id":           r.ID.String(),
		"tenant_slug":  r.TenantSlug,
		"requester_id": r.RequesterID.String(),
		"title":        r.Title,
		"description":  r.Description,
		"status":       r.Status.String(),
	}
}
