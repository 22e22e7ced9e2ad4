package request

import (
	"context"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// DecisionOutcome describes what an ApplyDecision call actually changed.
type DecisionOutcome struct {
	// Approval state after the decision.
	Approval *Approval
	// PreviousStatus and NewStatus are the aggregate request statuses
	// observed inside the decision transaction.
	PreviousStatus Status
	NewStatus      Status
	// StatusChanged is true when this transaction wrote the history row
	// for the aggregate transition.
	StatusChanged bool
}

// Repository provides tenant-partitioned access to service requests and
// their approvals.
type Repository interface {
	Create(ctx context.Context, tenantSlug string, r *ServiceRequest, approvals []*Approval) error
	GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*ServiceRequest, error)
	ListApprovals(ctx context.Context, tenantSlug string, requestID shared.ID) ([]*Approval, error)
	ListStatusHistory(ctx context.Context, tenantSlug string, requestID shared.ID) ([]*StatusHistory, error)

	// ApplyDecision atomically resolves one approval step and recomputes
	// the aggregate request status, all inside one repeatable-read
	// transaction scoped to the tenant partition:
	//
	//  1. conditional UPDATE of the approval row from pending to the
	//     decided state; zero rows affected fails with ErrAlreadyProcessed,
	//  2. re-read of all approval rows for the request,
	//  3. aggregate status via ComputeAggregateStatus,
	//  4. if the aggregate changed, a conditional UPDATE of the request row
	//     and exactly one StatusHistory row.
	//
	// This conditional-write shape is the only cross-worker coordination;
	// workers in separate processes need no in-process locks.
	ApplyDecision(ctx context.Context, tenantSlug string, requestID, approvalID shared.ID, d Decision) (*DecisionOutcome, error)
}
