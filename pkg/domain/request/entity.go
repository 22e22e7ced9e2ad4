// Package request provides the service request aggregate and its approval
// state machine. Once a request enters pending_approval it is mutated only
// through approval decisions; the aggregate status is a pure function of the
// full approval set, never of decision order.
package request

import (
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Status represents the lifecycle state of a service request.
type Status string

const (
	StatusSubmitted       Status = "submitted"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// ServiceRequest is a tenant-owned request that may require multi-step approval.
type ServiceRequest struct {
	ID          shared.ID
	TenantSlug  string
	RequesterID shared.ID
	Title       string
	Description string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ApprovedAt  *time.Time
}

// NewServiceRequest creates a request in the submitted state.
func NewServiceRequest(tenantSlug string, requesterID shared.ID, title string) (*ServiceRequest, error) {
	if tenantSlug == "" {
		return nil, shared.NewDomainError("REQUEST_TENANT_REQUIRED", "tenant slug is required", shared.ErrValidation)
	}
	if title == "" {
		return nil, shared.NewDomainError("REQUEST_TITLE_REQUIRED", "title is required", shared.ErrValidation)
	}
	now := time.Now()
	return &ServiceRequest{
		ID:          shared.NewID(),
		TenantSlug:  tenantSlug,
		RequesterID: requesterID,
		Title:       title,
		Status:      StatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SubmitForApproval moves the request into the approval state machine.
func (r *ServiceRequest) SubmitForApproval() error {
	if r.Status != StatusSubmitted {
		return shared.NewDomainError("REQUEST_NOT_SUBMITTED",
			"only submitted requests can enter approval", shared.ErrConflict)
	}
	r.Status = StatusPendingApproval
	r.UpdatedAt = time.Now()
	return nil
}

// StatusHistory is one immutable record of an aggregate status transition.
// Exactly one row is written per transition, regardless of how many
// concurrent decisions observed it.
type StatusHistory struct {
	ID         shared.ID
	RequestID  shared.ID
	FromStatus Status
	ToStatus   Status
	ActorID    shared.ID
	CreatedAt  time.Time
}

// ComputeAggregateStatus derives the request status from the full approval
// set. Rejection is absorbing: any rejected approval decides the aggregate
// regardless of the others. Delegated approvals still count as undecided.
func ComputeAggregateStatus(approvals []*Approval) Status {
	if len(approvals) == 0 {
		return StatusPendingApproval
	}
	allApproved := true
	for _, a := range approvals {
		switch a.Status {
		case ApprovalStatusRejected:
			return StatusRejected
		case ApprovalStatusApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return StatusApproved
	}
	return StatusPendingApproval
}
