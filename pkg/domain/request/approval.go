package request

import (
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// ApprovalStatus represents the state of a single approval step.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusDelegated ApprovalStatus = "delegated"
)

// String returns the string representation of the status.
func (s ApprovalStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the approval has been decided. A delegated
// approval is not terminal: the step re-enters pending under a new approver.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// ApproverKind distinguishes user and group approvers.
type ApproverKind string

const (
	ApproverUser  ApproverKind = "user"
	ApproverGroup ApproverKind = "group"
)

// Approval is one step of a request's approval chain. The invariant is
// exactly one terminal write per approval: the transition out of pending is
// a conditional UPDATE, and a miss means another decision already landed.
type Approval struct {
	ID           shared.ID
	RequestID    shared.ID
	StepNumber   int
	ApproverKind ApproverKind
	ApproverID   shared.ID
	Status       ApprovalStatus
	Comment      string
	DecidedBy    *shared.ID
	DecidedAt    *time.Time
	CreatedAt    time.Time
}

// NewApproval creates a pending approval step.
func NewApproval(requestID shared.ID, step int, kind ApproverKind, approverID shared.ID) (*Approval, error) {
	if step < 1 {
		return nil, shared.NewDomainError("APPROVAL_INVALID_STEP", "step number must be positive", shared.ErrValidation)
	}
	if approverID.IsZero() {
		return nil, shared.NewDomainError("APPROVAL_APPROVER_REQUIRED", "approver is required", shared.ErrValidation)
	}
	return &Approval{
		ID:           shared.NewID(),
		RequestID:    requestID,
		StepNumber:   step,
		ApproverKind: kind,
		ApproverID:   approverID,
		Status:       ApprovalStatusPending,
		CreatedAt:    time.Now(),
	}, nil
}

// Decision is the input to the atomic approval transition.
type Decision struct {
	Status  ApprovalStatus
	Comment string
	ActorID shared.ID
	// DelegateTo is the new approver when Status is delegated.
	DelegateTo shared.ID
}

// Validate checks a decision before any side effect.
func (d Decision) Validate() error {
	switch d.Status {
	case ApprovalStatusApproved, ApprovalStatusRejected:
	case ApprovalStatusDelegated:
		if d.DelegateTo.IsZero() {
			return shared.NewDomainError("APPROVAL_DELEGATE_REQUIRED",
				"delegation requires a target approver", shared.ErrValidation)
		}
	default:
		return shared.NewDomainError("APPROVAL_INVALID_DECISION",
			"decision must be approved, rejected or delegated", shared.ErrValidation)
	}
	if d.ActorID.IsZero() {
		return shared.NewDomainError("APPROVAL_ACTOR_REQUIRED", "actor is required", shared.ErrValidation)
	}
	return nil
}
