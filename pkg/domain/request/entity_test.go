package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

func approvalWith(t *testing.T, status ApprovalStatus) *Approval {
	t.Helper()
	a, err := NewApproval(shared.NewID(), 1, ApproverUser, shared.NewID())
	require.NoError(t, err)
	a.Status = status
	return a
}

func TestComputeAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []ApprovalStatus
		want     Status
	}{
		{"no approvals stays pending", nil, StatusPendingApproval},
		{"all approved", []ApprovalStatus{ApprovalStatusApproved, ApprovalStatusApproved}, StatusApproved},
		{"one pending keeps pending", []ApprovalStatus{ApprovalStatusApproved, ApprovalStatusPending}, StatusPendingApproval},
		{"rejection absorbs pending", []ApprovalStatus{ApprovalStatusRejected, ApprovalStatusPending}, StatusRejected},
		{"rejection absorbs approvals", []ApprovalStatus{ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusApproved}, StatusRejected},
		{"delegated counts as undecided", []ApprovalStatus{ApprovalStatusApproved, ApprovalStatusDelegated}, StatusPendingApproval},
		{"single rejected", []ApprovalStatus{ApprovalStatusRejected}, StatusRejected},
		{"single approved", []ApprovalStatus{ApprovalStatusApproved}, StatusApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var approvals []*Approval
			for _, s := range tt.statuses {
				approvals = append(approvals, approvalWith(t, s))
			}
			assert.Equal(t, tt.want, ComputeAggregateStatus(approvals))
		})
	}
}

// The aggregate rule must be order-independent: permuting the approval set
// never changes the result.
func TestComputeAggregateStatusOrderIndependent(t *testing.T) {
	a := approvalWith(t, ApprovalStatusApproved)
	b := approvalWith(t, ApprovalStatusRejected)
	c := approvalWith(t, ApprovalStatusPending)

	perms := [][]*Approval{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	for _, p := range perms {
		assert.Equal(t, StatusRejected, ComputeAggregateStatus(p))
	}
}

func TestServiceRequestLifecycle(t *testing.T) {
	r, err := NewServiceRequest("acme", shared.NewID(), "New laptop")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, r.Status)

	require.NoError(t, r.SubmitForApproval())
	assert.Equal(t, StatusPendingApproval, r.Status)

	// Double submission conflicts.
	err = r.SubmitForApproval()
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestNewServiceRequestValidation(t *testing.T) {
	_, err := NewServiceRequest("", shared.NewID(), "x")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewServiceRequest("acme", shared.NewID(), "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDecisionValidate(t *testing.T) {
	actor := shared.NewID()

	assert.NoError(t, Decision{Status: ApprovalStatusApproved, ActorID: actor}.Validate())
	assert.NoError(t, Decision{Status: ApprovalStatusRejected, ActorID: actor}.Validate())

	err := Decision{Status: ApprovalStatusDelegated, ActorID: actor}.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	assert.NoError(t, Decision{
		Status: ApprovalStatusDelegated, ActorID: actor, DelegateTo: shared.NewID(),
	}.Validate())

	err = Decision{Status: ApprovalStatusPending, ActorID: actor}.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = Decision{Status: ApprovalStatusApproved}.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)
}
