package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
	"github.com/asklokesh/FireLater-sub015/pkg/validator"
)

func newRuleServiceFixture(t *testing.T) (*RuleService, *memoryRuleRepository) {
	t.Helper()
	rules := &memoryRuleRepository{}
	logs := &memoryExecutionLogRepository{}
	return NewRuleService(rules, logs, newMemoryTenantRepository("acme"), validator.New(), logger.NewNop()), rules
}

func validRuleInput() CreateRuleInput {
	return CreateRuleInput{
		TenantSlug:  "acme",
		Name:        "Notify on approval",
		EntityType:  "request",
		TriggerType: "approved",
		Actions: []workflowrule.Action{{
			Kind:   workflowrule.ActionSendNotification,
			Params: map[string]string{"template": "request_approved", "recipient": "requester"},
		}},
	}
}

func TestCreateRule(t *testing.T) {
	svc, repo := newRuleServiceFixture(t)

	rule, err := svc.CreateRule(context.Background(), validRuleInput())
	require.NoError(t, err)
	assert.True(t, rule.IsActive)

	stored, err := repo.GetByID(context.Background(), "acme", rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notify on approval", stored.Name)
}

func TestCreateRuleRejectsUnknownTrigger(t *testing.T) {
	svc, _ := newRuleServiceFixture(t)

	input := validRuleInput()
	input.TriggerType = "vanished"
	_, err := svc.CreateRule(context.Background(), input)
	assert.Error(t, err)
}

func TestCreateRuleRejectsActionMissingParams(t *testing.T) {
	svc, _ := newRuleServiceFixture(t)

	input := validRuleInput()
	input.Actions = []workflowrule.Action{{Kind: workflowrule.ActionUpdateField, Params: map[string]string{"field": "status"}}}
	_, err := svc.CreateRule(context.Background(), input)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRuleRejectsBadCondition(t *testing.T) {
	svc, _ := newRuleServiceFixture(t)

	input := validRuleInput()
	input.Conditions = []workflowrule.Condition{{Field: "", Operator: workflowrule.OpEquals, Value: "x"}}
	_, err := svc.CreateRule(context.Background(), input)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRuleUnknownTenant(t *testing.T) {
	svc, _ := newRuleServiceFixture(t)

	input := validRuleInput()
	input.TenantSlug = "ghost"
	_, err := svc.CreateRule(context.Background(), input)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateRuleRevalidates(t *testing.T) {
	svc, _ := newRuleServiceFixture(t)

	rule, err := svc.CreateRule(context.Background(), validRuleInput())
	require.NoError(t, err)

	// A partial update that breaks an action is rejected whole.
	_, err = svc.UpdateRule(context.Background(), "acme", rule.ID, UpdateRuleInput{
		Actions: []workflowrule.Action{{Kind: workflowrule.ActionAssign}},
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	inactive := false
	updated, err := svc.UpdateRule(context.Background(), "acme", rule.ID, UpdateRuleInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestDeleteRule(t *testing.T) {
	svc, repo := newRuleServiceFixture(t)

	rule, err := svc.CreateRule(context.Background(), validRuleInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRule(context.Background(), "acme", rule.ID))
	_, err = repo.GetByID(context.Background(), "acme", rule.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteRule(context.Background(), "acme", shared.NewID()), shared.ErrNotFound)
}
