package workflowrule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

func TestConditionEvaluate(t *testing.T) {
	snapshot := map[string]any{
		"priority": "high",
		"title":    "VPN access broken",
		"count":    7,
		"assignee": "",
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals match", Condition{Field: "priority", Operator: OpEquals, Value: "high"}, true},
		{"equals miss", Condition{Field: "priority", Operator: OpEquals, Value: "low"}, false},
		{"not_equals", Condition{Field: "priority", Operator: OpNotEquals, Value: "low"}, true},
		{"contains", Condition{Field: "title", Operator: OpContains, Value: "VPN"}, true},
		{"not_contains", Condition{Field: "title", Operator: OpNotContains, Value: "printer"}, true},
		{"greater_than int", Condition{Field: "count", Operator: OpGreaterThan, Value: "5"}, true},
		{"less_than miss", Condition{Field: "count", Operator: OpLessThan, Value: "5"}, false},
		{"in list", Condition{Field: "priority", Operator: OpIn, Value: "critical, high"}, true},
		{"in miss", Condition{Field: "priority", Operator: OpIn, Value: "low,medium"}, false},
		{"is_empty", Condition{Field: "assignee", Operator: OpIsEmpty}, true},
		{"is_not_empty", Condition{Field: "title", Operator: OpIsNotEmpty}, true},
		{"missing field is empty", Condition{Field: "nope", Operator: OpIsEmpty}, true},
		{"missing field equals miss", Condition{Field: "nope", Operator: OpEquals, Value: "x"}, false},
		{"non numeric comparison is false", Condition{Field: "title", Operator: OpGreaterThan, Value: "3"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Evaluate(snapshot))
		})
	}
}

func TestConditionValidate(t *testing.T) {
	assert.NoError(t, Condition{Field: "priority", Operator: OpEquals, Value: "high"}.Validate())
	assert.NoError(t, Condition{Field: "assignee", Operator: OpIsEmpty}.Validate())

	err := Condition{Operator: OpEquals, Value: "x"}.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = Condition{Field: "f", Operator: "matches_regex", Value: ".*"}.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = Condition{Field: "f", Operator: OpEquals}.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestActionValidate(t *testing.T) {
	assert.NoError(t, Action{
		Kind:   ActionSendNotification,
		Params: map[string]string{"template": "sla_breach", "recipient": "oncall"},
	}.Validate())

	err := Action{Kind: ActionSendNotification, Params: map[string]string{"template": "x"}}.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = Action{Kind: "launch_missiles"}.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRuleValidateAtSave(t *testing.T) {
	r, err := NewRule("acme", "escalate-critical", EntityIssue, TriggerCreated)
	require.NoError(t, err)

	r.Conditions = append(r.Conditions, Condition{Field: "priority", Operator: "bogus"})
	assert.ErrorIs(t, r.Validate(), shared.ErrValidation)

	r.Conditions = []Condition{{Field: "priority", Operator: OpEquals, Value: "critical"}}
	r.Actions = []Action{{Kind: ActionAssign, Params: map[string]string{"assignee": "oncall"}}}
	assert.NoError(t, r.Validate())

	_, err = NewRule("acme", "bad", "server", TriggerCreated)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRuleMatchesANDSemantics(t *testing.T) {
	r, err := NewRule("acme", "r", EntityIssue, TriggerCreated)
	require.NoError(t, err)
	r.Conditions = []Condition{
		{Field: "priority", Operator: OpEquals, Value: "high"},
		{Field: "category", Operator: OpEquals, Value: "network"},
	}

	assert.True(t, r.Matches(map[string]any{"priority": "high", "category": "network"}))
	assert.False(t, r.Matches(map[string]any{"priority": "high", "category": "hardware"}))

	// Empty condition list matches everything.
	r.Conditions = nil
	assert.True(t, r.Matches(map[string]any{}))
}
