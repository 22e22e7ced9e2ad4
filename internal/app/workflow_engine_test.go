package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

type memoryRuleRepository struct {
	mu    sync.Mutex
	rules []*workflowrule.Rule
}

func (m *memoryRuleRepository) Create(_ context.Context, _ string, r *workflowrule.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, r)
	return nil
}

func (m *memoryRuleRepository) Update(_ context.Context, _ string, r *workflowrule.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.rules {
		if existing.ID == r.ID {
			m.rules[i] = r
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryRuleRepository) GetByID(_ context.Context, _ string, id shared.ID) (*workflowrule.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRuleRepository) ListActive(_ context.Context, tenantSlug string, entity workflowrule.EntityType, trigger workflowrule.TriggerType) ([]*workflowrule.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*workflowrule.Rule
	for _, r := range m.rules {
		if r.IsActive && r.TenantSlug == tenantSlug && r.EntityType == entity && r.TriggerType == trigger {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExecutionOrder < out[j].ExecutionOrder })
	return out, nil
}

func (m *memoryRuleRepository) Delete(_ context.Context, _ string, id shared.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rules {
		if r.ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

type memoryExecutionLogRepository struct {
	mu   sync.Mutex
	logs []*workflowrule.ExecutionLog
}

func (m *memoryExecutionLogRepository) Append(_ context.Context, _ string, l *workflowrule.ExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, l)
	return nil
}

func (m *memoryExecutionLogRepository) ListByRule(_ context.Context, _ string, ruleID shared.ID, limit int) ([]*workflowrule.ExecutionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*workflowrule.ExecutionLog
	for _, l := range m.logs {
		if l.RuleID == ruleID {
			out = append(out, l)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryExecutionLogRepository) DeleteOlderThan(_ context.Context, _ string, _ int) (int64, error) {
	return 0, nil
}

// recordingHandler captures executed actions and can be told to fail.
type recordingHandler struct {
	mu       sync.Mutex
	executed []workflowrule.Action
	fail     bool
}

func (h *recordingHandler) Execute(_ context.Context, _ Event, a workflowrule.Action) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errors.New("handler failed")
	}
	h.executed = append(h.executed, a)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.executed)
}

func newEngineFixture(t *testing.T) (*WorkflowEngine, *memoryRuleRepository, *memoryExecutionLogRepository, *recordingHandler) {
	t.Helper()

	rules := &memoryRuleRepository{}
	logs := &memoryExecutionLogRepository{}
	handler := &recordingHandler{}

	registry := NewActionRegistry(nil, nil, logger.NewNop())
	registry.Register(workflowrule.ActionAddComment, handler)
	registry.Register(workflowrule.ActionAssign, handler)

	engine := NewWorkflowEngine(rules, logs, registry, WorkflowEngineConfig{
		PerTenantActionRate:  1000,
		PerTenantActionBurst: 1000,
	}, logger.NewNop())

	return engine, rules, logs, handler
}

func makeRule(t *testing.T, order int, stopOnMatch bool, conditions ...workflowrule.Condition) *workflowrule.Rule {
	t.Helper()
	r, err := workflowrule.NewRule("acme", "rule-"+string(rune('a'+order)), workflowrule.EntityRequest, workflowrule.TriggerApproved)
	require.NoError(t, err)
	r.ExecutionOrder = order
	r.StopOnMatch = stopOnMatch
	r.Conditions = conditions
	r.Actions = []workflowrule.Action{{
		Kind:   workflowrule.ActionAddComment,
		Params: map[string]string{"body": "done"},
	}}
	return r
}

func approvedEvent() Event {
	return Event{
		TenantSlug:  "acme",
		EntityType:  workflowrule.EntityRequest,
		EntityID:    shared.NewID(),
		TriggerType: workflowrule.TriggerApproved,
		Snapshot:    map[string]any{"status": "approved", "priority": "high"},
	}
}

func TestEngineRunsMatchingRulesInOrder(t *testing.T) {
	engine, rules, logs, handler := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, rules.Create(ctx, "acme", makeRule(t, 2, false)))
	require.NoError(t, rules.Create(ctx, "acme", makeRule(t, 1, false)))

	require.NoError(t, engine.HandleEvent(ctx, approvedEvent()))

	assert.Equal(t, 2, handler.count())
	require.Len(t, logs.logs, 2)
	assert.True(t, logs.logs[0].Matched)
	assert.Equal(t, 1, logs.logs[0].ActionsExecuted)
}

func TestEngineStopOnMatchShortCircuits(t *testing.T) {
	engine, rules, logs, handler := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, rules.Create(ctx, "acme", makeRule(t, 1, true)))
	require.NoError(t, rules.Create(ctx, "acme", makeRule(t, 2, false)))

	require.NoError(t, engine.HandleEvent(ctx, approvedEvent()))

	// Only the first rule runs; the second is never evaluated or logged.
	assert.Equal(t, 1, handler.count())
	assert.Len(t, logs.logs, 1)
}

func TestEngineStopOnMatchIgnoredWhenNoMatch(t *testing.T) {
	engine, rules, _, handler := newEngineFixture(t)
	ctx := context.Background()

	noMatch := makeRule(t, 1, true, workflowrule.Condition{
		Field:    "priority",
		Operator: workflowrule.OpEquals,
		Value:    "low",
	})
	require.NoError(t, rules.Create(ctx, "acme", noMatch))
	require.NoError(t, rules.Create(ctx, "acme", makeRule(t, 2, false)))

	require.NoError(t, engine.HandleEvent(ctx, approvedEvent()))
	assert.Equal(t, 1, handler.count())
}

func TestEngineNonMatchingRuleLogged(t *testing.T) {
	engine, rules, logs, handler := newEngineFixture(t)
	ctx := context.Background()

	require.NoError(t, rules.Create(ctx, "acme", makeRule(t, 1, false, workflowrule.Condition{
		Field:    "status",
		Operator: workflowrule.OpEquals,
		Value:    "rejected",
	})))

	require.NoError(t, engine.HandleEvent(ctx, approvedEvent()))

	assert.Zero(t, handler.count())
	require.Len(t, logs.logs, 1)
	assert.False(t, logs.logs[0].Matched)
	assert.Zero(t, logs.logs[0].ActionsExecuted)
}

func TestEngineActionFailureDoesNotStopRule(t *testing.T) {
	engine, rules, logs, handler := newEngineFixture(t)
	ctx := context.Background()

	failing := &recordingHandler{fail: true}
	engine.registry.Register(workflowrule.ActionAssign, failing)

	r := makeRule(t, 1, false)
	r.Actions = []workflowrule.Action{
		{Kind: workflowrule.ActionAssign, Params: map[string]string{"assignee": "ops"}},
		{Kind: workflowrule.ActionAddComment, Params: map[string]string{"body": "done"}},
	}
	require.NoError(t, rules.Create(ctx, "acme", r))

	require.NoError(t, engine.HandleEvent(ctx, approvedEvent()))

	// Second action still ran; the failure landed in the log's error detail.
	assert.Equal(t, 1, handler.count())
	require.Len(t, logs.logs, 1)
	assert.Equal(t, 1, logs.logs[0].ActionsExecuted)
	assert.Contains(t, logs.logs[0].ErrorDetails, "0")
}

func TestEngineRuleFailureDoesNotStopOtherRules(t *testing.T) {
	engine, rules, _, handler := newEngineFixture(t)
	ctx := context.Background()

	failing := &recordingHandler{fail: true}
	engine.registry.Register(workflowrule.ActionAssign, failing)

	broken := makeRule(t, 1, false)
	broken.Actions = []workflowrule.Action{{Kind: workflowrule.ActionAssign, Params: map[string]string{"assignee": "ops"}}}
	require.NoError(t, rules.Create(ctx, "acme", broken))
	require.NoError(t, rules.Create(ctx, "acme", makeRule(t, 2, false)))

	require.NoError(t, engine.HandleEvent(ctx, approvedEvent()))
	assert.Equal(t, 1, handler.count())
}

func TestEngineIgnoresOtherTenants(t *testing.T) {
	engine, rules, _, handler := newEngineFixture(t)
	ctx := context.Background()

	other := makeRule(t, 1, false)
	other.TenantSlug = "globex"
	require.NoError(t, rules.Create(ctx, "globex", other))

	require.NoError(t, engine.HandleEvent(ctx, approvedEvent()))
	assert.Zero(t, handler.count())
}
