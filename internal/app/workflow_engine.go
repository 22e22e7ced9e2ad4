package app

import (
	"context"
	"strconv"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/internal/metrics"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// WorkflowEngineConfig tunes per-tenant action throughput.
type WorkflowEngineConfig struct {
	PerTenantActionRate  float64
	PerTenantActionBurst int
}

// WorkflowEngine evaluates automation rules against domain events. It
// subscribes to every trigger on the event bus; per event it walks the
// tenant's active rules in execution order, runs actions on match, and
// appends one execution log row per evaluated rule.
//
// Action failures are isolated twice over: a failing action does not stop the
// remaining actions of its rule, and a failing rule does not stop lower
// priority rules.
type WorkflowEngine struct {
	rules    workflowrule.Repository
	logs     workflowrule.ExecutionLogRepository
	registry *ActionRegistry
	limiters *tenantLimiters
	logger   *logger.Logger
}

// NewWorkflowEngine creates the rule engine.
func NewWorkflowEngine(rules workflowrule.Repository, logs workflowrule.ExecutionLogRepository, registry *ActionRegistry, cfg WorkflowEngineConfig, log *logger.Logger) *WorkflowEngine {
	return &WorkflowEngine{
		rules:    rules,
		logs:     logs,
		registry: registry,
		limiters: newTenantLimiters(cfg.PerTenantActionRate, cfg.PerTenantActionBurst),
		logger:   log.With("component", "workflow_engine"),
	}
}

// SubscribeTo registers the engine for every trigger type on the bus.
func (e *WorkflowEngine) SubscribeTo(bus *EventBus) {
	bus.SubscribeAll(e)
}

// HandleEvent implements EventHandler.
func (e *WorkflowEngine) HandleEvent(ctx context.Context, event Event) error {
	rules, err := e.rules.ListActive(ctx, event.TenantSlug, event.EntityType, event.TriggerType)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	for _, rule := range rules {
		matched := e.evaluateRule(ctx, rule, event)
		if matched && rule.StopOnMatch {
			e.logger.Debug("rule matched with stop_on_match, skipping remaining rules",
				"tenant", event.TenantSlug, "rule_id", rule.ID)
			break
		}
	}
	return nil
}

// evaluateRule runs one rule against the event and persists the execution
// log. It returns whether the rule matched.
func (e *WorkflowEngine) evaluateRule(ctx context.Context, rule *workflowrule.Rule, event Event) bool {
	start := time.Now()
	matched := rule.Matches(event.Snapshot)

	outcome := "no_match"
	if matched {
		outcome = "match"
	}
	metrics.RulesEvaluatedTotal.WithLabelValues(event.TenantSlug, outcome).Inc()

	execLog := workflowrule.NewExecutionLog(rule, event.EntityID, matched)

	if matched {
		for i, action := range rule.Actions {
			if err := e.runAction(ctx, event, action); err != nil {
				metrics.ActionFailuresTotal.WithLabelValues(event.TenantSlug, string(action.Kind)).Inc()
				execLog.RecordActionError(strconv.Itoa(i), err.Error())
				e.logger.Error("rule action failed",
					"tenant", event.TenantSlug,
					"rule_id", rule.ID,
					"action", action.Kind,
					"action_index", i,
					"error", err,
				)
				continue
			}
			execLog.ActionsExecuted++
		}
	}

	execLog.Duration = time.Since(start)
	if err := e.logs.Append(ctx, event.TenantSlug, execLog); err != nil {
		// The evaluation already happened; losing the log row is not a
		// reason to re-run actions.
		e.logger.Error("failed to append execution log",
			"tenant", event.TenantSlug, "rule_id", rule.ID, "error", err)
	}

	return matched
}

// ExecuteDeferredAction runs one action that was pushed onto the queue
// instead of executing inline. Retries arrive here too, so handlers must stay
// idempotent.
func (e *WorkflowEngine) ExecuteDeferredAction(ctx context.Context, p jobs.WorkflowRuleActionPayload) error {
	entityID, err := shared.IDFromString(p.EntityID)
	if err != nil {
		return shared.NewDomainError("ACTION_BAD_ENTITY_ID",
			"deferred action carries invalid entity id", shared.ErrBadRequest)
	}

	event := Event{
		TenantSlug: p.TenantSlug,
		EntityType: workflowrule.EntityType(p.EntityType),
		EntityID:   entityID,
	}
	action := workflowrule.Action{
		Kind:   workflowrule.ActionKind(p.ActionKind),
		Params: p.Params,
	}
	return e.runAction(ctx, event, action)
}

func (e *WorkflowEngine) runAction(ctx context.Context, event Event, action workflowrule.Action) error {
	handler, ok := e.registry.Handler(action.Kind)
	if !ok {
		// Unreachable for rules that passed save-time validation.
		return shared.NewDomainError("ACTION_NO_HANDLER",
			"no handler for action kind "+string(action.Kind), shared.ErrInternal)
	}
	if err := e.limiters.wait(ctx, event.TenantSlug); err != nil {
		return err
	}
	return handler.Execute(ctx, event, action)
}
