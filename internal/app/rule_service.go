package app

import (
	"context"
	"fmt"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
	"github.com/asklokesh/FireLater-sub015/pkg/validator"
)

// RuleService owns the workflow rule definitions. All structural validation
// happens here at save time; the engine trusts stored rules completely.
type RuleService struct {
	rules     workflowrule.Repository
	logs      workflowrule.ExecutionLogRepository
	tenants   tenant.Repository
	validator *validator.Validator
	logger    *logger.Logger
}

// NewRuleService creates a new RuleService.
func NewRuleService(rules workflowrule.Repository, logs workflowrule.ExecutionLogRepository, tenants tenant.Repository, v *validator.Validator, log *logger.Logger) *RuleService {
	return &RuleService{
		rules:     rules,
		logs:      logs,
		tenants:   tenants,
		validator: v,
		logger:    log.With("service", "rule"),
	}
}

// CreateRuleInput is the input for creating a workflow rule.
type CreateRuleInput struct {
	TenantSlug     string `validate:"required,slug"`
	Name           string `validate:"required,min=1,max=200"`
	EntityType     string `validate:"required,entity_type"`
	TriggerType    string `validate:"required,trigger_type"`
	Conditions     []workflowrule.Condition
	Actions        []workflowrule.Action
	ExecutionOrder int `validate:"min=0"`
	StopOnMatch    bool
}

// CreateRule validates and stores a new rule.
func (s *RuleService) CreateRule(ctx context.Context, input CreateRuleInput) (*workflowrule.Rule, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}
	if _, err := s.tenants.GetBySlug(ctx, input.TenantSlug); err != nil {
		return nil, fmt.Errorf("resolve tenant %q: %w", input.TenantSlug, err)
	}

	rule, err := workflowrule.NewRule(input.TenantSlug, input.Name,
		workflowrule.EntityType(input.EntityType), workflowrule.TriggerType(input.TriggerType))
	if err != nil {
		return nil, err
	}
	rule.Conditions = input.Conditions
	rule.Actions = input.Actions
	rule.ExecutionOrder = input.ExecutionOrder
	rule.StopOnMatch = input.StopOnMatch

	// Re-validate with conditions and actions attached.
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.rules.Create(ctx, input.TenantSlug, rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}

	s.logger.Info("rule created",
		"tenant", input.TenantSlug,
		"rule_id", rule.ID,
		"entity", rule.EntityType,
		"trigger", rule.TriggerType,
		"conditions", len(rule.Conditions),
		"actions", len(rule.Actions),
	)
	return rule, nil
}

// UpdateRuleInput carries the mutable fields of a rule.
type UpdateRuleInput struct {
	Name           *string
	Conditions     []workflowrule.Condition
	Actions        []workflowrule.Action
	ExecutionOrder *int
	StopOnMatch    *bool
	IsActive       *bool
}

// UpdateRule applies a partial update and re-validates the whole rule.
func (s *RuleService) UpdateRule(ctx context.Context, tenantSlug string, id shared.ID, input UpdateRuleInput) (*workflowrule.Rule, error) {
	rule, err := s.rules.GetByID(ctx, tenantSlug, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		rule.Name = *input.Name
	}
	if input.Conditions != nil {
		rule.Conditions = input.Conditions
	}
	if input.Actions != nil {
		rule.Actions = input.Actions
	}
	if input.ExecutionOrder != nil {
		rule.ExecutionOrder = *input.ExecutionOrder
	}
	if input.StopOnMatch != nil {
		rule.StopOnMatch = *input.StopOnMatch
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.rules.Update(ctx, tenantSlug, rule); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}

	s.logger.Info("rule updated", "tenant", tenantSlug, "rule_id", id)
	return rule, nil
}

// GetRule fetches one rule.
func (s *RuleService) GetRule(ctx context.Context, tenantSlug string, id shared.ID) (*workflowrule.Rule, error) {
	return s.rules.GetByID(ctx, tenantSlug, id)
}

// DeleteRule removes a rule. Its execution logs stay until retention reaps
// them.
func (s *RuleService) DeleteRule(ctx context.Context, tenantSlug string, id shared.ID) error {
	if err := s.rules.Delete(ctx, tenantSlug, id); err != nil {
		return err
	}
	s.logger.Info("rule deleted", "tenant", tenantSlug, "rule_id", id)
	return nil
}

// ListExecutions returns recent execution log rows for one rule.
func (s *RuleService) ListExecutions(ctx context.Context, tenantSlug string, ruleID shared.ID, limit int) ([]*workflowrule.ExecutionLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.logs.ListByRule(ctx, tenantSlug, ruleID, limit)
}
