// Package workflowrule provides tenant-scoped automation rules: an ordered
// list of typed conditions evaluated against an entity snapshot and an
// ordered list of typed actions fired on match. Rules are validated when
// saved, not when evaluated, so a malformed rule can never reach the engine.
package workflowrule

import (
	"strconv"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// EntityType identifies the entity family a rule listens on.
type EntityType string

const (
	EntityIssue   EntityType = "issue"
	EntityChange  EntityType = "change"
	EntityRequest EntityType = "request"
)

// IsValid reports whether the entity type is known.
func (e EntityType) IsValid() bool {
	switch e {
	case EntityIssue, EntityChange, EntityRequest:
		return true
	}
	return false
}

// TriggerType identifies the lifecycle event a rule listens on.
type TriggerType string

const (
	TriggerCreated     TriggerType = "created"
	TriggerUpdated     TriggerType = "updated"
	TriggerApproved    TriggerType = "approved"
	TriggerRejected    TriggerType = "rejected"
	TriggerSLAWarning  TriggerType = "sla_warning"
	TriggerSLABreached TriggerType = "sla_breached"
)

// IsValid reports whether the trigger type is known.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerCreated, TriggerUpdated, TriggerApproved, TriggerRejected,
		TriggerSLAWarning, TriggerSLABreached:
		return true
	}
	return false
}

// Rule is one automation rule. Conditions carry AND semantics; actions run
// in order on match. StopOnMatch short-circuits lower-priority rules for the
// same event.
type Rule struct {
	ID             shared.ID
	TenantSlug     string
	Name           string
	EntityType     EntityType
	TriggerType    TriggerType
	Conditions     []Condition
	Actions        []Action
	ExecutionOrder int
	StopOnMatch    bool
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRule creates an active rule and validates it eagerly.
func NewRule(tenantSlug, name string, entity EntityType, trigger TriggerType) (*Rule, error) {
	now := time.Now()
	r := &Rule{
		ID:          shared.NewID(),
		TenantSlug:  tenantSlug,
		Name:        name,
		EntityType:  entity,
		TriggerType: trigger,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the rule and every condition and action it carries.
// Called on every save path.
func (r *Rule) Validate() error {
	if r.TenantSlug == "" {
		return shared.NewDomainError("RULE_TENANT_REQUIRED", "tenant slug is required", shared.ErrValidation)
	}
	if r.Name == "" {
		return shared.NewDomainError("RULE_NAME_REQUIRED", "name is required", shared.ErrValidation)
	}
	if !r.EntityType.IsValid() {
		return shared.NewDomainError("RULE_INVALID_ENTITY", "unknown entity type: "+string(r.EntityType), shared.ErrValidation)
	}
	if !r.TriggerType.IsValid() {
		return shared.NewDomainError("RULE_INVALID_TRIGGER", "unknown trigger type: "+string(r.TriggerType), shared.ErrValidation)
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return shared.NewDomainError("RULE_INVALID_CONDITION",
				"condition "+strconv.Itoa(i)+" invalid", err)
		}
	}
	for i, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return shared.NewDomainError("RULE_INVALID_ACTION",
				"action "+strconv.Itoa(i)+" invalid", err)
		}
	}
	return nil
}

// Matches evaluates all conditions against the snapshot with AND semantics.
// An empty condition list matches everything.
func (r *Rule) Matches(snapshot map[string]any) bool {
	for _, c := range r.Conditions {
		if !c.Evaluate(snapshot) {
			return false
		}
	}
	return true
}
