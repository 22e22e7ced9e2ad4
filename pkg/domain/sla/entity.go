// Package sla provides SLA policies and the breach-sweep contract. Policies
// are read-mostly configuration; the evaluator never mutates them.
package sla

import (
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Priority is the entity priority a target applies to.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// IsValid reports whether the priority is known.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Target holds the response/resolution deadlines for one priority.
type Target struct {
	Priority          Priority
	ResponseMinutes   int
	ResolutionMinutes int
}

// Policy is an SLA policy for one entity type within a tenant.
type Policy struct {
	ID         shared.ID
	TenantSlug string
	Name       string
	EntityType string
	Targets    map[Priority]Target
	// WarningThresholdPct is the elapsed percentage at which a warning is
	// flagged ahead of the breach.
	WarningThresholdPct int
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DefaultTargets are applied when a tenant has no policy of its own.
var DefaultTargets = map[Priority]Target{
	PriorityCritical: {PriorityCritical, 15, 240},
	PriorityHigh:     {PriorityHigh, 60, 480},
	PriorityMedium:   {PriorityMedium, 240, 1440},
	PriorityLow:      {PriorityLow, 480, 4320},
}

// NewPolicy creates an active policy with the default targets.
func NewPolicy(tenantSlug, name, entityType string) (*Policy, error) {
	if tenantSlug == "" || name == "" {
		return nil, shared.NewDomainError("SLA_POLICY_INVALID", "tenant slug and name are required", shared.ErrValidation)
	}
	targets := make(map[Priority]Target, len(DefaultTargets))
	for p, t := range DefaultTargets {
		targets[p] = t
	}
	now := time.Now()
	return &Policy{
		ID:                  shared.NewID(),
		TenantSlug:          tenantSlug,
		Name:                name,
		EntityType:          entityType,
		Targets:             targets,
		WarningThresholdPct: 80,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// SetTarget overrides the target for one priority.
func (p *Policy) SetTarget(t Target) error {
	if !t.Priority.IsValid() {
		return shared.NewDomainError("SLA_INVALID_PRIORITY", "unknown priority: "+string(t.Priority), shared.ErrValidation)
	}
	if t.ResponseMinutes <= 0 || t.ResolutionMinutes <= 0 {
		return shared.NewDomainError("SLA_INVALID_TARGET", "target minutes must be positive", shared.ErrValidation)
	}
	if t.ResponseMinutes > t.ResolutionMinutes {
		return shared.NewDomainError("SLA_INVALID_TARGET", "response target cannot exceed resolution target", shared.ErrValidation)
	}
	p.Targets[t.Priority] = t
	p.UpdatedAt = time.Now()
	return nil
}

// Deadlines computes the response and resolution due times for an entity
// created at the given instant.
func (p *Policy) Deadlines(priority Priority, createdAt time.Time) (response, resolution time.Time) {
	t, ok := p.Targets[priority]
	if !ok {
		t = DefaultTargets[PriorityMedium]
	}
	return createdAt.Add(time.Duration(t.ResponseMinutes) * time.Minute),
		createdAt.Add(time.Duration(t.ResolutionMinutes) * time.Minute)
}
