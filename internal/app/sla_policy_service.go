package app

import (
	"context"
	"fmt"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/sla"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// SLAPolicyService manages SLA policies. The evaluator only reads them; all
// mutation goes through here.
type SLAPolicyService struct {
	policies sla.Repository
	tenants  tenant.Repository
	logger   *logger.Logger
}

// NewSLAPolicyService creates a new SLAPolicyService.
func NewSLAPolicyService(policies sla.Repository, tenants tenant.Repository, log *logger.Logger) *SLAPolicyService {
	return &SLAPolicyService{
		policies: policies,
		tenants:  tenants,
		logger:   log.With("service", "sla_policy"),
	}
}

// TargetInput overrides one priority's deadlines.
type TargetInput struct {
	Priority          string `json:"priority"`
	ResponseMinutes   int    `json:"response_minutes"`
	ResolutionMinutes int    `json:"resolution_minutes"`
}

// CreatePolicyInput is the input for creating an SLA policy.
type CreatePolicyInput struct {
	TenantSlug string        `json:"tenant_slug"`
	Name       string        `json:"name"`
	EntityType string        `json:"entity_type"`
	Targets    []TargetInput `json:"targets,omitempty"`
	// WarningThresholdPct overrides the default of 80 when positive.
	WarningThresholdPct int `json:"warning_threshold_pct,omitempty"`
}

// CreatePolicy creates a policy with default targets plus any overrides.
func (s *SLAPolicyService) CreatePolicy(ctx context.Context, input CreatePolicyInput) (*sla.Policy, error) {
	if _, err := s.tenants.GetBySlug(ctx, input.TenantSlug); err != nil {
		return nil, fmt.Errorf("resolve tenant %q: %w", input.TenantSlug, err)
	}

	p, err := sla.NewPolicy(input.TenantSlug, input.Name, input.EntityType)
	if err != nil {
		return nil, err
	}
	if input.WarningThresholdPct > 0 {
		if input.WarningThresholdPct > 100 {
			return nil, shared.NewDomainError("SLA_INVALID_THRESHOLD",
				"warning threshold must be 1-100", shared.ErrValidation)
		}
		p.WarningThresholdPct = input.WarningThresholdPct
	}
	for _, t := range input.Targets {
		err := p.SetTarget(sla.Target{
			Priority:          sla.Priority(t.Priority),
			ResponseMinutes:   t.ResponseMinutes,
			ResolutionMinutes: t.ResolutionMinutes,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.policies.Create(ctx, input.TenantSlug, p); err != nil {
		return nil, fmt.Errorf("create sla policy: %w", err)
	}
	s.logger.Info("sla policy created", "tenant", input.TenantSlug, "policy_id", p.ID, "entity_type", p.EntityType)
	return p, nil
}

// GetPolicy retrieves one policy.
func (s *SLAPolicyService) GetPolicy(ctx context.Context, tenantSlug string, id shared.ID) (*sla.Policy, error) {
	return s.policies.GetByID(ctx, tenantSlug, id)
}

// ListPolicies returns every policy in the tenant.
func (s *SLAPolicyService) ListPolicies(ctx context.Context, tenantSlug string) ([]*sla.Policy, error) {
	return s.policies.ListByTenant(ctx, tenantSlug)
}

// SetTarget overrides one priority's deadlines on an existing policy.
func (s *SLAPolicyService) SetTarget(ctx context.Context, tenantSlug string, id shared.ID, input TargetInput) (*sla.Policy, error) {
	p, err := s.policies.GetByID(ctx, tenantSlug, id)
	if err != nil {
		return nil, err
	}
	err = p.SetTarget(sla.Target{
		Priority:          sla.Priority(input.Priority),
		ResponseMinutes:   input.ResponseMinutes,
		ResolutionMinutes: input.ResolutionMinutes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.policies.Update(ctx, tenantSlug, p); err != nil {
		return nil, fmt.Errorf("update sla policy: %w", err)
	}
	return p, nil
}

// Deactivate retires a policy without deleting its history.
func (s *SLAPolicyService) Deactivate(ctx context.Context, tenantSlug string, id shared.ID) error {
	p, err := s.policies.GetByID(ctx, tenantSlug, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}
	p.IsActive = false
	if err := s.policies.Update(ctx, tenantSlug, p); err != nil {
		return fmt.Errorf("deactivate sla policy: %w", err)
	}
	s.logger.Info("sla policy deactivated", "tenant", tenantSlug, "policy_id", id)
	return nil
}
