package handler

import (
	"net/http"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/sla"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// SLAHandler handles SLA policy management.
type SLAHandler struct {
	policies *app.SLAPolicyService
	logger   *logger.Logger
}

// NewSLAHandler creates a new SLA handler.
func NewSLAHandler(policies *app.SLAPolicyService, log *logger.Logger) *SLAHandler {
	return &SLAHandler{policies: policies, logger: log.With("handler", "sla")}
}

type slaTargetResponse struct {
	ResponseMinutes   int `json:"response_minutes"`
	ResolutionMinutes int `json:"resolution_minutes"`
}

type slaPolicyResponse struct {
	ID                  shared.ID                    `json:"id"`
	Name                string                       `json:"name"`
	EntityType          string                       `json:"entity_type"`
	Targets             map[string]slaTargetResponse `json:"targets"`
	WarningThresholdPct int                          `json:"warning_threshold_pct"`
	IsActive            bool                         `json:"is_active"`
}

func toSLAPolicyResponse(p *sla.Policy) slaPolicyResponse {
	targets := make(map[string]slaTargetResponse, len(p.Targets))
	for priority, t := range p.Targets {
		targets[string(priority)] = slaTargetResponse{
			ResponseMinutes:   t.ResponseMinutes,
			ResolutionMinutes: t.ResolutionMinutes,
		}
	}
	return slaPolicyResponse{
		ID:                  p.ID,
		Name:                p.Name,
		EntityType:          p.EntityType,
		Targets:             targets,
		WarningThresholdPct: p.WarningThresholdPct,
		IsActive:            p.IsActive,
	}
}

// Create creates an SLA policy.
func (h *SLAHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input app.CreatePolicyInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	input.TenantSlug = tenantParam(r)

	p, err := h.policies.CreatePolicy(r.Context(), input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toSLAPolicyResponse(p))
}

// List returns the tenant's policies.
func (h *SLAHandler) List(w http.ResponseWriter, r *http.Request) {
	policies, err := h.policies.ListPolicies(r.Context(), tenantParam(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]slaPolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, toSLAPolicyResponse(p))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns one policy.
func (h *SLAHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	p, err := h.policies.GetPolicy(r.Context(), tenantParam(r), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSLAPolicyResponse(p))
}

// SetTarget overrides one priority's deadlines.
func (h *SLAHandler) SetTarget(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var input app.TargetInput
	if err := decodeJSON(r, &input); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	p, err := h.policies.SetTarget(r.Context(), tenantParam(r), id, input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSLAPolicyResponse(p))
}

// Deactivate retires a policy.
func (h *SLAHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.policies.Deactivate(r.Context(), tenantParam(r), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
