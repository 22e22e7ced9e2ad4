package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// RuleHandler handles workflow rule management.
type RuleHandler struct {
	rules  *app.RuleService
	logger *logger.Logger
}

// NewRuleHandler creates a new rule handler.
func NewRuleHandler(rules *app.RuleService, log *logger.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, logger: log.With("handler", "rule")}
}

type createRuleBody struct {
	Name           string                   `json:"name"`
	EntityType     string                   `json:"entity_type"`
	TriggerType    string                   `json:"trigger_type"`
	Conditions     []workflowrule.Condition `json:"conditions,omitempty"`
	Actions        []workflowrule.Action    `json:"actions"`
	ExecutionOrder int                      `json:"execution_order,omitempty"`
	StopOnMatch    bool                     `json:"stop_on_match,omitempty"`
}

type updateRuleBody struct {
	Name           *string                  `json:"name,omitempty"`
	Conditions     []workflowrule.Condition `json:"conditions,omitempty"`
	Actions        []workflowrule.Action    `json:"actions,omitempty"`
	ExecutionOrder *int                     `json:"execution_order,omitempty"`
	StopOnMatch    *bool                    `json:"stop_on_match,omitempty"`
	IsActive       *bool                    `json:"is_active,omitempty"`
}

type ruleResponse struct {
	ID             shared.ID                `json:"id"`
	Name           string                   `json:"name"`
	EntityType     string                   `json:"entity_type"`
	TriggerType    string                   `json:"trigger_type"`
	Conditions     []workflowrule.Condition `json:"conditions"`
	Actions        []workflowrule.Action    `json:"actions"`
	ExecutionOrder int                      `json:"execution_order"`
	StopOnMatch    bool                     `json:"stop_on_match"`
	IsActive       bool                     `json:"is_active"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func toRuleResponse(rule *workflowrule.Rule) ruleResponse {
	return ruleResponse{
		ID:             rule.ID,
		Name:           rule.Name,
		EntityType:     string(rule.EntityType),
		TriggerType:    string(rule.TriggerType),
		Conditions:     rule.Conditions,
		Actions:        rule.Actions,
		ExecutionOrder: rule.ExecutionOrder,
		StopOnMatch:    rule.StopOnMatch,
		IsActive:       rule.IsActive,
		CreatedAt:      rule.CreatedAt,
		UpdatedAt:      rule.UpdatedAt,
	}
}

// Create creates a workflow rule.
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRuleBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	rule, err := h.rules.CreateRule(r.Context(), app.CreateRuleInput{
		TenantSlug:     tenantParam(r),
		Name:           body.Name,
		EntityType:     body.EntityType,
		TriggerType:    body.TriggerType,
		Conditions:     body.Conditions,
		Actions:        body.Actions,
		ExecutionOrder: body.ExecutionOrder,
		StopOnMatch:    body.StopOnMatch,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRuleResponse(rule))
}

// Get returns one rule.
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	rule, err := h.rules.GetRule(r.Context(), tenantParam(r), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

// Update applies a partial update.
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var body updateRuleBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	rule, err := h.rules.UpdateRule(r.Context(), tenantParam(r), id, app.UpdateRuleInput{
		Name:           body.Name,
		Conditions:     body.Conditions,
		Actions:        body.Actions,
		ExecutionOrder: body.ExecutionOrder,
		StopOnMatch:    body.StopOnMatch,
		IsActive:       body.IsActive,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

// Delete removes a rule.
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.rules.DeleteRule(r.Context(), tenantParam(r), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type executionResponse struct {
	ID              shared.ID         `json:"id"`
	EntityType      string            `json:"entity_type"`
	EntityID        shared.ID         `json:"entity_id"`
	TriggerType     string            `json:"trigger_type"`
	Matched         bool              `json:"matched"`
	ActionsExecuted int               `json:"actions_executed"`
	DurationMs      int64             `json:"duration_ms"`
	Error           string            `json:"error,omitempty"`
	ErrorDetails    map[string]string `json:"error_details,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ListExecutions returns recent rule executions, newest first.
func (h *RuleHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.rules.ListExecutions(r.Context(), tenantParam(r), id, limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]executionResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, executionResponse{
			ID:              l.ID,
			EntityType:      string(l.EntityType),
			EntityID:        l.EntityID,
			TriggerType:     string(l.TriggerType),
			Matched:         l.Matched,
			ActionsExecuted: l.ActionsExecuted,
			DurationMs:      l.Duration.Milliseconds(),
			Error:           l.Error,
			ErrorDetails:    l.ErrorDetails,
			CreatedAt:       l.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
