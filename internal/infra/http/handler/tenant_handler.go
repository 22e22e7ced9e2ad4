package handler

import (
	"net/http"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// TenantHandler handles tenant provisioning and directory reads.
type TenantHandler struct {
	tenants *app.TenantService
	logger  *logger.Logger
}

// NewTenantHandler creates a new tenant handler.
func NewTenantHandler(tenants *app.TenantService, log *logger.Logger) *TenantHandler {
	return &TenantHandler{tenants: tenants, logger: log.With("handler", "tenant")}
}

type provisionTenantRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type tenantResponse struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toTenantResponse(t *tenant.Tenant) tenantResponse {
	return tenantResponse{Slug: t.Slug, Name: t.Name, IsActive: t.IsActive, CreatedAt: t.CreatedAt}
}

// Provision creates a tenant and its schema.
func (h *TenantHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req provisionTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	t, err := h.tenants.Provision(r.Context(), req.Slug, req.Name)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTenantResponse(t))
}

// List returns all active tenants.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.ListActive(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns one tenant by slug.
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.Get(r.Context(), tenantParam(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toTenantResponse(t))
}

// Deactivate retires a tenant from sweeps and provisioning.
func (h *TenantHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.tenants.Deactivate(r.Context(), tenantParam(r)); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
