package handler

import (
	"net/http"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/pkg/apierror"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/request"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// RequestHandler handles service requests and approval decisions.
type RequestHandler struct {
	approvals *app.ApprovalService
	logger    *logger.Logger
}

// NewRequestHandler creates a new request handler.
func NewRequestHandler(approvals *app.ApprovalService, log *logger.Logger) *RequestHandler {
	return &RequestHandler{approvals: approvals, logger: log.With("handler", "request")}
}

type createRequestBody struct {
	RequesterID string `json:"requester_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Approvers   []struct {
		Kind       string `json:"kind"`
		ApproverID string `json:"approver_id"`
	} `json:"approvers,omitempty"`
}

type requestResponse struct {
	ID         shared.ID  `json:"id"`
	TenantSlug string     `json:"tenant_slug"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

func toRequestResponse(req *request.ServiceRequest) requestResponse {
	return requestResponse{
		ID:         req.ID,
		TenantSlug: req.TenantSlug,
		Title:      req.Title,
		Status:     req.Status.String(),
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  req.UpdatedAt,
		ApprovedAt: req.ApprovedAt,
	}
}

// Create creates a request with its approval chain.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	input := app.CreateRequestInput{
		TenantSlug:  tenantParam(r),
		RequesterID: body.RequesterID,
		Title:       body.Title,
		Description: body.Description,
	}
	for _, a := range body.Approvers {
		input.Approvers = append(input.Approvers, app.ApproverInput{
			Kind:       request.ApproverKind(a.Kind),
			ApproverID: a.ApproverID,
		})
	}

	req, err := h.approvals.CreateRequest(r.Context(), input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRequestResponse(req))
}

// Get returns one request.
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	req, err := h.approvals.GetRequest(r.Context(), tenantParam(r), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toRequestResponse(req))
}

type approvalResponse struct {
	ID           shared.ID  `json:"id"`
	StepNumber   int        `json:"step_number"`
	ApproverKind string     `json:"approver_kind"`
	ApproverID   shared.ID  `json:"approver_id"`
	Status       string     `json:"status"`
	Comment      string     `json:"comment,omitempty"`
	DecidedBy    *shared.ID `json:"decided_by,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}

// ListApprovals returns the approval chain.
func (h *RequestHandler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	approvals, err := h.approvals.ListApprovals(r.Context(), tenantParam(r), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]approvalResponse, 0, len(approvals))
	for _, a := range approvals {
		out = append(out, approvalResponse{
			ID:           a.ID,
			StepNumber:   a.StepNumber,
			ApproverKind: string(a.ApproverKind),
			ApproverID:   a.ApproverID,
			Status:       a.Status.String(),
			Comment:      a.Comment,
			DecidedBy:    a.DecidedBy,
			DecidedAt:    a.DecidedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type historyResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    shared.ID `json:"actor_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListHistory returns the request's aggregate status transitions.
func (h *RequestHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	history, err := h.approvals.ListStatusHistory(r.Context(), tenantParam(r), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out := make([]historyResponse, 0, len(history))
	for _, hrow := range history {
		out = append(out, historyResponse{
			FromStatus: hrow.FromStatus.String(),
			ToStatus:   hrow.ToStatus.String(),
			ActorID:    hrow.ActorID,
			CreatedAt:  hrow.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

type decisionBody struct {
	Status     string `json:"status"`
	Comment    string `json:"comment,omitempty"`
	ActorID    string `json:"actor_id"`
	DelegateTo string `json:"delegate_to,omitempty"`
}

type decisionResponse struct {
	ApprovalStatus string `json:"approval_status"`
	RequestStatus  string `json:"request_status"`
	StatusChanged  bool   `json:"status_changed"`
}

// Decide applies one approval decision. A decision that lost the race
// against another actor returns 409 ALREADY_PROCESSED.
func (h *RequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	requestID, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	approvalID, err := idParam(r, "approvalID")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var body decisionBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	actorID, err := shared.IDFromString(body.ActorID)
	if err != nil {
		respondError(w, r, h.logger, apierror.BadRequest("invalid actor_id"))
		return
	}
	d := request.Decision{
		Status:  request.ApprovalStatus(body.Status),
		Comment: body.Comment,
		ActorID: actorID,
	}
	if body.DelegateTo != "" {
		delegate, err := shared.IDFromString(body.DelegateTo)
		if err != nil {
			respondError(w, r, h.logger, apierror.BadRequest("invalid delegate_to"))
			return
		}
		d.DelegateTo = delegate
	}

	outcome, err := h.approvals.Decide(r.Context(), tenantParam(r), requestID, approvalID, d)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, decisionResponse{
		ApprovalStatus: outcome.Approval.Status.String(),
		RequestStatus:  outcome.NewStatus.String(),
		StatusChanged:  outcome.StatusChanged,
	})
}
