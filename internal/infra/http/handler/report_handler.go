package handler

import (
	"net/http"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/report"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// ReportHandler handles scheduled report management.
type ReportHandler struct {
	reports *app.ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reports *app.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: log.With("handler", "report")}
}

type createReportBody struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	CronExpr   string   `json:"cron_expr"`
	Recipients []string `json:"recipients"`
}

type reportResponse struct {
	ID         shared.ID  `json:"id"`
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	CronExpr   string     `json:"cron_expr"`
	Recipients []string   `json:"recipients"`
	IsActive   bool       `json:"is_active"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	NextRunAt  time.Time  `json:"next_run_at"`
}

func toReportResponse(rep *report.ScheduledReport) reportResponse {
	return reportResponse{
		ID:         rep.ID,
		Name:       rep.Name,
		Kind:       string(rep.Kind),
		CronExpr:   rep.CronExpr,
		Recipients: rep.Recipients,
		IsActive:   rep.IsActive,
		LastRunAt:  rep.LastRunAt,
		NextRunAt:  rep.NextRunAt,
	}
}

// Create creates a scheduled report.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createReportBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	rep, err := h.reports.CreateScheduledReport(r.Context(), app.CreateScheduledReportInput{
		TenantSlug: tenantParam(r),
		Name:       body.Name,
		Kind:       body.Kind,
		CronExpr:   body.CronExpr,
		Recipients: body.Recipients,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, toReportResponse(rep))
}

// Get returns one scheduled report.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	rep, err := h.reports.GetScheduledReport(r.Context(), tenantParam(r), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toReportResponse(rep))
}

// Delete removes a scheduled report.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.reports.DeleteScheduledReport(r.Context(), tenantParam(r), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
