package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// SchedulerHandler exposes the recurring-task status and manual triggers.
type SchedulerHandler struct {
	orchestrator *app.Orchestrator
	logger       *logger.Logger
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(orch *app.Orchestrator, log *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{orchestrator: orch, logger: log.With("handler", "scheduler")}
}

// Status lists every registered task with its last run and run state.
func (h *SchedulerHandler) Status(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.orchestrator.Status())
}

// Trigger runs one task out of band. A task that is mid-run returns 409
// ALREADY_RUNNING.
func (h *SchedulerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Trigger(r.Context(), chi.URLParam(r, "task")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}
