package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// QueueHandler exposes queue administration: stats, pause/resume and the
// dead letter set.
type QueueHandler struct {
	admin  *jobs.Admin
	logger *logger.Logger
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(admin *jobs.Admin, log *logger.Logger) *QueueHandler {
	return &QueueHandler{admin: admin, logger: log.With("handler", "queue")}
}

// Stats returns a snapshot of every queue.
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Pause stops workers from pulling new tasks off one queue.
func (h *QueueHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Pause(r.Context(), chi.URLParam(r, "queue")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Resume re-enables a paused queue.
func (h *QueueHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Resume(r.Context(), chi.URLParam(r, "queue")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ListFailed pages through the queue's archived tasks.
func (h *QueueHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	tasks, err := h.admin.ListFailed(r.Context(), chi.URLParam(r, "queue"), page, size)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// RetryFailed moves one archived task back onto its queue.
func (h *QueueHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	err := h.admin.RetryFailed(r.Context(), chi.URLParam(r, "queue"), chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// PurgeFailed drops every archived task on one queue.
func (h *QueueHandler) PurgeFailed(w http.ResponseWriter, r *http.Request) {
	purged, err := h.admin.PurgeFailed(r.Context(), chi.URLParam(r, "queue"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"purged": purged})
}
