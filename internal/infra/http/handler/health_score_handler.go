package handler

import (
	"net/http"

	"github.com/asklokesh/FireLater-sub015/internal/app"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// HealthScoreHandler serves tenant health scores.
type HealthScoreHandler struct {
	scores *app.HealthScoreService
	logger *logger.Logger
}

// NewHealthScoreHandler creates a new health score handler.
func NewHealthScoreHandler(scores *app.HealthScoreService, log *logger.Logger) *HealthScoreHandler {
	return &HealthScoreHandler{scores: scores, logger: log.With("handler", "health_score")}
}

// Latest returns the last computed score for a tenant.
func (h *HealthScoreHandler) Latest(w http.ResponseWriter, r *http.Request) {
	score, err := h.scores.Latest(r.Context(), tenantParam(r))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, score)
}
