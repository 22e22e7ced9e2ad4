package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a health-checkable dependency.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Live reports process liveness.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}

// Ready verifies the backing stores are reachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, 2)
	healthy := true
	for name, dep := range map[string]Pinger{"postgres": h.db, "redis": h.redis} {
		if dep == nil {
			continue
		}
		if err := dep.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	resp := healthResponse{Status: "ready", Timestamp: time.Now().UTC(), Checks: checks}
	if !healthy {
		status = http.StatusServiceUnavailable
		resp.Status = "degraded"
	}
	respondJSON(w, status, resp)
}
