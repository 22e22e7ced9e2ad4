// Package external pushes entity changes to a downstream system over HTTP.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// HTTPTarget delivers sync events as JSON POSTs to a configured endpoint.
type HTTPTarget struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewHTTPTarget creates a target for the given endpoint.
func NewHTTPTarget(endpoint string, log *logger.Logger) *HTTPTarget {
	return &HTTPTarget{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log.With("component", "external_target"),
	}
}

type syncEvent struct {
	Tenant     string    `json:"tenant"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Operation  string    `json:"operation"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Push sends one entity change. A 4xx response other than 429 means the
// receiver rejected the event shape, which retrying will not fix.
func (t *HTTPTarget) Push(ctx context.Context, tenantSlug, entityType, entityID, operation string) error {
	payload, err := json.Marshal(syncEvent{
		Tenant:     tenantSlug,
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  operation,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal sync event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post sync event: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return shared.NewDomainError("SYNC_REJECTED",
			fmt.Sprintf("sync target rejected event with status %d", resp.StatusCode), shared.ErrBadRequest)
	default:
		return shared.NewDomainError("SYNC_TARGET_UNAVAILABLE",
			fmt.Sprintf("sync target returned status %d", resp.StatusCode), shared.ErrExternalUnavailable)
	}
}
