package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// WebhookSender POSTs notifications as JSON to an operator-configured
// endpoint. Used for the ops channel that receives SLA breach summaries.
type WebhookSender struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewWebhookSender creates a webhook sender.
func NewWebhookSender(endpoint string, log *logger.Logger) *WebhookSender {
	return &WebhookSender{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.With("component", "webhook_sender"),
	}
}

type webhookPayload struct {
	Tenant    string    `json:"tenant"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// Send posts one message with the same retryability split as SlackSender.
func (s *WebhookSender) Send(ctx context.Context, tenantSlug, recipient, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{
		Tenant:    tenantSlug,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Debug("webhook delivered", "tenant", tenantSlug, "recipient", recipient)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return shared.NewDomainError("WEBHOOK_REJECTED",
			fmt.Sprintf("webhook rejected message: %d %s", resp.StatusCode, detail), shared.ErrBadRequest)
	}
	return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, detail)
}
