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

// SlackSender posts notifications to a Slack incoming webhook. The recipient
// is rendered as a channel mention in the message text; routing is fixed by
// the webhook itself.
type SlackSender struct {
	webhookURL string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewSlackSender creates a Slack webhook sender.
func NewSlackSender(webhookURL string, log *logger.Logger) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.With("component", "slack_sender"),
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

// Send posts one message. 4xx responses other than 429 fail permanently;
// everything else stays retryable.
func (s *SlackSender) Send(ctx context.Context, tenantSlug, recipient, subject, body string) error {
	payload, err := json.Marshal(slackPayload{
		Text: fmt.Sprintf("*%s* (%s → %s)\n%s", subject, tenantSlug, recipient, body),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Debug("slack message sent", "tenant", tenantSlug)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return shared.NewDomainError("SLACK_REJECTED",
			fmt.Sprintf("slack rejected message: %d %s", resp.StatusCode, detail), shared.ErrBadRequest)
	}
	return fmt.Errorf("slack returned %d: %s", resp.StatusCode, detail)
}
