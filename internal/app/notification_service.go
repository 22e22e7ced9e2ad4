package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/internal/metrics"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
	"github.com/asklokesh/FireLater-sub015/pkg/templates"
)

// Sender delivers one rendered notification over a single channel.
// Transient transport failures should be returned as-is so the queue retries
// them; permanently undeliverable messages should wrap ErrBadRequest.
type Sender interface {
	Send(ctx context.Context, tenantSlug, recipient, subject, body string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, tenantSlug, recipient, subject, body string) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, tenantSlug, recipient, subject, body string) error {
	return f(ctx, tenantSlug, recipient, subject, body)
}

// NotificationTemplate is one named subject/body pair.
type NotificationTemplate struct {
	Subject string
	Body    string
}

// defaultTemplates covers the notifications the automation core emits
// itself. Tenant-specific templates can be registered over these.
var defaultTemplates = map[string]NotificationTemplate{
	"sla_breach_summary": {
		Subject: "SLA breaches detected for {{tenant}}",
		Body:    "The latest sweep flagged {{response_breaches}} response and {{resolution_breaches}} resolution breaches.",
	},
	"report_sla_compliance": {
		Subject: "{{report_name}}",
		Body:    "SLA compliance report for {{tenant}}: {{total}} entities evaluated.",
	},
	"report_open_issues": {
		Subject: "{{report_name}}",
		Body:    "Open issues report for {{tenant}}: {{total}} issues open.",
	},
	"report_approval_latency": {
		Subject: "{{report_name}}",
		Body:    "Approval latency report for {{tenant}}: {{total}} requests measured.",
	},
	"request_approved": {
		Subject: "Request {{title}} approved",
		Body:    "Your request {{title}} was approved.",
	},
	"request_rejected": {
		Subject: "Request {{title}} rejected",
		Body:    "Your request {{title}} was rejected.",
	},
}

// NotificationService renders templates and routes delivery by channel. It
// implements the queue's notification processor contract, so every Deliver
// call already sits behind the notifications queue's retry policy.
type NotificationService struct {
	mu        sync.RWMutex
	senders   map[string]Sender
	templates map[string]NotificationTemplate
	logger    *logger.Logger
}

// NewNotificationService creates the service with the built-in templates and
// a log-only sender for every channel until real ones are registered.
func NewNotificationService(log *logger.Logger) *NotificationService {
	s := &NotificationService{
		senders:   make(map[string]Sender),
		templates: make(map[string]NotificationTemplate, len(defaultTemplates)),
		logger:    log.With("service", "notification"),
	}
	for name, tmpl := range defaultTemplates {
		s.templates[name] = tmpl
	}
	return s
}

// RegisterSender binds a channel name to a sender, replacing any existing
// binding.
func (s *NotificationService) RegisterSender(channel string, sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senders[channel] = sender
}

// RegisterTemplate adds or replaces a named template.
func (s *NotificationService) RegisterTemplate(name string, tmpl NotificationTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = tmpl
}

// Template returns a registered template.
func (s *NotificationService) Template(name string) (NotificationTemplate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[name]
	return tmpl, ok
}

// Deliver renders the template and sends it over the channel's sender. An
// unknown template or channel is permanent and must not be retried.
func (s *NotificationService) Deliver(ctx context.Context, tenantSlug, channel, recipient, template string, data map[string]string) error {
	tmpl, ok := s.Template(template)
	if !ok {
		return shared.NewDomainError("NOTIFICATION_UNKNOWN_TEMPLATE",
			"unknown template: "+template, shared.ErrBadRequest)
	}

	s.mu.RLock()
	sender, ok := s.senders[channel]
	s.mu.RUnlock()
	if !ok {
		return shared.NewDomainError("NOTIFICATION_UNKNOWN_CHANNEL",
			"no sender registered for channel: "+channel, shared.ErrBadRequest)
	}

	subject := templates.Render(tmpl.Subject, data)
	body := templates.Render(tmpl.Body, data)

	if err := sender.Send(ctx, tenantSlug, recipient, subject, body); err != nil {
		return fmt.Errorf("send via %s: %w", channel, err)
	}

	metrics.NotificationsEnqueued.WithLabelValues(tenantSlug).Inc()
	s.logger.Info("notification delivered",
		"tenant", tenantSlug, "channel", channel, "template", template)
	return nil
}

// LogSender writes notifications to the log. The default for channels
// without a configured transport, and the whole story in development.
func LogSender(log *logger.Logger) Sender {
	return SenderFunc(func(_ context.Context, tenantSlug, recipient, subject, _ string) error {
		log.Info("notification (log sender)",
			"tenant", tenantSlug, "recipient", recipient, "subject", subject)
		return nil
	})
}

var _ jobs.NotificationProcessor = (*NotificationService)(nil)
