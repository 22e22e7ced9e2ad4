// Package notification provides channel senders for the delivery worker:
// SMTP email, Slack incoming webhooks, and a generic ops webhook. Transient
// transport failures are returned as-is so the queue retries them.
package notification

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender delivers notifications over SMTP.
type EmailSender struct {
	cfg    EmailConfig
	logger *logger.Logger
}

// NewEmailSender creates an SMTP-backed sender.
func NewEmailSender(cfg EmailConfig, log *logger.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, logger: log.With("component", "email_sender")}
}

// Send delivers one message. A recipient that is not an address fails
// permanently; SMTP errors are left retryable.
func (s *EmailSender) Send(ctx context.Context, tenantSlug, recipient, subject, body string) error {
	if !strings.Contains(recipient, "@") {
		return shared.NewDomainError("EMAIL_INVALID_RECIPIENT",
			"recipient is not an email address: "+recipient, shared.ErrBadRequest)
	}

	var msg strings.Builder
	msg.WriteString("From: " + s.cfg.From + "\r\n")
	msg.WriteString("To: " + recipient + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.cfg.From, []string{recipient}, []byte(msg.String()))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
	}

	s.logger.Debug("email sent", "tenant", tenantSlug, "recipient", recipient)
	return nil
}
