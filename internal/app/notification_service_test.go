package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

type capturedSend struct {
	tenant    string
	recipient string
	subject   string
	body      string
}

func TestDeliverRendersAndRoutes(t *testing.T) {
	svc := NewNotificationService(logger.NewNop())

	var sent []capturedSend
	svc.RegisterSender("email", SenderFunc(func(_ context.Context, tenant, recipient, subject, body string) error {
		sent = append(sent, capturedSend{tenant, recipient, subject, body})
		return nil
	}))

	err := svc.Deliver(context.Background(), "acme", "email", "ops@acme.test", "sla_breach_summary", map[string]string{
		"tenant":              "acme",
		"response_breaches":   "3",
		"resolution_breaches": "1",
	})
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.Equal(t, "SLA breaches detected for acme", sent[0].subject)
	assert.Contains(t, sent[0].body, "3 response and 1 resolution breaches")
}

func TestDeliverUnknownTemplateIsPermanent(t *testing.T) {
	svc := NewNotificationService(logger.NewNop())
	svc.RegisterSender("email", LogSender(logger.NewNop()))

	err := svc.Deliver(context.Background(), "acme", "email", "ops@acme.test", "no_such_template", nil)
	require.Error(t, err)
	assert.False(t, shared.IsRetryable(err))
}

func TestDeliverUnknownChannelIsPermanent(t *testing.T) {
	svc := NewNotificationService(logger.NewNop())

	err := svc.Deliver(context.Background(), "acme", "carrier_pigeon", "ops@acme.test", "sla_breach_summary", nil)
	require.Error(t, err)
	assert.False(t, shared.IsRetryable(err))
}

func TestDeliverSenderFailureIsRetryable(t *testing.T) {
	svc := NewNotificationService(logger.NewNop())
	svc.RegisterSender("email", SenderFunc(func(context.Context, string, string, string, string) error {
		return errors.New("smtp timeout")
	}))

	err := svc.Deliver(context.Background(), "acme", "email", "ops@acme.test", "sla_breach_summary", nil)
	require.Error(t, err)
	assert.True(t, shared.IsRetryable(err))
}

func TestRegisterTemplateOverridesDefault(t *testing.T) {
	svc := NewNotificationService(logger.NewNop())
	svc.RegisterTemplate("sla_breach_summary", NotificationTemplate{
		Subject: "Custom: {{tenant}}",
		Body:    "n/a",
	})

	var subject string
	svc.RegisterSender("email", SenderFunc(func(_ context.Context, _, _, s, _ string) error {
		subject = s
		return nil
	}))

	require.NoError(t, svc.Deliver(context.Background(), "acme", "email", "x", "sla_breach_summary", map[string]string{"tenant": "acme"}))
	assert.Equal(t, "Custom: acme", subject)
}

func TestDeliverMissingDataRendersEmpty(t *testing.T) {
	svc := NewNotificationService(logger.NewNop())

	var subject string
	svc.RegisterSender("email", SenderFunc(func(_ context.Context, _, _, s, _ string) error {
		subject = s
		return nil
	}))

	require.NoError(t, svc.Deliver(context.Background(), "acme", "email", "x", "request_approved", nil))
	assert.Equal(t, "Request  approved", subject)
}
