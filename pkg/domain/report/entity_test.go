package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

func TestNewScheduledReport(t *testing.T) {
	r, err := NewScheduledReport("acme", "Weekly SLA", KindSLACompliance, "0 9 * * 1", []string{"ops@acme.test"})
	require.NoError(t, err)
	assert.True(t, r.IsActive)
	assert.False(t, r.NextRunAt.IsZero())

	_, err = NewScheduledReport("acme", "bad cron", KindOpenIssues, "not a cron", nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewScheduledReport("acme", "bad kind", "weather", "0 9 * * 1", nil)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestMarkRunAdvancesSchedule(t *testing.T) {
	r, err := NewScheduledReport("acme", "Daily", KindOpenIssues, "0 6 * * *", nil)
	require.NoError(t, err)

	ranAt := time.Date(2026, 3, 2, 6, 0, 5, 0, time.UTC)
	require.NoError(t, r.MarkRun(ranAt))
	require.NotNil(t, r.LastRunAt)
	assert.Equal(t, ranAt, *r.LastRunAt)
	assert.Equal(t, time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC), r.NextRunAt)
}

func TestNextAfter(t *testing.T) {
	r, err := NewScheduledReport("acme", "Hourly", KindApprovalLatency, "0 * * * *", nil)
	require.NoError(t, err)

	next, err := r.NextAfter(time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), next)
}
