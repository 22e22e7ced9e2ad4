package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/report"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

type memoryReportRepository struct {
	mu      sync.Mutex
	reports map[shared.ID]*report.ScheduledReport
}

func newMemoryReportRepository() *memoryReportRepository {
	return &memoryReportRepository{reports: make(map[shared.ID]*report.ScheduledReport)}
}

func (m *memoryReportRepository) Create(_ context.Context, _ string, r *report.ScheduledReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memoryReportRepository) Update(_ context.Context, _ string, r *report.ScheduledReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[r.ID]; !ok {
		return shared.ErrNotFound
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memoryReportRepository) GetByID(_ context.Context, _ string, id shared.ID) (*report.ScheduledReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryReportRepository) ListDue(_ context.Context, tenantSlug string, now time.Time) ([]*report.ScheduledReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*report.ScheduledReport
	for _, r := range m.reports {
		if r.IsActive && r.TenantSlug == tenantSlug && !r.NextRunAt.After(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryReportRepository) Delete(_ context.Context, _ string, id shared.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

type stubReportSource struct {
	err error
}

func (s *stubReportSource) BuildReport(_ context.Context, _ string, kind report.Kind, _ time.Time) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]string{"kind": string(kind), "total": "42"}, nil
}

type capturingReportEnqueuer struct {
	mu            sync.Mutex
	generates     []jobs.ReportGeneratePayload
	notifications []jobs.NotificationSendPayload
	failGenerate  bool
}

func (c *capturingReportEnqueuer) EnqueueReportGenerate(_ context.Context, p jobs.ReportGeneratePayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGenerate {
		return errors.New("redis down")
	}
	c.generates = append(c.generates, p)
	return nil
}

func (c *capturingReportEnqueuer) EnqueueNotification(_ context.Context, p jobs.NotificationSendPayload, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, p)
	return nil
}

func newReportFixture(t *testing.T) (*ReportService, *memoryReportRepository, *capturingReportEnqueuer) {
	t.Helper()
	repo := newMemoryReportRepository()
	enq := &capturingReportEnqueuer{}
	svc := NewReportService(repo, newMemoryTenantRepository("acme"), &stubReportSource{}, enq, logger.NewNop())
	return svc, repo, enq
}

func TestCreateScheduledReport(t *testing.T) {
	svc, _, _ := newReportFixture(t)

	r, err := svc.CreateScheduledReport(context.Background(), CreateScheduledReportInput{
		TenantSlug: "acme",
		Name:       "Weekly SLA",
		Kind:       string(report.KindSLACompliance),
		CronExpr:   "0 8 * * 1",
		Recipients: []string{"ops@acme.test"},
	})
	require.NoError(t, err)
	assert.True(t, r.NextRunAt.After(time.Now()))

	t.Run("invalid cron", func(t *testing.T) {
		_, err := svc.CreateScheduledReport(context.Background(), CreateScheduledReportInput{
			TenantSlug: "acme",
			Name:       "Broken",
			Kind:       string(report.KindOpenIssues),
			CronExpr:   "not a cron",
			Recipients: []string{"ops@acme.test"},
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.CreateScheduledReport(context.Background(), CreateScheduledReportInput{
			TenantSlug: "acme",
			Name:       "Broken",
			Kind:       "weather",
			CronExpr:   "0 8 * * 1",
			Recipients: []string{"ops@acme.test"},
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func seedDueReport(t *testing.T, repo *memoryReportRepository) *report.ScheduledReport {
	t.Helper()
	r, err := report.NewScheduledReport("acme", "Daily open issues", report.KindOpenIssues, "0 8 * * *", []string{"ops@acme.test", "lead@acme.test"})
	require.NoError(t, err)
	r.NextRunAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(context.Background(), "acme", r))
	return r
}

func TestEnqueueDueFiresAndAdvances(t *testing.T) {
	svc, repo, enq := newReportFixture(t)
	r := seedDueReport(t, repo)

	require.NoError(t, svc.EnqueueDue(context.Background()))

	require.Len(t, enq.generates, 1)
	assert.Equal(t, r.ID.String(), enq.generates[0].ReportID)

	// Schedule advanced: a second sweep fires nothing.
	require.NoError(t, svc.EnqueueDue(context.Background()))
	assert.Len(t, enq.generates, 1)

	after, err := repo.GetByID(context.Background(), "acme", r.ID)
	require.NoError(t, err)
	assert.True(t, after.NextRunAt.After(time.Now()))
	require.NotNil(t, after.LastRunAt)
}

func TestEnqueueDueKeepsReportDueOnEnqueueFailure(t *testing.T) {
	svc, repo, enq := newReportFixture(t)
	r := seedDueReport(t, repo)
	enq.failGenerate = true

	err := svc.EnqueueDue(context.Background())
	assert.Error(t, err)

	// Schedule did not advance; the next tick retries.
	after, getErr := repo.GetByID(context.Background(), "acme", r.ID)
	require.NoError(t, getErr)
	assert.False(t, after.NextRunAt.After(time.Now()))
}

func TestGenerateReportDeliversToAllRecipients(t *testing.T) {
	svc, repo, enq := newReportFixture(t)
	r := seedDueReport(t, repo)

	require.NoError(t, svc.GenerateReport(context.Background(), "acme", r.ID, time.Now()))

	require.Len(t, enq.notifications, 2)
	assert.Equal(t, "report_open_issues", enq.notifications[0].Template)
	assert.Equal(t, "42", enq.notifications[0].Data["total"])
	assert.Equal(t, "Daily open issues", enq.notifications[0].Data["report_name"])
}

func TestGenerateReportUnknownID(t *testing.T) {
	svc, _, _ := newReportFixture(t)
	err := svc.GenerateReport(context.Background(), "acme", shared.NewID(), time.Now())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
