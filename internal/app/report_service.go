package app

import (
	"context"
	"fmt"
	"time"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/report"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// ReportSource builds the data section of one report run. Implemented by the
// storage layer per report kind.
type ReportSource interface {
	BuildReport(ctx context.Context, tenantSlug string, kind report.Kind, asOf time.Time) (map[string]string, error)
}

// ReportEnqueuer is the slice of the job client the report service needs.
type ReportEnqueuer interface {
	EnqueueReportGenerate(ctx context.Context, p jobs.ReportGeneratePayload) error
	EnqueueNotification(ctx context.Context, p jobs.NotificationSendPayload, delay time.Duration) error
}

// ReportService owns scheduled report definitions and their execution. The
// schedule advances when a run is enqueued, not when it completes, so a slow
// run never double-fires; the queue's retry budget covers completion.
type ReportService struct {
	reports  report.Repository
	tenants  tenant.Repository
	source   ReportSource
	enqueuer ReportEnqueuer
	logger   *logger.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(reports report.Repository, tenants tenant.Repository, source ReportSource, enqueuer ReportEnqueuer, log *logger.Logger) *ReportService {
	return &ReportService{
		reports:  reports,
		tenants:  tenants,
		source:   source,
		enqueuer: enqueuer,
		logger:   log.With("service", "report"),
	}
}

// CreateScheduledReportInput is the input for creating a scheduled report.
type CreateScheduledReportInput struct {
	TenantSlug string   `validate:"required,slug"`
	Name       string   `validate:"required,min=1,max=200"`
	Kind       string   `validate:"required"`
	CronExpr   string   `validate:"required,cron"`
	Recipients []string `validate:"required,min=1"`
}

// CreateScheduledReport creates a scheduled report for a tenant.
func (s *ReportService) CreateScheduledReport(ctx context.Context, input CreateScheduledReportInput) (*report.ScheduledReport, error) {
	if _, err := s.tenants.GetBySlug(ctx, input.TenantSlug); err != nil {
		return nil, fmt.Errorf("resolve tenant %q: %w", input.TenantSlug, err)
	}

	r, err := report.NewScheduledReport(input.TenantSlug, input.Name, report.Kind(input.Kind), input.CronExpr, input.Recipients)
	if err != nil {
		return nil, err
	}

	if err := s.reports.Create(ctx, input.TenantSlug, r); err != nil {
		return nil, fmt.Errorf("create scheduled report: %w", err)
	}

	s.logger.Info("scheduled report created",
		"tenant", input.TenantSlug, "report_id", r.ID, "kind", r.Kind, "next_run", r.NextRunAt)
	return r, nil
}

// GetScheduledReport fetches one report definition.
func (s *ReportService) GetScheduledReport(ctx context.Context, tenantSlug string, id shared.ID) (*report.ScheduledReport, error) {
	return s.reports.GetByID(ctx, tenantSlug, id)
}

// DeleteScheduledReport removes a report definition.
func (s *ReportService) DeleteScheduledReport(ctx context.Context, tenantSlug string, id shared.ID) error {
	return s.reports.Delete(ctx, tenantSlug, id)
}

// EnqueueDue finds due reports across all active tenants, enqueues one
// generation task per report, and advances each schedule. The scheduler
// calls this on its report-sweep tick.
func (s *ReportService) EnqueueDue(ctx context.Context) error {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	now := time.Now()
	var enqueued, failed int
	for _, t := range tenants {
		due, err := s.reports.ListDue(ctx, t.Slug, now)
		if err != nil {
			failed++
			s.logger.Error("failed to list due reports", "tenant", t.Slug, "error", err)
			continue
		}

		for _, r := range due {
			if err := s.fireReport(ctx, t.Slug, r, now); err != nil {
				failed++
				s.logger.Error("failed to fire report",
					"tenant", t.Slug, "report_id", r.ID, "error", err)
				continue
			}
			enqueued++
		}
	}

	if enqueued > 0 || failed > 0 {
		s.logger.Info("due report sweep completed", "enqueued", enqueued, "failed", failed)
	}
	if failed > 0 {
		return fmt.Errorf("report sweep had %d failures", failed)
	}
	return nil
}

// fireReport enqueues one run and advances the schedule. Advancing happens
// after a successful enqueue: if the enqueue fails the report stays due and
// the next tick retries it.
func (s *ReportService) fireReport(ctx context.Context, tenantSlug string, r *report.ScheduledReport, now time.Time) error {
	err := s.enqueuer.EnqueueReportGenerate(ctx, jobs.ReportGeneratePayload{
		TenantSlug:   tenantSlug,
		ReportID:     r.ID.String(),
		Kind:         string(r.Kind),
		ScheduledFor: r.NextRunAt,
	})
	if err != nil {
		return err
	}

	if err := r.MarkRun(now); err != nil {
		return err
	}
	return s.reports.Update(ctx, tenantSlug, r)
}

// GenerateReport produces one report run and delivers it to the recipients.
// Implements the queue's report processor contract.
func (s *ReportService) GenerateReport(ctx context.Context, tenantSlug string, reportID shared.ID, scheduledFor time.Time) error {
	r, err := s.reports.GetByID(ctx, tenantSlug, reportID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", reportID, err)
	}

	data, err := s.source.BuildReport(ctx, tenantSlug, r.Kind, scheduledFor)
	if err != nil {
		return fmt.Errorf("build %s report: %w", r.Kind, err)
	}
	data["report_name"] = r.Name
	data["tenant"] = tenantSlug
	data["scheduled_for"] = scheduledFor.Format(time.RFC3339)

	for _, recipient := range r.Recipients {
		err := s.enqueuer.EnqueueNotification(ctx, jobs.NotificationSendPayload{
			TenantSlug: tenantSlug,
			Channel:    "email",
			Recipient:  recipient,
			Template:   "report_" + string(r.Kind),
			Data:       data,
		}, 0)
		if err != nil {
			return fmt.Errorf("deliver report to %s: %w", recipient, err)
		}
	}

	s.logger.Info("report generated",
		"tenant", tenantSlug, "report_id", reportID, "kind", r.Kind, "recipients", len(r.Recipients))
	return nil
}
