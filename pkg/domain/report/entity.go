// Package report provides scheduled report definitions. A report carries a
// standard cron expression; the due-report sweep fires reports whose next
// run time has elapsed and advances it.
package report

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Kind is the closed set of report kinds.
type Kind string

const (
	KindSLACompliance   Kind = "sla_compliance"
	KindOpenIssues      Kind = "open_issues"
	KindApprovalLatency Kind = "approval_latency"
)

// IsValid reports whether the report kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindSLACompliance, KindOpenIssues, KindApprovalLatency:
		return true
	}
	return false
}

// ScheduledReport is a recurring report owned by one tenant.
type ScheduledReport struct {
	ID         shared.ID
	TenantSlug string
	Name       string
	Kind       Kind
	// CronExpr is a standard five-field cron expression.
	CronExpr   string
	Recipients []string
	IsActive   bool
	LastRunAt  *time.Time
	NextRunAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewScheduledReport creates an active report and computes its first run.
func NewScheduledReport(tenantSlug, name string, kind Kind, cronExpr string, recipients []string) (*ScheduledReport, error) {
	if tenantSlug == "" || name == "" {
		return nil, shared.NewDomainError("REPORT_INVALID", "tenant slug and name are required", shared.ErrValidation)
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("REPORT_INVALID_KIND", "unknown report kind: "+string(kind), shared.ErrValidation)
	}
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, shared.NewDomainError("REPORT_INVALID_CRON", "invalid cron expression", shared.ErrValidation)
	}
	now := time.Now()
	return &ScheduledReport{
		ID:         shared.NewID(),
		TenantSlug: tenantSlug,
		Name:       name,
		Kind:       kind,
		CronExpr:   cronExpr,
		Recipients: recipients,
		IsActive:   true,
		NextRunAt:  schedule.Next(now),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// NextAfter computes the run following the given instant. The cron
// expression was validated at save time, so parse failures here indicate a
// corrupted row and surface as errors rather than silently rescheduling.
func (r *ScheduledReport) NextAfter(t time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(r.CronExpr)
	if err != nil {
		return time.Time{}, shared.NewDomainError("REPORT_INVALID_CRON", "stored cron expression unparsable", err)
	}
	return schedule.Next(t), nil
}

// MarkRun records a completed run and advances the schedule.
func (r *ScheduledReport) MarkRun(ranAt time.Time) error {
	next, err := r.NextAfter(ranAt)
	if err != nil {
		return err
	}
	r.LastRunAt = &ranAt
	r.NextRunAt = next
	r.UpdatedAt = time.Now()
	return nil
}
