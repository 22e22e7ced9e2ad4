package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/report"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// ReportSource builds report payloads from the tenant partition. Each kind
// maps to one aggregate query; values come back as strings because the
// payloads feed notification templates directly.
type ReportSource struct {
	db *DB
}

// NewReportSource creates a new ReportSource.
func NewReportSource(db *DB) *ReportSource {
	return &ReportSource{db: db}
}

// BuildReport computes the data for one report kind as of the given instant.
func (s *ReportSource) BuildReport(ctx context.Context, tenantSlug string, kind report.Kind, asOf time.Time) (map[string]string, error) {
	switch kind {
	case report.KindSLACompliance:
		return s.slaCompliance(ctx, tenantSlug, asOf)
	case report.KindOpenIssues:
		return s.openIssues(ctx, tenantSlug)
	case report.KindApprovalLatency:
		return s.approvalLatency(ctx, tenantSlug, asOf)
	default:
		return nil, shared.NewDomainError("REPORT_INVALID_KIND", "unknown report kind: "+string(kind), shared.ErrValidation)
	}
}

func (s *ReportSource) slaCompliance(ctx context.Context, tenantSlug string, asOf time.Time) (map[string]string, error) {
	query := fmt.Sprintf(`
		SELECT
			count(*),
			count(*) FILTER (WHERE sla_response_breached),
			count(*) FILTER (WHERE sla_resolution_breached),
			count(*) FILTER (WHERE sla_warning AND NOT sla_resolution_breached)
		FROM %s.issues
		WHERE created_at >= $1 - interval '30 days'
	`, schemaFor(tenantSlug))

	var total, responseBreaches, resolutionBreaches, warnings int64
	err := s.db.QueryRowContext(ctx, query, asOf).Scan(&total, &responseBreaches, &resolutionBreaches, &warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sla compliance: %w", err)
	}

	compliance := 100.0
	if total > 0 {
		compliance = float64(total-resolutionBreaches) / float64(total) * 100
	}
	return map[string]string{
		"total_issues":        strconv.FormatInt(total, 10),
		"response_breaches":   strconv.FormatInt(responseBreaches, 10),
		"resolution_breaches": strconv.FormatInt(resolutionBreaches, 10),
		"warnings":            strconv.FormatInt(warnings, 10),
		"compliance_pct":      strconv.FormatFloat(compliance, 'f', 1, 64),
	}, nil
}

func (s *ReportSource) openIssues(ctx context.Context, tenantSlug string) (map[string]string, error) {
	query := fmt.Sprintf(`
		SELECT
			count(*),
			count(*) FILTER (WHERE priority = 'critical'),
			count(*) FILTER (WHERE priority = 'high'),
			count(*) FILTER (WHERE sla_resolution_breached)
		FROM %s.issues
		WHERE resolved_at IS NULL
	`, schemaFor(tenantSlug))

	var open, critical, high, breached int64
	err := s.db.QueryRowContext(ctx, query).Scan(&open, &critical, &high, &breached)
	if err != nil {
		return nil, fmt.Errorf("failed to compute open issues: %w", err)
	}
	return map[string]string{
		"open_issues": strconv.FormatInt(open, 10),
		"critical":    strconv.FormatInt(critical, 10),
		"high":        strconv.FormatInt(high, 10),
		"breached":    strconv.FormatInt(breached, 10),
	}, nil
}

func (s *ReportSource) approvalLatency(ctx context.Context, tenantSlug string, asOf time.Time) (map[string]string, error) {
	query := fmt.Sprintf(`
		SELECT
			count(*),
			coalesce(avg(extract(epoch FROM (decided_at - created_at)) / 3600), 0),
			coalesce(max(extract(epoch FROM (decided_at - created_at)) / 3600), 0)
		FROM %s.approvals
		WHERE decided_at IS NOT NULL AND decided_at >= $1 - interval '30 days'
	`, schemaFor(tenantSlug))

	var decided int64
	var avgHours, maxHours float64
	err := s.db.QueryRowContext(ctx, query, asOf).Scan(&decided, &avgHours, &maxHours)
	if err != nil {
		return nil, fmt.Errorf("failed to compute approval latency: %w", err)
	}

	var pending int64
	pendingQuery := fmt.Sprintf("SELECT count(*) FROM %s.approvals WHERE status = 'pending'", schemaFor(tenantSlug))
	if err := s.db.QueryRowContext(ctx, pendingQuery).Scan(&pending); err != nil {
		return nil, fmt.Errorf("failed to count pending approvals: %w", err)
	}

	return map[string]string{
		"decided":   strconv.FormatInt(decided, 10),
		"pending":   strconv.FormatInt(pending, 10),
		"avg_hours": strconv.FormatFloat(avgHours, 'f', 1, 64),
		"max_hours": strconv.FormatFloat(maxHours, 'f', 1, 64),
	}, nil
}
