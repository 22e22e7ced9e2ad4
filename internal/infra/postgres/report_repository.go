package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/report"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// ReportRepository implements report.Repository.
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = "id, name, kind, cron_expr, recipients, is_active, last_run_at, next_run_at, created_at, updated_at"

// Create persists a scheduled report.
func (r *ReportRepository) Create(ctx context.Context, tenantSlug string, rep *report.ScheduledReport) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.scheduled_reports (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, schemaFor(tenantSlug), reportColumns)

	_, err := r.db.ExecContext(ctx, query,
		rep.ID.String(), rep.Name, string(rep.Kind), rep.CronExpr, pq.Array(rep.Recipients),
		rep.IsActive, nullTime(rep.LastRunAt), rep.NextRunAt, rep.CreatedAt, rep.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("REPORT_EXISTS", "scheduled report already exists", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert scheduled report: %w", err)
	}
	return nil
}

// Update overwrites a scheduled report by id.
func (r *ReportRepository) Update(ctx context.Context, tenantSlug string, rep *report.ScheduledReport) error {
	query := fmt.Sprintf(`
		UPDATE %s.scheduled_reports
		SET name = $2, kind = $3, cron_expr = $4, recipients = $5, is_active = $6,
		    last_run_at = $7, next_run_at = $8, updated_at = $9
		WHERE id = $1
	`, schemaFor(tenantSlug))

	res, err := r.db.ExecContext(ctx, query,
		rep.ID.String(), rep.Name, string(rep.Kind), rep.CronExpr, pq.Array(rep.Recipients),
		rep.IsActive, nullTime(rep.LastRunAt), rep.NextRunAt, rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update scheduled report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetByID retrieves one scheduled report.
func (r *ReportRepository) GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*report.ScheduledReport, error) {
	query := fmt.Sprintf("SELECT %s FROM %s.scheduled_reports WHERE id = $1", reportColumns, schemaFor(tenantSlug))
	return r.scan(tenantSlug, r.db.QueryRowContext(ctx, query, id.String()))
}

// ListDue returns active reports whose next run has elapsed, oldest first so
// the most overdue fire before fresher ones.
func (r *ReportRepository) ListDue(ctx context.Context, tenantSlug string, now time.Time) ([]*report.ScheduledReport, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s.scheduled_reports
		WHERE is_active = true AND next_run_at <= $1
		ORDER BY next_run_at
	`, reportColumns, schemaFor(tenantSlug))

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reports: %w", err)
	}
	defer rows.Close()

	var out []*report.ScheduledReport
	for rows.Next() {
		rep, err := r.scan(tenantSlug, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// Delete removes a scheduled report permanently.
func (r *ReportRepository) Delete(ctx context.Context, tenantSlug string, id shared.ID) error {
	query := fmt.Sprintf("DELETE FROM %s.scheduled_reports WHERE id = $1", schemaFor(tenantSlug))
	res, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete scheduled report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) scan(tenantSlug string, row rowScanner) (*report.ScheduledReport, error) {
	var rep report.ScheduledReport
	var id, kind string
	var recipients pq.StringArray
	var lastRunAt sql.NullTime

	err := row.Scan(&id, &rep.Name, &kind, &rep.CronExpr, &recipients,
		&rep.IsActive, &lastRunAt, &rep.NextRunAt, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan scheduled report: %w", err)
	}

	rep.ID, _ = shared.IDFromString(id)
	rep.TenantSlug = tenantSlug
	rep.Kind = report.Kind(kind)
	rep.Recipients = recipients
	rep.LastRunAt = nullTimeValue(lastRunAt)
	return &rep, nil
}
