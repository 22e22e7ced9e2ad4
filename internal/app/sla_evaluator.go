package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/internal/metrics"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/sla"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/tenant"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// SweepEnqueuer is the slice of the job client the evaluator uses to fan
// sweeps out through the durable queue.
type SweepEnqueuer interface {
	EnqueueSLASweep(ctx context.Context, p jobs.SLASweepPayload) error
	EnqueueNotification(ctx context.Context, p jobs.NotificationSendPayload, delay time.Duration) error
}

// SLAEvaluator flags response and resolution deadline breaches. The per-row
// state machine lives in the repository's conditional batch updates; this
// layer fans out across tenants and reports counts. Sweeps are idempotent:
// re-running one flags nothing new.
type SLAEvaluator struct {
	policies sla.Repository
	tenants  tenant.Repository
	enqueuer SweepEnqueuer
	parallel int
	logger   *logger.Logger
}

// NewSLAEvaluator creates the evaluator. parallel bounds how many tenants a
// direct sweep touches at once.
func NewSLAEvaluator(policies sla.Repository, tenants tenant.Repository, enqueuer SweepEnqueuer, parallel int, log *logger.Logger) *SLAEvaluator {
	if parallel < 1 {
		parallel = 4
	}
	return &SLAEvaluator{
		policies: policies,
		tenants:  tenants,
		enqueuer: enqueuer,
		parallel: parallel,
		logger:   log.With("service", "sla_evaluator"),
	}
}

// EnqueueSweeps puts one sweep task per active tenant on the SLA queue. This
// is the scheduler entry point: the queue gives each tenant's sweep its own
// retry budget instead of one tenant's failure poisoning the whole tick.
func (s *SLAEvaluator) EnqueueSweeps(ctx context.Context) error {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	asOf := time.Now()
	var failed int
	for _, t := range tenants {
		err := s.enqueuer.EnqueueSLASweep(ctx, jobs.SLASweepPayload{
			TenantSlug: t.Slug,
			AsOf:       asOf,
		})
		if err != nil {
			failed++
			s.logger.Error("failed to enqueue SLA sweep", "tenant", t.Slug, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to enqueue SLA sweeps for %d of %d tenants", failed, len(tenants))
	}
	s.logger.Info("SLA sweeps enqueued", "tenants", len(tenants))
	return nil
}

// SweepTenant runs one tenant's sweep: breaches first, then warnings, so an
// entity crossing both thresholds between sweeps is flagged breached, not
// warned. Implements the queue's SLA processor contract.
func (s *SLAEvaluator) SweepTenant(ctx context.Context, tenantSlug string, asOf time.Time) error {
	result, err := s.policies.MarkBreached(ctx, tenantSlug, asOf)
	if err != nil {
		metrics.SLASweepErrors.WithLabelValues(tenantSlug).Inc()
		return fmt.Errorf("mark breached for %s: %w", tenantSlug, err)
	}

	warnings, err := s.policies.MarkWarnings(ctx, tenantSlug, asOf)
	if err != nil {
		metrics.SLASweepErrors.WithLabelValues(tenantSlug).Inc()
		return fmt.Errorf("mark warnings for %s: %w", tenantSlug, err)
	}
	result.Warnings = warnings

	metrics.SLABreachesFlagged.WithLabelValues(tenantSlug, "response").Add(float64(result.ResponseBreaches))
	metrics.SLABreachesFlagged.WithLabelValues(tenantSlug, "resolution").Add(float64(result.ResolutionBreaches))

	s.logger.Info("SLA sweep completed",
		"tenant", tenantSlug,
		"as_of", asOf,
		"response_breaches", result.ResponseBreaches,
		"resolution_breaches", result.ResolutionBreaches,
		"warnings", result.Warnings,
	)

	s.notifyBreaches(ctx, tenantSlug, result)
	return nil
}

// SweepAll sweeps every active tenant directly with bounded parallelism. The
// admin surface uses this for an on-demand run that bypasses the queue. One
// tenant's failure does not abort the others; the first error is reported
// after all sweeps finish.
func (s *SLAEvaluator) SweepAll(ctx context.Context) error {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}

	asOf := time.Now()
	g := &errgroup.Group{}
	g.SetLimit(s.parallel)

	errCh := make(chan error, len(tenants))
	for _, t := range tenants {
		slug := t.Slug
		g.Go(func() error {
			if err := s.SweepTenant(ctx, slug, asOf); err != nil {
				errCh <- err
			}
			return nil
		})
	}
	_ = g.Wait()
	close(errCh)

	var errs int
	var first error
	for err := range errCh {
		errs++
		if first == nil {
			first = err
		}
	}
	if errs > 0 {
		return fmt.Errorf("sweep failed for %d of %d tenants: %w", errs, len(tenants), first)
	}
	return nil
}

// notifyBreaches pushes a summary notification when a sweep flagged new
// breaches. Delivery failures are queue business, not sweep failures.
func (s *SLAEvaluator) notifyBreaches(ctx context.Context, tenantSlug string, result sla.SweepResult) {
	total := result.ResponseBreaches + result.ResolutionBreaches
	if total == 0 || s.enqueuer == nil {
		return
	}

	err := s.enqueuer.EnqueueNotification(ctx, jobs.NotificationSendPayload{
		TenantSlug: tenantSlug,
		Channel:    "ops",
		Recipient:  "sla-alerts",
		Template:   "sla_breach_summary",
		Data: map[string]string{
			"tenant":              tenantSlug,
			"response_breaches":   strconv.FormatInt(result.ResponseBreaches, 10),
			"resolution_breaches": strconv.FormatInt(result.ResolutionBreaches, 10),
		},
	}, 0)
	if err != nil {
		s.logger.Error("failed to enqueue breach notification", "tenant", tenantSlug, "error", err)
	}
}
