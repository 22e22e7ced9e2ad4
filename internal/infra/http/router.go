// Package http provides the admin API server. It exposes tenant
// provisioning, request/approval operations, rule and report management, and
// the operational surface over the scheduler and the job queues.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asklokesh/FireLater-sub015/internal/infra/http/handler"
	"github.com/asklokesh/FireLater-sub015/internal/infra/http/middleware"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health      *handler.HealthHandler
	Tenants     *handler.TenantHandler
	Requests    *handler.RequestHandler
	Rules       *handler.RuleHandler
	Reports     *handler.ReportHandler
	SLA         *handler.SLAHandler
	HealthScore *handler.HealthScoreHandler
	Queues      *handler.QueueHandler
	Scheduler   *handler.SchedulerHandler
}

// NewRouter builds the admin API router.
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		middleware.Recoverer(log),
		middleware.Metrics(),
		middleware.Logger(log),
	)

	r.Get("/healthz", h.Health.Live)
	r.Get("/readyz", h.Health.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", h.Tenants.Provision)
			r.Get("/", h.Tenants.List)

			r.Route("/{tenant}", func(r chi.Router) {
				r.Get("/", h.Tenants.Get)
				r.Delete("/", h.Tenants.Deactivate)
				r.Get("/health-score", h.HealthScore.Latest)

				r.Route("/requests", func(r chi.Router) {
					r.Post("/", h.Requests.Create)
					r.Get("/{id}", h.Requests.Get)
					r.Get("/{id}/approvals", h.Requests.ListApprovals)
					r.Get("/{id}/history", h.Requests.ListHistory)
					r.Post("/{id}/approvals/{approvalID}/decision", h.Requests.Decide)
				})

				r.Route("/rules", func(r chi.Router) {
					r.Post("/", h.Rules.Create)
					r.Get("/{id}", h.Rules.Get)
					r.Patch("/{id}", h.Rules.Update)
					r.Delete("/{id}", h.Rules.Delete)
					r.Get("/{id}/executions", h.Rules.ListExecutions)
				})

				r.Route("/reports", func(r chi.Router) {
					r.Post("/", h.Reports.Create)
					r.Get("/{id}", h.Reports.Get)
					r.Delete("/{id}", h.Reports.Delete)
				})

				r.Route("/sla-policies", func(r chi.Router) {
					r.Post("/", h.SLA.Create)
					r.Get("/", h.SLA.List)
					r.Get("/{id}", h.SLA.Get)
					r.Put("/{id}/targets", h.SLA.SetTarget)
					r.Delete("/{id}", h.SLA.Deactivate)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/queues", func(r chi.Router) {
				r.Get("/", h.Queues.Stats)
				r.Post("/{queue}/pause", h.Queues.Pause)
				r.Post("/{queue}/resume", h.Queues.Resume)
				r.Get("/{queue}/failed", h.Queues.ListFailed)
				r.Post("/{queue}/failed/{taskID}/retry", h.Queues.RetryFailed)
				r.Delete("/{queue}/failed", h.Queues.PurgeFailed)
			})

			r.Route("/scheduler", func(r chi.Router) {
				r.Get("/tasks", h.Scheduler.Status)
				r.Post("/tasks/{task}/trigger", h.Scheduler.Trigger)
			})
		})
	})

	return r
}
