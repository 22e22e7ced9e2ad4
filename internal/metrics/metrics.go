// Package metrics defines the Prometheus collectors for the automation core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduler metrics
var (
	// SchedulerTicksTotal counts task ticks by outcome (run, skipped, error).
	SchedulerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Total scheduler ticks by task and outcome",
		},
		[]string{"task", "outcome"},
	)

	// SchedulerTaskDuration tracks handler run duration per task.
	SchedulerTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_task_duration_seconds",
			Help:    "Scheduled task handler duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"task"},
	)
)

// Queue metrics
var (
	// JobsProcessedTotal counts processed jobs by queue and outcome.
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total jobs processed by queue and outcome",
		},
		[]string{"queue", "outcome"},
	)

	// JobDuration tracks job handler duration per queue.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Job handler duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"queue"},
	)

	// JobsExhaustedTotal counts jobs that failed after the final attempt.
	JobsExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_exhausted_total",
			Help: "Total jobs that exhausted their retry budget",
		},
		[]string{"queue"},
	)
)

// Approval metrics
var (
	// ApprovalsDecidedTotal counts approval decisions by outcome.
	ApprovalsDecidedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approvals_decided_total",
			Help: "Total approval decisions by tenant and outcome",
		},
		[]string{"tenant", "outcome"},
	)

	// ApprovalConflictsTotal counts CAS misses on approval rows.
	ApprovalConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_conflicts_total",
			Help: "Total approval decisions rejected because the row was already decided",
		},
		[]string{"tenant"},
	)
)

// SLA metrics
var (
	// SLABreachesFlagged counts rows flagged by the breach sweep.
	SLABreachesFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_breaches_flagged_total",
			Help: "Total entities flagged as breached by the SLA sweep",
		},
		[]string{"tenant", "kind"},
	)

	// SLASweepErrors counts per-tenant sweep failures.
	SLASweepErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_sweep_errors_total",
			Help: "Total per-tenant SLA sweep failures",
		},
		[]string{"tenant"},
	)
)

// Workflow metrics
var (
	// RulesEvaluatedTotal counts rule evaluations by match outcome.
	RulesEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_rules_evaluated_total",
			Help: "Total workflow rule evaluations by tenant and outcome",
		},
		[]string{"tenant", "outcome"},
	)

	// ActionFailuresTotal counts isolated action failures.
	ActionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_action_failures_total",
			Help: "Total workflow action failures by tenant and action kind",
		},
		[]string{"tenant", "kind"},
	)

	// NotificationsEnqueued counts notifications handed to the dispatcher.
	NotificationsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_enqueued_total",
			Help: "Total notifications enqueued for delivery",
		},
		[]string{"tenant"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts admin API requests by route and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes admin API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
