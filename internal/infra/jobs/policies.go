package jobs

import (
	"time"

	"github.com/hibiken/asynq"
)

// Queue names. The set is closed: every task type maps to exactly one of
// these, and the worker weights cover all of them.
const (
	QueueReports       = "reports"
	QueueHealthScores  = "health_scores"
	QueueSLA           = "sla"
	QueueNotifications = "notifications"
	QueueSync          = "sync"
	QueueCleanup       = "cleanup"
)

// BackoffKind selects how retry delays grow between attempts.
type BackoffKind string

const (
	BackoffNone        BackoffKind = "none"
	BackoffFixed       BackoffKind = "fixed"
	BackoffExponential BackoffKind = "exponential"
)

// Backoff computes the delay before a given retry attempt.
type Backoff struct {
	Kind BackoffKind
	Base time.Duration
}

// Delay returns the wait before attempt n (1-based; attempt 1 is the first
// retry). Exponential doubles per attempt: base, 2*base, 4*base, ...
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch b.Kind {
	case BackoffFixed:
		return b.Base
	case BackoffExponential:
		return b.Base << uint(attempt-1)
	default:
		return 0
	}
}

// Policy is the per-queue execution contract: how many total attempts a task
// gets, how retries are spaced, and how long one attempt may run.
type Policy struct {
	Queue       string
	MaxAttempts int
	Backoff     Backoff
	Timeout     time.Duration
	Weight      int
}

// MaxRetry converts total attempts into asynq's retry count, which excludes
// the first attempt.
func (p Policy) MaxRetry() int {
	if p.MaxAttempts < 1 {
		return 0
	}
	return p.MaxAttempts - 1
}

// policies is the single source of truth for queue behavior.
var policies = map[string]Policy{
	QueueReports: {
		Queue:       QueueReports,
		MaxAttempts: 3,
		Backoff:     Backoff{Kind: BackoffExponential, Base: 5 * time.Second},
		Timeout:     10 * time.Minute,
		Weight:      3,
	},
	QueueHealthScores: {
		Queue:       QueueHealthScores,
		MaxAttempts: 3,
		Backoff:     Backoff{Kind: BackoffExponential, Base: 3 * time.Second},
		Timeout:     5 * time.Minute,
		Weight:      2,
	},
	QueueSLA: {
		Queue:       QueueSLA,
		MaxAttempts: 2,
		Backoff:     Backoff{Kind: BackoffFixed, Base: 10 * time.Second},
		Timeout:     2 * time.Minute,
		Weight:      5,
	},
	QueueNotifications: {
		Queue:       QueueNotifications,
		MaxAttempts: 5,
		Backoff:     Backoff{Kind: BackoffExponential, Base: 2 * time.Second},
		Timeout:     time.Minute,
		Weight:      5,
	},
	QueueSync: {
		Queue:       QueueSync,
		MaxAttempts: 5,
		Backoff:     Backoff{Kind: BackoffExponential, Base: time.Second},
		Timeout:     5 * time.Minute,
		Weight:      3,
	},
	QueueCleanup: {
		Queue:       QueueCleanup,
		MaxAttempts: 2,
		Backoff:     Backoff{Kind: BackoffNone},
		Timeout:     15 * time.Minute,
		Weight:      1,
	},
}

// typeToQueue maps every registered task type to its queue.
var typeToQueue = map[string]string{
	TypeReportGenerate:     QueueReports,
	TypeHealthScoreRecalc:  QueueHealthScores,
	TypeSLASweep:           QueueSLA,
	TypeNotificationSend:   QueueNotifications,
	TypeExternalSync:       QueueSync,
	TypeCleanupRetention:   QueueCleanup,
	TypeWorkflowRuleAction: QueueNotifications,
}

// PolicyForQueue returns the policy for a queue name.
func PolicyForQueue(queue string) (Policy, bool) {
	p, ok := policies[queue]
	return p, ok
}

// PolicyForType returns the policy governing a task type.
func PolicyForType(taskType string) (Policy, bool) {
	q, ok := typeToQueue[taskType]
	if !ok {
		return Policy{}, false
	}
	return policies[q], true
}

// QueueWeights returns the asynq priority map for the worker.
func QueueWeights() map[string]int {
	out := make(map[string]int, len(policies))
	for name, p := range policies {
		out[name] = p.Weight
	}
	return out
}

// RetryDelay is plugged into asynq as the server's RetryDelayFunc. asynq
// passes the number of times the task has already been retried, so the
// first failed attempt arrives as n=0 and schedules retry attempt n+1.
func RetryDelay(n int, _ error, t *asynq.Task) time.Duration {
	p, ok := PolicyForType(t.Type())
	if !ok {
		return asynq.DefaultRetryDelayFunc(n, nil, t)
	}
	return p.Backoff.Delay(n + 1)
}

// taskOptions builds the standard enqueue options for a task type from its
// queue policy.
func taskOptions(taskType string) []asynq.Option {
	p, ok := PolicyForType(taskType)
	if !ok {
		return nil
	}
	return []asynq.Option{
		asynq.Queue(p.Queue),
		asynq.MaxRetry(p.MaxRetry()),
		asynq.Timeout(p.Timeout),
	}
}
