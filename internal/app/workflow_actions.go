package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/asklokesh/FireLater-sub015/internal/infra/jobs"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// ActionHandler executes one rule action against the triggering event.
type ActionHandler interface {
	Execute(ctx context.Context, e Event, a workflowrule.Action) error
}

// ActionHandlerFunc adapts a function to ActionHandler.
type ActionHandlerFunc func(ctx context.Context, e Event, a workflowrule.Action) error

// Execute implements ActionHandler.
func (f ActionHandlerFunc) Execute(ctx context.Context, e Event, a workflowrule.Action) error {
	return f(ctx, e, a)
}

// TaskEnqueuer is the slice of the job client the action handlers need.
type TaskEnqueuer interface {
	EnqueueNotification(ctx context.Context, p jobs.NotificationSendPayload, delay time.Duration) error
	EnqueueWorkflowRuleAction(ctx context.Context, p jobs.WorkflowRuleActionPayload) error
	EnqueueExternalSync(ctx context.Context, p jobs.ExternalSyncPayload) error
}

// EntityMutator writes rule-driven changes back onto triggering entities.
type EntityMutator interface {
	UpdateField(ctx context.Context, tenantSlug string, entityType workflowrule.EntityType, entityID shared.ID, field, value string) error
	Assign(ctx context.Context, tenantSlug string, entityType workflowrule.EntityType, entityID shared.ID, assignee string) error
	AddComment(ctx context.Context, tenantSlug string, entityType workflowrule.EntityType, entityID shared.ID, body string) error
}

// ActionRegistry maps action kinds to handlers. The built-in set covers every
// kind the rule validator accepts; Register allows tests and extensions to
// override.
type ActionRegistry struct {
	mu       sync.RWMutex
	handlers map[workflowrule.ActionKind]ActionHandler
}

// NewActionRegistry creates a registry with the built-in handlers bound to
// the given collaborators.
func NewActionRegistry(enqueuer TaskEnqueuer, mutator EntityMutator, log *logger.Logger) *ActionRegistry {
	r := &ActionRegistry{handlers: make(map[workflowrule.ActionKind]ActionHandler)}

	r.Register(workflowrule.ActionSendNotification, sendNotificationHandler(enqueuer))
	r.Register(workflowrule.ActionEnqueueTask, enqueueTaskHandler(enqueuer, log))
	r.Register(workflowrule.ActionUpdateField, updateFieldHandler(mutator))
	r.Register(workflowrule.ActionAssign, assignHandler(mutator))
	r.Register(workflowrule.ActionAddComment, addCommentHandler(mutator))

	return r
}

// Register binds a handler to an action kind, replacing any existing one.
func (r *ActionRegistry) Register(kind workflowrule.ActionKind, h ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Handler returns the handler for a kind.
func (r *ActionRegistry) Handler(kind workflowrule.ActionKind) (ActionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

func sendNotificationHandler(enqueuer TaskEnqueuer) ActionHandler {
	return ActionHandlerFunc(func(ctx context.Context, e Event, a workflowrule.Action) error {
		data := make(map[string]string, len(e.Snapshot))
		for k, v := range e.Snapshot {
			data[k] = fmt.Sprint(v)
		}
		return enqueuer.EnqueueNotification(ctx, jobs.NotificationSendPayload{
			TenantSlug: e.TenantSlug,
			Channel:    a.Param("channel"),
			Recipient:  a.Param("recipient"),
			Template:   a.Param("template"),
			Data:       data,
		}, 0)
	})
}

func enqueueTaskHandler(enqueuer TaskEnqueuer, log *logger.Logger) ActionHandler {
	return ActionHandlerFunc(func(ctx context.Context, e Event, a workflowrule.Action) error {
		queue := a.Param("queue")
		switch queue {
		case jobs.QueueSync:
			return enqueuer.EnqueueExternalSync(ctx, jobs.ExternalSyncPayload{
				TenantSlug: e.TenantSlug,
				EntityType: string(e.EntityType),
				EntityID:   e.EntityID.String(),
				Operation:  a.Param("operation"),
			})
		default:
			log.Warn("enqueue_task action names unsupported queue", "queue", queue)
			return shared.NewDomainError("ACTION_UNSUPPORTED_QUEUE",
				"enqueue_task cannot target queue "+queue, shared.ErrBadRequest)
		}
	})
}

func updateFieldHandler(mutator EntityMutator) ActionHandler {
	return ActionHandlerFunc(func(ctx context.Context, e Event, a workflowrule.Action) error {
		return mutator.UpdateField(ctx, e.TenantSlug, e.EntityType, e.EntityID, a.Param("field"), a.Param("value"))
	})
}

func assignHandler(mutator EntityMutator) ActionHandler {
	return ActionHandlerFunc(func(ctx context.Context, e Event, a workflowrule.Action) error {
		return mutator.Assign(ctx, e.TenantSlug, e.EntityType, e.EntityID, a.Param("assignee"))
	})
}

func addCommentHandler(mutator EntityMutator) ActionHandler {
	return ActionHandlerFunc(func(ctx context.Context, e Event, a workflowrule.Action) error {
		return mutator.AddComment(ctx, e.TenantSlug, e.EntityType, e.EntityID, a.Param("body"))
	})
}

// tenantLimiters hands out one rate.Limiter per tenant so one noisy tenant's
// rules cannot starve action capacity for the rest.
type tenantLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	ratePerS rate.Limit
	burst    int
}

func newTenantLimiters(perSecond float64, burst int) *tenantLimiters {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &tenantLimiters{
		limiters: make(map[string]*rate.Limiter),
		ratePerS: rate.Limit(perSecond),
		burst:    burst,
	}
}

func (t *tenantLimiters) get(tenantSlug string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[tenantSlug]
	if !ok {
		l = rate.NewLimiter(t.ratePerS, t.burst)
		t.limiters[tenantSlug] = l
	}
	return l
}

// wait blocks until the tenant may run one more action or the context ends.
func (t *tenantLimiters) wait(ctx context.Context, tenantSlug string) error {
	return t.get(tenantSlug).Wait(ctx)
}
