package app

import (
	"context"
	"sync"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// Event is the domain event contract shared by the workflow engine and the
// notification dispatcher. Snapshot is the entity state at emission time;
// consumers never re-read the entity.
type Event struct {
	TenantSlug  string
	EntityType  workflowrule.EntityType
	EntityID    shared.ID
	TriggerType workflowrule.TriggerType
	Snapshot    map[string]any
}

// EventHandler consumes one domain event. Handler errors are logged, never
// propagated to the emitter: emission happens after the emitting transaction
// committed, so there is nothing left to abort.
type EventHandler interface {
	HandleEvent(ctx context.Context, e Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, e Event) error

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// EventBus is the in-process fan-out from emitters to subscribers.
// Subscribers registered for a trigger type run in registration order.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[workflowrule.TriggerType][]EventHandler
	all      []EventHandler
	logger   *logger.Logger
}

// NewEventBus creates an empty event bus.
func NewEventBus(log *logger.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[workflowrule.TriggerType][]EventHandler),
		logger:   log.With("component", "event_bus"),
	}
}

// Subscribe registers a handler for one trigger type.
func (b *EventBus) Subscribe(trigger workflowrule.TriggerType, h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[trigger] = append(b.handlers[trigger], h)
}

// SubscribeAll registers a handler for every trigger type.
func (b *EventBus) SubscribeAll(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish delivers the event to all matching subscribers synchronously.
// A failing subscriber is logged and does not stop delivery to the rest.
func (b *EventBus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subscribers := make([]EventHandler, 0, len(b.all)+len(b.handlers[e.TriggerType]))
	subscribers = append(subscribers, b.handlers[e.TriggerType]...)
	subscribers = append(subscribers, b.all...)
	b.mu.RUnlock()

	for _, h := range subscribers {
		if err := h.HandleEvent(ctx, e); err != nil {
			b.logger.Error("event handler failed",
				"tenant", e.TenantSlug,
				"entity_type", e.EntityType,
				"entity_id", e.EntityID,
				"trigger", e.TriggerType,
				"error", err,
			)
		}
	}
}
