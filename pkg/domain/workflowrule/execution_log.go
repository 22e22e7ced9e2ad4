package workflowrule

import (
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// ExecutionLog is one append-only record of a rule evaluation. Rows are
// written once and never updated.
type ExecutionLog struct {
	ID              shared.ID
	TenantSlug      string
	RuleID          shared.ID
	EntityType      EntityType
	EntityID        shared.ID
	TriggerType     TriggerType
	Matched         bool
	ActionsExecuted int
	Duration        time.Duration
	Error           string
	// ErrorDetails keys are action indexes that failed; values the messages.
	ErrorDetails map[string]string
	CreatedAt    time.Time
}

// NewExecutionLog records one evaluation of a rule against an event.
func NewExecutionLog(rule *Rule, entityID shared.ID, matched bool) *ExecutionLog {
	return &ExecutionLog{
		ID:          shared.NewID(),
		TenantSlug:  rule.TenantSlug,
		RuleID:      rule.ID,
		EntityType:  rule.EntityType,
		EntityID:    entityID,
		TriggerType: rule.TriggerType,
		Matched:     matched,
		CreatedAt:   time.Now(),
	}
}

// RecordActionError notes one failed action without aborting the log.
func (l *ExecutionLog) RecordActionError(actionIndex string, msg string) {
	if l.ErrorDetails == nil {
		l.ErrorDetails = make(map[string]string)
	}
	l.ErrorDetails[actionIndex] = msg
	l.Error = msg
}
