package workflowrule

import (
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// ActionKind is the closed set of action kinds a rule may fire.
type ActionKind string

const (
	// ActionSendNotification renders a template and hands the result to the
	// notification dispatcher.
	ActionSendNotification ActionKind = "send_notification"
	// ActionUpdateField writes one field on the triggering entity.
	ActionUpdateField ActionKind = "update_field"
	// ActionAssign assigns the triggering entity to a user or group.
	ActionAssign ActionKind = "assign"
	// ActionEnqueueTask enqueues a background job on a named queue.
	ActionEnqueueTask ActionKind = "enqueue_task"
	// ActionAddComment appends a system comment to the triggering entity.
	ActionAddComment ActionKind = "add_comment"
)

// IsValid reports whether the action kind is known.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionSendNotification, ActionUpdateField, ActionAssign,
		ActionEnqueueTask, ActionAddComment:
		return true
	}
	return false
}

// Action is one typed action with per-kind parameters. Params are validated
// at save time against the kind's required keys.
type Action struct {
	Kind   ActionKind        `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// requiredParams maps each kind to the parameter keys it cannot run without.
var requiredParams = map[ActionKind][]string{
	ActionSendNotification: {"template", "recipient"},
	ActionUpdateField:      {"field", "value"},
	ActionAssign:           {"assignee"},
	ActionEnqueueTask:      {"queue"},
	ActionAddComment:       {"body"},
}

// Validate checks the action at rule-save time.
func (a Action) Validate() error {
	if !a.Kind.IsValid() {
		return shared.NewDomainError("ACTION_INVALID_KIND",
			"unknown action kind: "+string(a.Kind), shared.ErrValidation)
	}
	for _, key := range requiredParams[a.Kind] {
		if a.Params[key] == "" {
			return shared.NewDomainError("ACTION_PARAM_REQUIRED",
				string(a.Kind)+" requires param "+key, shared.ErrValidation)
		}
	}
	return nil
}

// Param returns a parameter value, empty when absent.
func (a Action) Param(key string) string {
	return a.Params[key]
}
