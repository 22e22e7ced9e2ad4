package workflowrule

import (
	"fmt"
	"strings"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Operator is the closed set of condition operators. The stored form is one
// operator per condition rather than an untyped expression string, so a rule
// that parses is a rule that evaluates.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// IsValid reports whether the operator is known.
func (o Operator) IsValid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpNotContains,
		OpGreaterThan, OpLessThan, OpIn, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// requiresValue reports whether the operator needs a comparison value.
func (o Operator) requiresValue() bool {
	return o != OpIsEmpty && o != OpIsNotEmpty
}

// Condition is one predicate term over a snapshot field.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	// Value is the comparison operand; for OpIn it is the comma-separated
	// candidate list. Ignored by the emptiness operators.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Validate checks the condition at rule-save time.
func (c Condition) Validate() error {
	if c.Field == "" {
		return shared.NewDomainError("CONDITION_FIELD_REQUIRED", "field is required", shared.ErrValidation)
	}
	if !c.Operator.IsValid() {
		return shared.NewDomainError("CONDITION_INVALID_OPERATOR",
			"unknown operator: "+string(c.Operator), shared.ErrValidation)
	}
	if c.Operator.requiresValue() && c.Value == "" {
		return shared.NewDomainError("CONDITION_VALUE_REQUIRED",
			string(c.Operator)+" requires a value", shared.ErrValidation)
	}
	return nil
}

// Evaluate applies the condition to an entity snapshot. Missing fields
// evaluate as empty; a malformed numeric comparison evaluates false rather
// than erroring, since save-time validation cannot see snapshot shapes.
func (c Condition) Evaluate(snapshot map[string]any) bool {
	raw, ok := snapshot[c.Field]
	actual := ""
	if ok && raw != nil {
		actual = fmt.Sprintf("%v", raw)
	}

	switch c.Operator {
	case OpEquals:
		return actual == c.Value
	case OpNotEquals:
		return actual != c.Value
	case OpContains:
		return strings.Contains(actual, c.Value)
	case OpNotContains:
		return !strings.Contains(actual, c.Value)
	case OpGreaterThan:
		a, b, ok := numericPair(raw, c.Value)
		return ok && a > b
	case OpLessThan:
		a, b, ok := numericPair(raw, c.Value)
		return ok && a < b
	case OpIn:
		for _, candidate := range strings.Split(c.Value, ",") {
			if strings.TrimSpace(candidate) == actual {
				return true
			}
		}
		return false
	case OpIsEmpty:
		return actual == ""
	case OpIsNotEmpty:
		return actual != ""
	}
	return false
}

func numericPair(raw any, value string) (float64, float64, bool) {
	var a float64
	switch v := raw.(type) {
	case int:
		a = float64(v)
	case int64:
		a = float64(v)
	case float64:
		a = v
	case float32:
		a = float64(v)
	case string:
		if _, err := fmt.Sscanf(v, "%g", &a); err != nil {
			return 0, 0, false
		}
	default:
		return 0, 0, false
	}
	var b float64
	if _, err := fmt.Sscanf(value, "%g", &b); err != nil {
		return 0, 0, false
	}
	return a, b, true
}
