package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
)

// WorkflowRuleRepository implements workflowrule.Repository. Conditions and
// actions are stored as JSONB alongside the rule row.
type WorkflowRuleRepository struct {
	db *DB
}

// NewWorkflowRuleRepository creates a new WorkflowRuleRepository.
func NewWorkflowRuleRepository(db *DB) *WorkflowRuleRepository {
	return &WorkflowRuleRepository{db: db}
}

const ruleColumns = "id, name, entity_type, trigger_type, conditions, actions, execution_order, stop_on_match, is_active, created_at, updated_at"

// Create persists a new rule.
func (r *WorkflowRuleRepository) Create(ctx context.Context, tenantSlug string, rule *workflowrule.Rule) error {
	conditions, err := toJSONB(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actions, err := toJSONB(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.workflow_rules (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, schemaFor(tenantSlug), ruleColumns)

	_, err = r.db.ExecContext(ctx, query,
		rule.ID.String(), rule.Name, string(rule.EntityType), string(rule.TriggerType),
		conditions, actions, rule.ExecutionOrder, rule.StopOnMatch, rule.IsActive,
		rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError("RULE_EXISTS", "workflow rule already exists", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert workflow rule: %w", err)
	}
	return nil
}

// Update overwrites a rule by id.
func (r *WorkflowRuleRepository) Update(ctx context.Context, tenantSlug string, rule *workflowrule.Rule) error {
	conditions, err := toJSONB(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actions, err := toJSONB(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s.workflow_rules
		SET name = $2, entity_type = $3, trigger_type = $4, conditions = $5, actions = $6,
		    execution_order = $7, stop_on_match = $8, is_active = $9, updated_at = $10
		WHERE id = $1
	`, schemaFor(tenantSlug))

	res, err := r.db.ExecContext(ctx, query,
		rule.ID.String(), rule.Name, string(rule.EntityType), string(rule.TriggerType),
		conditions, actions, rule.ExecutionOrder, rule.StopOnMatch, rule.IsActive, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update workflow rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetByID retrieves one rule.
func (r *WorkflowRuleRepository) GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*workflowrule.Rule, error) {
	query := fmt.Sprintf("SELECT %s FROM %s.workflow_rules WHERE id = $1", ruleColumns, schemaFor(tenantSlug))
	return r.scan(tenantSlug, r.db.QueryRowContext(ctx, query, id.String()))
}

// ListActive returns active rules matching the event, ordered by
// execution_order ascending so the engine runs them deterministically.
func (r *WorkflowRuleRepository) ListActive(ctx context.Context, tenantSlug string, entity workflowrule.EntityType, trigger workflowrule.TriggerType) ([]*workflowrule.Rule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s.workflow_rules
		WHERE is_active = true AND entity_type = $1 AND trigger_type = $2
		ORDER BY execution_order, created_at
	`, ruleColumns, schemaFor(tenantSlug))

	rows, err := r.db.QueryContext(ctx, query, string(entity), string(trigger))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow rules: %w", err)
	}
	defer rows.Close()

	var out []*workflowrule.Rule
	for rows.Next() {
		rule, err := r.scan(tenantSlug, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// Delete removes a rule permanently.
func (r *WorkflowRuleRepository) Delete(ctx context.Context, tenantSlug string, id shared.ID) error {
	query := fmt.Sprintf("DELETE FROM %s.workflow_rules WHERE id = $1", schemaFor(tenantSlug))
	res, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete workflow rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *WorkflowRuleRepository) scan(tenantSlug string, row rowScanner) (*workflowrule.Rule, error) {
	var rule workflowrule.Rule
	var id, entity, trigger string
	var conditions, actions []byte

	err := row.Scan(&id, &rule.Name, &entity, &trigger, &conditions, &actions,
		&rule.ExecutionOrder, &rule.StopOnMatch, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan workflow rule: %w", err)
	}

	rule.ID, _ = shared.IDFromString(id)
	rule.TenantSlug = tenantSlug
	rule.EntityType = workflowrule.EntityType(entity)
	rule.TriggerType = workflowrule.TriggerType(trigger)
	if err := fromJSONB(conditions, &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	if err := fromJSONB(actions, &rule.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}
	return &rule, nil
}
