package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
)

// ExecutionLogRepository implements workflowrule.ExecutionLogRepository.
// The table is append-only; the cleanup worker reaps it by age.
type ExecutionLogRepository struct {
	db *DB
}

// NewExecutionLogRepository creates a new ExecutionLogRepository.
func NewExecutionLogRepository(db *DB) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db}
}

// Append records one rule evaluation.
func (r *ExecutionLogRepository) Append(ctx context.Context, tenantSlug string, l *workflowrule.ExecutionLog) error {
	details, err := toJSONB(l.ErrorDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal error details: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.rule_execution_logs
			(id, rule_id, entity_type, entity_id, trigger_type, matched, actions_executed, duration_ms, error, error_details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, schemaFor(tenantSlug))

	_, err = r.db.ExecContext(ctx, query,
		l.ID.String(), l.RuleID.String(), string(l.EntityType), l.EntityID.String(),
		string(l.TriggerType), l.Matched, l.ActionsExecuted, l.Duration.Milliseconds(),
		nullString(l.Error), details, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}
	return nil
}

// ListByRule returns the most recent executions of one rule.
func (r *ExecutionLogRepository) ListByRule(ctx context.Context, tenantSlug string, ruleID shared.ID, limit int) ([]*workflowrule.ExecutionLog, error) {
	query := fmt.Sprintf(`
		SELECT id, rule_id, entity_type, entity_id, trigger_type, matched, actions_executed, duration_ms, error, error_details, created_at
		FROM %s.rule_execution_logs
		WHERE rule_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, schemaFor(tenantSlug))

	rows, err := r.db.QueryContext(ctx, query, ruleID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}
	defer rows.Close()

	var out []*workflowrule.ExecutionLog
	for rows.Next() {
		var l workflowrule.ExecutionLog
		var id, rule, entity, entityID, trigger string
		var errText sql.NullString
		var durationMs int64
		var details []byte

		err := rows.Scan(&id, &rule, &entity, &entityID, &trigger, &l.Matched,
			&l.ActionsExecuted, &durationMs, &errText, &details, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		l.ID, _ = shared.IDFromString(id)
		l.TenantSlug = tenantSlug
		l.RuleID, _ = shared.IDFromString(rule)
		l.EntityType = workflowrule.EntityType(entity)
		l.EntityID, _ = shared.IDFromString(entityID)
		l.TriggerType = workflowrule.TriggerType(trigger)
		l.Duration = time.Duration(durationMs) * time.Millisecond
		l.Error = nullStringValue(errText)
		if len(details) > 0 {
			if err := fromJSONB(details, &l.ErrorDetails); err != nil {
				return nil, fmt.Errorf("failed to unmarshal error details: %w", err)
			}
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes executions past the retention window and returns
// the number of rows reaped.
func (r *ExecutionLogRepository) DeleteOlderThan(ctx context.Context, tenantSlug string, days int) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s.rule_execution_logs
		WHERE created_at < now() - make_interval(days => $1)
	`, schemaFor(tenantSlug))

	res, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, fmt.Errorf("failed to prune execution logs: %w", err)
	}
	return res.RowsAffected()
}
