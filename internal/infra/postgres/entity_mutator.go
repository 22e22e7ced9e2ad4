package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/workflowrule"
)

// EntityMutator applies rule-driven writes to triggering entities. Mutable
// fields are allow-listed per entity type so a misconfigured rule cannot
// touch lifecycle or SLA columns.
type EntityMutator struct {
	db *DB
}

// NewEntityMutator creates a new EntityMutator.
func NewEntityMutator(db *DB) *EntityMutator {
	return &EntityMutator{db: db}
}

var mutableFields = map[workflowrule.EntityType]map[string]bool{
	workflowrule.EntityIssue:   {"priority": true, "category": true, "tags": true},
	workflowrule.EntityChange:  {"priority": true, "risk": true, "category": true},
	workflowrule.EntityRequest: {"title": true, "description": true},
}

func entityTable(entity workflowrule.EntityType) (string, error) {
	switch entity {
	case workflowrule.EntityIssue:
		return "issues", nil
	case workflowrule.EntityChange:
		return "changes", nil
	case workflowrule.EntityRequest:
		return "requests", nil
	}
	return "", shared.NewDomainError("MUTATOR_UNKNOWN_ENTITY",
		"unknown entity type: "+string(entity), shared.ErrBadRequest)
}

// UpdateField sets one allow-listed column on the entity.
func (m *EntityMutator) UpdateField(ctx context.Context, tenantSlug string, entityType workflowrule.EntityType, entityID shared.ID, field, value string) error {
	table, err := entityTable(entityType)
	if err != nil {
		return err
	}
	if !mutableFields[entityType][field] {
		return shared.NewDomainError("MUTATOR_FIELD_FORBIDDEN",
			fmt.Sprintf("field %q is not writable on %s", field, entityType), shared.ErrBadRequest)
	}

	// field passed the allow-list, safe to splice.
	query := fmt.Sprintf("UPDATE %s.%s SET %s = $2, updated_at = $3 WHERE id = $1",
		schemaFor(tenantSlug), table, field)
	res, err := m.db.ExecContext(ctx, query, entityID.String(), value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update %s field %s: %w", entityType, field, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Assign sets the entity's assignee.
func (m *EntityMutator) Assign(ctx context.Context, tenantSlug string, entityType workflowrule.EntityType, entityID shared.ID, assignee string) error {
	table, err := entityTable(entityType)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE %s.%s SET assignee = $2, updated_at = $3 WHERE id = $1",
		schemaFor(tenantSlug), table)
	res, err := m.db.ExecContext(ctx, query, entityID.String(), assignee, time.Now())
	if err != nil {
		return fmt.Errorf("failed to assign %s: %w", entityType, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AddComment appends an automation comment to the entity's thread.
func (m *EntityMutator) AddComment(ctx context.Context, tenantSlug string, entityType workflowrule.EntityType, entityID shared.ID, body string) error {
	if _, err := entityTable(entityType); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.comments (id, entity_type, entity_id, author, body, created_at)
		VALUES ($1, $2, $3, 'automation', $4, $5)
	`, schemaFor(tenantSlug))
	_, err := m.db.ExecContext(ctx, query,
		shared.NewID().String(), string(entityType), entityID.String(), body, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add comment on %s: %w", entityType, err)
	}
	return nil
}
