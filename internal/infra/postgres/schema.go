package postgres

import (
	"context"
	"fmt"
	"strings"
)

// SchemaProvisioner creates the shared directory table and per-tenant
// schemas. Every statement is idempotent so provisioning can be re-run
// safely after a partial failure.
type SchemaProvisioner struct {
	db *DB
}

// NewSchemaProvisioner creates a new SchemaProvisioner.
func NewSchemaProvisioner(db *DB) *SchemaProvisioner {
	return &SchemaProvisioner{db: db}
}

// EnsureDirectory creates the public tenants table.
func (p *SchemaProvisioner) EnsureDirectory(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS public.tenants (
			id         uuid PRIMARY KEY,
			slug       text NOT NULL UNIQUE,
			name       text NOT NULL,
			is_active  boolean NOT NULL DEFAULT true,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		)`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create tenants table: %w", err)
	}
	return nil
}

// tenantDDL holds the per-tenant tables, templated on the schema name. The
// schema name is always produced by tenant.SchemaName, never raw user input.
var tenantDDL = []string{
	`CREATE TABLE IF NOT EXISTS {schema}.requests (
		id           uuid PRIMARY KEY,
		requester_id uuid NOT NULL,
		title        text NOT NULL,
		description  text,
		status       text NOT NULL,
		created_at   timestamptz NOT NULL,
		updated_at   timestamptz NOT NULL,
		approved_at  timestamptz
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.approvals (
		id            uuid PRIMARY KEY,
		request_id    uuid NOT NULL REFERENCES {schema}.requests(id) ON DELETE CASCADE,
		step_number   integer NOT NULL,
		approver_kind text NOT NULL,
		approver_id   uuid NOT NULL,
		status        text NOT NULL,
		comment       text,
		decided_by    uuid,
		decided_at    timestamptz,
		created_at    timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS approvals_request_idx ON {schema}.approvals (request_id, step_number)`,
	`CREATE TABLE IF NOT EXISTS {schema}.status_history (
		id          uuid PRIMARY KEY,
		request_id  uuid NOT NULL REFERENCES {schema}.requests(id) ON DELETE CASCADE,
		from_status text NOT NULL,
		to_status   text NOT NULL,
		actor_id    uuid NOT NULL,
		created_at  timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS status_history_request_idx ON {schema}.status_history (request_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS {schema}.workflow_rules (
		id              uuid PRIMARY KEY,
		name            text NOT NULL,
		entity_type     text NOT NULL,
		trigger_type    text NOT NULL,
		conditions      jsonb NOT NULL DEFAULT '[]',
		actions         jsonb NOT NULL DEFAULT '[]',
		execution_order integer NOT NULL DEFAULT 0,
		stop_on_match   boolean NOT NULL DEFAULT false,
		is_active       boolean NOT NULL DEFAULT true,
		created_at      timestamptz NOT NULL,
		updated_at      timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS workflow_rules_event_idx
		ON {schema}.workflow_rules (entity_type, trigger_type) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS {schema}.rule_execution_logs (
		id               uuid PRIMARY KEY,
		rule_id          uuid NOT NULL,
		entity_type      text NOT NULL,
		entity_id        uuid NOT NULL,
		trigger_type     text NOT NULL,
		matched          boolean NOT NULL,
		actions_executed integer NOT NULL DEFAULT 0,
		duration_ms      bigint NOT NULL DEFAULT 0,
		error            text,
		error_details    jsonb,
		created_at       timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rule_execution_logs_rule_idx
		ON {schema}.rule_execution_logs (rule_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS {schema}.sla_policies (
		id                    uuid PRIMARY KEY,
		name                  text NOT NULL,
		entity_type           text NOT NULL,
		targets               jsonb NOT NULL,
		warning_threshold_pct integer NOT NULL DEFAULT 80,
		is_active             boolean NOT NULL DEFAULT true,
		created_at            timestamptz NOT NULL,
		updated_at            timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.issues (
		id                      uuid PRIMARY KEY,
		title                   text NOT NULL,
		priority                text NOT NULL,
		category                text,
		tags                    text,
		assignee                text,
		first_responded_at      timestamptz,
		resolved_at             timestamptz,
		sla_response_due_at     timestamptz,
		sla_resolution_due_at   timestamptz,
		sla_warning_at          timestamptz,
		sla_response_breached   boolean NOT NULL DEFAULT false,
		sla_resolution_breached boolean NOT NULL DEFAULT false,
		sla_warning             boolean NOT NULL DEFAULT false,
		created_at              timestamptz NOT NULL,
		updated_at              timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS issues_sla_sweep_idx
		ON {schema}.issues (sla_resolution_due_at) WHERE resolved_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS {schema}.changes (
		id         uuid PRIMARY KEY,
		title      text NOT NULL,
		priority   text NOT NULL,
		risk       text,
		category   text,
		assignee   text,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.comments (
		id          uuid PRIMARY KEY,
		entity_type text NOT NULL,
		entity_id   uuid NOT NULL,
		author      text NOT NULL,
		body        text NOT NULL,
		created_at  timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.scheduled_reports (
		id          uuid PRIMARY KEY,
		name        text NOT NULL,
		kind        text NOT NULL,
		cron_expr   text NOT NULL,
		recipients  text[] NOT NULL DEFAULT '{}',
		is_active   boolean NOT NULL DEFAULT true,
		last_run_at timestamptz,
		next_run_at timestamptz NOT NULL,
		created_at  timestamptz NOT NULL,
		updated_at  timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS {schema}.health_scores (
		id                integer PRIMARY KEY,
		score             integer NOT NULL,
		open_requests     integer NOT NULL,
		pending_approvals integer NOT NULL,
		breached_slas     integer NOT NULL,
		computed_at       timestamptz NOT NULL
	)`,
}

// EnsureSchema creates the tenant schema and its tables if missing.
func (p *SchemaProvisioner) EnsureSchema(ctx context.Context, schemaName string) error {
	if _, err := p.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schemaName); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schemaName, err)
	}
	for _, stmt := range tenantDDL {
		ddl := strings.ReplaceAll(stmt, "{schema}", schemaName)
		if _, err := p.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to provision schema %s: %w", schemaName, err)
		}
	}
	return nil
}
