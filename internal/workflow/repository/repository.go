package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRuleNotFound = errors.New("workflow rule not found")

const (
	StatusPending  = "Pending"
	StatusExecuted = "Executed"
	StatusFailed   = "Failed"
	StatusSkipped  = "Skipped"
)

// Rule is a stored workflow rule. Condition and ActionConfig hold the raw
// JSON text as configured.
type Rule struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Name         string
	EntityType   string
	TriggerEvent string
	Condition    string
	ActionType   string
	ActionConfig string
	DelayMinutes int
	IsActive     bool
	IsDeleted    bool
	CreatedAt    time.Time
}

type Execution struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	RuleID       uuid.UUID
	EntityType   string
	EntityID     uuid.UUID
	TriggerEvent string
	Status       string
	ScheduledFor time.Time
	ExecutedAt   *time.Time
	Result       json.RawMessage
	ClaimedAt    *time.Time
	CreatedAt    time.Time
}

// ClaimFilter selects due executions for one sweep.
type ClaimFilter struct {
	TenantID    *uuid.UUID
	Now         time.Time
	LeaseCutoff time.Time
	Limit       int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ruleColumns = `id, tenant_id, name, entity_type, trigger_event, condition, action_type, action_config,
	delay_minutes, is_active, is_deleted, created_at`

func scanRule(row pgx.Row) (Rule, error) {
	var r Rule
	var condition, config *string
	err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.EntityType, &r.TriggerEvent, &condition, &r.ActionType, &config,
		&r.DelayMinutes, &r.IsActive, &r.IsDeleted, &r.CreatedAt)
	if err != nil {
		return Rule{}, err
	}
	if condition != nil {
		r.Condition = *condition
	}
	if config != nil {
		r.ActionConfig = *config
	}
	return r, nil
}

// ListActiveRules returns the live rules for an entity type and trigger
// event in creation order.
func (r *Repository) ListActiveRules(ctx context.Context, tenantID uuid.UUID, entityType, event string) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM workflow_rules
		WHERE tenant_id = $1 AND entity_type = $2 AND trigger_event = $3
			AND is_active = true AND is_deleted = false
		ORDER BY created_at ASC
	`, tenantID, entityType, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetRule loads a rule regardless of its active and deleted flags.
func (r *Repository) GetRule(ctx context.Context, tenantID, id uuid.UUID) (Rule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, `
		SELECT `+ruleColumns+`
		FROM workflow_rules
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, ErrRuleNotFound
	}
	return rule, err
}

func (r *Repository) CreateRule(ctx context.Context, rule *Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO workflow_rules (id, tenant_id, name, entity_type, trigger_event, condition, action_type, action_config, delay_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10)
		RETURNING created_at
	`, rule.ID, rule.TenantID, rule.Name, rule.EntityType, rule.TriggerEvent, rule.Condition,
		rule.ActionType, rule.ActionConfig, rule.DelayMinutes, rule.IsActive).Scan(&rule.CreatedAt)
}

const executionColumns = `id, tenant_id, rule_id, entity_type, entity_id, trigger_event, status,
	scheduled_for, executed_at, result, claimed_at, created_at`

func scanExecution(row pgx.Row) (Execution, error) {
	var e Execution
	var result []byte
	err := row.Scan(&e.ID, &e.TenantID, &e.RuleID, &e.EntityType, &e.EntityID, &e.TriggerEvent, &e.Status,
		&e.ScheduledFor, &e.ExecutedAt, &result, &e.ClaimedAt, &e.CreatedAt)
	if err != nil {
		return Execution{}, err
	}
	if len(result) > 0 {
		e.Result = json.RawMessage(result)
	}
	return e, nil
}

// InsertExecution stores a Pending execution. ClaimedAt is set for
// executions the caller dispatches immediately so the sweep leaves them alone.
func (r *Repository) InsertExecution(ctx context.Context, e Execution) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO workflow_executions (id, tenant_id, rule_id, entity_type, entity_id, trigger_event, status, scheduled_for, claimed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'Pending', $7, $8, $9)
	`, e.ID, e.TenantID, e.RuleID, e.EntityType, e.EntityID, e.TriggerEvent, e.ScheduledFor, e.ClaimedAt, e.CreatedAt)
	return err
}

// ClaimDue stamps claimed_at on due Pending executions whose lease is free and
// returns them. Rows locked by a concurrent sweep are skipped.
func (r *Repository) ClaimDue(ctx context.Context, filter ClaimFilter) ([]Execution, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		WITH due AS (
			SELECT id
			FROM workflow_executions
			WHERE status = 'Pending'
				AND scheduled_for <= $1
				AND (claimed_at IS NULL OR claimed_at < $2)
				AND ($3::uuid IS NULL OR tenant_id = $3)
			ORDER BY scheduled_for ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		UPDATE workflow_executions e
		SET claimed_at = $1
		FROM due
		WHERE e.id = due.id
		RETURNING e.id, e.tenant_id, e.rule_id, e.entity_type, e.entity_id, e.trigger_event, e.status,
			e.scheduled_for, e.executed_at, e.result, e.claimed_at, e.created_at
	`, filter.Now, filter.LeaseCutoff, filter.TenantID, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claimed := make([]Execution, 0)
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return claimed, nil
}

// Finish moves a Pending execution to a terminal status. It reports false
// when the execution had already left Pending.
func (r *Repository) Finish(ctx context.Context, tenantID, id uuid.UUID, status string, result json.RawMessage, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE workflow_executions
		SET status = $3, result = $4, executed_at = $5
		WHERE id = $1 AND tenant_id = $2 AND status = 'Pending'
	`, id, tenantID, status, []byte(result), at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListExecutions returns recent executions for an entity, newest first.
func (r *Repository) ListExecutions(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, limit int) ([]Execution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+executionColumns+`
		FROM workflow_executions
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC
		LIMIT $4
	`, tenantID, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Execution, 0)
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
