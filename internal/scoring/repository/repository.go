package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CategoryDecay tags rules that apply only during the inactivity sweep.
const CategoryDecay = "Decay"

// Rule is a configured scoring rule.
type Rule struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	Name              string
	Category          string
	ConditionField    string
	ConditionOperator string
	ConditionValue    string
	Points            int
	DecayDays         *int
	IsActive          bool
	CreatedAt         time.Time
}

// HistoryEntry is one persisted score change.
type HistoryEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	LeadID        uuid.UUID
	PreviousScore int
	NewScore      int
	Change        int
	Reason        string
	RuleID        *uuid.UUID
	CreatedAt     time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ruleColumns = `
	id, tenant_id, name, category, condition_field, condition_operator, condition_value,
	points, decay_days, is_active, created_at`

// ListActiveRules returns every active rule of the tenant, oldest first.
func (r *Repository) ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM scoring_rules
		WHERE tenant_id = $1 AND is_active = true
		ORDER BY created_at ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// ListActiveRulesByCategory returns active rules of one category.
func (r *Repository) ListActiveRulesByCategory(ctx context.Context, tenantID uuid.UUID, category string) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM scoring_rules
		WHERE tenant_id = $1 AND is_active = true AND category = $2
		ORDER BY created_at ASC, id ASC
	`, tenantID, category)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// CreateRule inserts a rule. Used by rule seeding.
func (r *Repository) CreateRule(ctx context.Context, rule *Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO scoring_rules (id, tenant_id, name, category, condition_field, condition_operator, condition_value, points, decay_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, rule.ID, rule.TenantID, rule.Name, rule.Category, rule.ConditionField, rule.ConditionOperator,
		rule.ConditionValue, rule.Points, rule.DecayDays, rule.IsActive,
	).Scan(&rule.CreatedAt)
}

// InsertHistory appends a score change.
func (r *Repository) InsertHistory(ctx context.Context, entry HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_score_history (id, tenant_id, lead_id, previous_score, new_score, score_change, reason, scoring_rule_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.TenantID, entry.LeadID, entry.PreviousScore, entry.NewScore, entry.Change,
		entry.Reason, entry.RuleID, entry.CreatedAt)
	return err
}

// ListHistory returns the most recent score changes of a lead.
func (r *Repository) ListHistory(ctx context.Context, tenantID, leadID uuid.UUID, limit int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, lead_id, previous_score, new_score, score_change, reason, scoring_rule_id, created_at
		FROM lead_score_history
		WHERE tenant_id = $1 AND lead_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, tenantID, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]HistoryEntry, 0)
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.TenantID, &h.LeadID, &h.PreviousScore, &h.NewScore, &h.Change, &h.Reason, &h.RuleID, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func collectRules(rows pgx.Rows) ([]Rule, error) {
	defer rows.Close()

	rules := make([]Rule, 0)
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Category, &rule.ConditionField, &rule.ConditionOperator,
			&rule.ConditionValue, &rule.Points, &rule.DecayDays, &rule.IsActive, &rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
