package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("assignment rule not found")

const (
	StrategyRoundRobin = "RoundRobin"
	StrategyTerritory  = "Territory"
	StrategyCapacity   = "Capacity"
	StrategySkillBased = "SkillBased"
)

// Rule is an assignment rule with its active members in sort order.
type Rule struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	Name               string
	Priority           int
	Strategy           string
	LastAssignedIndex  int
	TerritoryCondition map[string]string
	IsEnabled          bool
	CreatedAt          time.Time
	Members            []Member

	// ConditionErr is set when the stored territory condition could not be
	// decoded. TerritoryCondition is then empty, so the rule never matches on
	// territory.
	ConditionErr error
}

type Member struct {
	ID         uuid.UUID
	RuleID     uuid.UUID
	UserID     uuid.UUID
	IsActive   bool
	Capacity   int
	SkillLevel string
	SortOrder  int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// decodeTerritory reads a territory condition. Only string values are
// accepted; anything else leaves the condition empty.
func decodeTerritory(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var condition map[string]string
	if err := json.Unmarshal(raw, &condition); err != nil {
		return nil, fmt.Errorf("territory condition: %w", err)
	}
	return condition, nil
}

// ListEnabledRules returns enabled rules by priority, each carrying its
// active members.
func (r *Repository) ListEnabledRules(ctx context.Context, tenantID uuid.UUID) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, priority, strategy, last_assigned_index, territory_condition, is_enabled, created_at
		FROM assignment_rules
		WHERE tenant_id = $1 AND is_enabled = true
		ORDER BY priority ASC, created_at ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]Rule, 0)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var rule Rule
		var territory []byte
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.Name, &rule.Priority, &rule.Strategy,
			&rule.LastAssignedIndex, &territory, &rule.IsEnabled, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rule.TerritoryCondition, rule.ConditionErr = decodeTerritory(territory)
		index[rule.ID] = len(rules)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return rules, nil
	}

	ruleIDs := make([]uuid.UUID, 0, len(rules))
	for _, rule := range rules {
		ruleIDs = append(ruleIDs, rule.ID)
	}

	memberRows, err := r.pool.Query(ctx, `
		SELECT id, rule_id, user_id, is_active, capacity, skill_level, sort_order
		FROM assignment_members
		WHERE rule_id = ANY($1) AND is_active = true
		ORDER BY sort_order ASC, id ASC
	`, ruleIDs)
	if err != nil {
		return nil, err
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var m Member
		if err := memberRows.Scan(&m.ID, &m.RuleID, &m.UserID, &m.IsActive, &m.Capacity, &m.SkillLevel, &m.SortOrder); err != nil {
			return nil, err
		}
		i := index[m.RuleID]
		rules[i].Members = append(rules[i].Members, m)
	}
	return rules, memberRows.Err()
}

// GetCursor reads the current round-robin cursor of a rule.
func (r *Repository) GetCursor(ctx context.Context, tenantID, ruleID uuid.UUID) (int, error) {
	var cursor int
	err := r.pool.QueryRow(ctx, `
		SELECT last_assigned_index FROM assignment_rules WHERE id = $1 AND tenant_id = $2
	`, ruleID, tenantID).Scan(&cursor)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return cursor, err
}

// AdvanceCursor moves the cursor from expected to next. It reports false
// when another writer moved the cursor first.
func (r *Repository) AdvanceCursor(ctx context.Context, tenantID, ruleID uuid.UUID, expected, next int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE assignment_rules
		SET last_assigned_index = $4
		WHERE id = $1 AND tenant_id = $2 AND last_assigned_index = $3
	`, ruleID, tenantID, expected, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CreateRule inserts a rule and its members in one transaction.
func (r *Repository) CreateRule(ctx context.Context, rule *Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	var territory []byte
	if len(rule.TerritoryCondition) > 0 {
		encoded, err := json.Marshal(rule.TerritoryCondition)
		if err != nil {
			return err
		}
		territory = encoded
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO assignment_rules (id, tenant_id, name, priority, strategy, last_assigned_index, territory_condition, is_enabled)
		VALUES ($1, $2, $3, $4, $5, -1, $6, $7)
	`, rule.ID, rule.TenantID, rule.Name, rule.Priority, rule.Strategy, territory, rule.IsEnabled); err != nil {
		return err
	}

	for i := range rule.Members {
		m := &rule.Members[i]
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.RuleID = rule.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO assignment_members (id, rule_id, user_id, is_active, capacity, skill_level, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, m.ID, m.RuleID, m.UserID, m.IsActive, m.Capacity, m.SkillLevel, m.SortOrder); err != nil {
			return err
		}
	}
	rule.LastAssignedIndex = -1
	return tx.Commit(ctx)
}
