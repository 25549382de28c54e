// Package service implements the lead scoring engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/scoring/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	ReasonRecalculated = "Score recalculated"
	ReasonBulk         = "Bulk recalculation"
	historyPageSize    = 50
)

// RuleStore loads scoring rules.
type RuleStore interface {
	ListActiveRules(ctx context.Context, tenantID uuid.UUID) ([]repository.Rule, error)
	ListActiveRulesByCategory(ctx context.Context, tenantID uuid.UUID, category string) ([]repository.Rule, error)
}

// HistoryStore persists score changes.
type HistoryStore interface {
	InsertHistory(ctx context.Context, entry repository.HistoryEntry) error
	ListHistory(ctx context.Context, tenantID, leadID uuid.UUID, limit int) ([]repository.HistoryEntry, error)
}

// LeadStore is the slice of the lead repository the scoring engine needs.
type LeadStore interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error)
	ListScorable(ctx context.Context, tenantID uuid.UUID) ([]domain.Lead, error)
	LastActivityAt(ctx context.Context, tenantID, leadID uuid.UUID) (*time.Time, error)
	UpdateScore(ctx context.Context, tenantID, id uuid.UUID, score int) error
}

// BreakdownItem explains one rule's contribution.
type BreakdownItem struct {
	RuleID         uuid.UUID
	RuleName       string
	Category       string
	ConditionField string
	Points         int
	Applied        bool
}

// Breakdown explains a lead's score rule by rule.
type Breakdown struct {
	LeadID     uuid.UUID
	TotalScore int
	Heuristic  bool
	Items      []BreakdownItem
}

// ScoreResult reports a persisted rescoring.
type ScoreResult struct {
	LeadID        uuid.UUID
	PreviousScore int
	Score         int
	Changed       bool
}

// BatchResult summarises a decay or recalculation pass.
type BatchResult struct {
	Processed int
	Changed   int
	Failed    int
}

type Service struct {
	rules   RuleStore
	history HistoryStore
	leads   LeadStore
	clock   clock.Clock
	log     *logger.Logger
}

func New(rules RuleStore, history HistoryStore, leads LeadStore, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{rules: rules, history: history, leads: leads, clock: clk, log: log.WithComponent("scoring")}
}

// CalculateScore computes the lead's score in [0,100] without persisting it.
func (s *Service) CalculateScore(ctx context.Context, tenantID uuid.UUID, lead domain.Lead) (int, error) {
	rules, err := s.rules.ListActiveRules(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("load scoring rules: %w", err)
	}
	return scoreWith(rules, lead), nil
}

func scoreWith(rules []repository.Rule, lead domain.Lead) int {
	if len(rules) == 0 {
		return heuristicScore(lead)
	}
	total := 0
	for _, rule := range rules {
		if evaluateRule(rule, lead) {
			total += rule.Points
		}
	}
	return clamp(total)
}

// Breakdown lists every active rule with the points it contributed.
func (s *Service) Breakdown(ctx context.Context, tenantID uuid.UUID, lead domain.Lead) (Breakdown, error) {
	rules, err := s.rules.ListActiveRules(ctx, tenantID)
	if err != nil {
		return Breakdown{}, fmt.Errorf("load scoring rules: %w", err)
	}

	result := Breakdown{LeadID: lead.ID, Items: make([]BreakdownItem, 0, len(rules))}
	if len(rules) == 0 {
		result.TotalScore = heuristicScore(lead)
		result.Heuristic = true
		return result, nil
	}

	total := 0
	for _, rule := range rules {
		applied := evaluateRule(rule, lead)
		points := 0
		if applied {
			points = rule.Points
		}
		total += points
		result.Items = append(result.Items, BreakdownItem{
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			Category:       rule.Category,
			ConditionField: rule.ConditionField,
			Points:         points,
			Applied:        applied,
		})
	}
	result.TotalScore = clamp(total)
	return result, nil
}

// BreakdownForLead loads the lead and explains its score.
func (s *Service) BreakdownForLead(ctx context.Context, tenantID, leadID uuid.UUID) (Breakdown, error) {
	lead, err := s.getLead(ctx, tenantID, leadID)
	if err != nil {
		return Breakdown{}, err
	}
	return s.Breakdown(ctx, tenantID, lead)
}

// RecordChange appends a history entry. Unchanged scores are not recorded.
func (s *Service) RecordChange(ctx context.Context, tenantID, leadID uuid.UUID, before, after int, reason string, ruleID *uuid.UUID) error {
	if before == after {
		return nil
	}
	return s.history.InsertHistory(ctx, repository.HistoryEntry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		LeadID:        leadID,
		PreviousScore: before,
		NewScore:      after,
		Change:        after - before,
		Reason:        reason,
		RuleID:        ruleID,
		CreatedAt:     s.clock.Now(),
	})
}

// ScoreLead recomputes, persists and records the score of one lead.
func (s *Service) ScoreLead(ctx context.Context, tenantID, leadID uuid.UUID) (ScoreResult, error) {
	return s.Rescore(ctx, tenantID, leadID, ReasonRecalculated)
}

// Rescore is ScoreLead with a caller-provided history reason.
func (s *Service) Rescore(ctx context.Context, tenantID, leadID uuid.UUID, reason string) (ScoreResult, error) {
	lead, err := s.getLead(ctx, tenantID, leadID)
	if err != nil {
		return ScoreResult{}, err
	}

	score, err := s.CalculateScore(ctx, tenantID, lead)
	if err != nil {
		return ScoreResult{}, err
	}

	result := ScoreResult{LeadID: lead.ID, PreviousScore: lead.Score, Score: score, Changed: score != lead.Score}
	if !result.Changed {
		return result, nil
	}
	if err := s.leads.UpdateScore(ctx, tenantID, lead.ID, score); err != nil {
		return ScoreResult{}, fmt.Errorf("persist score: %w", err)
	}
	if err := s.RecordChange(ctx, tenantID, lead.ID, lead.Score, score, reason, nil); err != nil {
		return ScoreResult{}, fmt.Errorf("record score change: %w", err)
	}
	return result, nil
}

// History returns recent score changes of a lead.
func (s *Service) History(ctx context.Context, tenantID, leadID uuid.UUID) ([]repository.HistoryEntry, error) {
	if _, err := s.getLead(ctx, tenantID, leadID); err != nil {
		return nil, err
	}
	return s.history.ListHistory(ctx, tenantID, leadID, historyPageSize)
}

// ApplyDecay lowers the score of inactive leads according to the tenant's decay rules.
// Each change is persisted as soon as it is computed; a failing lead is logged and skipped.
func (s *Service) ApplyDecay(ctx context.Context, tenantID uuid.UUID) (BatchResult, error) {
	var result BatchResult

	rules, err := s.rules.ListActiveRulesByCategory(ctx, tenantID, repository.CategoryDecay)
	if err != nil {
		return result, fmt.Errorf("load decay rules: %w", err)
	}
	if len(rules) == 0 {
		return result, nil
	}

	leads, err := s.leads.ListScorable(ctx, tenantID)
	if err != nil {
		return result, fmt.Errorf("load leads for decay: %w", err)
	}

	now := s.clock.Now()
	for _, lead := range leads {
		result.Processed++
		changed, err := s.decayLead(ctx, tenantID, lead, rules, now)
		if err != nil {
			result.Failed++
			s.log.Warn("decay failed", "tenantId", tenantID, "leadId", lead.ID, "error", err)
			continue
		}
		if changed {
			result.Changed++
		}
	}
	return result, nil
}

func (s *Service) decayLead(ctx context.Context, tenantID uuid.UUID, lead domain.Lead, rules []repository.Rule, now time.Time) (bool, error) {
	since := lead.CreatedAt
	last, err := s.leads.LastActivityAt(ctx, tenantID, lead.ID)
	if err != nil {
		return false, fmt.Errorf("load last activity: %w", err)
	}
	if last != nil {
		since = *last
	}
	days := wholeDaysBetween(since, now)

	changed := false
	score := lead.Score
	for _, rule := range rules {
		if rule.DecayDays == nil || days < *rule.DecayDays {
			continue
		}
		next := clamp(score + rule.Points)
		if next == score {
			continue
		}
		if err := s.leads.UpdateScore(ctx, tenantID, lead.ID, next); err != nil {
			return changed, fmt.Errorf("persist decayed score: %w", err)
		}
		ruleID := rule.ID
		reason := fmt.Sprintf("Decay: %d days inactivity (rule: %s)", days, rule.Name)
		if err := s.RecordChange(ctx, tenantID, lead.ID, score, next, reason, &ruleID); err != nil {
			return true, fmt.Errorf("record decay: %w", err)
		}
		score = next
		changed = true
	}
	return changed, nil
}

// RecalculateAll rescores every scorable lead of the tenant.
func (s *Service) RecalculateAll(ctx context.Context, tenantID uuid.UUID) (BatchResult, error) {
	var result BatchResult

	rules, err := s.rules.ListActiveRules(ctx, tenantID)
	if err != nil {
		return result, fmt.Errorf("load scoring rules: %w", err)
	}
	leads, err := s.leads.ListScorable(ctx, tenantID)
	if err != nil {
		return result, fmt.Errorf("load leads for recalculation: %w", err)
	}

	for _, lead := range leads {
		result.Processed++
		score := scoreWith(rules, lead)
		if score == lead.Score {
			continue
		}
		if err := s.leads.UpdateScore(ctx, tenantID, lead.ID, score); err != nil {
			result.Failed++
			s.log.Warn("recalculate score failed", "tenantId", tenantID, "leadId", lead.ID, "error", err)
			continue
		}
		if err := s.RecordChange(ctx, tenantID, lead.ID, lead.Score, score, ReasonBulk, nil); err != nil {
			s.log.DatabaseError("scoring.history", err, "tenantId", tenantID, "leadId", lead.ID)
		}
		result.Changed++
	}
	return result, nil
}

func (s *Service) getLead(ctx context.Context, tenantID, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, tenantID, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("load lead: %w", err)
	}
	return lead, nil
}

func wholeDaysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
