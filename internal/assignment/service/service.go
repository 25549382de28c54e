// Package service implements rule-driven lead assignment.
package service

import (
	"context"
	"errors"
	"fmt"

	"leadflow_backend/internal/assignment/repository"
	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// RuleStore loads assignment rules and moves round-robin cursors.
type RuleStore interface {
	ListEnabledRules(ctx context.Context, tenantID uuid.UUID) ([]repository.Rule, error)
	GetCursor(ctx context.Context, tenantID, ruleID uuid.UUID) (int, error)
	AdvanceCursor(ctx context.Context, tenantID, ruleID uuid.UUID, expected, next int) (bool, error)
}

// WorkloadReader counts open leads per owner.
type WorkloadReader interface {
	CountOpenByOwner(ctx context.Context, tenantID uuid.UUID, ownerIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// LeadStore is the slice of the lead repository assignment needs.
type LeadStore interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error)
	UpdateOwner(ctx context.Context, tenantID, id, ownerID uuid.UUID) error
}

// AuditSink records assignments.
type AuditSink interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Result names the chosen owner and the rule that chose them.
type Result struct {
	OwnerID  uuid.UUID
	RuleID   uuid.UUID
	RuleName string
	Strategy string
}

type Service struct {
	rules    RuleStore
	workload WorkloadReader
	leads    LeadStore
	audit    AuditSink
	eventBus events.Bus
	log      *logger.Logger
}

func New(rules RuleStore, workload WorkloadReader, leads LeadStore, auditSink AuditSink, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		rules:    rules,
		workload: workload,
		leads:    leads,
		audit:    auditSink,
		eventBus: eventBus,
		log:      log.WithComponent("assignment"),
	}
}

// Assign walks enabled rules in priority order and returns the first owner a
// strategy produces. A nil result with a nil error means no rule matched.
func (s *Service) Assign(ctx context.Context, tenantID uuid.UUID, lead domain.Lead) (*Result, error) {
	rules, err := s.rules.ListEnabledRules(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load assignment rules: %w", err)
	}

	for _, rule := range rules {
		if rule.ConditionErr != nil {
			s.log.Warn("assignment rule condition is malformed", "ruleId", rule.ID, "rule", rule.Name, "error", rule.ConditionErr)
		}
		if len(rule.Members) == 0 {
			continue
		}

		member, err := s.pick(ctx, tenantID, rule, lead)
		if err != nil {
			return nil, err
		}
		if member == nil {
			continue
		}
		return &Result{
			OwnerID:  member.UserID,
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Strategy: rule.Strategy,
		}, nil
	}
	return nil, nil
}

func (s *Service) pick(ctx context.Context, tenantID uuid.UUID, rule repository.Rule, lead domain.Lead) (*repository.Member, error) {
	switch rule.Strategy {
	case repository.StrategyRoundRobin:
		return s.roundRobin(ctx, tenantID, rule)
	case repository.StrategyTerritory:
		return territory(rule, lead), nil
	case repository.StrategyCapacity:
		return s.capacity(ctx, tenantID, rule)
	case repository.StrategySkillBased:
		return skillBased(rule, lead), nil
	default:
		s.log.Warn("unknown assignment strategy", "ruleId", rule.ID, "strategy", rule.Strategy)
		return nil, nil
	}
}

// AssignLead assigns a stored lead and persists the new owner.
func (s *Service) AssignLead(ctx context.Context, tenantID, leadID uuid.UUID) (*Result, error) {
	lead, err := s.leads.GetByID(ctx, tenantID, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}

	result, err := s.Assign(ctx, tenantID, lead)
	if err != nil || result == nil {
		return result, err
	}

	if err := s.leads.UpdateOwner(ctx, tenantID, leadID, result.OwnerID); err != nil {
		if errors.Is(err, leadrepo.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, fmt.Errorf("persist owner: %w", err)
	}

	s.record(ctx, tenantID, lead, result)
	return result, nil
}

// Record audits and announces an owner chosen by Assign for a lead that the
// caller saved itself.
func (s *Service) Record(ctx context.Context, tenantID uuid.UUID, lead domain.Lead, result *Result) {
	if result == nil {
		return
	}
	s.record(ctx, tenantID, lead, result)
}

// record writes the audit entry and announces the assignment. Neither is
// allowed to undo an owner that is already persisted.
func (s *Service) record(ctx context.Context, tenantID uuid.UUID, lead domain.Lead, result *Result) {
	changes := map[string]any{
		"ownerId":  result.OwnerID,
		"ruleId":   result.RuleID,
		"ruleName": result.RuleName,
		"strategy": result.Strategy,
	}
	if lead.OwnerID != nil {
		changes["previousOwnerId"] = *lead.OwnerID
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, audit.Entry{
			TenantID:   tenantID,
			EntityType: string(domain.EntityLead),
			EntityID:   lead.ID,
			Action:     audit.ActionAssigned,
			Changes:    changes,
		}); err != nil {
			s.log.DatabaseError("assignment.audit", err, "leadId", lead.ID)
		}
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadAssigned{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			TenantID:  tenantID,
			OwnerID:   result.OwnerID,
			RuleID:    result.RuleID,
			Strategy:  result.Strategy,
		})
	}
}
