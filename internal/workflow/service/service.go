// Package service implements the workflow engine: trigger matching, immediate
// and delayed dispatch, and the execution state machine.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/workflow/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
)

const (
	EventLeadCreated = "LeadCreated"

	defaultProcessLimit = 100
	defaultClaimLease   = 10 * time.Minute
	executionPageSize   = 50
	reasonRuleInactive  = "Rule inactive or deleted"
)

// RuleStore loads workflow rules.
type RuleStore interface {
	ListActiveRules(ctx context.Context, tenantID uuid.UUID, entityType, event string) ([]repository.Rule, error)
	GetRule(ctx context.Context, tenantID, id uuid.UUID) (repository.Rule, error)
}

// ExecutionStore persists executions and their state transitions.
type ExecutionStore interface {
	InsertExecution(ctx context.Context, e repository.Execution) error
	ClaimDue(ctx context.Context, filter repository.ClaimFilter) ([]repository.Execution, error)
	Finish(ctx context.Context, tenantID, id uuid.UUID, status string, result json.RawMessage, at time.Time) (bool, error)
	ListExecutions(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID, limit int) ([]repository.Execution, error)
}

// LeadStore is the slice of the lead repository actions mutate.
type LeadStore interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.Status) (domain.Status, error)
	Archive(ctx context.Context, tenantID, id uuid.UUID) error
}

// ActivityStore creates and updates activities and opportunities.
type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *domain.Activity, links []domain.ActivityLink) error
	AssignActivity(ctx context.Context, tenantID, id, userID uuid.UUID) error
	GetOpportunity(ctx context.Context, tenantID, id uuid.UUID) (domain.Opportunity, error)
	UpdateOpportunityStatus(ctx context.Context, tenantID, id uuid.UUID, status string) error
}

// Notifier publishes tenant-scoped notifications.
type Notifier interface {
	Notify(ctx context.Context, tenantID uuid.UUID, n notification.Notification) error
}

// AuditSink records status changes and archives.
type AuditSink interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Deps groups the collaborators of the workflow engine.
type Deps struct {
	Rules      RuleStore
	Executions ExecutionStore
	Leads      LeadStore
	Activities ActivityStore
	Notifier   Notifier
	Audit      AuditSink
	EventBus   events.Bus
	Validator  *validator.Validator
	Clock      clock.Clock
	ClaimLease time.Duration
	Log        *logger.Logger
}

// TriggerInput describes the event that rules are matched against. Context
// is the raw JSON object conditions are evaluated on.
type TriggerInput struct {
	EntityType domain.EntityType
	EntityID   uuid.UUID
	Event      string
	Context    json.RawMessage
}

// ExecutionSummary reports one execution created or finished by the engine.
type ExecutionSummary struct {
	ID           uuid.UUID
	RuleID       uuid.UUID
	RuleName     string
	Status       string
	ScheduledFor time.Time
	Result       json.RawMessage
}

type TriggerResult struct {
	Evaluated  int
	Executions []ExecutionSummary
}

// ProcessOptions limits a sweep to one tenant and a batch size.
type ProcessOptions struct {
	TenantID *uuid.UUID
	Limit    int
}

type ProcessResult struct {
	Claimed   int
	Executed  int
	Failed    int
	Skipped   int
	Conflicts int
}

// loadedRule is a stored rule with its action decoded when the rule was
// loaded. actionErr holds the decode failure and becomes the Failed reason of
// every execution the rule dispatches.
type loadedRule struct {
	repository.Rule
	action    Action
	actionErr error
}

type Service struct {
	rules      RuleStore
	executions ExecutionStore
	leads      LeadStore
	activities ActivityStore
	notifier   Notifier
	audit      AuditSink
	eventBus   events.Bus
	val        *validator.Validator
	clock      clock.Clock
	lease      time.Duration
	log        *logger.Logger
}

func New(deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.ClaimLease <= 0 {
		deps.ClaimLease = defaultClaimLease
	}
	return &Service{
		rules:      deps.Rules,
		executions: deps.Executions,
		leads:      deps.Leads,
		activities: deps.Activities,
		notifier:   deps.Notifier,
		audit:      deps.Audit,
		eventBus:   deps.EventBus,
		val:        deps.Validator,
		clock:      deps.Clock,
		lease:      deps.ClaimLease,
		log:        deps.Log.WithComponent("workflow"),
	}
}

// Trigger evaluates every live rule for the event. Rules without delay run
// now; delayed rules leave a Pending execution for the scheduler.
func (s *Service) Trigger(ctx context.Context, tenantID uuid.UUID, in TriggerInput) (TriggerResult, error) {
	if in.EntityID == uuid.Nil || in.Event == "" {
		return TriggerResult{}, apperr.Validation("entityId and event are required")
	}
	entityType, ok := domain.ParseEntityType(string(in.EntityType))
	if !ok {
		return TriggerResult{}, apperr.Validation(fmt.Sprintf("unknown entity type %q", in.EntityType))
	}
	in.EntityType = entityType

	rules, err := s.rules.ListActiveRules(ctx, tenantID, string(in.EntityType), in.Event)
	if err != nil {
		return TriggerResult{}, fmt.Errorf("load workflow rules: %w", err)
	}

	result := TriggerResult{Executions: make([]ExecutionSummary, 0)}
	for _, stored := range rules {
		result.Evaluated++
		rule := s.load(stored)

		switch evaluateCondition(rule.Condition, in.Context) {
		case conditionRejected:
			continue
		case conditionMalformed:
			s.log.Warn("workflow condition could not be decoded, treating as match", "ruleId", rule.ID)
		}

		summary, err := s.start(ctx, tenantID, rule, in)
		if err != nil {
			s.log.Error("workflow execution could not be started", "ruleId", rule.ID, "entityId", in.EntityID, "error", err)
			continue
		}
		result.Executions = append(result.Executions, summary)
	}
	return result, nil
}

// load decodes the rule's action once so dispatch works on a typed Action.
func (s *Service) load(rule repository.Rule) loadedRule {
	action, err := DecodeAction(rule.ActionType, rule.ActionConfig, s.val)
	if err != nil {
		s.log.Warn("workflow rule has an unusable action", "ruleId", rule.ID, "action", rule.ActionType, "error", err)
	}
	return loadedRule{Rule: rule, action: action, actionErr: err}
}

func (s *Service) start(ctx context.Context, tenantID uuid.UUID, rule loadedRule, in TriggerInput) (ExecutionSummary, error) {
	now := s.clock.Now()
	exec := repository.Execution{
		ID:           uuid.New(),
		TenantID:     tenantID,
		RuleID:       rule.ID,
		EntityType:   string(in.EntityType),
		EntityID:     in.EntityID,
		TriggerEvent: in.Event,
		Status:       repository.StatusPending,
		ScheduledFor: now.Add(time.Duration(rule.DelayMinutes) * time.Minute),
		CreatedAt:    now,
	}
	if rule.DelayMinutes <= 0 {
		exec.ScheduledFor = now
		exec.ClaimedAt = &now
	}

	if err := s.executions.InsertExecution(ctx, exec); err != nil {
		return ExecutionSummary{}, err
	}

	summary := ExecutionSummary{
		ID:           exec.ID,
		RuleID:       rule.ID,
		RuleName:     rule.Name,
		Status:       repository.StatusPending,
		ScheduledFor: exec.ScheduledFor,
	}
	if rule.DelayMinutes > 0 {
		return summary, nil
	}

	status, payload, err := s.dispatch(ctx, rule, exec)
	if err != nil {
		return summary, err
	}
	summary.Status = status
	summary.Result = payload
	return summary, nil
}

// ProcessPending drains due executions. Each one is reloaded against its
// rule; a rule that was disabled or deleted since scheduling skips it.
func (s *Service) ProcessPending(ctx context.Context, opts ProcessOptions) (ProcessResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultProcessLimit
	}
	now := s.clock.Now()

	claimed, err := s.executions.ClaimDue(ctx, repository.ClaimFilter{
		TenantID:    opts.TenantID,
		Now:         now,
		LeaseCutoff: now.Add(-s.lease),
		Limit:       limit,
	})
	if err != nil {
		return ProcessResult{}, fmt.Errorf("claim due executions: %w", err)
	}

	result := ProcessResult{Claimed: len(claimed)}
	for _, exec := range claimed {
		status, err := s.processOne(ctx, exec)
		if err != nil {
			if apperr.Is(err, apperr.KindConcurrency) {
				result.Conflicts++
			}
			s.log.Error("pending execution not processed", "executionId", exec.ID, "error", err)
			continue
		}
		switch status {
		case repository.StatusExecuted:
			result.Executed++
		case repository.StatusFailed:
			result.Failed++
		case repository.StatusSkipped:
			result.Skipped++
		}
	}
	return result, nil
}

func (s *Service) processOne(ctx context.Context, exec repository.Execution) (string, error) {
	rule, err := s.rules.GetRule(ctx, exec.TenantID, exec.RuleID)
	if err != nil && !errors.Is(err, repository.ErrRuleNotFound) {
		return "", fmt.Errorf("reload rule: %w", err)
	}
	if errors.Is(err, repository.ErrRuleNotFound) || !rule.IsActive || rule.IsDeleted {
		payload := mustJSON(map[string]any{"reason": reasonRuleInactive})
		if err := s.finish(ctx, exec, repository.StatusSkipped, payload); err != nil {
			return "", err
		}
		return repository.StatusSkipped, nil
	}

	status, _, err := s.dispatch(ctx, s.load(rule), exec)
	return status, err
}

// dispatch runs the rule's decoded action and records the terminal state.
// Action failures end in Failed; only storage problems are returned.
func (s *Service) dispatch(ctx context.Context, rule loadedRule, exec repository.Execution) (string, json.RawMessage, error) {
	status := repository.StatusExecuted
	payload := mustJSON(map[string]any{"action": rule.ActionType, "success": true})

	err := rule.actionErr
	if err == nil {
		err = s.runAction(ctx, rule.Rule, rule.action, target{
			tenantID:   exec.TenantID,
			entityType: domain.EntityType(exec.EntityType),
			entityID:   exec.EntityID,
		})
	}
	if err != nil {
		status = repository.StatusFailed
		payload = mustJSON(map[string]any{"error": err.Error()})
		s.log.Warn("workflow action failed", "ruleId", rule.ID, "executionId", exec.ID, "action", rule.ActionType, "error", err)
	}

	if err := s.finish(ctx, exec, status, payload); err != nil {
		return "", nil, err
	}
	return status, payload, nil
}

// runAction converts a panic inside an action into an error so the
// execution still terminates.
func (s *Service) runAction(ctx context.Context, rule repository.Rule, action Action, t target) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return s.execute(ctx, rule, action, t)
}

// finish performs the Pending to terminal compare-and-swap.
func (s *Service) finish(ctx context.Context, exec repository.Execution, status string, payload json.RawMessage) error {
	ok, err := s.executions.Finish(ctx, exec.TenantID, exec.ID, status, payload, s.clock.Now())
	if err != nil {
		return fmt.Errorf("finish execution: %w", err)
	}
	if !ok {
		return apperr.Concurrency("execution already left Pending").WithOp("workflow.finish")
	}
	return nil
}

// ListExecutions returns recent executions for an entity.
func (s *Service) ListExecutions(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, entityID uuid.UUID) ([]repository.Execution, error) {
	return s.executions.ListExecutions(ctx, tenantID, string(entityType), entityID, executionPageSize)
}

func mustJSON(v any) json.RawMessage {
	encoded, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}
