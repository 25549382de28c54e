package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/workflow/repository"

	"github.com/google/uuid"
)

const (
	activityTypeTask     = "Task"
	activityTypeFollowUp = "FollowUp"
	activityPending      = "Pending"
	priorityMedium       = "Medium"
)

// target is the entity an execution acts on.
type target struct {
	tenantID   uuid.UUID
	entityType domain.EntityType
	entityID   uuid.UUID
}

// execute runs one decoded action. A returned error becomes the Failed result.
func (s *Service) execute(ctx context.Context, rule repository.Rule, action Action, t target) error {
	switch a := action.(type) {
	case CreateTask:
		return s.createTask(ctx, rule, a, t)
	case SendNotification:
		return s.sendNotification(ctx, rule, a, t)
	case ChangeStatus:
		if t.entityType != domain.EntityLead {
			return fmt.Errorf("ChangeStatus is only supported for Lead entities, rule targets %s", t.entityType)
		}
		return s.changeLeadStatus(ctx, rule, a.Status, t)
	case Archive:
		return s.archive(ctx, rule, t)
	case UpdateEntityStatus:
		return s.updateEntityStatus(ctx, rule, a, t)
	case CreateFollowUp:
		return s.createFollowUp(ctx, rule, a, t)
	case AssignActivity:
		return s.assignActivity(ctx, a, t)
	default:
		return &UnknownActionError{Name: string(action.Type())}
	}
}

// entityOwner returns the owner of a lead or opportunity, if any.
func (s *Service) entityOwner(ctx context.Context, t target) (*uuid.UUID, error) {
	switch t.entityType {
	case domain.EntityLead:
		lead, err := s.leads.GetByID(ctx, t.tenantID, t.entityID)
		if errors.Is(err, leadrepo.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load lead: %w", err)
		}
		return lead.OwnerID, nil
	case domain.EntityOpportunity:
		opp, err := s.activities.GetOpportunity(ctx, t.tenantID, t.entityID)
		if errors.Is(err, leadrepo.ErrOpportunityNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load opportunity: %w", err)
		}
		return opp.OwnerID, nil
	default:
		return nil, nil
	}
}

func (s *Service) createTask(ctx context.Context, rule repository.Rule, a CreateTask, t target) error {
	activity := &domain.Activity{
		TenantID:     t.tenantID,
		ActivityType: orDefault(a.ActivityType, activityTypeTask),
		Subject:      orDefault(a.Subject, "Workflow Task: "+rule.Name),
		Description:  orDefault(a.Description, "Auto-created by workflow rule: "+rule.Name),
		Status:       activityPending,
		Priority:     priorityMedium,
	}
	if t.entityType == domain.EntityLead {
		owner, err := s.entityOwner(ctx, t)
		if err != nil {
			return err
		}
		activity.AssignedTo = owner
	}

	if err := s.activities.CreateActivity(ctx, activity, []domain.ActivityLink{{EntityType: t.entityType, EntityID: t.entityID}}); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	s.log.Info("workflow task created", "activityId", activity.ID, "entityId", t.entityID, "ruleId", rule.ID)
	return nil
}

func (s *Service) createFollowUp(ctx context.Context, rule repository.Rule, a CreateFollowUp, t target) error {
	due := s.clock.Now().Add(time.Duration(a.DaysAfter) * 24 * time.Hour)
	activity := &domain.Activity{
		TenantID:     t.tenantID,
		ActivityType: activityTypeFollowUp,
		Subject:      orDefault(a.Subject, "Follow-up Activity"),
		Description:  orDefault(a.Description, "Auto-created follow-up from workflow rule: "+rule.Name),
		Status:       activityPending,
		Priority:     priorityMedium,
		DueDate:      &due,
	}
	owner, err := s.entityOwner(ctx, t)
	if err != nil {
		return err
	}
	activity.AssignedTo = owner

	if err := s.activities.CreateActivity(ctx, activity, []domain.ActivityLink{{EntityType: t.entityType, EntityID: t.entityID}}); err != nil {
		return fmt.Errorf("create follow-up: %w", err)
	}
	s.log.Info("workflow follow-up created", "activityId", activity.ID, "entityId", t.entityID, "dueDate", due)
	return nil
}

func (s *Service) sendNotification(ctx context.Context, rule repository.Rule, a SendNotification, t target) error {
	if s.notifier == nil {
		return errors.New("notifications are not configured")
	}
	return s.notifier.Notify(ctx, t.tenantID, notification.Notification{
		Type:    notification.TypeWorkflow,
		Title:   orDefault(a.Title, "Workflow Notification: "+rule.Name),
		Message: orDefault(a.Message, fmt.Sprintf("Workflow rule '%s' triggered for entity %s", rule.Name, t.entityID)),
		Data: map[string]any{
			"entityType": string(t.entityType),
			"entityId":   t.entityID,
			"ruleId":     rule.ID,
			"timestamp":  s.clock.Now(),
		},
		EmailTo: a.EmailTo,
	})
}

func (s *Service) changeLeadStatus(ctx context.Context, rule repository.Rule, rawStatus string, t target) error {
	status, ok := domain.ParseStatus(rawStatus)
	if !ok {
		return fmt.Errorf("unknown lead status %q", rawStatus)
	}

	previous, err := s.leads.UpdateStatus(ctx, t.tenantID, t.entityID, status)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return fmt.Errorf("lead %s not found", t.entityID)
	}
	if errors.Is(err, leadrepo.ErrTerminalStatus) {
		return fmt.Errorf("lead %s is %s and cannot move to %s", t.entityID, previous, status)
	}
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if previous == status {
		return nil
	}

	s.logAudit(ctx, audit.Entry{
		TenantID:   t.tenantID,
		EntityType: string(domain.EntityLead),
		EntityID:   t.entityID,
		Action:     audit.ActionStatusChanged,
		Changes:    map[string]any{"from": previous, "to": status, "ruleId": rule.ID},
	})
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEventAt(s.clock.Now()),
			LeadID:    t.entityID,
			TenantID:  t.tenantID,
			OldStatus: string(previous),
			NewStatus: string(status),
		})
	}
	return nil
}

func (s *Service) archive(ctx context.Context, rule repository.Rule, t target) error {
	if t.entityType != domain.EntityLead {
		return fmt.Errorf("Archive is only supported for Lead entities, rule targets %s", t.entityType)
	}
	err := s.leads.Archive(ctx, t.tenantID, t.entityID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return fmt.Errorf("lead %s not found", t.entityID)
	}
	if err != nil {
		return fmt.Errorf("archive lead: %w", err)
	}
	s.logAudit(ctx, audit.Entry{
		TenantID:   t.tenantID,
		EntityType: string(domain.EntityLead),
		EntityID:   t.entityID,
		Action:     audit.ActionArchived,
		Changes:    map[string]any{"ruleId": rule.ID},
	})
	return nil
}

func (s *Service) updateEntityStatus(ctx context.Context, rule repository.Rule, a UpdateEntityStatus, t target) error {
	switch t.entityType {
	case domain.EntityLead:
		return s.changeLeadStatus(ctx, rule, a.Status, t)
	case domain.EntityOpportunity:
		err := s.activities.UpdateOpportunityStatus(ctx, t.tenantID, t.entityID, a.Status)
		if errors.Is(err, leadrepo.ErrOpportunityNotFound) {
			return fmt.Errorf("opportunity %s not found", t.entityID)
		}
		return err
	case domain.EntityAccount:
		// Accounts carry no status column yet.
		s.log.Info("account status updates are not supported", "ruleId", rule.ID, "entityId", t.entityID)
		return nil
	default:
		return fmt.Errorf("UpdateEntityStatus is not supported for %s entities", t.entityType)
	}
}

func (s *Service) assignActivity(ctx context.Context, a AssignActivity, t target) error {
	if t.entityType != domain.EntityActivity {
		return fmt.Errorf("AssignActivity is only supported for Activity entities, rule targets %s", t.entityType)
	}
	err := s.activities.AssignActivity(ctx, t.tenantID, t.entityID, a.AssignToUserID)
	if errors.Is(err, leadrepo.ErrActivityNotFound) {
		return fmt.Errorf("activity %s not found", t.entityID)
	}
	return err
}

func (s *Service) logAudit(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.DatabaseError("workflow.audit", err, "entityId", entry.EntityID, "action", entry.Action)
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
