// Package capture turns public web-form submissions into scored, assigned
// leads and hands them to the rest of the automation pipeline.
package capture

import (
	"context"
	"errors"
	"fmt"

	assignment "leadflow_backend/internal/assignment/service"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

const initialScoreReason = "Initial score"

type FormStore interface {
	GetForm(ctx context.Context, formID uuid.UUID) (Form, error)
}

type LeadStore interface {
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (domain.Lead, error)
	Create(ctx context.Context, lead *domain.Lead) error
}

type Scorer interface {
	CalculateScore(ctx context.Context, tenantID uuid.UUID, lead domain.Lead) (int, error)
	RecordChange(ctx context.Context, tenantID, leadID uuid.UUID, before, after int, reason string, ruleID *uuid.UUID) error
}

type Assigner interface {
	Assign(ctx context.Context, tenantID uuid.UUID, lead domain.Lead) (*assignment.Result, error)
	Record(ctx context.Context, tenantID uuid.UUID, lead domain.Lead, result *assignment.Result)
}

// DuplicateQueue schedules the post-capture duplicate check and returns the
// task id, or "" when the check ran in-process.
type DuplicateQueue interface {
	EnqueueDuplicateCheck(ctx context.Context, tenantID, leadID uuid.UUID) (string, error)
}

type Submission struct {
	FormID uuid.UUID
	Fields map[string]string
}

type Result struct {
	LeadID               uuid.UUID
	Created              bool
	DuplicateCheckTaskID string
}

type Service struct {
	forms      FormStore
	leads      LeadStore
	scorer     Scorer
	assigner   Assigner
	duplicates DuplicateQueue
	eventBus   events.Bus
	log        *logger.Logger
}

func New(forms FormStore, leads LeadStore, scorer Scorer, assigner Assigner, duplicates DuplicateQueue, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		forms:      forms,
		leads:      leads,
		scorer:     scorer,
		assigner:   assigner,
		duplicates: duplicates,
		eventBus:   eventBus,
		log:        log.WithComponent("capture"),
	}
}

// Submit processes one form submission. A submission whose email already
// belongs to a lead of the tenant returns that lead without creating one.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	form, err := s.forms.GetForm(ctx, sub.FormID)
	if errors.Is(err, ErrFormNotFound) || (err == nil && !form.IsActive) {
		return Result{}, apperr.NotFound("web form not found")
	}
	if err != nil {
		return Result{}, fmt.Errorf("load web form: %w", err)
	}

	lead := mapSubmission(form, sub.Fields)
	if lead.Email == "" && lead.Phone == "" && lead.FullName() == "" {
		return Result{}, apperr.Validation("submission contains no contact details")
	}

	if lead.Email != "" {
		existing, err := s.leads.GetByEmail(ctx, form.TenantID, lead.Email)
		if err == nil {
			s.log.Info("web form submission matched existing lead", "leadId", existing.ID, "formId", form.ID)
			return Result{LeadID: existing.ID}, nil
		}
		if !errors.Is(err, leadrepo.ErrNotFound) {
			return Result{}, fmt.Errorf("look up lead by email: %w", err)
		}
	}

	lead.ID = uuid.New()
	score, err := s.scorer.CalculateScore(ctx, form.TenantID, lead)
	if err != nil {
		return Result{}, fmt.Errorf("score lead: %w", err)
	}
	lead.Score = score

	assigned, err := s.assigner.Assign(ctx, form.TenantID, lead)
	if err != nil {
		s.log.Warn("auto-assignment failed for web form lead", "leadId", lead.ID, "error", err)
		assigned = nil
	}
	if assigned != nil {
		owner := assigned.OwnerID
		lead.OwnerID = &owner
	}

	if err := s.leads.Create(ctx, &lead); err != nil {
		return Result{}, fmt.Errorf("save lead: %w", err)
	}
	s.log.Info("lead created from web form", "leadId", lead.ID, "formId", form.ID, "score", lead.Score)

	if err := s.scorer.RecordChange(ctx, form.TenantID, lead.ID, 0, lead.Score, initialScoreReason, nil); err != nil {
		s.log.Warn("initial score history not recorded", "leadId", lead.ID, "error", err)
	}
	if assigned != nil {
		// The owner was picked before the lead existed.
		s.assigner.Record(ctx, form.TenantID, domain.Lead{ID: lead.ID}, assigned)
	}

	if s.eventBus != nil {
		formID := form.ID
		s.eventBus.Publish(ctx, events.LeadCaptured{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			TenantID:  form.TenantID,
			FormID:    &formID,
			Source:    lead.Source,
			Status:    string(lead.Status),
		})
	}

	result := Result{LeadID: lead.ID, Created: true}
	if s.duplicates != nil {
		taskID, err := s.duplicates.EnqueueDuplicateCheck(ctx, form.TenantID, lead.ID)
		if err != nil {
			s.log.Warn("duplicate check not scheduled", "leadId", lead.ID, "error", err)
		}
		result.DuplicateCheckTaskID = taskID
	}
	return result, nil
}
