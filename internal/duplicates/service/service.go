// Package service implements duplicate lead detection and pair resolution.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadflow_backend/internal/duplicates/repository"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	ConfidenceEmail    = 95
	ConfidencePhone    = 85
	FuzzyNameThreshold = 75
	defaultListLimit   = 100
)

// LeadFinder looks up candidate leads. Implementations only return active,
// non-deleted leads other than the excluded one.
type LeadFinder interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string, excludeID uuid.UUID) ([]domain.Lead, error)
	FindByPhone(ctx context.Context, tenantID uuid.UUID, normalized string, excludeID uuid.UUID) ([]domain.Lead, error)
	FindByNamePrefix(ctx context.Context, tenantID uuid.UUID, prefix string, excludeID uuid.UUID) ([]domain.Lead, error)
}

// PairStore persists duplicate pairs.
type PairStore interface {
	CreatePending(ctx context.Context, pair repository.Pair) (repository.Pair, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (repository.Pair, error)
	MarkResolved(ctx context.Context, tenantID, id uuid.UUID, status string, resolvedBy uuid.UUID, at time.Time) (repository.Pair, bool, error)
	List(ctx context.Context, tenantID uuid.UUID, status string, limit int) ([]repository.Pair, error)
}

type Service struct {
	leads    LeadFinder
	pairs    PairStore
	eventBus events.Bus
	clock    clock.Clock
	log      *logger.Logger
}

func New(leads LeadFinder, pairs PairStore, eventBus events.Bus, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{leads: leads, pairs: pairs, eventBus: eventBus, clock: clk, log: log.WithComponent("duplicates")}
}

// CheckForDuplicates runs the email, phone and fuzzy-name passes for lead and
// persists every match as a Pending pair before returning it.
func (s *Service) CheckForDuplicates(ctx context.Context, tenantID uuid.UUID, lead domain.Lead) ([]repository.Pair, error) {
	pairs := make([]repository.Pair, 0)
	emailMatched := make(map[uuid.UUID]bool)

	byEmail, err := s.leads.FindByEmail(ctx, tenantID, lead.Email, lead.ID)
	if err != nil {
		return nil, fmt.Errorf("find email duplicates: %w", err)
	}
	for _, candidate := range byEmail {
		emailMatched[candidate.ID] = true
		pair, err := s.record(ctx, tenantID, lead.ID, candidate.ID, repository.MatchEmail, ConfidenceEmail)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	if key := phone.MatchKey(lead.Phone); key != "" {
		byPhone, err := s.leads.FindByPhone(ctx, tenantID, key, lead.ID)
		if err != nil {
			return nil, fmt.Errorf("find phone duplicates: %w", err)
		}
		for _, candidate := range byPhone {
			if emailMatched[candidate.ID] {
				continue
			}
			pair, err := s.record(ctx, tenantID, lead.ID, candidate.ID, repository.MatchPhone, ConfidencePhone)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair)
		}
	}

	if prefix, ok := namePrefix(lead.FirstName); ok {
		byName, err := s.leads.FindByNamePrefix(ctx, tenantID, prefix, lead.ID)
		if err != nil {
			return nil, fmt.Errorf("find name duplicates: %w", err)
		}
		subject := nameKey(lead.FirstName, lead.LastName)
		for _, candidate := range byName {
			if emailMatched[candidate.ID] {
				continue
			}
			similarity := similarityPercent(subject, nameKey(candidate.FirstName, candidate.LastName))
			if similarity < FuzzyNameThreshold {
				continue
			}
			pair, err := s.record(ctx, tenantID, lead.ID, candidate.ID, repository.MatchFuzzyName, similarity)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair)
		}
	}

	return pairs, nil
}

func (s *Service) record(ctx context.Context, tenantID, leadA, leadB uuid.UUID, matchType string, confidence int) (repository.Pair, error) {
	pair, err := s.pairs.CreatePending(ctx, repository.Pair{
		ID:         uuid.New(),
		TenantID:   tenantID,
		LeadAID:    leadA,
		LeadBID:    leadB,
		MatchType:  matchType,
		Confidence: confidence,
		Status:     repository.StatusPending,
		CreatedAt:  s.clock.Now(),
	})
	if err != nil {
		return repository.Pair{}, fmt.Errorf("persist %s pair: %w", matchType, err)
	}
	return pair, nil
}

// CheckLead loads a lead, runs detection and announces any pairs found.
func (s *Service) CheckLead(ctx context.Context, tenantID, leadID uuid.UUID) ([]repository.Pair, error) {
	lead, err := s.leads.GetByID(ctx, tenantID, leadID)
	if errors.Is(err, leadrepo.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}

	pairs, err := s.CheckForDuplicates(ctx, tenantID, lead)
	if err != nil {
		return nil, err
	}

	if len(pairs) > 0 && s.eventBus != nil {
		ids := make([]uuid.UUID, 0, len(pairs))
		for _, p := range pairs {
			ids = append(ids, p.ID)
		}
		s.eventBus.Publish(ctx, events.DuplicatesDetected{
			BaseEvent: events.NewBaseEventAt(s.clock.Now()),
			LeadID:    leadID,
			TenantID:  tenantID,
			PairIDs:   ids,
		})
	}
	return pairs, nil
}

// Resolve closes a Pending pair as Merged or Rejected.
func (s *Service) Resolve(ctx context.Context, tenantID, pairID uuid.UUID, status string, resolver uuid.UUID) (repository.Pair, error) {
	if status != repository.StatusMerged && status != repository.StatusRejected {
		return repository.Pair{}, apperr.Validation("status must be Merged or Rejected")
	}

	pair, err := s.pairs.GetByID(ctx, tenantID, pairID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Pair{}, apperr.NotFound("duplicate pair not found")
	}
	if err != nil {
		return repository.Pair{}, fmt.Errorf("load pair: %w", err)
	}
	if pair.Status != repository.StatusPending {
		return repository.Pair{}, apperr.Conflict(fmt.Sprintf("duplicate pair already %s", pair.Status))
	}

	resolved, ok, err := s.pairs.MarkResolved(ctx, tenantID, pairID, status, resolver, s.clock.Now())
	if err != nil {
		return repository.Pair{}, fmt.Errorf("resolve pair: %w", err)
	}
	if !ok {
		return repository.Pair{}, apperr.Conflict("duplicate pair was resolved concurrently")
	}
	return resolved, nil
}

// ListPairs returns pairs, optionally filtered by status.
func (s *Service) ListPairs(ctx context.Context, tenantID uuid.UUID, status string) ([]repository.Pair, error) {
	switch status {
	case "", repository.StatusPending, repository.StatusMerged, repository.StatusRejected:
	default:
		return nil, apperr.Validation("unknown duplicate pair status")
	}
	return s.pairs.List(ctx, tenantID, status, defaultListLimit)
}
