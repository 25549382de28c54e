// Package service consolidates two leads into one inside a single transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/merge/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Store opens the merge transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error
}

// Request names the survivor, the lead folded into it and which fields to
// take from the merged lead ("survivor" or "merged" per field).
type Request struct {
	SurvivorID     uuid.UUID
	MergedID       uuid.UUID
	FieldSelection map[string]string
	ActorID        *uuid.UUID
}

// Result summarises a committed merge.
type Result struct {
	HistoryID           uuid.UUID
	Survivor            domain.Lead
	MergedID            uuid.UUID
	LinksMoved          int64
	CommunicationsMoved int64
	PairsClosed         int64
}

type Service struct {
	store    Store
	eventBus events.Bus
	clock    clock.Clock
	log      *logger.Logger
}

func New(store Store, eventBus events.Bus, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{store: store, eventBus: eventBus, clock: clk, log: log.WithComponent("merge")}
}

func validate(req Request) error {
	if req.SurvivorID == uuid.Nil || req.MergedID == uuid.Nil {
		return apperr.Validation("survivorId and mergedId are required")
	}
	if req.SurvivorID == req.MergedID {
		return apperr.Validation("a lead cannot be merged into itself")
	}

	unknown := make([]string, 0)
	for field, source := range req.FieldSelection {
		if _, ok := mergeableFields[field]; !ok {
			unknown = append(unknown, field)
			continue
		}
		if !strings.EqualFold(source, SourceSurvivor) && !strings.EqualFold(source, SourceMerged) {
			return apperr.Validation(fmt.Sprintf("field %q must be taken from survivor or merged", field))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperr.Validation("unknown merge fields").WithDetails(unknown)
	}
	return nil
}

// Merge folds MergedID into SurvivorID. Either every step commits or none do.
func (s *Service) Merge(ctx context.Context, tenantID uuid.UUID, req Request) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}

	now := s.clock.Now()
	var result Result
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		survivor, merged, err := tx.LockLeads(ctx, tenantID, req.SurvivorID, req.MergedID)
		if err != nil {
			return err
		}

		historyID := uuid.New()
		if err := tx.InsertHistory(ctx, repository.History{
			ID:             historyID,
			TenantID:       tenantID,
			SurvivorID:     survivor.ID,
			MergedID:       merged.ID,
			Snapshot:       snapshot(merged),
			FieldSelection: req.FieldSelection,
			MergedBy:       req.ActorID,
			CreatedAt:      now,
		}); err != nil {
			return fmt.Errorf("write merge history: %w", err)
		}

		updated := applySelection(survivor, merged, req.FieldSelection)
		if err := tx.UpdateLeadFields(ctx, updated); err != nil {
			return fmt.Errorf("update survivor: %w", err)
		}

		links, err := tx.RepointActivityLinks(ctx, tenantID, merged.ID, survivor.ID)
		if err != nil {
			return fmt.Errorf("move activity links: %w", err)
		}
		comms, err := tx.RepointCommunications(ctx, tenantID, merged.ID, survivor.ID)
		if err != nil {
			return fmt.Errorf("move communications: %w", err)
		}
		pairs, err := tx.MarkPairsMerged(ctx, tenantID, merged.ID, req.ActorID, now)
		if err != nil {
			return fmt.Errorf("close duplicate pairs: %w", err)
		}
		if err := tx.SoftDelete(ctx, tenantID, merged.ID); err != nil {
			return fmt.Errorf("delete merged lead: %w", err)
		}

		changes := map[string]any{
			"survivorId":          survivor.ID,
			"mergedId":            merged.ID,
			"historyId":           historyID,
			"fieldSelection":      req.FieldSelection,
			"linksMoved":          links,
			"communicationsMoved": comms,
			"ownerChanged":        ownerChanged(survivor.OwnerID, updated.OwnerID),
		}
		if err := tx.Audit(ctx, audit.Entry{
			TenantID:   tenantID,
			EntityType: string(domain.EntityLead),
			EntityID:   survivor.ID,
			Action:     audit.ActionMerged,
			Changes:    changes,
			ActorID:    req.ActorID,
		}); err != nil {
			return fmt.Errorf("write audit entry: %w", err)
		}

		result = Result{
			HistoryID:           historyID,
			Survivor:            updated,
			MergedID:            merged.ID,
			LinksMoved:          links,
			CommunicationsMoved: comms,
			PairsClosed:         pairs,
		}
		return nil
	})
	if errors.Is(err, repository.ErrLeadNotFound) {
		return Result{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return Result{}, fmt.Errorf("merge leads: %w", err)
	}

	s.log.Info("leads merged", "tenantId", tenantID, "survivorId", req.SurvivorID, "mergedId", req.MergedID,
		"linksMoved", result.LinksMoved, "pairsClosed", result.PairsClosed)
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadsMerged{
			BaseEvent:  events.NewBaseEventAt(s.clock.Now()),
			TenantID:   tenantID,
			SurvivorID: req.SurvivorID,
			MergedID:   req.MergedID,
			ActorID:    req.ActorID,
		})
	}
	return result, nil
}
