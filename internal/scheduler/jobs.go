package scheduler

import (
	"context"
	"fmt"

	dupsrepo "leadflow_backend/internal/duplicates/repository"
	scoring "leadflow_backend/internal/scoring/service"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type DuplicateChecker interface {
	CheckLead(ctx context.Context, tenantID, leadID uuid.UUID) ([]dupsrepo.Pair, error)
}

type ScoreRecalculator interface {
	RecalculateAll(ctx context.Context, tenantID uuid.UUID) (scoring.BatchResult, error)
}

// Jobs holds the work behind each task type. The asynq worker and the
// in-process fallback both run tasks through it.
type Jobs struct {
	Duplicates DuplicateChecker
	Scores     ScoreRecalculator
	Log        *logger.Logger
}

func (j *Jobs) CheckDuplicates(ctx context.Context, tenantID, leadID uuid.UUID) error {
	if j.Duplicates == nil {
		return fmt.Errorf("duplicate detection is not configured")
	}
	pairs, err := j.Duplicates.CheckLead(ctx, tenantID, leadID)
	if err != nil {
		return err
	}
	j.Log.Info("duplicate check finished", "tenantId", tenantID, "leadId", leadID, "pairs", len(pairs))
	return nil
}

func (j *Jobs) RecalculateScores(ctx context.Context, tenantID uuid.UUID) error {
	if j.Scores == nil {
		return fmt.Errorf("scoring is not configured")
	}
	result, err := j.Scores.RecalculateAll(ctx, tenantID)
	if err != nil {
		return err
	}
	j.Log.Info("score recalculation finished", "tenantId", tenantID, "processed", result.Processed, "changed", result.Changed, "failed", result.Failed)
	return nil
}
