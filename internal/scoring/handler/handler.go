package handler

import (
	"context"
	"net/http"

	"leadflow_backend/internal/scoring/service"
	"leadflow_backend/internal/scoring/transport"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidLeadID = "invalid lead id"

// RecalculationQueue hands tenant-wide recalculation to the background worker.
type RecalculationQueue interface {
	EnqueueRecalculateScores(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// Handler handles HTTP requests for lead scoring.
type Handler struct {
	svc   *service.Service
	queue RecalculationQueue
}

// New creates a new scoring handler.
func New(svc *service.Service, queue RecalculationQueue) *Handler {
	return &Handler{svc: svc, queue: queue}
}

// ScoreLead recomputes and persists a lead's score.
// POST /api/v1/leads/:id/score
func (h *Handler) ScoreLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ScoreLead(c.Request.Context(), identity.TenantID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ScoreResponse{
		LeadID:        result.LeadID,
		PreviousScore: result.PreviousScore,
		Score:         result.Score,
		Changed:       result.Changed,
	})
}

// GetBreakdown explains a lead's score.
// GET /api/v1/leads/:id/score/breakdown
func (h *Handler) GetBreakdown(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	breakdown, err := h.svc.BreakdownForLead(c.Request.Context(), identity.TenantID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.BreakdownItemResponse, 0, len(breakdown.Items))
	for _, item := range breakdown.Items {
		items = append(items, transport.BreakdownItemResponse{
			RuleID:         item.RuleID,
			RuleName:       item.RuleName,
			Category:       item.Category,
			ConditionField: item.ConditionField,
			Points:         item.Points,
			Applied:        item.Applied,
		})
	}
	httpkit.OK(c, transport.BreakdownResponse{
		LeadID:     breakdown.LeadID,
		TotalScore: breakdown.TotalScore,
		Heuristic:  breakdown.Heuristic,
		Items:      items,
	})
}

// GetHistory lists recent score changes.
// GET /api/v1/leads/:id/score/history
func (h *Handler) GetHistory(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	entries, err := h.svc.History(c.Request.Context(), identity.TenantID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.HistoryItemResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, transport.HistoryItemResponse{
			ID:            e.ID,
			PreviousScore: e.PreviousScore,
			NewScore:      e.NewScore,
			Change:        e.Change,
			Reason:        e.Reason,
			RuleID:        e.RuleID,
			CreatedAt:     e.CreatedAt,
		})
	}
	httpkit.OK(c, transport.HistoryResponse{Items: items})
}

// RecalculateAll queues a tenant-wide rescoring pass.
// POST /api/v1/scoring/recalculate
func (h *Handler) RecalculateAll(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	taskID, err := h.queue.EnqueueRecalculateScores(c.Request.Context(), identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.RecalculateResponse{TaskID: taskID})
}
