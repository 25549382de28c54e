package handler

import (
	"net/http"

	"leadflow_backend/internal/duplicates/repository"
	"leadflow_backend/internal/duplicates/service"
	"leadflow_backend/internal/duplicates/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for duplicate detection.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new duplicates handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// CheckLead runs detection for one lead and returns every pair it produced.
// POST /api/v1/leads/:id/duplicates/check
func (h *Handler) CheckLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	pairs, err := h.svc.CheckLead(c.Request.Context(), identity.TenantID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toListResponse(pairs))
}

// List returns duplicate pairs, optionally filtered with ?status=.
// GET /api/v1/duplicates
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	pairs, err := h.svc.ListPairs(c.Request.Context(), identity.TenantID(), c.Query("status"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toListResponse(pairs))
}

// Resolve marks a pending pair Merged or Rejected.
// PATCH /api/v1/duplicates/:id
func (h *Handler) Resolve(c *gin.Context) {
	pairID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid duplicate pair id", nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ResolvePairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.Describe(err))
		return
	}

	pair, err := h.svc.Resolve(c.Request.Context(), identity.TenantID(), pairID, req.Status, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(pair))
}

func toListResponse(pairs []repository.Pair) transport.PairListResponse {
	items := make([]transport.PairResponse, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, toResponse(p))
	}
	return transport.PairListResponse{Items: items}
}

func toResponse(p repository.Pair) transport.PairResponse {
	return transport.PairResponse{
		ID:         p.ID,
		LeadAID:    p.LeadAID,
		LeadBID:    p.LeadBID,
		MatchType:  p.MatchType,
		Confidence: p.Confidence,
		Status:     p.Status,
		ResolvedBy: p.ResolvedBy,
		ResolvedAt: p.ResolvedAt,
		CreatedAt:  p.CreatedAt,
	}
}
