package handler

import (
	"net/http"

	"leadflow_backend/internal/merge/service"
	"leadflow_backend/internal/merge/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler handles lead merge requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// MergeLeads folds one lead into another.
// POST /api/v1/leads/merge
func (h *Handler) MergeLeads(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.MergeLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.Describe(err))
		return
	}

	actor := identity.UserID()
	result, err := h.svc.Merge(c.Request.Context(), identity.TenantID(), service.Request{
		SurvivorID:     req.SurvivorID,
		MergedID:       req.MergedID,
		FieldSelection: req.FieldSelection,
		ActorID:        &actor,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.MergeLeadsResponse{
		HistoryID:           result.HistoryID,
		SurvivorID:          result.Survivor.ID,
		MergedID:            result.MergedID,
		LinksMoved:          result.LinksMoved,
		CommunicationsMoved: result.CommunicationsMoved,
		PairsClosed:         result.PairsClosed,
	})
}
