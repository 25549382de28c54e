package handler

import (
	"net/http"

	"leadflow_backend/internal/assignment/service"
	"leadflow_backend/internal/assignment/transport"
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for lead assignment.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// AssignLead runs the assignment rules for a lead.
// POST /api/v1/leads/:id/assign
func (h *Handler) AssignLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.AssignLead(c.Request.Context(), identity.TenantID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.AssignResponse{LeadID: leadID}
	if result != nil {
		resp.Assigned = true
		resp.OwnerID = &result.OwnerID
		resp.RuleID = &result.RuleID
		resp.RuleName = result.RuleName
		resp.Strategy = result.Strategy
	}
	httpkit.OK(c, resp)
}
