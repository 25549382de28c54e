package handler

import (
	"errors"
	"io"
	"net/http"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/workflow/repository"
	"leadflow_backend/internal/workflow/service"
	"leadflow_backend/internal/workflow/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for workflow automation.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Trigger evaluates the tenant's rules for an entity event.
// POST /api/v1/workflows/trigger
func (h *Handler) Trigger(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.Describe(err))
		return
	}

	result, err := h.svc.Trigger(c.Request.Context(), identity.TenantID(), service.TriggerInput{
		EntityType: domain.EntityType(req.EntityType),
		EntityID:   req.EntityID,
		Event:      req.Event,
		Context:    req.Context,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.TriggerResponse{
		Evaluated:  result.Evaluated,
		Executions: make([]transport.ExecutionResponse, 0, len(result.Executions)),
	}
	for _, e := range result.Executions {
		resp.Executions = append(resp.Executions, transport.ExecutionResponse{
			ID:           e.ID,
			RuleID:       e.RuleID,
			RuleName:     e.RuleName,
			Status:       e.Status,
			ScheduledFor: e.ScheduledFor,
			Result:       e.Result,
		})
	}
	httpkit.OK(c, resp)
}

// ProcessPending runs due executions for the caller's tenant.
// POST /api/v1/workflows/executions/process
func (h *Handler) ProcessPending(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.Describe(err))
		return
	}

	tenantID := identity.TenantID()
	result, err := h.svc.ProcessPending(c.Request.Context(), service.ProcessOptions{TenantID: &tenantID, Limit: req.Limit})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ProcessResponse(result))
}

// ListExecutions returns recent executions for an entity.
// GET /api/v1/workflows/executions?entityType=Lead&entityId=...
func (h *Handler) ListExecutions(c *gin.Context) {
	entityType, ok := domain.ParseEntityType(c.Query("entityType"))
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "invalid entity type", nil)
		return
	}
	entityID, err := uuid.Parse(c.Query("entityId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid entity id", nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.ListExecutions(c.Request.Context(), identity.TenantID(), entityType, entityID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ExecutionListResponse{Items: make([]transport.ExecutionResponse, 0, len(items))}
	for _, e := range items {
		resp.Items = append(resp.Items, toResponse(e))
	}
	httpkit.OK(c, resp)
}

func toResponse(e repository.Execution) transport.ExecutionResponse {
	entityID := e.EntityID
	return transport.ExecutionResponse{
		ID:           e.ID,
		RuleID:       e.RuleID,
		EntityType:   e.EntityType,
		EntityID:     &entityID,
		Status:       e.Status,
		ScheduledFor: e.ScheduledFor,
		ExecutedAt:   e.ExecutedAt,
		Result:       e.Result,
	}
}
