package handler

import (
	"net/http"

	"leadflow_backend/internal/leads/capture"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PublicHandler handles unauthenticated web-form submissions.
type PublicHandler struct {
	capture *capture.Service
	val     *validator.Validator
}

func NewPublicHandler(captureSvc *capture.Service, val *validator.Validator) *PublicHandler {
	return &PublicHandler{capture: captureSvc, val: val}
}

// RegisterRoutes registers public form routes under /public/forms.
func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:formId/submissions", h.Submit)
}

// Submit creates a lead from a form submission.
// POST /api/v1/public/forms/:formId/submissions
func (h *PublicHandler) Submit(c *gin.Context) {
	formID, err := uuid.Parse(c.Param("formId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid form id", nil)
		return
	}

	var req transport.SubmitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.Describe(err))
		return
	}

	result, err := h.capture.Submit(c.Request.Context(), capture.Submission{FormID: formID, Fields: req.Fields})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, transport.SubmitFormResponse{
		LeadID:               result.LeadID,
		Created:              result.Created,
		DuplicateCheckTaskID: result.DuplicateCheckTaskID,
	})
}
