package transport

import "github.com/google/uuid"

type SubmitFormRequest struct {
	Fields map[string]string `json:"fields" validate:"required,min=1,max=50,dive,keys,required,max=200,endkeys,max=5000"`
}

type SubmitFormResponse struct {
	LeadID               uuid.UUID `json:"leadId"`
	Created              bool      `json:"created"`
	DuplicateCheckTaskID string    `json:"duplicateCheckTaskId,omitempty"`
}
