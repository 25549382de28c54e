package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TriggerRequest struct {
	EntityType string          `json:"entityType" validate:"required,oneof=Lead Opportunity Account Activity"`
	EntityID   uuid.UUID       `json:"entityId" validate:"required"`
	Event      string          `json:"event" validate:"required,max=100"`
	Context    json.RawMessage `json:"context,omitempty"`
}

type ExecutionResponse struct {
	ID           uuid.UUID       `json:"id"`
	RuleID       uuid.UUID       `json:"ruleId"`
	RuleName     string          `json:"ruleName,omitempty"`
	EntityType   string          `json:"entityType,omitempty"`
	EntityID     *uuid.UUID      `json:"entityId,omitempty"`
	Status       string          `json:"status"`
	ScheduledFor time.Time       `json:"scheduledFor"`
	ExecutedAt   *time.Time      `json:"executedAt,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

type TriggerResponse struct {
	Evaluated  int                 `json:"evaluated"`
	Executions []ExecutionResponse `json:"executions"`
}

type ProcessRequest struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=1000"`
}

type ProcessResponse struct {
	Claimed   int `json:"claimed"`
	Executed  int `json:"executed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Conflicts int `json:"conflicts"`
}

type ExecutionListResponse struct {
	Items []ExecutionResponse `json:"items"`
}
