package transport

import (
	"time"

	"github.com/google/uuid"
)

type ScoreResponse struct {
	LeadID        uuid.UUID `json:"leadId"`
	PreviousScore int       `json:"previousScore"`
	Score         int       `json:"score"`
	Changed       bool      `json:"changed"`
}

type BreakdownItemResponse struct {
	RuleID         uuid.UUID `json:"ruleId"`
	RuleName       string    `json:"ruleName"`
	Category       string    `json:"category"`
	ConditionField string    `json:"conditionField"`
	Points         int       `json:"points"`
	Applied        bool      `json:"applied"`
}

type BreakdownResponse struct {
	LeadID     uuid.UUID               `json:"leadId"`
	TotalScore int                     `json:"totalScore"`
	Heuristic  bool                    `json:"heuristic"`
	Items      []BreakdownItemResponse `json:"items"`
}

type HistoryItemResponse struct {
	ID            uuid.UUID  `json:"id"`
	PreviousScore int        `json:"previousScore"`
	NewScore      int        `json:"newScore"`
	Change        int        `json:"change"`
	Reason        string     `json:"reason"`
	RuleID        *uuid.UUID `json:"ruleId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type HistoryResponse struct {
	Items []HistoryItemResponse `json:"items"`
}

type RecalculateResponse struct {
	TaskID string `json:"taskId"`
}
