package transport

import (
	"time"

	"github.com/google/uuid"
)

type PairResponse struct {
	ID         uuid.UUID  `json:"id"`
	LeadAID    uuid.UUID  `json:"leadAId"`
	LeadBID    uuid.UUID  `json:"leadBId"`
	MatchType  string     `json:"matchType"`
	Confidence int        `json:"confidence"`
	Status     string     `json:"status"`
	ResolvedBy *uuid.UUID `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type PairListResponse struct {
	Items []PairResponse `json:"items"`
}

type ResolvePairRequest struct {
	Status string `json:"status" validate:"required,oneof=Merged Rejected"`
}
