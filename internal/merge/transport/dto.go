package transport

import "github.com/google/uuid"

type MergeLeadsRequest struct {
	SurvivorID     uuid.UUID         `json:"survivorId" validate:"required"`
	MergedID       uuid.UUID         `json:"mergedId" validate:"required,nefield=SurvivorID"`
	FieldSelection map[string]string `json:"fieldSelection" validate:"omitempty,dive,keys,required,endkeys,required"`
}

type MergeLeadsResponse struct {
	HistoryID           uuid.UUID `json:"historyId"`
	SurvivorID          uuid.UUID `json:"survivorId"`
	MergedID            uuid.UUID `json:"mergedId"`
	LinksMoved          int64     `json:"linksMoved"`
	CommunicationsMoved int64     `json:"communicationsMoved"`
	PairsClosed         int64     `json:"pairsClosed"`
}
