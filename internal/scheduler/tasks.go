package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskDuplicateCheck = "duplicates.check"

const TaskRecalculateScores = "scoring.recalculate"

type DuplicateCheckPayload struct {
	TenantID string `json:"tenantId"`
	LeadID   string `json:"leadId"`
}

type RecalculateScoresPayload struct {
	TenantID string `json:"tenantId"`
}

func NewDuplicateCheckTask(payload DuplicateCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDuplicateCheck, data), nil
}

func ParseDuplicateCheckPayload(task *asynq.Task) (DuplicateCheckPayload, error) {
	var payload DuplicateCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DuplicateCheckPayload{}, err
	}
	return payload, nil
}

func NewRecalculateScoresTask(payload RecalculateScoresPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecalculateScores, data), nil
}

func ParseRecalculateScoresPayload(task *asynq.Task) (RecalculateScoresPayload, error) {
	var payload RecalculateScoresPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecalculateScoresPayload{}, err
	}
	return payload, nil
}
