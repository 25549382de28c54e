package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
)

// ActionType names one of the closed set of workflow actions.
type ActionType string

const (
	ActionCreateTask         ActionType = "CreateTask"
	ActionSendNotification   ActionType = "SendNotification"
	ActionChangeStatus       ActionType = "ChangeStatus"
	ActionArchive            ActionType = "Archive"
	ActionUpdateEntityStatus ActionType = "UpdateEntityStatus"
	ActionCreateFollowUp     ActionType = "CreateFollowUp"
	ActionAssignActivity     ActionType = "AssignActivity"
)

// Action is a decoded action configuration. Exactly one variant exists per
// ActionType.
type Action interface {
	Type() ActionType
}

type CreateTask struct {
	Subject      string
	Description  string
	ActivityType string `validate:"max=50"`
}

type SendNotification struct {
	Title   string
	Message string
	EmailTo []string `validate:"omitempty,dive,email"`
}

type ChangeStatus struct {
	Status string `validate:"required"`
}

type Archive struct{}

type UpdateEntityStatus struct {
	Status string `validate:"required"`
}

type CreateFollowUp struct {
	Subject     string
	Description string
	DaysAfter   int `validate:"min=0,max=365"`
}

type AssignActivity struct {
	AssignToUserID uuid.UUID `validate:"required"`
}

func (CreateTask) Type() ActionType         { return ActionCreateTask }
func (SendNotification) Type() ActionType   { return ActionSendNotification }
func (ChangeStatus) Type() ActionType       { return ActionChangeStatus }
func (Archive) Type() ActionType            { return ActionArchive }
func (UpdateEntityStatus) Type() ActionType { return ActionUpdateEntityStatus }
func (CreateFollowUp) Type() ActionType     { return ActionCreateFollowUp }
func (AssignActivity) Type() ActionType     { return ActionAssignActivity }

// UnknownActionError reports an action type outside the closed set.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return "Unknown action type: " + e.Name
}

// DecodeAction turns a stored action type and its JSON configuration into a
// typed, validated Action.
func DecodeAction(actionType, rawConfig string, val *validator.Validator) (Action, error) {
	config, err := parseConfig(rawConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid action config: %w", err)
	}

	var action Action
	switch ActionType(actionType) {
	case ActionCreateTask:
		action = CreateTask{
			Subject:      config["subject"],
			Description:  config["description"],
			ActivityType: config["activityType"],
		}
	case ActionSendNotification:
		action = SendNotification{
			Title:   config["title"],
			Message: config["message"],
			EmailTo: splitRecipients(config["emailTo"]),
		}
	case ActionChangeStatus:
		action = ChangeStatus{Status: strings.TrimSpace(config["status"])}
	case ActionArchive:
		action = Archive{}
	case ActionUpdateEntityStatus:
		action = UpdateEntityStatus{Status: strings.TrimSpace(config["status"])}
	case ActionCreateFollowUp:
		days := 1
		if raw, ok := config["daysAfter"]; ok {
			if parsed, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				days = parsed
			}
		}
		action = CreateFollowUp{
			Subject:     config["subject"],
			Description: config["description"],
			DaysAfter:   days,
		}
	case ActionAssignActivity:
		userID, _ := uuid.Parse(strings.TrimSpace(config["assignToUserId"]))
		action = AssignActivity{AssignToUserID: userID}
	default:
		return nil, &UnknownActionError{Name: actionType}
	}

	if err := val.Struct(action); err != nil {
		return nil, fmt.Errorf("%s config: %s", actionType, validator.Describe(err))
	}
	return action, nil
}

// parseConfig reads a flat JSON object. Scalar values are accepted in any JSON
// type and kept as their string form; arrays of scalars are joined with commas.
func parseConfig(raw string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}

	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	for key, value := range values {
		switch v := value.(type) {
		case nil:
		case string:
			out[key] = v
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, fmt.Errorf("field %q must not be an object", key)
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func splitRecipients(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
