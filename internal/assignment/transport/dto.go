package transport

import "github.com/google/uuid"

// AssignResponse reports the outcome of an assignment request. Assigned is
// false when no rule produced an owner.
type AssignResponse struct {
	LeadID   uuid.UUID  `json:"leadId"`
	Assigned bool       `json:"assigned"`
	OwnerID  *uuid.UUID `json:"ownerId,omitempty"`
	RuleID   *uuid.UUID `json:"ruleId,omitempty"`
	RuleName string     `json:"ruleName,omitempty"`
	Strategy string     `json:"strategy,omitempty"`
}
