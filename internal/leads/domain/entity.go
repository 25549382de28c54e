package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType names the record kinds that workflow rules, audit entries and
// activity links refer to.
type EntityType string

const (
	EntityLead        EntityType = "Lead"
	EntityOpportunity EntityType = "Opportunity"
	EntityAccount     EntityType = "Account"
	EntityActivity    EntityType = "Activity"
)

// ParseEntityType resolves an entity type name case-insensitively.
func ParseEntityType(value string) (EntityType, bool) {
	for _, t := range []EntityType{EntityLead, EntityOpportunity, EntityAccount, EntityActivity} {
		if strings.EqualFold(string(t), strings.TrimSpace(value)) {
			return t, true
		}
	}
	return "", false
}

// Opportunity is a qualified sales opportunity, optionally originating from a lead.
type Opportunity struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	LeadID    *uuid.UUID
	Name      string
	Status    string
	OwnerID   *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Activity is a task, call or follow-up linked to one or more entities.
type Activity struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ActivityType string
	Subject      string
	Description  string
	Status       string
	Priority     string
	DueDate      *time.Time
	AssignedTo   *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActivityLink attaches an activity to an entity.
type ActivityLink struct {
	EntityType EntityType
	EntityID   uuid.UUID
}
