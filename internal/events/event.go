// Package events defines the lead lifecycle events the engine modules
// exchange. Every event is tenant scoped. The bus itself lives in
// platform/events.
package events

import (
	"leadflow_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	TenantEvent = events.TenantEvent
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCaptured is published after a lead was created by the capture pipeline.
type LeadCaptured struct {
	BaseEvent
	LeadID   uuid.UUID  `json:"leadId"`
	TenantID uuid.UUID  `json:"tenantId"`
	FormID   *uuid.UUID `json:"formId,omitempty"`
	Source   string     `json:"source"`
	Status   string     `json:"status"`
}

func (e LeadCaptured) EventName() string        { return "leads.lead.captured" }
func (e LeadCaptured) EventTenantID() uuid.UUID { return e.TenantID }

// LeadStatusChanged is published when automation moves a lead to a new status.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	TenantID  uuid.UUID `json:"tenantId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string        { return "leads.lead.status_changed" }
func (e LeadStatusChanged) EventTenantID() uuid.UUID { return e.TenantID }

// LeadAssigned is published when the assignment engine picked an owner.
type LeadAssigned struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	OwnerID  uuid.UUID `json:"ownerId"`
	RuleID   uuid.UUID `json:"ruleId"`
	Strategy string    `json:"strategy"`
}

func (e LeadAssigned) EventName() string        { return "leads.lead.assigned" }
func (e LeadAssigned) EventTenantID() uuid.UUID { return e.TenantID }

// =============================================================================
// Duplicate Events
// =============================================================================

// DuplicatesDetected is published when a check produced one or more pairs.
type DuplicatesDetected struct {
	BaseEvent
	LeadID   uuid.UUID   `json:"leadId"`
	TenantID uuid.UUID   `json:"tenantId"`
	PairIDs  []uuid.UUID `json:"pairIds"`
}

func (e DuplicatesDetected) EventName() string        { return "duplicates.detected" }
func (e DuplicatesDetected) EventTenantID() uuid.UUID { return e.TenantID }

// LeadsMerged is published after a merge transaction committed.
type LeadsMerged struct {
	BaseEvent
	TenantID   uuid.UUID  `json:"tenantId"`
	SurvivorID uuid.UUID  `json:"survivorId"`
	MergedID   uuid.UUID  `json:"mergedId"`
	ActorID    *uuid.UUID `json:"actorId,omitempty"`
}

func (e LeadsMerged) EventName() string        { return "duplicates.leads.merged" }
func (e LeadsMerged) EventTenantID() uuid.UUID { return e.TenantID }

var (
	_ TenantEvent = LeadCaptured{}
	_ TenantEvent = LeadStatusChanged{}
	_ TenantEvent = LeadAssigned{}
	_ TenantEvent = DuplicatesDetected{}
	_ TenantEvent = LeadsMerged{}
)
