// Package domain provides core business types for the leads bounded context.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a lead.
type Status string

const (
	StatusNew         Status = "New"
	StatusContacted   Status = "Contacted"
	StatusQualified   Status = "Qualified"
	StatusUnqualified Status = "Unqualified"
	StatusConverted   Status = "Converted"
)

var knownStatuses = []Status{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusUnqualified,
	StatusConverted,
}

// ParseStatus resolves a status name case-insensitively.
func ParseStatus(value string) (Status, bool) {
	trimmed := strings.TrimSpace(value)
	for _, s := range knownStatuses {
		if strings.EqualFold(string(s), trimmed) {
			return s, true
		}
	}
	return "", false
}

// IsTerminal reports whether a lead in this status can no longer change status.
func (s Status) IsTerminal() bool {
	return s == StatusConverted
}

// CanTransitionTo reports whether a lead may move from s to next.
// Re-applying the current status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	return s == next || !s.IsTerminal()
}

// CountsTowardCapacity reports whether a lead in this status occupies an owner's capacity.
func (s Status) CountsTowardCapacity() bool {
	return s == StatusNew || s == StatusContacted || s == StatusQualified
}

// OpenStatuses are the statuses counted against an assignee's capacity ceiling.
func OpenStatuses() []string {
	open := make([]string, 0, len(knownStatuses))
	for _, s := range knownStatuses {
		if s.CountsTowardCapacity() {
			open = append(open, string(s))
		}
	}
	return open
}

// Lead is a prospective customer record.
type Lead struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	PhoneNormalized string
	CompanyName     string
	JobTitle        string
	City            string
	State           string
	Country         string
	Source          string
	Notes           string
	Status          Status
	Score           int
	OwnerID         *uuid.UUID
	IsActive        bool
	IsDeleted       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ConvertedAt     *time.Time
}

// FullName joins first and last name with a single space.
func (l Lead) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(l.FirstName) + " " + strings.TrimSpace(l.LastName))
}

// HasAddress reports whether the lead carries a city or a country.
func (l Lead) HasAddress() bool {
	return strings.TrimSpace(l.City) != "" || strings.TrimSpace(l.Country) != ""
}
