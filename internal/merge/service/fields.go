package service

import (
	"strings"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

const (
	SourceSurvivor = "survivor"
	SourceMerged   = "merged"
)

type fieldCopier func(dst *domain.Lead, src domain.Lead)

// mergeableFields lists the lead fields a caller may take from the merged lead.
var mergeableFields = map[string]fieldCopier{
	"firstName":   func(d *domain.Lead, s domain.Lead) { d.FirstName = s.FirstName },
	"lastName":    func(d *domain.Lead, s domain.Lead) { d.LastName = s.LastName },
	"email":       func(d *domain.Lead, s domain.Lead) { d.Email = s.Email },
	"phone":       func(d *domain.Lead, s domain.Lead) { d.Phone = s.Phone },
	"companyName": func(d *domain.Lead, s domain.Lead) { d.CompanyName = s.CompanyName },
	"jobTitle":    func(d *domain.Lead, s domain.Lead) { d.JobTitle = s.JobTitle },
	"city":        func(d *domain.Lead, s domain.Lead) { d.City = s.City },
	"state":       func(d *domain.Lead, s domain.Lead) { d.State = s.State },
	"country":     func(d *domain.Lead, s domain.Lead) { d.Country = s.Country },
	"source":      func(d *domain.Lead, s domain.Lead) { d.Source = s.Source },
	"status":      func(d *domain.Lead, s domain.Lead) { d.Status = s.Status },
	"score":       func(d *domain.Lead, s domain.Lead) { d.Score = s.Score },
	"ownerId":     func(d *domain.Lead, s domain.Lead) { d.OwnerID = s.OwnerID },
}

// applySelection returns the survivor with the selected fields taken from
// merged. Notes are always concatenated.
func applySelection(survivor, merged domain.Lead, selection map[string]string) domain.Lead {
	out := survivor
	for field, source := range selection {
		if strings.EqualFold(source, SourceMerged) {
			mergeableFields[field](&out, merged)
		}
	}
	out.Notes = joinNotes(survivor.Notes, merged.Notes)
	return out
}

func joinNotes(survivor, merged string) string {
	survivor = strings.TrimSpace(survivor)
	merged = strings.TrimSpace(merged)
	switch {
	case merged == "":
		return survivor
	case survivor == "":
		return merged
	default:
		return survivor + "\n\n" + merged
	}
}

// snapshot captures every field of the merged lead for the history record.
func snapshot(l domain.Lead) map[string]any {
	var owner any
	if l.OwnerID != nil {
		owner = l.OwnerID.String()
	}
	var converted any
	if l.ConvertedAt != nil {
		converted = *l.ConvertedAt
	}
	return map[string]any{
		"id":              l.ID.String(),
		"firstName":       l.FirstName,
		"lastName":        l.LastName,
		"email":           l.Email,
		"phone":           l.Phone,
		"phoneNormalized": l.PhoneNormalized,
		"companyName":     l.CompanyName,
		"jobTitle":        l.JobTitle,
		"city":            l.City,
		"state":           l.State,
		"country":         l.Country,
		"source":          l.Source,
		"notes":           l.Notes,
		"status":          string(l.Status),
		"score":           l.Score,
		"ownerId":         owner,
		"isActive":        l.IsActive,
		"createdAt":       l.CreatedAt,
		"updatedAt":       l.UpdatedAt,
		"convertedAt":     converted,
	}
}

func ownerChanged(before, after *uuid.UUID) bool {
	if before == nil || after == nil {
		return before != after
	}
	return *before != *after
}
