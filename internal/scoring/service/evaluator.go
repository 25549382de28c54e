package service

import (
	"strings"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/scoring/repository"
)

// Built-in condition fields with dedicated predicates.
const (
	FieldHasEmail         = "HasEmail"
	FieldHasPhone         = "HasPhone"
	FieldHasCompanyName   = "HasCompanyName"
	FieldHasJobTitle      = "HasJobTitle"
	FieldSourceEquals     = "SourceEquals"
	FieldStatusEquals     = "StatusEquals"
	FieldHasAddress       = "HasAddress"
	FieldCompetitorDomain = "CompetitorDomain"
	FieldUnsubscribed     = "Unsubscribed"
	FieldBouncedEmail     = "BouncedEmail"
)

// Operators understood by the generic evaluator.
const (
	OpEquals    = "Equals"
	OpContains  = "Contains"
	OpExists    = "Exists"
	OpNotExists = "NotExists"
)

const (
	minScore = 0
	maxScore = 100
)

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func present(value string) bool {
	return strings.TrimSpace(value) != ""
}

// evaluateRule reports whether rule applies to lead. It never fails: anything
// it cannot interpret is false.
func evaluateRule(rule repository.Rule, lead domain.Lead) bool {
	switch rule.ConditionField {
	case FieldHasEmail:
		return present(lead.Email)
	case FieldHasPhone:
		return present(lead.Phone)
	case FieldHasCompanyName:
		return present(lead.CompanyName)
	case FieldHasJobTitle:
		return present(lead.JobTitle)
	case FieldSourceEquals:
		return lead.Source == rule.ConditionValue
	case FieldStatusEquals:
		return string(lead.Status) == rule.ConditionValue
	case FieldHasAddress:
		return lead.HasAddress()
	case FieldCompetitorDomain:
		return present(rule.ConditionValue) &&
			strings.Contains(strings.ToLower(lead.Email), strings.ToLower(rule.ConditionValue))
	case FieldUnsubscribed, FieldBouncedEmail:
		// Tracked by communication delivery, which does not feed the score yet.
		return false
	default:
		return evaluateGeneric(rule, lead)
	}
}

func evaluateGeneric(rule repository.Rule, lead domain.Lead) bool {
	value, ok := fieldValue(lead, rule.ConditionField)
	if !ok {
		return rule.ConditionOperator == OpNotExists
	}

	switch rule.ConditionOperator {
	case OpEquals:
		return strings.EqualFold(value, rule.ConditionValue)
	case OpContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(rule.ConditionValue))
	case OpExists:
		return present(value)
	case OpNotExists:
		return !present(value)
	default:
		return false
	}
}

func fieldValue(lead domain.Lead, field string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "email":
		return lead.Email, true
	case "phone":
		return lead.Phone, true
	case "companyname":
		return lead.CompanyName, true
	case "jobtitle":
		return lead.JobTitle, true
	case "source":
		return lead.Source, true
	case "status":
		return string(lead.Status), true
	case "city":
		return lead.City, true
	case "state":
		return lead.State, true
	case "country":
		return lead.Country, true
	default:
		return "", false
	}
}

// heuristicScore rates contact completeness when a tenant has no rules.
func heuristicScore(lead domain.Lead) int {
	score := 0
	if present(lead.Email) {
		score += 25
	}
	if present(lead.Phone) {
		score += 20
	}
	if present(lead.CompanyName) {
		score += 20
	}
	if present(lead.JobTitle) {
		score += 15
	}
	if lead.HasAddress() {
		score += 10
	}
	if present(lead.FirstName) && present(lead.LastName) {
		score += 10
	}
	return clamp(score)
}
