package capture

import (
	"strings"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/sanitize"
)

const defaultSource = "WebForm"

// mapSubmission builds an unsaved lead from the submitted label/value pairs.
// Values for labels the form does not define are ignored.
func mapSubmission(form Form, values map[string]string) domain.Lead {
	lead := domain.Lead{
		TenantID: form.TenantID,
		Source:   form.DefaultSource,
		Status:   domain.StatusNew,
	}
	if strings.TrimSpace(lead.Source) == "" {
		lead.Source = defaultSource
	}

	var extra []string
	for _, field := range form.Fields {
		value := sanitize.Text(lookup(values, field.Label))
		if value == "" {
			continue
		}

		switch strings.TrimSpace(field.MappedField) {
		case "firstName":
			lead.FirstName = value
		case "lastName":
			lead.LastName = value
		case "email":
			lead.Email = strings.ToLower(value)
		case "phone":
			lead.Phone = value
		case "companyName":
			lead.CompanyName = value
		case "jobTitle":
			lead.JobTitle = value
		case "city":
			lead.City = value
		case "state":
			lead.State = value
		case "country":
			lead.Country = value
		case "notes":
			lead.Notes = value
		default:
			extra = append(extra, field.Label+": "+value)
		}
	}

	if len(extra) > 0 {
		lines := strings.Join(extra, "\n")
		if lead.Notes == "" {
			lead.Notes = lines
		} else {
			lead.Notes += "\n" + lines
		}
	}
	return lead
}

// lookup prefers an exact label match and falls back to a case-insensitive one.
func lookup(values map[string]string, label string) string {
	if v, ok := values[label]; ok {
		return v
	}
	for k, v := range values {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(label)) {
			return v
		}
	}
	return ""
}
