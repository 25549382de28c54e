// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "NL"

var separatorStripper = strings.NewReplacer(" ", "", "-", "", "\t", "")

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// MatchKey returns the comparison key used for duplicate detection:
// spaces and dashes removed, then E.164 when the number parses as valid.
// Two inputs that differ only in separators always produce the same key.
func MatchKey(input string) string {
	stripped := separatorStripper.Replace(strings.TrimSpace(input))
	if stripped == "" {
		return ""
	}
	return NormalizeE164(stripped)
}
