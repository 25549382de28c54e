package service

import (
	"encoding/json"
	"strings"
)

// conditionOutcome explains how a rule condition was decided.
type conditionOutcome int

const (
	conditionMatched conditionOutcome = iota
	conditionRejected
	conditionMalformed
)

// evaluateCondition checks a stored condition against an event context.
// A missing condition matches. A condition with no context does not.
// Undecodable data matches so that a broken rule still fires.
func evaluateCondition(rawCondition string, rawContext []byte) conditionOutcome {
	if strings.TrimSpace(rawCondition) == "" {
		return conditionMatched
	}
	if len(strings.TrimSpace(string(rawContext))) == 0 {
		return conditionRejected
	}

	var condition, context map[string]string
	if err := json.Unmarshal([]byte(rawCondition), &condition); err != nil {
		return conditionMalformed
	}
	if err := json.Unmarshal(rawContext, &context); err != nil {
		return conditionMalformed
	}
	if condition == nil || context == nil {
		return conditionMatched
	}

	for key, want := range condition {
		got, ok := context[key]
		if !ok || !strings.EqualFold(got, want) {
			return conditionRejected
		}
	}
	return conditionMatched
}
