package service

import (
	"context"
	"fmt"
	"strings"

	"leadflow_backend/internal/assignment/repository"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	maxCursorAttempts = 5
	seniorScoreFloor  = 40

	SkillSenior = "Senior"
	SkillJunior = "Junior"
)

var territoryKeys = []string{"city", "state", "country"}

// nextIndex advances a round-robin cursor, tolerating cursors left out of
// range after members were deactivated.
func nextIndex(cursor, memberCount int) int {
	next := (cursor + 1) % memberCount
	if next < 0 {
		next += memberCount
	}
	return next
}

// roundRobin claims the next slot with a compare-and-swap on the stored
// cursor and re-reads the cursor when another request won the race.
func (s *Service) roundRobin(ctx context.Context, tenantID uuid.UUID, rule repository.Rule) (*repository.Member, error) {
	members := rule.Members
	cursor := rule.LastAssignedIndex

	for attempt := 0; attempt < maxCursorAttempts; attempt++ {
		next := nextIndex(cursor, len(members))
		ok, err := s.rules.AdvanceCursor(ctx, tenantID, rule.ID, cursor, next)
		if err != nil {
			return nil, fmt.Errorf("advance cursor: %w", err)
		}
		if ok {
			return &members[next], nil
		}

		cursor, err = s.rules.GetCursor(ctx, tenantID, rule.ID)
		if err != nil {
			return nil, fmt.Errorf("reload cursor: %w", err)
		}
	}

	return nil, apperr.Concurrency(fmt.Sprintf("round-robin cursor for rule %q kept moving", rule.Name)).
		WithOp("assignment.roundRobin")
}

// territory assigns the first member when every configured key matches.
func territory(rule repository.Rule, lead domain.Lead) *repository.Member {
	values := map[string]string{"city": lead.City, "state": lead.State, "country": lead.Country}

	present := 0
	for _, key := range territoryKeys {
		want, ok := lookupFold(rule.TerritoryCondition, key)
		if !ok {
			continue
		}
		present++
		if !strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(values[key])) {
			return nil
		}
	}
	if present == 0 {
		return nil
	}
	return &rule.Members[0]
}

func lookupFold(condition map[string]string, key string) (string, bool) {
	for k, v := range condition {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// capacity picks the least-loaded member below their ceiling.
func (s *Service) capacity(ctx context.Context, tenantID uuid.UUID, rule repository.Rule) (*repository.Member, error) {
	ownerIDs := make([]uuid.UUID, 0, len(rule.Members))
	for _, m := range rule.Members {
		ownerIDs = append(ownerIDs, m.UserID)
	}
	counts, err := s.workload.CountOpenByOwner(ctx, tenantID, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("count open leads: %w", err)
	}

	var chosen *repository.Member
	lowest := 0
	for i := range rule.Members {
		m := &rule.Members[i]
		load := counts[m.UserID]
		if load >= m.Capacity {
			continue
		}
		if chosen == nil || load < lowest {
			chosen = m
			lowest = load
		}
	}
	return chosen, nil
}

func skillTier(score int) string {
	if score >= seniorScoreFloor {
		return SkillSenior
	}
	return SkillJunior
}

// skillBased prefers a member whose skill matches the lead's tier.
func skillBased(rule repository.Rule, lead domain.Lead) *repository.Member {
	tier := skillTier(lead.Score)
	for i := range rule.Members {
		if strings.EqualFold(rule.Members[i].SkillLevel, tier) {
			return &rule.Members[i]
		}
	}
	return &rule.Members[0]
}
