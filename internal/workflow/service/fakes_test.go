package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/workflow/repository"

	"github.com/google/uuid"
)

type memoryRules struct {
	rules []repository.Rule
}

func (m *memoryRules) ListActiveRules(_ context.Context, tenantID uuid.UUID, entityType, event string) ([]repository.Rule, error) {
	out := make([]repository.Rule, 0)
	for _, r := range m.rules {
		if r.TenantID == tenantID && r.EntityType == entityType && r.TriggerEvent == event && r.IsActive && !r.IsDeleted {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRules) GetRule(_ context.Context, tenantID, id uuid.UUID) (repository.Rule, error) {
	for _, r := range m.rules {
		if r.ID == id && r.TenantID == tenantID {
			return r, nil
		}
	}
	return repository.Rule{}, repository.ErrRuleNotFound
}

func (m *memoryRules) set(rule repository.Rule) {
	for i := range m.rules {
		if m.rules[i].ID == rule.ID {
			m.rules[i] = rule
		}
	}
}

type memoryExecutions struct {
	mu    sync.Mutex
	items []repository.Execution
}

func (m *memoryExecutions) InsertExecution(_ context.Context, e repository.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, e)
	return nil
}

func (m *memoryExecutions) ClaimDue(_ context.Context, f repository.ClaimFilter) ([]repository.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Execution, 0)
	for i := range m.items {
		e := &m.items[i]
		if e.Status != repository.StatusPending || e.ScheduledFor.After(f.Now) {
			continue
		}
		if e.ClaimedAt != nil && !e.ClaimedAt.Before(f.LeaseCutoff) {
			continue
		}
		if f.TenantID != nil && e.TenantID != *f.TenantID {
			continue
		}
		now := f.Now
		e.ClaimedAt = &now
		out = append(out, *e)
		if len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryExecutions) Finish(_ context.Context, _, id uuid.UUID, status string, result json.RawMessage, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			if m.items[i].Status != repository.StatusPending {
				return false, nil
			}
			m.items[i].Status = status
			m.items[i].Result = result
			m.items[i].ExecutedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryExecutions) ListExecutions(_ context.Context, _ uuid.UUID, entityType string, entityID uuid.UUID, _ int) ([]repository.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Execution, 0)
	for _, e := range m.items {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryExecutions) all() []repository.Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.Execution(nil), m.items...)
}

type memoryLeads struct {
	leads map[uuid.UUID]domain.Lead
}

func (m *memoryLeads) GetByID(_ context.Context, _, id uuid.UUID) (domain.Lead, error) {
	l, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, leadrepo.ErrNotFound
	}
	return l, nil
}

func (m *memoryLeads) UpdateStatus(_ context.Context, _, id uuid.UUID, status domain.Status) (domain.Status, error) {
	l, ok := m.leads[id]
	if !ok {
		return "", leadrepo.ErrNotFound
	}
	previous := l.Status
	if !previous.CanTransitionTo(status) {
		return previous, leadrepo.ErrTerminalStatus
	}
	l.Status = status
	m.leads[id] = l
	return previous, nil
}

func (m *memoryLeads) Archive(_ context.Context, _, id uuid.UUID) error {
	l, ok := m.leads[id]
	if !ok {
		return leadrepo.ErrNotFound
	}
	l.IsActive = false
	m.leads[id] = l
	return nil
}

type createdActivity struct {
	activity domain.Activity
	links    []domain.ActivityLink
}

type memoryActivities struct {
	created       []createdActivity
	activities    map[uuid.UUID]domain.Activity
	opportunities map[uuid.UUID]domain.Opportunity
}

func (m *memoryActivities) CreateActivity(_ context.Context, a *domain.Activity, links []domain.ActivityLink) error {
	a.ID = uuid.New()
	m.created = append(m.created, createdActivity{activity: *a, links: links})
	return nil
}

func (m *memoryActivities) AssignActivity(_ context.Context, _, id, userID uuid.UUID) error {
	a, ok := m.activities[id]
	if !ok {
		return leadrepo.ErrActivityNotFound
	}
	a.AssignedTo = &userID
	m.activities[id] = a
	return nil
}

func (m *memoryActivities) GetOpportunity(_ context.Context, _, id uuid.UUID) (domain.Opportunity, error) {
	o, ok := m.opportunities[id]
	if !ok {
		return domain.Opportunity{}, leadrepo.ErrOpportunityNotFound
	}
	return o, nil
}

func (m *memoryActivities) UpdateOpportunityStatus(_ context.Context, _, id uuid.UUID, status string) error {
	o, ok := m.opportunities[id]
	if !ok {
		return leadrepo.ErrOpportunityNotFound
	}
	o.Status = status
	m.opportunities[id] = o
	return nil
}

type recordingNotifier struct {
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, _ uuid.UUID, n notification.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Log(_ context.Context, e audit.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}
