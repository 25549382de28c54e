package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/scoring/repository"

	"github.com/google/uuid"
)

type fakeRules struct {
	rules []repository.Rule
	err   error
}

func (f *fakeRules) ListActiveRules(_ context.Context, _ uuid.UUID) ([]repository.Rule, error) {
	return f.rules, f.err
}

func (f *fakeRules) ListActiveRulesByCategory(_ context.Context, _ uuid.UUID, category string) ([]repository.Rule, error) {
	out := make([]repository.Rule, 0)
	for _, r := range f.rules {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out, f.err
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []repository.HistoryEntry
}

func (f *fakeHistory) InsertHistory(_ context.Context, entry repository.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistory) ListHistory(_ context.Context, _, leadID uuid.UUID, _ int) ([]repository.HistoryEntry, error) {
	out := make([]repository.HistoryEntry, 0)
	for _, e := range f.entries {
		if e.LeadID == leadID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeLeads struct {
	mu           sync.Mutex
	leads        map[uuid.UUID]*domain.Lead
	order        []uuid.UUID
	lastActivity map[uuid.UUID]time.Time
	failUpdate   map[uuid.UUID]bool
}

func newFakeLeads(leads ...domain.Lead) *fakeLeads {
	f := &fakeLeads{
		leads:        make(map[uuid.UUID]*domain.Lead),
		lastActivity: make(map[uuid.UUID]time.Time),
		failUpdate:   make(map[uuid.UUID]bool),
	}
	for i := range leads {
		l := leads[i]
		f.leads[l.ID] = &l
		f.order = append(f.order, l.ID)
	}
	return f
}

func (f *fakeLeads) GetByID(_ context.Context, _, id uuid.UUID) (domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, leadrepo.ErrNotFound
	}
	return *l, nil
}

func (f *fakeLeads) ListScorable(_ context.Context, _ uuid.UUID) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, id := range f.order {
		l := f.leads[id]
		if l.IsActive && !l.IsDeleted && l.Status != domain.StatusConverted {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLeads) LastActivityAt(_ context.Context, _, leadID uuid.UUID) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.lastActivity[leadID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeLeads) UpdateScore(_ context.Context, _, id uuid.UUID, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate[id] {
		return errors.New("update failed")
	}
	l, ok := f.leads[id]
	if !ok {
		return leadrepo.ErrNotFound
	}
	l.Score = score
	return nil
}

func (f *fakeLeads) score(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leads[id].Score
}

func (f *fakeLeads) setPhone(id uuid.UUID, phone string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads[id].Phone = phone
}
