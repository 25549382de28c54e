package service

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/merge/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tenantID = uuid.MustParse("44444444-4444-4444-4444-444444444444")

type pair struct {
	a, b   uuid.UUID
	status string
}

type state struct {
	leads   map[uuid.UUID]domain.Lead
	links   map[uuid.UUID]uuid.UUID
	comms   map[uuid.UUID]uuid.UUID
	pairs   []pair
	history []repository.History
	audits  []audit.Entry
}

func (s state) clone() state {
	return state{
		leads:   maps.Clone(s.leads),
		links:   maps.Clone(s.links),
		comms:   maps.Clone(s.comms),
		pairs:   append([]pair(nil), s.pairs...),
		history: append([]repository.History(nil), s.history...),
		audits:  append([]audit.Entry(nil), s.audits...),
	}
}

// memoryStore applies a merge to a copy of its state and keeps the copy only
// when the callback succeeds.
type memoryStore struct {
	committed state
	failAt    string
}

func (m *memoryStore) WithinTx(_ context.Context, fn func(tx repository.Tx) error) error {
	work := m.committed.clone()
	if err := fn(&memoryTx{s: &work, failAt: m.failAt}); err != nil {
		return err
	}
	m.committed = work
	return nil
}

type memoryTx struct {
	s      *state
	failAt string
}

var errInjected = errors.New("injected failure")

func (t *memoryTx) fail(step string) error {
	if t.failAt == step {
		return errInjected
	}
	return nil
}

func (t *memoryTx) LockLeads(_ context.Context, _, survivorID, mergedID uuid.UUID) (domain.Lead, domain.Lead, error) {
	survivor, ok1 := t.s.leads[survivorID]
	merged, ok2 := t.s.leads[mergedID]
	if !ok1 || !ok2 || survivor.IsDeleted || merged.IsDeleted {
		return domain.Lead{}, domain.Lead{}, repository.ErrLeadNotFound
	}
	return survivor, merged, nil
}

func (t *memoryTx) InsertHistory(_ context.Context, h repository.History) error {
	if err := t.fail("history"); err != nil {
		return err
	}
	t.s.history = append(t.s.history, h)
	return nil
}

func (t *memoryTx) UpdateLeadFields(_ context.Context, lead domain.Lead) error {
	t.s.leads[lead.ID] = lead
	return nil
}

func (t *memoryTx) RepointActivityLinks(_ context.Context, _, from, to uuid.UUID) (int64, error) {
	var n int64
	for id, entity := range t.s.links {
		if entity == from {
			t.s.links[id] = to
			n++
		}
	}
	return n, t.fail("links")
}

func (t *memoryTx) RepointCommunications(_ context.Context, _, from, to uuid.UUID) (int64, error) {
	var n int64
	for id, entity := range t.s.comms {
		if entity == from {
			t.s.comms[id] = to
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) MarkPairsMerged(_ context.Context, _, mergedID uuid.UUID, _ *uuid.UUID, _ time.Time) (int64, error) {
	var n int64
	for i, p := range t.s.pairs {
		if p.status == "Pending" && (p.a == mergedID || p.b == mergedID) {
			t.s.pairs[i].status = "Merged"
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) SoftDelete(_ context.Context, _, id uuid.UUID) error {
	lead := t.s.leads[id]
	lead.IsActive = false
	lead.IsDeleted = true
	t.s.leads[id] = lead
	return t.fail("delete")
}

func (t *memoryTx) Audit(_ context.Context, entry audit.Entry) error {
	if err := t.fail("audit"); err != nil {
		return err
	}
	t.s.audits = append(t.s.audits, entry)
	return nil
}

type fixture struct {
	store    *memoryStore
	survivor domain.Lead
	merged   domain.Lead
	other    domain.Lead
	linkID   uuid.UUID
	commID   uuid.UUID
}

func newFixture() fixture {
	owner := uuid.New()
	survivor := domain.Lead{ID: uuid.New(), TenantID: tenantID, FirstName: "Anna", LastName: "Jansen",
		Email: "anna@example.com", CompanyName: "Old BV", Notes: "met at fair", Status: domain.StatusContacted, IsActive: true}
	merged := domain.Lead{ID: uuid.New(), TenantID: tenantID, FirstName: "Anna", LastName: "Jansen-Bos",
		Email: "anna@new.example.com", CompanyName: "New BV", Phone: "0612345678", Notes: "called twice",
		Status: domain.StatusNew, OwnerID: &owner, IsActive: true}
	other := domain.Lead{ID: uuid.New(), TenantID: tenantID, FirstName: "Bram", IsActive: true}

	linkID, commID := uuid.New(), uuid.New()
	return fixture{
		store: &memoryStore{committed: state{
			leads: map[uuid.UUID]domain.Lead{survivor.ID: survivor, merged.ID: merged, other.ID: other},
			links: map[uuid.UUID]uuid.UUID{linkID: merged.ID, uuid.New(): survivor.ID},
			comms: map[uuid.UUID]uuid.UUID{commID: merged.ID},
			pairs: []pair{
				{a: survivor.ID, b: merged.ID, status: "Pending"},
				{a: merged.ID, b: other.ID, status: "Pending"},
				{a: survivor.ID, b: other.ID, status: "Pending"},
			},
		}},
		survivor: survivor, merged: merged, other: other, linkID: linkID, commID: commID,
	}
}

func newService(store Store) *Service {
	return New(store, nil, clock.NewFixed(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)), logger.Nop())
}

func TestMergeAppliesSelectionAndMovesHistory(t *testing.T) {
	f := newFixture()
	actor := uuid.New()
	svc := newService(f.store)

	result, err := svc.Merge(context.Background(), tenantID, Request{
		SurvivorID:     f.survivor.ID,
		MergedID:       f.merged.ID,
		FieldSelection: map[string]string{"email": "merged", "companyName": "Merged", "lastName": "survivor"},
		ActorID:        &actor,
	})
	require.NoError(t, err)

	st := f.store.committed
	survivor := st.leads[f.survivor.ID]
	assert.Equal(t, "anna@new.example.com", survivor.Email)
	assert.Equal(t, "New BV", survivor.CompanyName)
	assert.Equal(t, "Jansen", survivor.LastName)
	assert.Equal(t, "met at fair\n\ncalled twice", survivor.Notes)
	assert.Equal(t, domain.StatusContacted, survivor.Status)

	merged := st.leads[f.merged.ID]
	assert.True(t, merged.IsDeleted)
	assert.False(t, merged.IsActive)

	assert.Equal(t, f.survivor.ID, st.links[f.linkID])
	assert.Equal(t, f.survivor.ID, st.comms[f.commID])
	assert.Equal(t, int64(1), result.LinksMoved)
	assert.Equal(t, int64(1), result.CommunicationsMoved)

	assert.Equal(t, "Merged", st.pairs[0].status)
	assert.Equal(t, "Merged", st.pairs[1].status)
	assert.Equal(t, "Pending", st.pairs[2].status)
	assert.Equal(t, int64(2), result.PairsClosed)

	require.Len(t, st.history, 1)
	assert.Equal(t, "anna@new.example.com", st.history[0].Snapshot["email"])
	assert.Equal(t, "called twice", st.history[0].Snapshot["notes"])
	assert.Equal(t, &actor, st.history[0].MergedBy)

	require.Len(t, st.audits, 1)
	assert.Equal(t, audit.ActionMerged, st.audits[0].Action)
	changes := st.audits[0].Changes.(map[string]any)
	assert.Equal(t, f.survivor.ID, changes["survivorId"])
	assert.Equal(t, f.merged.ID, changes["mergedId"])
}

func TestMergeIsAllOrNothing(t *testing.T) {
	for _, step := range []string{"history", "links", "delete", "audit"} {
		t.Run(step, func(t *testing.T) {
			f := newFixture()
			f.store.failAt = step
			before := f.store.committed.clone()

			_, err := newService(f.store).Merge(context.Background(), tenantID, Request{
				SurvivorID: f.survivor.ID,
				MergedID:   f.merged.ID,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, errInjected)

			st := f.store.committed
			assert.Equal(t, before.leads, st.leads)
			assert.Equal(t, f.merged.ID, st.links[f.linkID])
			assert.False(t, st.leads[f.merged.ID].IsDeleted)
			assert.Empty(t, st.history)
			assert.Empty(t, st.audits)
			assert.Equal(t, before.pairs, st.pairs)
		})
	}
}

func TestMergeValidation(t *testing.T) {
	f := newFixture()
	svc := newService(f.store)
	ctx := context.Background()

	_, err := svc.Merge(ctx, tenantID, Request{SurvivorID: f.survivor.ID, MergedID: f.survivor.ID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Merge(ctx, tenantID, Request{SurvivorID: f.survivor.ID, MergedID: f.merged.ID,
		FieldSelection: map[string]string{"favouriteColour": "merged"}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Merge(ctx, tenantID, Request{SurvivorID: f.survivor.ID, MergedID: f.merged.ID,
		FieldSelection: map[string]string{"email": "both"}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestMergeMissingLeadIsNotFound(t *testing.T) {
	f := newFixture()
	_, err := newService(f.store).Merge(context.Background(), tenantID, Request{
		SurvivorID: f.survivor.ID,
		MergedID:   uuid.New(),
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestJoinNotes(t *testing.T) {
	assert.Equal(t, "a", joinNotes("a", " "))
	assert.Equal(t, "b", joinNotes("", "b"))
	assert.Equal(t, "a\n\nb", joinNotes("a", "b"))
}
