package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	assignment "leadflow_backend/internal/assignment/service"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryForms struct {
	forms map[uuid.UUID]Form
}

func (m *memoryForms) GetForm(_ context.Context, id uuid.UUID) (Form, error) {
	f, ok := m.forms[id]
	if !ok {
		return Form{}, ErrFormNotFound
	}
	return f, nil
}

type memoryLeads struct {
	saved []domain.Lead
}

func (m *memoryLeads) GetByEmail(_ context.Context, tenantID uuid.UUID, email string) (domain.Lead, error) {
	for _, l := range m.saved {
		if l.TenantID == tenantID && strings.EqualFold(l.Email, email) {
			return l, nil
		}
	}
	return domain.Lead{}, leadrepo.ErrNotFound
}

func (m *memoryLeads) Create(_ context.Context, lead *domain.Lead) error {
	m.saved = append(m.saved, *lead)
	return nil
}

type stubScorer struct {
	score   int
	history []int
}

func (s *stubScorer) CalculateScore(context.Context, uuid.UUID, domain.Lead) (int, error) {
	return s.score, nil
}

func (s *stubScorer) RecordChange(_ context.Context, _, _ uuid.UUID, _, after int, _ string, _ *uuid.UUID) error {
	s.history = append(s.history, after)
	return nil
}

type stubAssigner struct {
	result   *assignment.Result
	err      error
	recorded []*assignment.Result
}

func (s *stubAssigner) Assign(context.Context, uuid.UUID, domain.Lead) (*assignment.Result, error) {
	return s.result, s.err
}

func (s *stubAssigner) Record(_ context.Context, _ uuid.UUID, _ domain.Lead, r *assignment.Result) {
	s.recorded = append(s.recorded, r)
}

type recordingQueue struct {
	leads []uuid.UUID
}

func (q *recordingQueue) EnqueueDuplicateCheck(_ context.Context, _, leadID uuid.UUID) (string, error) {
	q.leads = append(q.leads, leadID)
	return "task-" + leadID.String(), nil
}

type fixture struct {
	svc      *Service
	form     Form
	leads    *memoryLeads
	scorer   *stubScorer
	assigner *stubAssigner
	queue    *recordingQueue
	bus      *events.InMemoryBus
}

func newFixture() *fixture {
	form := Form{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		Name:          "Contact us",
		DefaultSource: "Website",
		IsActive:      true,
		Fields: []FormField{
			{Label: "First name", MappedField: "firstName"},
			{Label: "Last name", MappedField: "lastName"},
			{Label: "E-mail", MappedField: "email"},
			{Label: "Budget", MappedField: ""},
			{Label: "Company", MappedField: "companyName"},
		},
	}
	f := &fixture{
		form:     form,
		leads:    &memoryLeads{},
		scorer:   &stubScorer{score: 42},
		assigner: &stubAssigner{},
		queue:    &recordingQueue{},
		bus:      events.NewInMemoryBus(logger.Nop()),
	}
	f.svc = New(&memoryForms{forms: map[uuid.UUID]Form{form.ID: form}}, f.leads, f.scorer, f.assigner, f.queue, f.bus, logger.Nop())
	return f
}

func TestSubmitCreatesScoredAssignedLead(t *testing.T) {
	f := newFixture()
	owner := uuid.New()
	f.assigner.result = &assignment.Result{OwnerID: owner, RuleID: uuid.New(), Strategy: "RoundRobin"}

	var mu sync.Mutex
	var captured []events.LeadCaptured
	f.bus.Subscribe(events.LeadCaptured{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		captured = append(captured, e.(events.LeadCaptured))
		return nil
	}))

	result, err := f.svc.Submit(context.Background(), Submission{
		FormID: f.form.ID,
		Fields: map[string]string{
			"First name": " Ada ",
			"Last name":  "Lovelace",
			"E-mail":     "Ada@Example.COM",
			"Budget":     "<b>10k</b>",
			"Company":    "Analytical Engines",
			"Unknown":    "ignored",
		},
	})
	require.NoError(t, err)
	f.bus.Wait()

	assert.True(t, result.Created)
	assert.Equal(t, "task-"+result.LeadID.String(), result.DuplicateCheckTaskID)

	require.Len(t, f.leads.saved, 1)
	saved := f.leads.saved[0]
	assert.Equal(t, result.LeadID, saved.ID)
	assert.Equal(t, f.form.TenantID, saved.TenantID)
	assert.Equal(t, "Ada", saved.FirstName)
	assert.Equal(t, "ada@example.com", saved.Email)
	assert.Equal(t, "Website", saved.Source)
	assert.Equal(t, domain.StatusNew, saved.Status)
	assert.Equal(t, "Budget: 10k", saved.Notes)
	assert.Equal(t, 42, saved.Score)
	assert.Equal(t, &owner, saved.OwnerID)

	assert.Equal(t, []int{42}, f.scorer.history)
	assert.Len(t, f.assigner.recorded, 1)
	assert.Equal(t, []uuid.UUID{saved.ID}, f.queue.leads)

	require.Len(t, captured, 1)
	assert.Equal(t, saved.ID, captured[0].LeadID)
	assert.Equal(t, "Website", captured[0].Source)
	assert.Equal(t, "New", captured[0].Status)
}

func TestSubmitReturnsExistingLeadForKnownEmail(t *testing.T) {
	f := newFixture()
	existing := domain.Lead{ID: uuid.New(), TenantID: f.form.TenantID, Email: "ada@example.com"}
	f.leads.saved = append(f.leads.saved, existing)

	result, err := f.svc.Submit(context.Background(), Submission{
		FormID: f.form.ID,
		Fields: map[string]string{"E-mail": "ADA@example.com", "First name": "Ada"},
	})
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, existing.ID, result.LeadID)
	assert.Len(t, f.leads.saved, 1)
	assert.Empty(t, f.queue.leads)
}

func TestSubmitSavesLeadWhenAssignmentFails(t *testing.T) {
	f := newFixture()
	f.assigner.err = errors.New("cursor store unavailable")

	result, err := f.svc.Submit(context.Background(), Submission{
		FormID: f.form.ID,
		Fields: map[string]string{"First name": "Grace", "E-mail": "grace@example.com"},
	})
	require.NoError(t, err)

	assert.True(t, result.Created)
	require.Len(t, f.leads.saved, 1)
	assert.Nil(t, f.leads.saved[0].OwnerID)
	assert.Empty(t, f.assigner.recorded)
}

func TestSubmitRejectsUnknownOrInactiveForm(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Submit(context.Background(), Submission{FormID: uuid.New()})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	inactive := f.form
	inactive.ID = uuid.New()
	inactive.IsActive = false
	svc := New(&memoryForms{forms: map[uuid.UUID]Form{inactive.ID: inactive}}, f.leads, f.scorer, f.assigner, nil, nil, logger.Nop())
	_, err = svc.Submit(context.Background(), Submission{FormID: inactive.ID, Fields: map[string]string{"First name": "Ada"}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSubmitRejectsEmptySubmission(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Submit(context.Background(), Submission{FormID: f.form.ID, Fields: map[string]string{"Budget": "10k"}})

	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, f.leads.saved)
}

func TestMapSubmissionAppendsUnmappedFieldsToNotes(t *testing.T) {
	form := Form{
		DefaultSource: "",
		Fields: []FormField{
			{Label: "Message", MappedField: "notes"},
			{Label: "Budget"},
			{Label: "Timeline", MappedField: "timeline"},
		},
	}

	lead := mapSubmission(form, map[string]string{
		"message":  "Call me",
		"Budget":   "10k",
		"Timeline": "Q3",
	})

	assert.Equal(t, "Call me\nBudget: 10k\nTimeline: Q3", lead.Notes)
	assert.Equal(t, "WebForm", lead.Source)
}
