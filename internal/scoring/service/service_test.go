package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/scoring/repository"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tenantID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func rule(name, field string, points int) repository.Rule {
	return repository.Rule{ID: uuid.New(), TenantID: tenantID, Name: name, Category: "Profile", ConditionField: field, Points: points, IsActive: true}
}

func activeLead(mutators ...func(*domain.Lead)) domain.Lead {
	l := domain.Lead{ID: uuid.New(), TenantID: tenantID, Status: domain.StatusNew, IsActive: true, CreatedAt: baseTime}
	for _, m := range mutators {
		m(&l)
	}
	return l
}

func newService(rules []repository.Rule, leads *fakeLeads, clk clock.Clock) (*Service, *fakeHistory) {
	history := &fakeHistory{}
	return New(&fakeRules{rules: rules}, history, leads, clk, logger.Nop()), history
}

func TestScoreRisesWhenPhoneIsAdded(t *testing.T) {
	lead := activeLead(func(l *domain.Lead) { l.Email = "a@x.com" })
	leads := newFakeLeads(lead)
	svc, history := newService([]repository.Rule{
		rule("Has email", FieldHasEmail, 20),
		rule("Has phone", FieldHasPhone, 20),
	}, leads, clock.NewFixed(baseTime))
	ctx := context.Background()

	result, err := svc.ScoreLead(ctx, tenantID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, result.Score)
	assert.Equal(t, 20, leads.score(lead.ID))

	leads.setPhone(lead.ID, "+31 6 1234 5678")
	batch, err := svc.RecalculateAll(ctx, tenantID)
	require.NoError(t, err)

	assert.Equal(t, 1, batch.Changed)
	assert.Equal(t, 40, leads.score(lead.ID))
	require.Len(t, history.entries, 2)
	assert.Equal(t, ReasonBulk, history.entries[1].Reason)
	assert.Equal(t, 20, history.entries[1].Change)
}

func TestCalculateScoreStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	fields := []string{FieldHasEmail, FieldHasPhone, FieldHasCompanyName, FieldHasJobTitle, FieldHasAddress, "city"}
	lead := activeLead(func(l *domain.Lead) {
		l.Email = "lead@example.com"
		l.Phone = "0612345678"
		l.CompanyName = "Acme"
		l.City = "Utrecht"
	})

	for i := 0; i < 200; i++ {
		rules := make([]repository.Rule, 0)
		n := rng.Intn(8) + 1
		for j := 0; j < n; j++ {
			r := rule("r", fields[rng.Intn(len(fields))], rng.Intn(161)-80)
			r.ConditionOperator = OpExists
			rules = append(rules, r)
		}
		svc, _ := newService(rules, newFakeLeads(lead), nil)

		score, err := svc.CalculateScore(context.Background(), tenantID, lead)
		require.NoError(t, err)
		require.GreaterOrEqual(t, score, 0)
		require.LessOrEqual(t, score, 100)
		require.Equal(t, score, clamp(score))
	}
}

func TestHeuristicWhenNoRules(t *testing.T) {
	lead := activeLead(func(l *domain.Lead) {
		l.FirstName, l.LastName = "Jane", "Doe"
		l.Email = "jane@example.com"
		l.Phone = "0612345678"
		l.Country = "NL"
	})
	svc, _ := newService(nil, newFakeLeads(lead), nil)

	breakdown, err := svc.Breakdown(context.Background(), tenantID, lead)
	require.NoError(t, err)

	assert.True(t, breakdown.Heuristic)
	assert.Equal(t, 25+20+10+10, breakdown.TotalScore)
	assert.Empty(t, breakdown.Items)
}

func TestBreakdownReportsEveryRule(t *testing.T) {
	lead := activeLead(func(l *domain.Lead) { l.Email = "buyer@rival.com"; l.Source = "Referral" })
	rules := []repository.Rule{
		rule("Referral", FieldSourceEquals, 30),
		rule("Competitor", FieldCompetitorDomain, -50),
		rule("Phone", FieldHasPhone, 10),
	}
	rules[0].ConditionValue = "Referral"
	rules[1].ConditionValue = "RIVAL.com"
	svc, _ := newService(rules, newFakeLeads(lead), nil)

	breakdown, err := svc.Breakdown(context.Background(), tenantID, lead)
	require.NoError(t, err)

	require.Len(t, breakdown.Items, 3)
	assert.True(t, breakdown.Items[0].Applied)
	assert.Equal(t, 30, breakdown.Items[0].Points)
	assert.True(t, breakdown.Items[1].Applied)
	assert.False(t, breakdown.Items[2].Applied)
	assert.Equal(t, 0, breakdown.Items[2].Points)
	assert.Equal(t, 0, breakdown.TotalScore)
}

func TestGenericEvaluator(t *testing.T) {
	lead := activeLead(func(l *domain.Lead) { l.City = "Amsterdam"; l.JobTitle = "Head of Sales" })

	cases := []struct {
		name  string
		field string
		op    string
		value string
		want  bool
	}{
		{"equals ignores case", "City", OpEquals, "amsterdam", true},
		{"contains", "jobTitle", OpContains, "sales", true},
		{"exists on empty", "companyName", OpExists, "", false},
		{"not exists on empty", "companyName", OpNotExists, "", true},
		{"unknown field not exists", "favouriteColour", OpNotExists, "", true},
		{"unknown field equals", "favouriteColour", OpEquals, "red", false},
		{"unknown operator", "city", "StartsWith", "Am", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := rule("g", tc.field, 5)
			r.ConditionOperator = tc.op
			r.ConditionValue = tc.value
			assert.Equal(t, tc.want, evaluateRule(r, lead))
		})
	}
}

func TestRecordChangeSkipsUnchangedScore(t *testing.T) {
	svc, history := newService(nil, newFakeLeads(), nil)
	require.NoError(t, svc.RecordChange(context.Background(), tenantID, uuid.New(), 40, 40, "noop", nil))
	assert.Empty(t, history.entries)
}

func TestScoreLeadUnknownLead(t *testing.T) {
	svc, _ := newService(nil, newFakeLeads(), nil)
	_, err := svc.ScoreLead(context.Background(), tenantID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestApplyDecayUsesLatestActivityAndClamps(t *testing.T) {
	clk := clock.NewFixed(baseTime.Add(45 * 24 * time.Hour))
	stale := activeLead(func(l *domain.Lead) { l.Score = 15 })
	recent := activeLead(func(l *domain.Lead) { l.Score = 50 })
	converted := activeLead(func(l *domain.Lead) { l.Score = 60; l.Status = domain.StatusConverted })
	leads := newFakeLeads(stale, recent, converted)
	leads.lastActivity[recent.ID] = clk.Now().Add(-3 * 24 * time.Hour)

	thirty := 30
	decay := repository.Rule{ID: uuid.New(), Name: "Cold 30d", Category: repository.CategoryDecay, ConditionField: "Inactivity", Points: -20, DecayDays: &thirty, IsActive: true}
	svc, history := newService([]repository.Rule{decay}, leads, clk)

	result, err := svc.ApplyDecay(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 0, leads.score(stale.ID))
	assert.Equal(t, 50, leads.score(recent.ID))
	assert.Equal(t, 60, leads.score(converted.ID))
	require.Len(t, history.entries, 1)
	assert.Equal(t, "Decay: 45 days inactivity (rule: Cold 30d)", history.entries[0].Reason)
	require.NotNil(t, history.entries[0].RuleID)
	assert.Equal(t, decay.ID, *history.entries[0].RuleID)
}

func TestApplyDecayContinuesPastFailingLead(t *testing.T) {
	clk := clock.NewFixed(baseTime.Add(10 * 24 * time.Hour))
	broken := activeLead(func(l *domain.Lead) { l.Score = 40 })
	healthy := activeLead(func(l *domain.Lead) { l.Score = 40 })
	leads := newFakeLeads(broken, healthy)
	leads.failUpdate[broken.ID] = true

	seven := 7
	decay := repository.Rule{ID: uuid.New(), Name: "Week", Category: repository.CategoryDecay, Points: -5, DecayDays: &seven, IsActive: true}
	svc, _ := newService([]repository.Rule{decay}, leads, clk)

	result, err := svc.ApplyDecay(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Changed)
	assert.Equal(t, 35, leads.score(healthy.ID))
}
