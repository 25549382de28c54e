package main

import (
	"strings"
	"testing"

	"leadflow_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePack = `
scoring:
  - name: Has email
    field: HasEmail
    points: 10
  - name: Stale
    category: Decay
    points: -5
    decayDays: 14
assignment:
  - name: West coast
    priority: 1
    strategy: Territory
    territory:
      state: CA
    members:
      - userId: 9f1c2d3e-1111-4a2b-8c3d-000000000001
        capacity: 20
        skill: Senior
workflows:
  - name: Welcome task
    entityType: lead
    event: LeadCreated
    condition:
      source: Web
    action: CreateTask
    config:
      subject: Call within 24h
  - name: Nudge
    entityType: Lead
    event: LeadCreated
    action: CreateFollowUp
    delayMinutes: 60
    config:
      daysAfter: 2
`

func TestLoadPackBuildsRules(t *testing.T) {
	pack, err := LoadPack(strings.NewReader(samplePack), validator.New())
	require.NoError(t, err)

	tenantID := uuid.New()

	scoring := pack.scoringRules(tenantID)
	require.Len(t, scoring, 2)
	assert.True(t, scoring[0].IsActive)
	require.NotNil(t, scoring[1].DecayDays)
	assert.Equal(t, 14, *scoring[1].DecayDays)

	assignment := pack.assignmentRules(tenantID)
	require.Len(t, assignment, 1)
	assert.Equal(t, map[string]string{"state": "CA"}, assignment[0].TerritoryCondition)
	require.Len(t, assignment[0].Members, 1)
	assert.Equal(t, "Senior", assignment[0].Members[0].SkillLevel)
	assert.True(t, assignment[0].Members[0].IsActive)

	workflows, err := pack.workflowRules(tenantID)
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "Lead", workflows[0].EntityType)
	assert.JSONEq(t, `{"source":"Web"}`, workflows[0].Condition)
	assert.JSONEq(t, `{"subject":"Call within 24h"}`, workflows[0].ActionConfig)
	assert.Equal(t, 60, workflows[1].DelayMinutes)
	assert.Equal(t, tenantID, workflows[1].TenantID)
}

func TestLoadPackRejectsBadRules(t *testing.T) {
	cases := map[string]string{
		"unknown strategy": `
assignment:
  - name: X
    strategy: Lottery
    members:
      - userId: 9f1c2d3e-1111-4a2b-8c3d-000000000001
`,
		"unknown action": `
workflows:
  - name: X
    entityType: Lead
    event: LeadCreated
    action: Teleport
`,
		"missing status": `
workflows:
  - name: X
    entityType: Lead
    event: LeadCreated
    action: ChangeStatus
`,
		"unknown field": `
scoring:
  - name: X
    weight: 3
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPack(strings.NewReader(doc), validator.New())
			assert.Error(t, err)
		})
	}
}
