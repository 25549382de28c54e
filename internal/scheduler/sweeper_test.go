package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/notification"
	scoring "leadflow_backend/internal/scoring/service"
	workflow "leadflow_backend/internal/workflow/service"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	batches []workflow.ProcessResult
	result  workflow.ProcessResult
	err     error
	opts    []workflow.ProcessOptions
}

func (s *stubProcessor) ProcessPending(_ context.Context, opts workflow.ProcessOptions) (workflow.ProcessResult, error) {
	s.opts = append(s.opts, opts)
	if len(s.batches) > 0 {
		next := s.batches[0]
		s.batches = s.batches[1:]
		return next, s.err
	}
	return s.result, s.err
}

type stubDecayer struct {
	failFor uuid.UUID
	calls   []uuid.UUID
}

func (s *stubDecayer) ApplyDecay(_ context.Context, tenantID uuid.UUID) (scoring.BatchResult, error) {
	s.calls = append(s.calls, tenantID)
	if tenantID == s.failFor {
		return scoring.BatchResult{}, errors.New("rules unavailable")
	}
	return scoring.BatchResult{Processed: 3, Changed: 2}, nil
}

type stubLeads struct {
	tenants       []uuid.UUID
	stale         []domain.Lead
	staleCutoff   time.Time
	archiveCutoff time.Time
	archived      int64
	archiveErr    error
}

func (s *stubLeads) ListTenantIDs(context.Context) ([]uuid.UUID, error) { return s.tenants, nil }

func (s *stubLeads) ListStale(_ context.Context, cutoff time.Time) ([]domain.Lead, error) {
	s.staleCutoff = cutoff
	return s.stale, nil
}

func (s *stubLeads) ArchiveInactive(_ context.Context, cutoff time.Time) (int64, error) {
	s.archiveCutoff = cutoff
	return s.archived, s.archiveErr
}

type sentNotification struct {
	tenantID uuid.UUID
	n        notification.Notification
}

type stubNotifier struct {
	sent []sentNotification
}

func (s *stubNotifier) Notify(_ context.Context, tenantID uuid.UUID, n notification.Notification) error {
	s.sent = append(s.sent, sentNotification{tenantID: tenantID, n: n})
	return nil
}

func automationConfig() *config.Config {
	return &config.Config{
		SweepSchedule:    "@every 5m",
		SweepBatchSize:   25,
		SLAStaleDays:     7,
		ArchiveAfterDays: 90,
	}
}

func TestSweepRunsEveryStep(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tenantA, tenantB := uuid.New(), uuid.New()

	processor := &stubProcessor{result: workflow.ProcessResult{Claimed: 2, Executed: 2}}
	decayer := &stubDecayer{failFor: tenantB}
	leads := &stubLeads{
		tenants: []uuid.UUID{tenantA, tenantB},
		stale: []domain.Lead{
			{ID: uuid.New(), TenantID: tenantA},
			{ID: uuid.New(), TenantID: tenantA},
			{ID: uuid.New(), TenantID: tenantB},
		},
		archived: 4,
	}
	notifier := &stubNotifier{}

	sweeper := NewSweeper(automationConfig(), processor, decayer, leads, notifier, clock.NewFixed(now), logger.Nop())
	report := sweeper.Sweep(context.Background())

	require.Len(t, processor.opts, 1)
	assert.Equal(t, 25, processor.opts[0].Limit)
	assert.Nil(t, processor.opts[0].TenantID)
	assert.Equal(t, 2, report.Executions.Executed)

	assert.Equal(t, []uuid.UUID{tenantA, tenantB}, decayer.calls)
	assert.Equal(t, 1, report.TenantsDecayed)
	assert.Equal(t, 2, report.DecayChanged)

	assert.Equal(t, now.AddDate(0, 0, -7), leads.staleCutoff)
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, tenantA, notifier.sent[0].tenantID)
	assert.Equal(t, notification.TypeSlaViolation, notifier.sent[0].n.Type)
	assert.Equal(t, "SLA Violation Alert", notifier.sent[0].n.Title)
	assert.Equal(t, "2 lead(s) have not been updated in over 7 days", notifier.sent[0].n.Message)
	assert.Equal(t, "1 lead(s) have not been updated in over 7 days", notifier.sent[1].n.Message)
	assert.Equal(t, 2, report.SLATenants)

	assert.Equal(t, now.AddDate(0, 0, -90), leads.archiveCutoff)
	assert.Equal(t, int64(4), report.Archived)
}

func TestSweepDrainsFullBatches(t *testing.T) {
	processor := &stubProcessor{batches: []workflow.ProcessResult{
		{Claimed: 25, Executed: 24, Failed: 1},
		{Claimed: 25, Executed: 25},
		{Claimed: 3, Executed: 2, Skipped: 1},
	}}

	sweeper := NewSweeper(automationConfig(), processor, &stubDecayer{}, &stubLeads{}, &stubNotifier{}, clock.NewFixed(time.Now()), logger.Nop())
	report := sweeper.Sweep(context.Background())

	assert.Len(t, processor.opts, 3)
	assert.Equal(t, workflow.ProcessResult{Claimed: 53, Executed: 51, Failed: 1, Skipped: 1}, report.Executions)
}

func TestSweepStopsDrainingOnError(t *testing.T) {
	processor := &stubProcessor{result: workflow.ProcessResult{Claimed: 25}, err: errors.New("database down")}

	sweeper := NewSweeper(automationConfig(), processor, &stubDecayer{}, &stubLeads{}, &stubNotifier{}, clock.NewFixed(time.Now()), logger.Nop())
	sweeper.Sweep(context.Background())

	assert.Len(t, processor.opts, 1)
}

func TestSweepContinuesAfterFailingStep(t *testing.T) {
	processor := &stubProcessor{err: errors.New("database down")}
	leads := &stubLeads{archiveErr: errors.New("lock timeout")}
	notifier := &stubNotifier{}

	sweeper := NewSweeper(automationConfig(), processor, &stubDecayer{}, leads, notifier, clock.NewFixed(time.Now()), logger.Nop())
	report := sweeper.Sweep(context.Background())

	assert.False(t, leads.staleCutoff.IsZero())
	assert.False(t, leads.archiveCutoff.IsZero())
	assert.Zero(t, report.Archived)
	assert.Empty(t, notifier.sent)
}

func TestRunRejectsInvalidSchedule(t *testing.T) {
	cfg := automationConfig()
	cfg.SweepSchedule = "every now and then"
	sweeper := NewSweeper(cfg, &stubProcessor{}, &stubDecayer{}, &stubLeads{}, &stubNotifier{}, nil, logger.Nop())

	assert.Error(t, sweeper.Run(context.Background()))
}

func TestRunStopsWithContext(t *testing.T) {
	sweeper := NewSweeper(automationConfig(), &stubProcessor{}, &stubDecayer{}, &stubLeads{}, &stubNotifier{}, nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
