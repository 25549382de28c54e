package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/notification"
	scoring "leadflow_backend/internal/scoring/service"
	workflow "leadflow_backend/internal/workflow/service"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type PendingProcessor interface {
	ProcessPending(ctx context.Context, opts workflow.ProcessOptions) (workflow.ProcessResult, error)
}

type ScoreDecayer interface {
	ApplyDecay(ctx context.Context, tenantID uuid.UUID) (scoring.BatchResult, error)
}

type LeadMaintenance interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.Lead, error)
	ArchiveInactive(ctx context.Context, cutoff time.Time) (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, tenantID uuid.UUID, n notification.Notification) error
}

// SweepReport summarises one maintenance pass.
type SweepReport struct {
	Executions     workflow.ProcessResult
	TenantsDecayed int
	DecayChanged   int
	SLATenants     int
	StaleLeads     int
	Archived       int64
}

// Sweeper runs the recurring maintenance pass on a cron schedule. A step that
// fails is logged and the pass continues with the next one.
type Sweeper struct {
	workflows PendingProcessor
	decay     ScoreDecayer
	leads     LeadMaintenance
	notifier  Notifier
	clock     clock.Clock
	cfg       config.AutomationConfig
	log       *logger.Logger
}

func NewSweeper(cfg config.AutomationConfig, workflows PendingProcessor, decay ScoreDecayer, leads LeadMaintenance, notifier Notifier, clk clock.Clock, log *logger.Logger) *Sweeper {
	if clk == nil {
		clk = clock.System{}
	}
	return &Sweeper{
		workflows: workflows,
		decay:     decay,
		leads:     leads,
		notifier:  notifier,
		clock:     clk,
		cfg:       cfg,
		log:       log.WithComponent("sweeper"),
	}
}

// Run schedules the sweep and blocks until ctx is cancelled. Overlapping
// ticks are skipped while a pass is still running.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.cfg.GetSweepSchedule(), func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.GetSweepSchedule(), err)
	}

	s.log.Info("sweeper started", "schedule", s.cfg.GetSweepSchedule())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("sweeper stopped")
	return nil
}

// Sweep runs every maintenance step once.
func (s *Sweeper) Sweep(ctx context.Context) SweepReport {
	var report SweepReport
	started := s.clock.Now()

	report.Executions = s.processDue(ctx)
	s.applyDecay(ctx, &report)
	s.alertStaleLeads(ctx, &report)
	s.archiveInactive(ctx, &report)

	s.log.Info("sweep finished",
		"claimed", report.Executions.Claimed,
		"executed", report.Executions.Executed,
		"failed", report.Executions.Failed,
		"decayChanged", report.DecayChanged,
		"staleLeads", report.StaleLeads,
		"archived", report.Archived,
		"tookMs", s.clock.Now().Sub(started).Milliseconds(),
	)
	return report
}

// processDue drains every due execution, one claimed batch at a time. A
// short batch means nothing due is left unclaimed.
func (s *Sweeper) processDue(ctx context.Context) workflow.ProcessResult {
	limit := s.cfg.GetSweepBatchSize()
	var total workflow.ProcessResult
	for ctx.Err() == nil {
		batch, err := s.workflows.ProcessPending(ctx, workflow.ProcessOptions{Limit: limit})
		total.Claimed += batch.Claimed
		total.Executed += batch.Executed
		total.Failed += batch.Failed
		total.Skipped += batch.Skipped
		total.Conflicts += batch.Conflicts
		if err != nil {
			s.log.Error("pending executions not processed", "error", err)
			break
		}
		if limit <= 0 || batch.Claimed < limit {
			break
		}
	}
	return total
}

func (s *Sweeper) applyDecay(ctx context.Context, report *SweepReport) {
	tenants, err := s.leads.ListTenantIDs(ctx)
	if err != nil {
		s.log.DatabaseError("sweep.tenants", err)
		return
	}
	for _, tenantID := range tenants {
		result, err := s.decay.ApplyDecay(ctx, tenantID)
		if err != nil {
			s.log.Warn("decay failed", "tenantId", tenantID, "error", err)
			continue
		}
		report.TenantsDecayed++
		report.DecayChanged += result.Changed
	}
}

func (s *Sweeper) alertStaleLeads(ctx context.Context, report *SweepReport) {
	days := s.cfg.GetSLAStaleDays()
	stale, err := s.leads.ListStale(ctx, s.clock.Now().AddDate(0, 0, -days))
	if err != nil {
		s.log.DatabaseError("sweep.stale_leads", err)
		return
	}
	report.StaleLeads = len(stale)

	byTenant := make(map[uuid.UUID][]uuid.UUID)
	order := make([]uuid.UUID, 0)
	for _, lead := range stale {
		if _, seen := byTenant[lead.TenantID]; !seen {
			order = append(order, lead.TenantID)
		}
		byTenant[lead.TenantID] = append(byTenant[lead.TenantID], lead.ID)
	}

	for _, tenantID := range order {
		ids := byTenant[tenantID]
		err := s.notifier.Notify(ctx, tenantID, notification.Notification{
			Type:    notification.TypeSlaViolation,
			Title:   "SLA Violation Alert",
			Message: fmt.Sprintf("%d lead(s) have not been updated in over %d days", len(ids), days),
			Data:    map[string]any{"leadIds": ids},
		})
		if err != nil {
			s.log.Warn("sla alert not sent", "tenantId", tenantID, "error", err)
			continue
		}
		report.SLATenants++
	}
}

func (s *Sweeper) archiveInactive(ctx context.Context, report *SweepReport) {
	archived, err := s.leads.ArchiveInactive(ctx, s.clock.Now().AddDate(0, 0, -s.cfg.GetArchiveAfterDays()))
	if err != nil {
		s.log.DatabaseError("sweep.archive", err)
		return
	}
	report.Archived = archived
	if archived > 0 {
		s.log.Info("inactive leads archived", "count", archived)
	}
}
