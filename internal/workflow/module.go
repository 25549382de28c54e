// Package workflow provides the workflow automation bounded context module.
package workflow

import (
	"context"
	"encoding/json"
	"time"

	"leadflow_backend/internal/audit"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/notification"
	"leadflow_backend/internal/workflow/handler"
	"leadflow_backend/internal/workflow/repository"
	"leadflow_backend/internal/workflow/service"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the workflow bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule wires the workflow engine against the lead and activity tables.
func NewModule(pool *pgxpool.Pool, leads *leadrepo.Repository, notifier *notification.Service, bus events.Bus, val *validator.Validator, clk clock.Clock, lease time.Duration, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(service.Deps{
		Rules:      repo,
		Executions: repo,
		Leads:      leads,
		Activities: leads,
		Notifier:   notifier,
		Audit:      audit.New(pool),
		EventBus:   bus,
		Validator:  val,
		Clock:      clk,
		ClaimLease: lease,
		Log:        log,
	})
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		log:     log,
	}
}

func (m *Module) Name() string {
	return "workflow"
}

// Service exposes the engine to the scheduler sweep.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/workflows/trigger", m.handler.Trigger)
	ctx.Protected.POST("/workflows/executions/process", httpkit.RequireRole(httpkit.RoleAdmin), m.handler.ProcessPending)
	ctx.Protected.GET("/workflows/executions", m.handler.ListExecutions)
}

// RegisterHandlers starts LeadCreated workflows for every captured lead.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCaptured{}.EventName(), m)
}

func (m *Module) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCaptured)
	if !ok {
		return nil
	}
	result, err := m.service.Trigger(ctx, e.TenantID, service.TriggerInput{
		EntityType: domain.EntityLead,
		EntityID:   e.LeadID,
		Event:      service.EventLeadCreated,
		Context:    leadContext(e),
	})
	if err != nil {
		return err
	}
	m.log.Info("lead created workflows evaluated", "leadId", e.LeadID, "rules", result.Evaluated, "executions", len(result.Executions))
	return nil
}

func leadContext(e events.LeadCaptured) []byte {
	encoded, err := json.Marshal(map[string]string{"source": e.Source, "status": e.Status})
	if err != nil {
		return nil
	}
	return encoded
}

var _ apphttp.Module = (*Module)(nil)
