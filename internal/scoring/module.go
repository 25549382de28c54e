// Package scoring provides the lead scoring bounded context module.
package scoring

import (
	"context"
	"fmt"

	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/scoring/handler"
	"leadflow_backend/internal/scoring/repository"
	"leadflow_backend/internal/scoring/service"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the scoring bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule wires the scoring repository and service.
func NewModule(pool *pgxpool.Pool, leads service.LeadStore, queue handler.RecalculationQueue, clk clock.Clock, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, repo, leads, clk, log)
	return &Module{
		handler: handler.New(svc, queue),
		service: svc,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scoring"
}

// Service returns the scoring engine for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts scoring routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/leads/:id/score", m.handler.ScoreLead)
	ctx.Protected.GET("/leads/:id/score/breakdown", m.handler.GetBreakdown)
	ctx.Protected.GET("/leads/:id/score/history", m.handler.GetHistory)
	ctx.Protected.POST("/scoring/recalculate", httpkit.RequireRole(httpkit.RoleAdmin), m.handler.RecalculateAll)
}

// RegisterHandlers subscribes to lead status changes to keep scores current.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), m)
}

// Handle rescores a lead after automation changed its status.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadStatusChanged)
	if !ok {
		return nil
	}
	_, err := m.service.Rescore(ctx, e.TenantID, e.LeadID, fmt.Sprintf("Status changed to %s", e.NewStatus))
	return err
}

var _ apphttp.Module = (*Module)(nil)
