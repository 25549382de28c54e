// Package duplicates provides the duplicate detection bounded context module.
package duplicates

import (
	"leadflow_backend/internal/duplicates/handler"
	"leadflow_backend/internal/duplicates/repository"
	"leadflow_backend/internal/duplicates/service"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the duplicates bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the pair repository and detector.
func NewModule(pool *pgxpool.Pool, leads service.LeadFinder, bus events.Bus, val *validator.Validator, clk clock.Clock, log *logger.Logger) *Module {
	svc := service.New(leads, repository.New(pool), bus, clk, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "duplicates"
}

// Service exposes the detector to the capture pipeline and the task worker.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/leads/:id/duplicates/check", m.handler.CheckLead)
	ctx.Protected.GET("/duplicates", m.handler.List)
	ctx.Protected.PATCH("/duplicates/:id", m.handler.Resolve)
}

var _ apphttp.Module = (*Module)(nil)
