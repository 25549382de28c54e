// Package assignment provides the lead assignment bounded context module.
package assignment

import (
	"leadflow_backend/internal/assignment/handler"
	"leadflow_backend/internal/assignment/repository"
	"leadflow_backend/internal/assignment/service"
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the assignment bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the rule repository into the assignment engine.
func NewModule(pool *pgxpool.Pool, workload service.WorkloadReader, leads service.LeadStore, auditSink service.AuditSink, bus events.Bus, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), workload, leads, auditSink, bus, log)
	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assignment"
}

// Service returns the assignment engine for the capture pipeline.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts assignment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/leads/:id/assign", m.handler.AssignLead)
}

var _ apphttp.Module = (*Module)(nil)
