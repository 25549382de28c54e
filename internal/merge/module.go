// Package merge provides the lead merge bounded context module.
package merge

import (
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/merge/handler"
	"leadflow_backend/internal/merge/repository"
	"leadflow_backend/internal/merge/service"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, clk clock.Clock, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), bus, clk, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "merge"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/leads/merge", m.handler.MergeLeads)
}

var _ apphttp.Module = (*Module)(nil)
