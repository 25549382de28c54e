// Package leads provides the lead capture bounded context module.
package leads

import (
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/capture"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo    *repository.Repository
	capture *capture.Service
	public  *handler.PublicHandler
}

// NewModule wires the capture pipeline. The scorer and assigner come from
// their own modules; queue may be nil when duplicate checks are disabled.
func NewModule(pool *pgxpool.Pool, repo *repository.Repository, scorer capture.Scorer, assigner capture.Assigner, queue capture.DuplicateQueue, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := capture.New(capture.NewFormRepository(pool), repo, scorer, assigner, queue, bus, log)
	return &Module{
		repo:    repo,
		capture: svc,
		public:  handler.NewPublicHandler(svc, val),
	}
}

func (m *Module) Name() string {
	return "leads"
}

// Repository exposes the shared lead store to the other engines.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	forms := ctx.Public.Group("/forms")
	if ctx.PublicRateLimiter != nil {
		forms.Use(ctx.PublicRateLimiter.RateLimit())
	}
	m.public.RegisterRoutes(forms)
}

var _ apphttp.Module = (*Module)(nil)
