// Package notification delivers tenant-scoped notifications over SSE and
// optional SMTP, and turns engine events into user-facing alerts.
package notification

import (
	"context"
	"fmt"

	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/notification/sse"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module exposes the notification stream and reacts to engine events.
type Module struct {
	hub     *sse.Service
	service *Service
	log     *logger.Logger
}

func NewModule(hub *sse.Service, service *Service, log *logger.Logger) *Module {
	return &Module{hub: hub, service: service, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Service returns the notifier for other modules.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the SSE stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.hub.Handler(func(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
		identity := httpkit.GetIdentity(c)
		if !identity.IsAuthenticated() {
			return uuid.Nil, uuid.Nil, false
		}
		return identity.UserID(), identity.TenantID(), true
	}))
}

// RegisterHandlers subscribes to events that users should hear about.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DuplicatesDetected{}.EventName(), m)
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.LeadsMerged{}.EventName(), m)
}

// Handle routes events to notifications.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.DuplicatesDetected:
		return m.service.Notify(ctx, e.TenantID, Notification{
			Type:    TypeDuplicates,
			Title:   "Possible duplicate leads",
			Message: fmt.Sprintf("%d possible duplicate(s) found for a new lead", len(e.PairIDs)),
			Data:    map[string]any{"leadId": e.LeadID, "pairIds": e.PairIDs},
		})
	case events.LeadAssigned:
		return m.service.Notify(ctx, e.TenantID, Notification{
			Type:    TypeLeadAssigned,
			Title:   "Lead assigned",
			Message: "A lead was assigned by rule",
			Data:    map[string]any{"leadId": e.LeadID, "ownerId": e.OwnerID, "strategy": e.Strategy},
		})
	case events.LeadsMerged:
		return m.service.Notify(ctx, e.TenantID, Notification{
			Type:    TypeLeadsMerged,
			Title:   "Leads merged",
			Message: "Two lead records were merged",
			Data:    map[string]any{"survivorId": e.SurvivorID, "mergedId": e.MergedID},
		})
	default:
		return nil
	}
}

var _ apphttp.Module = (*Module)(nil)
