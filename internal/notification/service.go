package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"leadflow_backend/internal/email"
	"leadflow_backend/internal/notification/sse"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Notification types emitted by the automation engine.
const (
	TypeWorkflow     = "WorkflowNotification"
	TypeSlaViolation = "SlaViolation"
	TypeDuplicates   = "DuplicatesDetected"
	TypeLeadAssigned = "LeadAssigned"
	TypeLeadsMerged  = "LeadsMerged"
)

const emailSendTimeout = 30 * time.Second

// Notification is a tenant-scoped message pushed to connected users and,
// when recipients are given, mailed.
type Notification struct {
	Type    string
	Title   string
	Message string
	Data    any
	EmailTo []string
}

// Service fans notifications out to the SSE hub and the mail sender.
// Delivery is fire-and-forget: callers are never blocked by slow clients or SMTP.
type Service struct {
	hub    *sse.Service
	mailer email.Sender
	log    *logger.Logger
	wg     sync.WaitGroup
}

func NewService(hub *sse.Service, mailer email.Sender, log *logger.Logger) *Service {
	if mailer == nil {
		mailer = email.NoopSender{}
	}
	return &Service{hub: hub, mailer: mailer, log: log}
}

// Notify publishes n to the tenant's connected clients and schedules mail delivery.
func (s *Service) Notify(ctx context.Context, tenantID uuid.UUID, n Notification) error {
	if strings.TrimSpace(n.Type) == "" {
		return apperr.Validation("notification type is required")
	}

	delivered := s.hub.PublishToTenant(tenantID, sse.Event{
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
		Data:    n.Data,
	})
	s.log.Debug("notification published", "tenantId", tenantID, "type", n.Type, "clients", delivered)

	for _, recipient := range n.EmailTo {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		s.wg.Add(1)
		go func(to string) {
			defer s.wg.Done()
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailSendTimeout)
			defer cancel()
			if err := s.mailer.SendNotificationEmail(sendCtx, to, n.Title, n.Message); err != nil {
				s.log.Warn("notification email failed", "tenantId", tenantID, "type", n.Type, "error", err)
			}
		}(recipient)
	}
	return nil
}

// Wait blocks until in-flight mail deliveries finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
