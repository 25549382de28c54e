package sse

import (
	"testing"

	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPublishToTenantIsScoped(t *testing.T) {
	svc := New(logger.Nop())
	tenantA := uuid.New()
	tenantB := uuid.New()

	a := svc.subscribe(uuid.New(), tenantA)
	b := svc.subscribe(uuid.New(), tenantB)

	assert.Equal(t, 1, svc.PublishToTenant(tenantA, Event{Type: "SlaViolation"}))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 0)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	svc := New(logger.Nop())
	tenant := uuid.New()
	svc.subscribe(uuid.New(), tenant)

	for i := 0; i < clientBufferSize; i++ {
		svc.PublishToTenant(tenant, Event{Type: "WorkflowNotification"})
	}
	delivered := svc.PublishToTenant(tenant, Event{Type: "WorkflowNotification"})

	assert.Equal(t, 0, delivered)
	assert.Equal(t, int64(1), svc.Dropped())
}

func TestUnsubscribeRemovesTenantEntry(t *testing.T) {
	svc := New(logger.Nop())
	tenant := uuid.New()
	c := svc.subscribe(uuid.New(), tenant)

	svc.unsubscribe(c)

	assert.Equal(t, 0, svc.ClientCount(tenant))
	assert.Equal(t, 0, svc.PublishToTenant(tenant, Event{Type: "x"}))
}
