package events

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncRunsHandlersInOrderAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	var order []int
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 1)
		return errors.New("first failed")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 2)
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if err == nil {
		t.Fatal("expected joined error from first handler")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("handlers ran out of order: %v", order)
	}
}

func TestPublishDeliversAsynchronouslyAfterCancel(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	var calls atomic.Int32
	bus.Subscribe("test.ping", HandlerFunc(func(ctx context.Context, _ Event) error {
		if ctx.Err() != nil {
			t.Error("handler context must not inherit request cancellation")
		}
		calls.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected one delivery, got %d", calls.Load())
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	bus.Publish(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()
}

type tenantPing struct {
	BaseEvent
	tenantID uuid.UUID
}

func (tenantPing) EventName() string          { return "test.tenant_ping" }
func (e tenantPing) EventTenantID() uuid.UUID { return e.tenantID }

func TestFailedHandlerLogCarriesTenant(t *testing.T) {
	var buf bytes.Buffer
	bus := NewInMemoryBus(logger.NewWithWriter("production", &buf))
	bus.Subscribe("test.tenant_ping", HandlerFunc(func(context.Context, Event) error {
		return errors.New("boom")
	}))

	tenantID := uuid.New()
	bus.Publish(context.Background(), tenantPing{BaseEvent: NewBaseEvent(), tenantID: tenantID})
	bus.Wait()

	line := buf.String()
	if !strings.Contains(line, "event handler failed") || !strings.Contains(line, tenantID.String()) {
		t.Fatalf("expected failure log with tenant id, got %q", line)
	}
}

type registrar struct {
	calls *int
}

func (r registrar) RegisterHandlers(bus Bus) {
	*r.calls++
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error { return nil }))
}

func TestSubscribeAllRegistersEverySubscriber(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	calls := 0

	SubscribeAll(bus, registrar{calls: &calls}, registrar{calls: &calls})

	if calls != 2 {
		t.Fatalf("expected 2 registrations, got %d", calls)
	}
	if got := len(bus.snapshot("test.ping")); got != 2 {
		t.Fatalf("expected 2 handlers, got %d", got)
	}
}

func TestNewBaseEventAtStoresUTC(t *testing.T) {
	local := time.Date(2026, 3, 2, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	got := NewBaseEventAt(local).OccurredAt()
	if got.Location() != time.UTC || !got.Equal(local) {
		t.Fatalf("expected %s in UTC, got %s", local, got)
	}
}
