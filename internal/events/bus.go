package events

import (
	platformevents "leadflow_backend/platform/events"
	"leadflow_backend/platform/logger"
)

type (
	InMemoryBus = platformevents.InMemoryBus
	Subscriber  = platformevents.Subscriber
)

// NewInMemoryBus returns the process-local bus the engine modules share.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	if log != nil {
		log = log.WithComponent("events")
	}
	return platformevents.NewInMemoryBus(log)
}

// Wire subscribes every module that reacts to engine events. Call it once
// all modules are built; nothing is published before the server starts.
func Wire(bus Bus, subscribers ...Subscriber) {
	platformevents.SubscribeAll(bus, subscribers...)
}
