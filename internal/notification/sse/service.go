// Package sse provides Server-Sent Events support for real-time notifications.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const clientBufferSize = 32

// Event represents an SSE event payload
type Event struct {
	Type    string      `json:"type"`
	Title   string      `json:"title,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	userID   uuid.UUID
	tenantID uuid.UUID
	events   chan Event
}

// Service manages SSE connections and event broadcasting.
// Clients are grouped per tenant; publishing never blocks on a slow client.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // tenantID -> clients
	dropped atomic.Int64
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) subscribe(userID, tenantID uuid.UUID) *client {
	c := &client{
		userID:   userID,
		tenantID: tenantID,
		events:   make(chan Event, clientBufferSize),
	}

	s.mu.Lock()
	s.clients[tenantID] = append(s.clients[tenantID], c)
	s.mu.Unlock()
	return c
}

func (s *Service) unsubscribe(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.tenantID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.tenantID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.tenantID]) == 0 {
		delete(s.clients, c.tenantID)
	}
}

// PublishToTenant broadcasts an event to every client connected for the tenant.
// A client whose buffer is full misses the event. Returns the number of clients reached.
func (s *Service) PublishToTenant(tenantID uuid.UUID, event Event) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for _, c := range s.clients[tenantID] {
		select {
		case c.events <- event:
			delivered++
		default:
			s.dropped.Add(1)
			s.log.Warn("sse buffer full, event dropped", "tenantId", tenantID, "userId", c.userID, "type", event.Type)
		}
	}
	return delivered
}

// Dropped returns how many events were discarded because a client buffer was full.
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

// ClientCount returns the number of connected clients for a tenant.
func (s *Service) ClientCount(tenantID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[tenantID])
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(getIdentity func(*gin.Context) (userID, tenantID uuid.UUID, ok bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, tenantID, ok := getIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := s.subscribe(userID, tenantID)
		defer s.unsubscribe(cl)

		c.SSEvent("connected", gin.H{"userId": userID, "tenantId": tenantID})
		c.Writer.Flush()

		s.log.Debug("sse client connected", "userId", userID, "tenantId", tenantID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "userId", userID)
				return
			case event := <-cl.events:
				data, _ := json.Marshal(event)
				c.SSEvent(event.Type, string(data))
				c.Writer.Flush()
			}
		}
	}
}
