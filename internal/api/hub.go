package api

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/events"
)

// wsEnvelope is the frame pushed to websocket subscribers for every device
// event.
type wsEnvelope struct {
	Type      events.Type `json:"type"`
	DeviceID  string      `json:"device_id,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans device events out to connected websocket clients.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates an event hub. Run must be started before clients attach.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		logger:     logger.With(zap.String("component", "ws_hub")),
	}
}

// Attach subscribes the hub to every event on the bus and returns the
// unsubscribe function.
func (h *Hub) Attach(bus *events.Bus) events.UnsubscribeFunc {
	return bus.Subscribe(events.Wildcard, func(e events.Event) {
		h.Publish(e)
	})
}

// Publish queues an event frame for broadcast. Frames are dropped rather
// than blocking the event bus when the hub is saturated.
func (h *Hub) Publish(e events.Event) {
	data, err := json.Marshal(wsEnvelope{
		Type:      e.EventType(),
		DeviceID:  e.DeviceID(),
		Payload:   e,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.logger.Error("Failed to marshal event frame", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast channel full, event dropped",
			zap.String("event_type", string(e.EventType())))
	}
}

// Run is the hub's main loop. It exits when the context passed to the
// owning server is cancelled via Close.
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client registered", zap.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("WebSocket client unregistered", zap.Int("total_clients", total))

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Slow client, drop it rather than stall the hub.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client send buffer full, unregistering")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close stops the hub loop. Connected clients are dropped by their pumps.
func (h *Hub) Close() {
	close(h.done)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
