package websocket

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
)

const (
	EntityDocument    = "document"
	EntityCelebration = "celebration"
	EntitySession     = "session"

	ActionUpdated  = "updated"
	ActionBaseline = "baseline"
	ActionHello    = "hello"
)

// Message is a real-time notification pushed to every open screen.
// ID is the kid the change concerns, when there is one.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     string         `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, id string, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// DocumentUpdated tells screens to refetch after a mutation. cause names the
// operation, e.g. "complete" or "verify".
func DocumentUpdated(cause, kidID string) Message {
	return NewMessage(EntityDocument, ActionUpdated, kidID, map[string]any{"cause": cause})
}

// Celebration announces that a kid just reached the weekly baseline.
func Celebration(kidID string, points int) Message {
	return NewMessage(EntityCelebration, ActionBaseline, kidID, map[string]any{"points": points})
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n)
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", "clients", n)
}

// Broadcast sends a message to all connected clients. Slow clients miss
// messages rather than block the sender.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client buffer full, dropping message", "type", msg.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
