package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/chorecal/internal/model"
)

const (
	EntityChore      = "chore"
	EntityCompletion = "completion"
	EntityMember     = "member"
	EntityDigest     = "digest"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionReady   = "ready"
)

// Message tells connected calendars that something changed and which events
// to refetch. Type is "<entity>_<action>".
type Message struct {
	Type         string `json:"type"`
	Entity       string `json:"entity"`
	Action       string `json:"action"`
	ID           int64  `json:"id,omitempty"`
	OccurrenceID string `json:"occurrenceId,omitempty"`
	Data         any    `json:"data,omitempty"`
}

func NewMessage(entity, action string, id int64) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// CompletionMessage addresses a single occurrence. ID carries the chore id.
func CompletionMessage(action string, key model.OccurrenceKey) Message {
	msg := NewMessage(EntityCompletion, action, key.ChoreID)
	msg.OccurrenceID = key.String()
	return msg
}

func DigestMessage(data any) Message {
	msg := NewMessage(EntityDigest, ActionReady, 0)
	msg.Data = data
	return msg
}

// Hub fans messages out to every connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds c. After Close, c's send channel is closed at once so the
// client disconnects instead of waiting on a hub that will never send.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.send)
		return
	}
	h.clients[c] = struct{}{}
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast never blocks: a client whose buffer is full misses the message
// and catches up on its next refetch.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug("broadcast dropped for slow clients", "type", msg.Type, "dropped", dropped)
	}
}

// Close disconnects every client. Connections are hijacked, so
// http.Server.Shutdown does not end them on its own.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
