// Package ws implements the real-time push layer: a hub of WebSocket
// connections keyed by organization and user, used for chat messages and
// notification badges, plus per-session signaling rooms for telehealth.
//
// Delivery is best-effort per-connection FIFO. A slow client's buffer being
// full drops the event rather than blocking the publisher; disconnected
// clients miss in-flight pushes and catch up through the unread-count REST
// endpoint after reconnecting.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is a frame pushed to a connected client.
type Event struct {
	Type         string          `json:"type"`
	Message      json.RawMessage `json:"message,omitempty"`
	Notification json.RawMessage `json:"notification,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ClientFrame is an inbound frame from a client. Chat clients only send
// pings; telehealth clients send signal frames.
type ClientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Publisher pushes events to a user's live connections.
type Publisher interface {
	PublishToUser(ctx context.Context, orgID, userID string, event Event) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Client is one live connection belonging to an authenticated user. A user
// may hold several (multiple browser tabs).
type Client struct {
	OrgID  string
	UserID string
	Send   chan []byte
	conn   Conn
}

func topicKey(orgID, userID string) string {
	return orgID + ":" + userID
}

// Hub tracks connected clients per org:user topic. All operations are
// safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client under its org:user topic.
func (h *Hub) Register(client *Client) {
	key := topicKey(client.OrgID, client.UserID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[key] == nil {
		h.clients[key] = make(map[*Client]struct{})
	}
	h.clients[key][client] = struct{}{}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	key := topicKey(client.OrgID, client.UserID)

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[key]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, key)
	}
	close(client.Send)
}

// PublishToUser sends an event to every live connection of the given user.
// Implements Publisher.
func (h *Hub) PublishToUser(_ context.Context, orgID, userID string, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("ws: failed to marshal event")
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topicKey(orgID, userID)] {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; drop rather than block the publisher.
		}
	}
	return nil
}

// ConnectionCount returns the number of live connections for a user.
func (h *Hub) ConnectionCount(orgID, userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topicKey(orgID, userID)])
}

// UserCount returns the number of distinct connected org:user topics.
func (h *Hub) UserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
