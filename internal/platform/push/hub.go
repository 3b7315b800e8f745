// Package push delivers real-time events to connected WebSocket clients.
// It implements a hub-and-spoke pattern: notification delivery is addressed
// to a user (all of their connected devices), while video signaling uses
// named rooms whose members relay messages to each other.
package push

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a single message pushed to a client.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an Event of the given type carrying payload. Marshal errors
// surface as an event without data; payloads are plain structs and maps, so
// in practice this does not happen.
func NewEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Event{Type: eventType, Timestamp: time.Now(), Data: data}
}

// Client is one connected WebSocket. A user may hold several at once, one
// per device or tab.
type Client struct {
	UserID uuid.UUID
	Send   chan []byte

	// OnMessage, when set, receives inbound frames from the read pump.
	// Video signaling uses it to relay offers and candidates to room peers.
	OnMessage func(data []byte)

	// OnClose, when set, runs after the client has been unregistered.
	OnClose func()

	rooms map[string]struct{}
}

// NewClient creates a client for the given user with a buffered send queue.
func NewClient(userID uuid.UUID) *Client {
	return &Client{
		UserID: userID,
		Send:   make(chan []byte, 256),
		rooms:  make(map[string]struct{}),
	}
}

// Hub tracks connected clients by user and by room. All operations are
// safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	users map[uuid.UUID]map[*Client]struct{}
	rooms map[string]map[*Client]struct{}
	log   zerolog.Logger
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		users: make(map[uuid.UUID]map[*Client]struct{}),
		rooms: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[*Client]struct{})
	}
	h.users[client.UserID][client] = struct{}{}
}

// Unregister removes a client from the hub and every room it joined, and
// closes its send queue.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}

	delete(conns, client)
	if len(conns) == 0 {
		delete(h.users, client.UserID)
	}

	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	close(client.Send)
}

// JoinRoom subscribes a client to a signaling room.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.rooms[room] = struct{}{}
}

// LeaveRoom removes a client from a signaling room.
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

// SendToUser delivers an event to every connection the user currently holds.
// Delivery is best effort: clients with a full send queue are skipped rather
// than blocking, and an offline user is not an error. It returns the number
// of connections the event was queued on.
func (h *Hub) SendToUser(userID uuid.UUID, event Event) int {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("type", event.Type).Msg("push: marshal event")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.users[userID] {
		select {
		case client.Send <- data:
			sent++
		default:
			// Client buffer full; skip to avoid blocking.
		}
	}
	return sent
}

// BroadcastRoom sends raw data to every member of a room except the sender.
// Used by video signaling, where frames are relayed verbatim between peers.
func (h *Hub) BroadcastRoom(room string, data []byte, except *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		if client == except {
			continue
		}
		select {
		case client.Send <- data:
		default:
		}
	}
}

// BroadcastRoomEvent marshals an event and sends it to every room member
// except the sender.
func (h *Hub) BroadcastRoomEvent(room string, event Event, except *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("type", event.Type).Msg("push: marshal event")
		return
	}
	h.BroadcastRoom(room, data, except)
}

// IsOnline reports whether the user has at least one open connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// RoomMembers returns the user IDs currently connected to a room.
func (h *Hub) RoomMembers(room string) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	var members []uuid.UUID
	for client := range h.rooms[room] {
		if _, ok := seen[client.UserID]; ok {
			continue
		}
		seen[client.UserID] = struct{}{}
		members = append(members, client.UserID)
	}
	return members
}

// ClientCount returns the total number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, conns := range h.users {
		n += len(conns)
	}
	return n
}
