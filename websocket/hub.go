package websocket

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/CUknot/chatflow_backend/events"
)

var ErrHubClosed = errors.New("hub is closed")

// Hub maintains the set of live clients and the rooms they have joined.
// Fan-out always works on a snapshot taken under the lock, so a room's
// membership may change while a broadcast is in flight.
type Hub struct {
	mu sync.RWMutex

	// Registered clients
	clients map[*Client]struct{}

	// Rooms mapping (roomID -> clients)
	rooms map[uint]map[*Client]struct{}

	// Users mapping (userID -> clients), for user-addressed events
	users map[uint]map[*Client]struct{}

	closed bool
	log    *slog.Logger
}

// NewHub creates a new hub instance
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[uint]map[*Client]struct{}),
		users:   make(map[uint]map[*Client]struct{}),
		log:     log,
	}
}

// Register adds a client. It fails once the hub has been closed.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	addTo(h.users, c.identity.UserID, c)
	return nil
}

// Unregister removes a client from the hub and from every room it joined,
// returning those rooms. A second call for the same client returns nil.
func (h *Hub) Unregister(c *Client) []uint {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return nil
	}
	delete(h.clients, c)
	removeFrom(h.users, c.identity.UserID, c)

	joined := make([]uint, 0, len(c.rooms))
	for roomID := range c.rooms {
		removeFrom(h.rooms, roomID, c)
		joined = append(joined, roomID)
	}
	c.rooms = make(map[uint]struct{})
	return joined
}

// Join adds a client to a room. Reports false if it was already joined or is
// no longer registered.
func (h *Hub) Join(c *Client, roomID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	if _, ok := c.rooms[roomID]; ok {
		return false
	}
	c.rooms[roomID] = struct{}{}
	addTo(h.rooms, roomID, c)
	return true
}

// Leave removes a client from a room. Reports false if it was not joined.
func (h *Hub) Leave(c *Client, roomID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := c.rooms[roomID]; !ok {
		return false
	}
	delete(c.rooms, roomID)
	removeFrom(h.rooms, roomID, c)
	return true
}

// InRoom checks if the client is in a specific room
func (h *Hub) InRoom(c *Client, roomID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

// RoomClients returns a snapshot of the clients joined to roomID.
func (h *Hub) RoomClients(roomID uint) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return snapshot(h.rooms[roomID])
}

func (h *Hub) userClients(userID uint) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return snapshot(h.users[userID])
}

// ConnectionCount returns the number of registered clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToRoom sends an event to all clients in a room
func (h *Hub) BroadcastToRoom(roomID uint, ev events.Event) {
	h.deliver(h.RoomClients(roomID), "", ev)
}

// BroadcastToRoomExcept sends an event to all clients in a room but connID.
func (h *Hub) BroadcastToRoomExcept(roomID uint, connID string, ev events.Event) {
	h.deliver(h.RoomClients(roomID), connID, ev)
}

// SendToUser sends an event to every connection of a user.
func (h *Hub) SendToUser(userID uint, ev events.Event) {
	h.deliver(h.userClients(userID), "", ev)
}

func (h *Hub) deliver(targets []*Client, skip string, ev events.Event) {
	if len(targets) == 0 {
		return
	}
	data, err := events.Encode(ev)
	if err != nil {
		h.log.Error("Failed to encode event", "type", ev.Kind(), "error", err)
		return
	}
	for _, c := range targets {
		if c.id == skip {
			continue
		}
		if !c.trySend(data) {
			h.log.Debug("Dropped event for slow or closed client", "conn_id", c.id, "type", ev.Kind())
			c.closeSend()
		}
	}
}

// Close stops accepting clients and closes every live one. Their read pumps
// then run the normal disconnect path.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := snapshot(h.clients)
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
	}
	h.log.Info("Hub closed", "clients", len(clients))
}

func addTo(index map[uint]map[*Client]struct{}, key uint, c *Client) {
	set, ok := index[key]
	if !ok {
		set = make(map[*Client]struct{})
		index[key] = set
	}
	set[c] = struct{}{}
}

func removeFrom(index map[uint]map[*Client]struct{}, key uint, c *Client) {
	if set, ok := index[key]; ok {
		delete(set, c)
		// Clean up empty sets
		if len(set) == 0 {
			delete(index, key)
		}
	}
}

func snapshot(set map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}
