package websocket

import (
	"context"
	"log/slog"

	"github.com/CUknot/chatflow_backend/events"
	"github.com/CUknot/chatflow_backend/services"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Lifecycle owns every mutation of the hub: connect, join, leave and
// disconnect. Everything else only reads the hub to fan out.
type Lifecycle struct {
	hub      *Hub
	rooms    *services.RoomService
	messages *services.MessageService
	log      *slog.Logger
}

func NewLifecycle(hub *Hub, rooms *services.RoomService, messages *services.MessageService, log *slog.Logger) *Lifecycle {
	return &Lifecycle{hub: hub, rooms: rooms, messages: messages, log: log}
}

// Connect registers a session for an already authenticated identity.
func (l *Lifecycle) Connect(conn *websocket.Conn, who services.Identity, limiter *rate.Limiter) (*Client, error) {
	c := newClient(conn, who, limiter, l.log)
	if err := l.hub.Register(c); err != nil {
		return nil, err
	}
	c.log.Info("Client connected")
	return c, nil
}

// JoinRoom adds the client to the room's broadcast group if it may access the
// room, replies room-joined with recent history, and tells the others.
func (l *Lifecycle) JoinRoom(ctx context.Context, c *Client, roomID uint) error {
	room, err := l.rooms.Get(ctx, c.identity, roomID)
	if err != nil {
		return err
	}
	recent, err := l.messages.Recent(ctx, room.ID)
	if err != nil {
		return err
	}

	joined := l.hub.Join(c, room.ID)
	c.Send(events.RoomJoined{Room: *room, Messages: recent})
	if joined {
		l.hub.BroadcastToRoomExcept(room.ID, c.id, events.UserJoined{
			RoomID:   room.ID,
			UserID:   c.identity.UserID,
			Username: c.identity.Username,
		})
	}
	return nil
}

// LeaveRoom removes the client from one room and tells the rest.
func (l *Lifecycle) LeaveRoom(c *Client, roomID uint) {
	if !l.hub.Leave(c, roomID) {
		return
	}
	l.hub.BroadcastToRoom(roomID, events.UserLeft{
		RoomID:   roomID,
		UserID:   c.identity.UserID,
		Username: c.identity.Username,
	})
}

// Disconnect tears a session down. Safe to call more than once.
func (l *Lifecycle) Disconnect(c *Client) {
	rooms := l.hub.Unregister(c)
	c.closeSend()
	if rooms == nil {
		return
	}
	for _, roomID := range rooms {
		l.hub.BroadcastToRoom(roomID, events.UserLeft{
			RoomID:   roomID,
			UserID:   c.identity.UserID,
			Username: c.identity.Username,
		})
	}
	c.log.Info("Client disconnected", "rooms", len(rooms))
}
