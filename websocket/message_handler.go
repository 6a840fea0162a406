package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CUknot/chatflow_backend/events"
	"github.com/CUknot/chatflow_backend/services"
)

// Upper bound on how long one inbound event may spend in the store
const handleTimeout = 10 * time.Second

// Dispatcher routes decoded inbound events to the lifecycle manager and the
// services. Failures go back to the sending connection as error events.
type Dispatcher struct {
	hub       *Hub
	lifecycle *Lifecycle
	requests  *services.RequestService
	messages  *services.MessageService
	presence  *services.PresenceService
	log       *slog.Logger
}

func NewDispatcher(
	hub *Hub,
	lifecycle *Lifecycle,
	requests *services.RequestService,
	messages *services.MessageService,
	presence *services.PresenceService,
	log *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		hub:       hub,
		lifecycle: lifecycle,
		requests:  requests,
		messages:  messages,
		presence:  presence,
		log:       log,
	}
}

// HandleIncomingMessage processes one inbound frame from c.
func (d *Dispatcher) HandleIncomingMessage(ctx context.Context, c *Client, data []byte) {
	ev, kind, err := events.Decode(data)
	if err != nil {
		c.log.Debug("Rejected inbound frame", "type", kind, "error", err)
		c.sendError(kind, fmt.Errorf("%w: %v", services.ErrValidation, err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if err := d.dispatch(ctx, c, ev); err != nil {
		if services.Retryable(err) {
			c.log.Error("Store failure handling event", "type", kind, "error", err)
		} else {
			c.log.Debug("Event refused", "type", kind, "error", err)
		}
		c.sendError(kind, err)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, c *Client, ev events.Event) error {
	switch e := ev.(type) {
	case events.JoinRoom:
		return d.lifecycle.JoinRoom(ctx, c, e.RoomID)
	case events.LeaveRoom:
		d.lifecycle.LeaveRoom(c, e.RoomID)
		return nil
	case events.RequestRoomAccess:
		return d.handleRequestAccess(ctx, c, e)
	case events.ApproveRoomRequest:
		return d.handleResolve(ctx, c, e.RequestID, d.requests.Approve)
	case events.RejectRoomRequest:
		return d.handleResolve(ctx, c, e.RequestID, d.requests.Reject)
	case events.SendMessage:
		_, err := d.messages.Send(ctx, c.identity, e.RoomID, e.Text)
		return err
	case events.Typing:
		return d.handleTyping(c, e.RoomID, true)
	case events.StopTyping:
		return d.handleTyping(c, e.RoomID, false)
	}
	return fmt.Errorf("%w: %s is not accepted from clients", services.ErrValidation, ev.Kind())
}

func (d *Dispatcher) handleTyping(c *Client, roomID uint, typing bool) error {
	if !d.hub.InRoom(c, roomID) {
		return fmt.Errorf("%w: join the room first", services.ErrForbidden)
	}
	d.presence.SetTyping(c.identity, c.id, roomID, typing)
	return nil
}
