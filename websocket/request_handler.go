package websocket

import (
	"context"
	"fmt"

	"github.com/CUknot/chatflow_backend/events"
	"github.com/CUknot/chatflow_backend/models"
	"github.com/CUknot/chatflow_backend/services"
)

// handleRequestAccess opens a request for the session user and confirms it
// to the requesting connection.
func (d *Dispatcher) handleRequestAccess(ctx context.Context, c *Client, e events.RequestRoomAccess) error {
	req, err := d.requests.RequestAccess(ctx, c.identity, e.RoomID)
	if err != nil {
		return err
	}
	c.Send(events.RequestSent{
		RequestID: req.ID,
		RoomID:    req.RoomID,
		Status:    req.Status,
		Message:   "Access request sent to the room owner",
	})
	return nil
}

type resolveFunc func(ctx context.Context, who services.Identity, requestID uint) (*models.RoomRequest, error)

// handleResolve approves or rejects a request and confirms the outcome to the
// deciding connection. The requester is notified by the workflow itself.
func (d *Dispatcher) handleResolve(ctx context.Context, c *Client, requestID uint, resolve resolveFunc) error {
	req, err := resolve(ctx, c.identity, requestID)
	if err != nil {
		return fmt.Errorf("request %d: %w", requestID, err)
	}
	c.Send(events.RequestHandled{
		RequestID: req.ID,
		RoomID:    req.RoomID,
		UserID:    req.UserID,
		Status:    req.Status,
	})
	return nil
}
