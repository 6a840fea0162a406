package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/CUknot/chatflow_backend/events"
	"github.com/CUknot/chatflow_backend/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 10000

	// Outbound frames buffered per client before it counts as a slow consumer
	sendBufferSize = 256
)

// Client is one live connection: a session bound to an authenticated user.
type Client struct {
	id       string
	identity services.Identity
	conn     *websocket.Conn
	limiter  *rate.Limiter
	log      *slog.Logger

	// rooms is guarded by the hub's lock
	rooms map[uint]struct{}

	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, identity services.Identity, limiter *rate.Limiter, log *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		limiter:  limiter,
		log:      log.With("conn_id", id, "user_id", identity.UserID),
		rooms:    make(map[uint]struct{}),
		send:     make(chan []byte, sendBufferSize),
	}
}

// trySend queues a frame without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue once. The write pump then sends a close
// frame and drops the connection.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Send encodes and queues an event for this client only.
func (c *Client) Send(ev events.Event) {
	data, err := events.Encode(ev)
	if err != nil {
		c.log.Error("Failed to encode event", "type", ev.Kind(), "error", err)
		return
	}
	if !c.trySend(data) {
		c.log.Debug("Dropped event for slow or closed client", "type", ev.Kind())
		c.closeSend()
	}
}

func (c *Client) sendError(kind events.Kind, err error) {
	c.Send(events.Error{Event: kind, Code: services.Code(err), Message: err.Error()})
}

// readPump pumps frames from the websocket connection to handle until the
// connection fails, then calls done.
func (c *Client) readPump(ctx context.Context, handle func(context.Context, *Client, []byte), done func()) {
	defer func() {
		done()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected websocket close", "error", err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.Send(events.Error{Code: "RateLimited", Message: "too many events, slow down"})
			continue
		}
		handle(ctx, c, message)
	}
}

// writePump pumps frames from the send queue to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The queue was closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
