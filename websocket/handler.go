package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CUknot/chatflow_backend/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Handler upgrades authenticated HTTP requests to live connections.
type Handler struct {
	auth       *services.AuthService
	lifecycle  *Lifecycle
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	rateLimit  rate.Limit
	rateBurst  int
	log        *slog.Logger
}

func NewHandler(
	auth *services.AuthService,
	lifecycle *Lifecycle,
	dispatcher *Dispatcher,
	eventsPerSecond float64,
	burst int,
	allowedOrigins []string,
	log *slog.Logger,
) *Handler {
	return &Handler{
		auth:       auth,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		rateLimit: rate.Limit(eventsPerSecond),
		rateBurst: burst,
		log:       log,
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func bearerToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// HandleConnection godoc
// @Summary Open a realtime connection
// @Description Upgrades to a websocket. The bearer token goes in the token query parameter or the Authorization header.
// @Tags realtime
// @Param token query string false "JWT access token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} map[string]string
// @Router /ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	who, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		} else {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		}
		return
	}

	// Upgrade HTTP connection to WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client, err := h.lifecycle.Connect(conn, who, rate.NewLimiter(h.rateLimit, h.rateBurst))
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	// The request context ends with the handler; the session outlives it
	ctx, cancel := context.WithCancel(context.Background())
	go client.writePump()
	go client.readPump(ctx, h.dispatcher.HandleIncomingMessage, func() {
		cancel()
		h.lifecycle.Disconnect(client)
	})
}
