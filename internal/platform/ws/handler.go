package ws

import (
	"encoding/json"
	"net/http"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/yacco/emr/internal/platform/auth"
)

const (
	// Clients ping every 30 seconds; a connection that stays silent for
	// three intervals is considered dead.
	readDeadline = 90 * time.Second

	sendBufferSize = 256
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// ChatHandler upgrades /ws/chat/:token connections and wires them into the
// hub. The token travels in the URL path because browser WebSocket clients
// cannot set an Authorization header.
type ChatHandler struct {
	hub    *Hub
	jwtCfg auth.JWTConfig
	logger zerolog.Logger
}

func NewChatHandler(hub *Hub, jwtCfg auth.JWTConfig, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{hub: hub, jwtCfg: jwtCfg, logger: logger}
}

// RegisterRoutes registers the chat WebSocket endpoint.
func (h *ChatHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chat/:token", h.HandleConnect)
}

// HandleConnect authenticates the path token, upgrades the connection, and
// starts the read/write pumps.
func (h *ChatHandler) HandleConnect(c echo.Context) error {
	claims, err := auth.ParseToken(h.jwtCfg, c.Param("token"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	if !claims.TwoFactorOK {
		// Pending 2FA tokens cannot open a socket.
		return echo.NewHTTPError(http.StatusUnauthorized, "two-factor verification required")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		OrgID:  claims.OrganizationID,
		UserID: claims.Subject,
		Send:   make(chan []byte, sendBufferSize),
		conn:   &gorillaConnAdapter{conn},
	}

	h.hub.Register(client)
	h.logger.Debug().
		Str("org_id", client.OrgID).
		Str("user_id", client.UserID).
		Msg("ws client connected")

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump consumes inbound frames, answering pings, until the connection
// errors or the read deadline expires.
func (h *ChatHandler) readPump(client *Client) {
	defer func() {
		h.hub.Unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadDeadline(time.Now().Add(readDeadline))
	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		client.conn.SetReadDeadline(time.Now().Add(readDeadline))

		var frame ClientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue // Ignore malformed frames.
		}
		if frame.Type == "ping" {
			pong, _ := json.Marshal(Event{Type: "pong", Timestamp: time.Now().UTC()})
			select {
			case client.Send <- pong:
			default:
			}
		}
	}
}

// writePump drains the Send channel onto the socket.
func (h *ChatHandler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy Conn.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) SetReadDeadline(t time.Time) error {
	return a.conn.SetReadDeadline(t)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
