package telehealth

import (
	"net/http"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/yacco/emr/internal/platform/ws"
)

const (
	signalReadDeadline = 90 * time.Second
	signalSendBuffer   = 64
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// SignalHandler upgrades /ws/telehealth/:session_id connections and relays
// SDP and ICE frames between the two parties of a session. Frames pass
// through opaque; no media touches the server.
type SignalHandler struct {
	svc    *Service
	rooms  *ws.RoomRegistry
	logger zerolog.Logger
}

func NewSignalHandler(svc *Service, rooms *ws.RoomRegistry, logger zerolog.Logger) *SignalHandler {
	return &SignalHandler{svc: svc, rooms: rooms, logger: logger}
}

// RegisterRoutes registers the signaling WebSocket endpoint. The join token
// travels as a query parameter because browser WebSocket clients cannot set
// an Authorization header.
func (h *SignalHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/telehealth/:session_id", h.HandleConnect)
}

func (h *SignalHandler) HandleConnect(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	ctx := c.Request().Context()

	sess, err := h.svc.Get(ctx, sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	token := c.QueryParam("token")
	if token == "" || (token != sess.PatientToken && token != sess.PractitionerToken) {
		return echo.NewHTTPError(http.StatusForbidden, "join token does not match this session")
	}
	if sess.Status == StatusCompleted || sess.Status == StatusCancelled {
		return echo.NewHTTPError(http.StatusConflict, "session is closed")
	}

	userID := sess.PatientID.String()
	if token == sess.PractitionerToken {
		userID = sess.PractitionerID.String()
	}

	peer := &ws.Peer{UserID: userID, Send: make(chan []byte, signalSendBuffer)}
	room, err := h.rooms.Join(sessionID.String(), peer)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.rooms.Leave(sessionID.String(), peer)
		return err
	}

	h.logger.Debug().
		Str("session_id", sessionID.String()).
		Str("user_id", userID).
		Int("peers", h.rooms.PeerCount(sessionID.String())).
		Msg("telehealth peer connected")

	go h.writePump(conn, peer)
	go h.readPump(conn, sessionID.String(), room, peer)

	return nil
}

// readPump relays every inbound frame to the other peer until the socket
// closes or goes silent past the deadline.
func (h *SignalHandler) readPump(conn *gorillawebsocket.Conn, sessionID string, room *ws.Room, peer *ws.Peer) {
	defer func() {
		h.rooms.Leave(sessionID, peer)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(signalReadDeadline))
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(signalReadDeadline))
		room.Relay(peer, message)
	}
}

func (h *SignalHandler) writePump(conn *gorillawebsocket.Conn, peer *ws.Peer) {
	defer conn.Close()

	for message := range peer.Send {
		if err := conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}
