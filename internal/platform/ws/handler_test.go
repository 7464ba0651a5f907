package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/yacco/emr/internal/platform/auth"
)

var testKey = []byte("test-signing-key")

// scriptedConn replays fixed inbound frames, then errors like a closed
// socket.
type scriptedConn struct {
	frames [][]byte
	idx    int
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	if c.idx >= len(c.frames) {
		return 0, nil, errors.New("connection closed")
	}
	f := c.frames[c.idx]
	c.idx++
	return gorillawebsocket.TextMessage, f, nil
}

func (c *scriptedConn) WriteMessage(int, []byte) error { return nil }

func (c *scriptedConn) SetReadDeadline(time.Time) error { return nil }

func (c *scriptedConn) Close() error { return nil }

func connectContext(token string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws/chat/"+token, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("token")
	c.SetParamValues(token)
	return c
}

func TestChatHandler_PendingTwoFactorTokenRejected(t *testing.T) {
	token, err := auth.IssueToken(testKey, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Role:             auth.RoleNurse,
		OrganizationID:   "mercy",
	}, time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	hub := testHub()
	h := NewChatHandler(hub, auth.JWTConfig{SigningKey: testKey}, hub.logger)

	err = h.HandleConnect(connectContext(token))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for pending token, got %v", err)
	}
	if hub.ConnectionCount("mercy", "user-1") != 0 {
		t.Error("pending token must not register a connection")
	}
}

func TestChatHandler_BadTokenRejected(t *testing.T) {
	hub := testHub()
	h := NewChatHandler(hub, auth.JWTConfig{SigningKey: testKey}, hub.logger)

	err := h.HandleConnect(connectContext("not.a.token"))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestReadPump_PongCarriesTimestamp(t *testing.T) {
	hub := testHub()
	h := NewChatHandler(hub, auth.JWTConfig{SigningKey: testKey}, hub.logger)

	client := &Client{
		OrgID:  "mercy",
		UserID: "user-1",
		Send:   make(chan []byte, 4),
		conn:   &scriptedConn{frames: [][]byte{[]byte(`{"type":"ping"}`)}},
	}
	hub.Register(client)
	h.readPump(client)

	data, ok := <-client.Send
	if !ok {
		t.Fatal("expected a pong frame before the channel closed")
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal pong: %v", err)
	}
	if ev.Type != "pong" {
		t.Errorf("expected pong, got %s", ev.Type)
	}
	if ev.Timestamp.IsZero() {
		t.Error("expected pong timestamp to be set")
	}
}
