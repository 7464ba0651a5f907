package ws

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func testHub() *Hub {
	return NewHub(zerolog.New(os.Stderr))
}

func newTestClient(org, user string, buffer int) *Client {
	return &Client{OrgID: org, UserID: user, Send: make(chan []byte, buffer)}
}

func TestHub_PublishToUser(t *testing.T) {
	hub := testHub()
	client := newTestClient("mercy", "user-1", 8)
	hub.Register(client)

	msg, _ := json.Marshal(map[string]string{"body": "hello"})
	err := hub.PublishToUser(context.Background(), "mercy", "user-1", Event{Type: "message", Message: msg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case data := <-client.Send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.Type != "message" {
			t.Errorf("expected message type, got %s", ev.Type)
		}
		if ev.Timestamp.IsZero() {
			t.Error("expected timestamp to be stamped")
		}
	default:
		t.Fatal("expected event on client channel")
	}
}

func TestHub_PublishToOtherUserNotDelivered(t *testing.T) {
	hub := testHub()
	client := newTestClient("mercy", "user-1", 8)
	hub.Register(client)

	hub.PublishToUser(context.Background(), "mercy", "user-2", Event{Type: "message"})
	// Same user id in a different org must not receive either.
	hub.PublishToUser(context.Background(), "general", "user-1", Event{Type: "message"})

	select {
	case <-client.Send:
		t.Fatal("event delivered to wrong recipient")
	default:
	}
}

func TestHub_FullBufferDropsNotBlocks(t *testing.T) {
	hub := testHub()
	client := newTestClient("mercy", "user-1", 1)
	hub.Register(client)

	// Second publish must not block even though the buffer holds one event.
	done := make(chan struct{})
	go func() {
		hub.PublishToUser(context.Background(), "mercy", "user-1", Event{Type: "message"})
		hub.PublishToUser(context.Background(), "mercy", "user-1", Event{Type: "message"})
		close(done)
	}()

	select {
	case <-done:
	default:
		// Allow the goroutine to run.
		<-done
	}

	if got := len(client.Send); got != 1 {
		t.Errorf("expected exactly 1 buffered event, got %d", got)
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	hub := testHub()
	client := newTestClient("mercy", "user-1", 8)
	hub.Register(client)
	hub.Unregister(client)

	if _, open := <-client.Send; open {
		t.Error("expected Send channel to be closed")
	}
	if hub.ConnectionCount("mercy", "user-1") != 0 {
		t.Error("expected zero connections after unregister")
	}

	// Double unregister must not panic or close twice.
	hub.Unregister(client)
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	hub := testHub()
	a := newTestClient("mercy", "user-1", 8)
	b := newTestClient("mercy", "user-1", 8)
	hub.Register(a)
	hub.Register(b)

	if hub.ConnectionCount("mercy", "user-1") != 2 {
		t.Fatalf("expected 2 connections, got %d", hub.ConnectionCount("mercy", "user-1"))
	}

	hub.PublishToUser(context.Background(), "mercy", "user-1", Event{Type: "notification"})
	if len(a.Send) != 1 || len(b.Send) != 1 {
		t.Error("expected both connections to receive the event")
	}
}

func TestRoomRegistry_RelayBetweenPeers(t *testing.T) {
	reg := NewRoomRegistry()
	p1 := &Peer{UserID: "doc", Send: make(chan []byte, 4)}
	p2 := &Peer{UserID: "pat", Send: make(chan []byte, 4)}

	room, err := reg.Join("sess-1", p1)
	if err != nil {
		t.Fatalf("join p1: %v", err)
	}
	if _, err := reg.Join("sess-1", p2); err != nil {
		t.Fatalf("join p2: %v", err)
	}

	room.Relay(p1, []byte(`{"type":"signal","payload":{"sdp":"offer"}}`))

	select {
	case data := <-p2.Send:
		if len(data) == 0 {
			t.Error("expected frame data")
		}
	default:
		t.Fatal("expected relayed frame on peer 2")
	}
	select {
	case <-p1.Send:
		t.Fatal("sender must not receive its own frame")
	default:
	}
}

func TestRoomRegistry_ThirdPeerRejected(t *testing.T) {
	reg := NewRoomRegistry()
	reg.Join("sess-1", &Peer{UserID: "a", Send: make(chan []byte, 1)})
	reg.Join("sess-1", &Peer{UserID: "b", Send: make(chan []byte, 1)})

	if _, err := reg.Join("sess-1", &Peer{UserID: "c", Send: make(chan []byte, 1)}); err == nil {
		t.Fatal("expected third participant to be rejected")
	}
}

func TestRoomRegistry_LeaveDropsEmptyRoom(t *testing.T) {
	reg := NewRoomRegistry()
	p1 := &Peer{UserID: "a", Send: make(chan []byte, 1)}
	reg.Join("sess-1", p1)
	reg.Leave("sess-1", p1)

	if reg.PeerCount("sess-1") != 0 {
		t.Error("expected empty room to be dropped")
	}
	if _, open := <-p1.Send; open {
		t.Error("expected peer channel to be closed on leave")
	}
}
