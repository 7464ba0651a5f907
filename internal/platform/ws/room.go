package ws

import (
	"fmt"
	"sync"
)

// Peer is one end of a signaling room.
type Peer struct {
	UserID string
	Send   chan []byte
}

// Room relays signaling frames between the two participants of a telehealth
// session. No media flows through the server; peers exchange SDP offers and
// ICE candidates here and connect directly.
type Room struct {
	mu    sync.Mutex
	peers map[*Peer]struct{}
}

const maxRoomPeers = 2

// RoomRegistry tracks active signaling rooms keyed by session ID.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]*Room)}
}

// Join adds a peer to the session's room, creating the room on first join.
// A third participant is rejected.
func (r *RoomRegistry) Join(sessionID string, peer *Peer) (*Room, error) {
	r.mu.Lock()
	room, ok := r.rooms[sessionID]
	if !ok {
		room = &Room{peers: make(map[*Peer]struct{})}
		r.rooms[sessionID] = room
	}
	r.mu.Unlock()

	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.peers) >= maxRoomPeers {
		return nil, fmt.Errorf("session %s already has %d participants", sessionID, maxRoomPeers)
	}
	room.peers[peer] = struct{}{}
	return room, nil
}

// Leave removes a peer, closing its channel; the room is dropped when empty.
func (r *RoomRegistry) Leave(sessionID string, peer *Peer) {
	r.mu.Lock()
	room, ok := r.rooms[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}

	room.mu.Lock()
	if _, ok := room.peers[peer]; ok {
		delete(room.peers, peer)
		close(peer.Send)
	}
	empty := len(room.peers) == 0
	room.mu.Unlock()

	if empty {
		r.mu.Lock()
		if current, ok := r.rooms[sessionID]; ok && current == room {
			delete(r.rooms, sessionID)
		}
		r.mu.Unlock()
	}
}

// Relay forwards a frame to every peer in the room except the sender.
func (room *Room) Relay(from *Peer, data []byte) {
	room.mu.Lock()
	defer room.mu.Unlock()

	for peer := range room.peers {
		if peer == from {
			continue
		}
		select {
		case peer.Send <- data:
		default:
			// Peer buffer full; signaling frames are retransmitted by
			// the client, so dropping is safe.
		}
	}
}

// PeerCount returns the number of participants in the session's room.
func (r *RoomRegistry) PeerCount(sessionID string) int {
	r.mu.Lock()
	room, ok := r.rooms[sessionID]
	r.mu.Unlock()
	if !ok {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.peers)
}
