package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// RoomManager keeps the per-room broadcast channels: which clients are
// subscribed to which room, plus the reverse index used to tear a
// connection down in O(memberships) instead of scanning every room.
type RoomManager struct {
	rooms       map[string]map[string]*Client  // roomID -> connectionID -> client
	memberships map[string]map[string]struct{} // connectionID -> roomIDs
	upgrader    websocket.Upgrader
	mu          sync.RWMutex
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:       make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is enforced by the CORS layer
			},
		},
	}
}

func (rm *RoomManager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return rm.upgrader.Upgrade(w, r, nil)
}

func (rm *RoomManager) Subscribe(roomID string, cl *Client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		room = make(map[string]*Client)
		rm.rooms[roomID] = room
	}
	room[cl.ID] = cl

	joined, ok := rm.memberships[cl.ID]
	if !ok {
		joined = make(map[string]struct{})
		rm.memberships[cl.ID] = joined
	}
	joined[roomID] = struct{}{}
}

func (rm *RoomManager) Unsubscribe(roomID string, cl *Client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[roomID]; ok {
		delete(room, cl.ID)
		if len(room) == 0 {
			delete(rm.rooms, roomID)
		}
	}
	if joined, ok := rm.memberships[cl.ID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(rm.memberships, cl.ID)
		}
	}
}

// Memberships returns the rooms a connection is currently subscribed to.
func (rm *RoomManager) Memberships(connectionID string) []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	joined := rm.memberships[connectionID]
	ids := make([]string, 0, len(joined))
	for roomID := range joined {
		ids = append(ids, roomID)
	}
	return ids
}

// SendTo unicasts to a single connection.
func (rm *RoomManager) SendTo(cl *Client, msg *Message) {
	cl.enqueue(msg)
}

// Broadcast multicasts to every subscriber of the room, sender included.
func (rm *RoomManager) Broadcast(roomID string, msg *Message) {
	rm.BroadcastExcept(roomID, "", msg)
}

// BroadcastExcept multicasts to every subscriber except exceptID.
func (rm *RoomManager) BroadcastExcept(roomID, exceptID string, msg *Message) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	for _, cl := range rm.rooms[roomID] {
		if cl.ID == exceptID {
			continue
		}
		cl.enqueue(msg)
	}
}
