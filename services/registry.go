package services

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client 代表一个 WebSocket 客户端
//
// One Client per physical connection. A user with several devices holds
// several Clients at once. Outbound frames go through the buffered Send
// channel; the session's write pump drains it.
type Client struct {
	Conn         *websocket.Conn
	Send         chan []byte
	UserID       uint
	Username     string
	ConnectionID string
	ConnectedAt  time.Time

	closeOnce sync.Once
}

const sendBufferSize = 64

// NewClient wraps a websocket connection. conn may be nil in tests; the
// Send channel still carries every frame the engine would have written.
func NewClient(conn *websocket.Conn, userID uint, username, connectionID string) *Client {
	return &Client{
		Conn:         conn,
		Send:         make(chan []byte, sendBufferSize),
		UserID:       userID,
		Username:     username,
		ConnectionID: connectionID,
		ConnectedAt:  time.Now(),
	}
}

// enqueue hands a frame to the write pump. Fanout is fire-and-forget: a
// client whose buffer is full just misses the frame.
func (c *Client) enqueue(frame []byte) {
	if frame == nil {
		return
	}
	select {
	case c.Send <- frame:
	default:
		log.Printf("⚠️ Send buffer full, dropping frame for user %d (%s)", c.UserID, c.ConnectionID)
	}
}

// closeSend closes the Send channel exactly once.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// Registry maps user ids to their open connections and group ids to the
// connections that joined the group room. Constructed once in main and
// passed to every session; there is no package-level instance.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uint]map[*Client]struct{}
	rooms  map[uint]map[*Client]struct{}
	joined map[*Client]map[uint]struct{}
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[uint]map[*Client]struct{}),
		rooms:  make(map[uint]map[*Client]struct{}),
		joined: make(map[*Client]map[uint]struct{}),
	}
}

// Register adds a client to its user's connection set.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		r.conns[c.UserID] = set
	}
	set[c] = struct{}{}
	log.Printf("🔵 Client registered: user %d connection %s", c.UserID, c.ConnectionID)
}

// Deregister removes a client and all its room memberships. Unknown
// clients are a no-op. Returns the number of connections the user still
// holds.
func (r *Registry) Deregister(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.conns[c.UserID]; ok {
		if _, known := set[c]; known {
			delete(set, c)
			if len(set) == 0 {
				delete(r.conns, c.UserID)
			}
			log.Printf("🔴 Client deregistered: user %d connection %s", c.UserID, c.ConnectionID)
		}
	}
	for groupID := range r.joined[c] {
		if room, ok := r.rooms[groupID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(r.rooms, groupID)
			}
		}
	}
	delete(r.joined, c)
	return len(r.conns[c.UserID])
}

// ConnectionsFor returns a snapshot of the user's open connections.
func (r *Registry) ConnectionsFor(userID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.conns[userID]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	return clients
}

// HasConnections reports whether the user holds at least one connection.
func (r *Registry) HasConnections(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// JoinGroupRoom subscribes a connection to a group room.
func (r *Registry) JoinGroupRoom(c *Client, groupID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[groupID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[groupID] = room
	}
	room[c] = struct{}{}
	if r.joined[c] == nil {
		r.joined[c] = make(map[uint]struct{})
	}
	r.joined[c][groupID] = struct{}{}
}

// LeaveGroupRoom unsubscribes a connection from a group room. Unknown
// memberships are a no-op.
func (r *Registry) LeaveGroupRoom(c *Client, groupID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[groupID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, groupID)
		}
	}
	if joined, ok := r.joined[c]; ok {
		delete(joined, groupID)
	}
}

// RoomMembers returns a snapshot of the connections in a group room.
func (r *Registry) RoomMembers(groupID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[groupID]
	clients := make([]*Client, 0, len(room))
	for c := range room {
		clients = append(clients, c)
	}
	return clients
}

// AllClients returns a snapshot of every open connection.
func (r *Registry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var clients []*Client
	for _, set := range r.conns {
		for c := range set {
			clients = append(clients, c)
		}
	}
	return clients
}
