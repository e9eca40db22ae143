package services

// Router distributes one logical event to every connection in a room.
// Delivery is best-effort and unordered across targets; each target still
// observes its own stream in send order.
type Router struct {
	registry *Registry
}

// NewRouter returns a Router over the given registry.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// ToUser emits to every connection the user currently holds.
func (r *Router) ToUser(userID uint, event string, data interface{}) {
	frame := encodeEvent(event, data)
	for _, c := range r.registry.ConnectionsFor(userID) {
		c.enqueue(frame)
	}
}

// ToParties emits to all connections of both sides of a direct exchange,
// so a user's other devices observe their own outgoing actions. Sender and
// receiver may be the same user (self-messages fan out once).
func (r *Router) ToParties(senderID, receiverID uint, event string, data interface{}) {
	frame := encodeEvent(event, data)
	for _, c := range r.registry.ConnectionsFor(senderID) {
		c.enqueue(frame)
	}
	if receiverID == senderID {
		return
	}
	for _, c := range r.registry.ConnectionsFor(receiverID) {
		c.enqueue(frame)
	}
}

// ToRoom emits to every connection that joined the group room.
func (r *Router) ToRoom(groupID uint, event string, data interface{}) {
	r.ToRoomExcept(groupID, nil, event, data)
}

// ToRoomExcept emits to the group room, skipping the origin connection.
// Used for typing indicators, which never echo back to their source.
func (r *Router) ToRoomExcept(groupID uint, origin *Client, event string, data interface{}) {
	frame := encodeEvent(event, data)
	for _, c := range r.registry.RoomMembers(groupID) {
		if c == origin {
			continue
		}
		c.enqueue(frame)
	}
}

// Global emits to every connection of every user.
func (r *Router) Global(event string, data interface{}) {
	frame := encodeEvent(event, data)
	for _, c := range r.registry.AllClients() {
		c.enqueue(frame)
	}
}
