package services

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session lifecycle states.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateAuthenticating
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	}
	return "closed"
}

// awayTimeout is how long a session may go without an activity signal
// before its user is marked away.
var awayTimeout = 2 * time.Minute

// Session is the per-connection state machine. It authenticates the
// handshake, registers with the hub, replays missed deliveries, then
// dispatches inbound events one at a time in arrival order. The inactivity
// timer belongs to the session alone and dies with it.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	client *Client

	state     atomic.Int32
	awayTimer *time.Timer
	closeOnce sync.Once
}

// NewSession wraps a freshly upgraded connection.
func NewSession(hub *Hub, conn *websocket.Conn) *Session {
	return &Session{hub: hub, conn: conn}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Run drives the session to completion: authenticate, register, sweep,
// then read until the transport closes. Blocks for the session's lifetime.
func (s *Session) Run(token string) {
	s.state.Store(int32(StateAuthenticating))
	userID, username, err := s.hub.Auth.Authenticate(token)
	if err != nil {
		// Terminal: a bad credential never reaches active.
		log.Printf("❌ Socket authentication failed: %v", err)
		frame := encodeEvent(EventErrorName, ErrorPayload{Code: CodeAuthentication, Message: "invalid or expired token"})
		if frame != nil {
			_ = s.conn.WriteMessage(websocket.TextMessage, frame)
		}
		s.conn.Close()
		s.state.Store(int32(StateClosed))
		return
	}

	s.client = NewClient(s.conn, userID, username, uuid.New().String())
	s.hub.Registry.Register(s.client)
	s.state.Store(int32(StateActive))
	go s.writePump()

	if err := s.hub.Presence.HandleConnect(userID); err != nil {
		log.Printf("⚠️ Presence connect failed for user %d: %v", userID, err)
	}
	// The replay sweep runs before any inbound event from this session.
	if err := s.hub.Delivery.ReconnectSweep(userID); err != nil {
		log.Printf("⚠️ Reconnect sweep failed for user %d: %v", userID, err)
	}
	s.armAwayTimer()

	log.Printf("✅ User %s connected (session %s)", username, s.client.ConnectionID)
	s.readLoop()
	s.Close()
}

// armAwayTimer starts the inactivity countdown. An activity event resets
// it; Close stops it.
func (s *Session) armAwayTimer() {
	s.awayTimer = time.AfterFunc(awayTimeout, func() {
		if err := s.hub.Presence.MarkAway(s.client.UserID); err != nil {
			log.Printf("⚠️ Away transition failed for user %d: %v", s.client.UserID, err)
		}
	})
}

func (s *Session) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.Dispatch(raw)
	}
}

func (s *Session) writePump() {
	for frame := range s.client.Send {
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("⚠️ Write failed for user %d: %v", s.client.UserID, err)
			s.conn.Close()
			return
		}
	}
}

// Close tears the session down: timer cancelled, registry entry gone,
// presence updated, transport closed. Idempotent and terminal.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		if s.awayTimer != nil {
			s.awayTimer.Stop()
		}
		if s.client != nil {
			s.hub.Registry.Deregister(s.client)
			if err := s.hub.Presence.HandleDisconnect(s.client.UserID); err != nil {
				log.Printf("⚠️ Presence disconnect failed for user %d: %v", s.client.UserID, err)
			}
			s.client.closeSend()
			log.Printf("❌ User %s disconnected (session %s)", s.client.Username, s.client.ConnectionID)
		}
		if s.conn != nil {
			s.conn.Close()
		}
		s.state.Store(int32(StateClosed))
	})
}

// Dispatch handles one inbound frame. Failures are answered with a single
// error event to this session and never touch other sessions.
func (s *Session) Dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.sendError("", validationError("malformed frame"))
		return
	}
	if err := s.handle(env); err != nil {
		s.sendError(env.Event, err)
	}
}

func (s *Session) handle(env Envelope) error {
	userID := s.client.UserID
	switch env.Event {
	case EventSend:
		var p SendPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		_, err := s.hub.Delivery.SendDirect(s.client, p)
		return err

	case EventAckDelivered:
		var p AckPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.MarkDelivered(userID, p.MessageID)

	case EventAckRead:
		var p AckPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.MarkRead(userID, p.MessageID)

	case EventEdit:
		var p EditPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.EditDirect(userID, p)

	case EventDelete:
		var p DeletePayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.DeleteDirect(userID, p)

	case EventReact:
		var p ReactPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.ReactDirect(userID, p)

	case EventTyping:
		var p TypingPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		if p.Target == 0 {
			return validationError("target is required")
		}
		s.hub.Router.ToUser(p.Target, EventTyping, TypingNotification{From: userID, IsTyping: p.IsTyping})
		return nil

	case EventPresenceChange:
		var p PresenceChangePayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Presence.SetStatus(userID, p.Status, p.CustomStatus)

	case EventActivity:
		if s.awayTimer != nil {
			s.awayTimer.Reset(awayTimeout)
		}
		return s.hub.Presence.MarkActive(userID)

	case EventGroupJoin:
		var p GroupRoomPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		if _, err := s.authorizedGroup(p.GroupID); err != nil {
			return err
		}
		s.hub.Registry.JoinGroupRoom(s.client, p.GroupID)
		return nil

	case EventGroupLeave:
		var p GroupRoomPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		s.hub.Registry.LeaveGroupRoom(s.client, p.GroupID)
		return nil

	case EventGroupSend:
		var p GroupSendPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		_, err := s.hub.Delivery.SendGroup(s.client, p)
		return err

	case EventGroupAckRead:
		var p GroupAckReadPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.MarkGroupRead(userID, p)

	case EventGroupEdit:
		var p EditPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.EditGroup(userID, p)

	case EventGroupDelete:
		var p DeletePayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.DeleteGroup(userID, p)

	case EventGroupReact:
		var p ReactPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		return s.hub.Delivery.ReactGroup(userID, p)

	case EventGroupTyping:
		var p GroupTypingPayload
		if err := decode(env.Data, &p); err != nil {
			return err
		}
		if _, err := s.authorizedGroup(p.GroupID); err != nil {
			return err
		}
		groupID := p.GroupID
		s.hub.Router.ToRoomExcept(p.GroupID, s.client, EventGroupTyping, TypingNotification{
			From:     userID,
			GroupID:  &groupID,
			IsTyping: p.IsTyping,
		})
		return nil
	}
	return validationError("unknown event %q", env.Event)
}

func (s *Session) authorizedGroup(groupID uint) (ok bool, err error) {
	group, err := s.hub.Groups.FindByID(groupID)
	if err != nil {
		return false, asEventError(err)
	}
	if !group.IsMember(s.client.UserID) {
		return false, authorizationError("user %d is not a member of group %d", s.client.UserID, groupID)
	}
	return true, nil
}

func (s *Session) sendError(event string, err error) {
	ev := asEventError(err)
	if ev.Code == CodeStore {
		log.Printf("⚠️ Event %s failed for user %d: %v", event, s.client.UserID, err)
	}
	s.client.enqueue(encodeEvent(EventErrorName, ErrorPayload{Event: event, Code: ev.Code, Message: ev.Message}))
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return validationError("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return validationError("invalid payload: %v", err)
	}
	return nil
}
