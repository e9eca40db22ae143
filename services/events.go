package services

import (
	"encoding/json"
	"log"
	"time"
)

// Inbound event names.
const (
	EventSend           = "send"
	EventAckDelivered   = "ack_delivered"
	EventAckRead        = "ack_read"
	EventEdit           = "edit"
	EventDelete         = "delete"
	EventReact          = "react"
	EventTyping         = "typing"
	EventPresenceChange = "presence_change"
	EventActivity       = "activity"

	EventGroupSend    = "group_send"
	EventGroupAckRead = "group_ack_read"
	EventGroupEdit    = "group_edit"
	EventGroupDelete  = "group_delete"
	EventGroupReact   = "group_react"
	EventGroupTyping  = "group_typing"
	EventGroupJoin    = "group_join"
	EventGroupLeave   = "group_leave"
)

// Outbound event names.
const (
	EventReceive           = "receive"
	EventMessageSent       = "message_sent"
	EventStatusUpdate      = "status_update"
	EventEdited            = "edited"
	EventDeleted           = "deleted"
	EventReactionChanged   = "reaction_changed"
	EventPresenceChanged   = "presence_changed"
	EventUserStatusChanged = "user_status_changed"

	EventGroupReceive          = "group_receive"
	EventGroupMessageDelivered = "group_message_delivered"
	EventGroupRead             = "group_read"
	EventGroupEdited           = "group_edited"
	EventGroupDeleted          = "group_deleted"
	EventGroupReactionChanged  = "group_reaction_changed"
	EventErrorName             = "error"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// encodeEvent marshals an outbound frame. Marshal failures are a
// programming error on our own payload types; log and drop.
func encodeEvent(event string, data interface{}) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("⚠️ Failed to marshal %s payload: %v", event, err)
		return nil
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		log.Printf("⚠️ Failed to marshal %s envelope: %v", event, err)
		return nil
	}
	return frame
}

// Inbound payloads.

type SendPayload struct {
	ReceiverID uint    `json:"receiverId"`
	Text       string  `json:"text"`
	MediaURL   *string `json:"mediaUrl"`
	MediaType  *string `json:"mediaType"`
	ReplyTo    *string `json:"replyTo"`
}

type AckPayload struct {
	MessageID string `json:"messageId"`
}

type EditPayload struct {
	MessageID string `json:"messageId"`
	NewText   string `json:"newText"`
}

type DeletePayload struct {
	MessageID   string `json:"messageId"`
	ForEveryone bool   `json:"forEveryone"`
}

type ReactPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type TypingPayload struct {
	Target   uint `json:"target"`
	IsTyping bool `json:"isTyping"`
}

type PresenceChangePayload struct {
	Status       string  `json:"status"`
	CustomStatus *string `json:"customStatus"`
}

type GroupSendPayload struct {
	GroupID   uint    `json:"groupId"`
	Text      string  `json:"text"`
	MediaURL  *string `json:"mediaUrl"`
	MediaType *string `json:"mediaType"`
	FileName  *string `json:"fileName"`
	FileSize  *int64  `json:"fileSize"`
	ReplyTo   *string `json:"replyTo"`
}

type GroupAckReadPayload struct {
	GroupID    uint     `json:"groupId"`
	MessageIDs []string `json:"messageIds"`
}

type GroupTypingPayload struct {
	GroupID  uint `json:"groupId"`
	IsTyping bool `json:"isTyping"`
}

type GroupRoomPayload struct {
	GroupID uint `json:"groupId"`
}

// Outbound payloads.

type StatusUpdatePayload struct {
	MessageID string    `json:"messageId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type UserStatusPayload struct {
	UserID       uint       `json:"userId"`
	IsOnline     bool       `json:"isOnline"`
	Status       string     `json:"status"`
	CustomStatus *string    `json:"customStatus,omitempty"`
	LastSeen     *time.Time `json:"lastSeen,omitempty"`
}

type TypingNotification struct {
	From     uint  `json:"from"`
	GroupID  *uint `json:"groupId,omitempty"`
	IsTyping bool  `json:"isTyping"`
}

type GroupDeliveredPayload struct {
	GroupID     uint      `json:"groupId"`
	UserIDs     []uint    `json:"userIds"`
	MessageIDs  []string  `json:"messageIds"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

type GroupReadPayload struct {
	GroupID    uint      `json:"groupId"`
	UserID     uint      `json:"userId"`
	MessageIDs []string  `json:"messageIds"`
	ReadAt     time.Time `json:"readAt"`
}

type DeletedPayload struct {
	MessageID   string `json:"messageId"`
	GroupID     *uint  `json:"groupId,omitempty"`
	ForEveryone bool   `json:"forEveryone"`
	DeletedBy   uint   `json:"deletedBy"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
