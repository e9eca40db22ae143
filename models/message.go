package models

import (
	"time"
)

// Message delivery states, strictly ordered: sent < delivered < read.
const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// StatusRank maps a delivery state to its position in the lifecycle.
// Unknown states rank below "sent".
func StatusRank(status string) int {
	switch status {
	case MessageStatusSent:
		return 0
	case MessageStatusDelivered:
		return 1
	case MessageStatusRead:
		return 2
	}
	return -1
}

// Reaction is one user's emoji reaction. A user has at most one reaction
// per message; setting a new one replaces the previous.
type Reaction struct {
	UserID    uint      `json:"userId"`
	Emoji     string    `json:"emoji"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplyRef is a denormalized snapshot of the message being replied to.
type ReplyRef struct {
	MessageID string `json:"messageId"`
	SenderID  uint   `json:"senderId"`
	Text      string `json:"text"`
}

// Message 私聊消息模型
type Message struct {
	MessageID  string  `json:"message_id" gorm:"primaryKey;type:varchar(36)"`
	SenderID   uint    `json:"sender_id" gorm:"index"`
	ReceiverID uint    `json:"receiver_id" gorm:"index"`
	Text       string  `json:"text"`
	MediaURL   *string `json:"media_url" gorm:"default:NULL"`
	MediaType  *string `json:"media_type" gorm:"default:NULL"`

	Timestamp   time.Time  `json:"timestamp"`
	Status      string     `json:"status" gorm:"default:'sent';index"`
	DeliveredAt *time.Time `json:"delivered_at" gorm:"default:NULL"`
	ReadAt      *time.Time `json:"read_at" gorm:"default:NULL"`

	IsEdited           bool       `json:"is_edited" gorm:"default:false"`
	EditedAt           *time.Time `json:"edited_at" gorm:"default:NULL"`
	DeletedForEveryone bool       `json:"deleted_for_everyone" gorm:"default:false"`
	DeletedFor         []uint     `json:"deleted_for" gorm:"serializer:json"`
	Reactions          []Reaction `json:"reactions" gorm:"serializer:json"`
	ReplyTo            *ReplyRef  `json:"reply_to" gorm:"serializer:json"`
}

// HiddenFor reports whether userID deleted this message locally.
func (m *Message) HiddenFor(userID uint) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// HideFor adds userID to the local-delete set. Idempotent.
func (m *Message) HideFor(userID uint) {
	if !m.HiddenFor(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
}

// SetReaction replaces any prior reaction from userID. An empty emoji
// removes the user's reaction.
func (m *Message) SetReaction(userID uint, emoji string, at time.Time) {
	m.Reactions = setReaction(m.Reactions, userID, emoji, at)
}

func setReaction(reactions []Reaction, userID uint, emoji string, at time.Time) []Reaction {
	for i, r := range reactions {
		if r.UserID == userID {
			if emoji == "" {
				return append(reactions[:i], reactions[i+1:]...)
			}
			reactions[i] = Reaction{UserID: userID, Emoji: emoji, Timestamp: at}
			return reactions
		}
	}
	if emoji == "" {
		return reactions
	}
	return append(reactions, Reaction{UserID: userID, Emoji: emoji, Timestamp: at})
}
