package models

import (
	"time"
)

// ReadReceipt records that a user has read a group message.
type ReadReceipt struct {
	UserID uint      `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

// DeliveryReceipt records that a group message reached a user's client.
type DeliveryReceipt struct {
	UserID      uint      `json:"userId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// GroupMessage 群聊消息模型
//
// Unlike a direct Message there is no single status field: delivery and
// read state are tracked per recipient in DeliveredTo/ReadBy. The sender
// never appears in either set.
type GroupMessage struct {
	MessageID string  `json:"message_id" gorm:"primaryKey;type:varchar(36)"`
	GroupID   uint    `json:"group_id" gorm:"index"`
	SenderID  uint    `json:"sender_id" gorm:"index"`
	Text      string  `json:"text"`
	MediaURL  *string `json:"media_url" gorm:"default:NULL"`
	MediaType *string `json:"media_type" gorm:"default:NULL"`
	FileName  *string `json:"file_name" gorm:"default:NULL"`
	FileSize  *int64  `json:"file_size" gorm:"default:NULL"`

	Timestamp time.Time  `json:"timestamp"`
	IsEdited  bool       `json:"is_edited" gorm:"default:false"`
	EditedAt  *time.Time `json:"edited_at" gorm:"default:NULL"`

	DeletedForEveryone bool       `json:"deleted_for_everyone" gorm:"default:false"`
	DeletedFor         []uint     `json:"deleted_for" gorm:"serializer:json"`
	ReplyTo            *ReplyRef  `json:"reply_to" gorm:"serializer:json"`
	Reactions          []Reaction `json:"reactions" gorm:"serializer:json"`

	ReadBy      []ReadReceipt     `json:"read_by" gorm:"serializer:json"`
	DeliveredTo []DeliveryReceipt `json:"delivered_to" gorm:"serializer:json"`
}

// DeliveredToUser reports whether userID already has a delivery receipt.
func (m *GroupMessage) DeliveredToUser(userID uint) bool {
	for _, r := range m.DeliveredTo {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// ReadByUser reports whether userID already has a read receipt.
func (m *GroupMessage) ReadByUser(userID uint) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// AddDelivery inserts a delivery receipt for userID. The sender and
// already-recorded users are skipped; returns true if a receipt was added.
func (m *GroupMessage) AddDelivery(userID uint, at time.Time) bool {
	if userID == m.SenderID || m.DeliveredToUser(userID) {
		return false
	}
	m.DeliveredTo = append(m.DeliveredTo, DeliveryReceipt{UserID: userID, DeliveredAt: at})
	return true
}

// AddRead inserts a read receipt for userID. The sender and
// already-recorded users are skipped; returns true if a receipt was added.
func (m *GroupMessage) AddRead(userID uint, at time.Time) bool {
	if userID == m.SenderID || m.ReadByUser(userID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, ReadReceipt{UserID: userID, ReadAt: at})
	return true
}

// HiddenFor reports whether userID deleted this message locally.
func (m *GroupMessage) HiddenFor(userID uint) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// HideFor adds userID to the local-delete set. Idempotent.
func (m *GroupMessage) HideFor(userID uint) {
	if !m.HiddenFor(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
}

// SetReaction replaces any prior reaction from userID. An empty emoji
// removes the user's reaction.
func (m *GroupMessage) SetReaction(userID uint, emoji string, at time.Time) {
	m.Reactions = setReaction(m.Reactions, userID, emoji, at)
}
