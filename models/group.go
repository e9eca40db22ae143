package models

import (
	"time"
)

// Mute is one member's mute entry. A nil MutedUntil means muted forever.
type Mute struct {
	UserID     uint       `json:"userId"`
	MutedUntil *time.Time `json:"mutedUntil"`
}

// LastMessage is a denormalized summary of the newest group message,
// kept on the group row for cheap conversation-list rendering.
type LastMessage struct {
	Text      string    `json:"text"`
	SenderID  uint      `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}

// Group 群组模型
type Group struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `json:"name" gorm:"not null"`
	Description *string `json:"description" gorm:"default:NULL"`
	GroupPhoto  *string `json:"group_photo" gorm:"default:NULL"`
	CreatedBy   uint    `json:"created_by"`
	Admins      []uint  `json:"admins" gorm:"serializer:json"`
	Members     []uint  `json:"members" gorm:"serializer:json"`

	IsPublic                bool `json:"is_public" gorm:"default:false"`
	AllowMembersToAddOthers bool `json:"allow_members_to_add_others" gorm:"default:false"`

	MutedBy     []Mute       `json:"muted_by" gorm:"serializer:json"`
	LastMessage *LastMessage `json:"last_message" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether userID is a group admin.
func (g *Group) IsAdmin(userID uint) bool {
	return containsUint(g.Admins, userID)
}

// IsMember reports whether userID is a group member.
func (g *Group) IsMember(userID uint) bool {
	return containsUint(g.Members, userID)
}

// IsMutedBy reports whether userID has muted this group as of now.
func (g *Group) IsMutedBy(userID uint, now time.Time) bool {
	for _, m := range g.MutedBy {
		if m.UserID != userID {
			continue
		}
		if m.MutedUntil == nil {
			return true
		}
		return m.MutedUntil.After(now)
	}
	return false
}

// AddMember appends userID to the member list. Idempotent.
func (g *Group) AddMember(userID uint) {
	if !g.IsMember(userID) {
		g.Members = append(g.Members, userID)
	}
}

// RemoveMember drops userID from members, admins and the mute list.
// The creator is never removed.
func (g *Group) RemoveMember(userID uint) {
	if userID == g.CreatedBy {
		return
	}
	g.Members = removeUint(g.Members, userID)
	g.Admins = removeUint(g.Admins, userID)
	for i, m := range g.MutedBy {
		if m.UserID == userID {
			g.MutedBy = append(g.MutedBy[:i], g.MutedBy[i+1:]...)
			break
		}
	}
}

// Promote makes an existing member an admin. Idempotent.
func (g *Group) Promote(userID uint) {
	if g.IsMember(userID) && !g.IsAdmin(userID) {
		g.Admins = append(g.Admins, userID)
	}
}

// Demote removes admin rights. The creator is never demoted.
func (g *Group) Demote(userID uint) {
	if userID == g.CreatedBy {
		return
	}
	g.Admins = removeUint(g.Admins, userID)
}

// SetMute records a mute entry for userID, replacing any prior one.
func (g *Group) SetMute(userID uint, until *time.Time) {
	for i, m := range g.MutedBy {
		if m.UserID == userID {
			g.MutedBy[i].MutedUntil = until
			return
		}
	}
	g.MutedBy = append(g.MutedBy, Mute{UserID: userID, MutedUntil: until})
}

// ClearMute removes userID's mute entry.
func (g *Group) ClearMute(userID uint) {
	for i, m := range g.MutedBy {
		if m.UserID == userID {
			g.MutedBy = append(g.MutedBy[:i], g.MutedBy[i+1:]...)
			return
		}
	}
}

func containsUint(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeUint(ids []uint, id uint) []uint {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
