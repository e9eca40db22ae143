package models

import (
	"time"
)

// Presence statuses. IsOnline is derived: true for every status except offline.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// User 用户模型
type User struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string     `json:"username" gorm:"unique;not null"`
	Password  string     `json:"-" gorm:"not null"`
	Email     string     `json:"email"`
	AvatarURL string     `json:"avatar_url"`
	LastLogin *time.Time `json:"last_login" gorm:"default:NULL"`

	// Presence & status
	IsOnline        bool       `json:"is_online" gorm:"default:false"`
	Status          string     `json:"status" gorm:"default:'offline'"`
	CustomStatus    *string    `json:"custom_status" gorm:"default:NULL"`
	LastSeen        *time.Time `json:"last_seen" gorm:"default:NULL"`
	StatusUpdatedAt *time.Time `json:"status_updated_at" gorm:"default:NULL"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidStatus reports whether s is a known presence status.
func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}
