package models

import (
	"time"
)

const MaxRoomNameLength = 50

type Room struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"size:50;not null" json:"name"`
	CreatedBy    uint              `gorm:"not null;index" json:"created_by"`
	IsPrivate    bool              `gorm:"not null;default:false;index" json:"is_private"`
	LastActivity time.Time         `gorm:"index" json:"last_activity"`
	Participants []RoomParticipant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// RoomParticipant is one element of a room's membership set.
type RoomParticipant struct {
	RoomID   uint      `gorm:"primaryKey" json:"room_id"`
	UserID   uint      `gorm:"primaryKey;index" json:"user_id"`
	Username string    `gorm:"size:255" json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// HasParticipant reports whether userID is in the membership set.
// Participants must be preloaded.
func (r *Room) HasParticipant(userID uint) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
