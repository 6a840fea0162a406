package models

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// RoomRequest is a non-member's bid to join a room. The partial unique index
// keeps at most one pending record per (room, user).
type RoomRequest struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	RoomID      uint          `gorm:"not null;uniqueIndex:idx_room_requests_pending,where:status = 'pending'" json:"room_id"`
	Room        *Room         `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	UserID      uint          `gorm:"not null;index;uniqueIndex:idx_room_requests_pending,where:status = 'pending'" json:"user_id"`
	Username    string        `gorm:"size:255;not null" json:"username"`
	Status      RequestStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (r *RoomRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}
