package models

import (
	"time"
)

const MaxMessageLength = 1000

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// Rank orders statuses along sent -> delivered -> read. Unknown statuses rank 0.
func (s MessageStatus) Rank() int {
	switch s {
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	}
	return 0
}

func (s MessageStatus) Valid() bool {
	return s.Rank() > 0
}

// Below lists the statuses a message may be in for a move to s to be a forward step.
func (s MessageStatus) Below() []MessageStatus {
	var out []MessageStatus
	for _, st := range []MessageStatus{MessageStatusSent, MessageStatusDelivered, MessageStatusRead} {
		if st.Rank() < s.Rank() {
			out = append(out, st)
		}
	}
	return out
}

type Message struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	RoomID         uint          `gorm:"not null;index" json:"room_id"`
	SenderID       uint          `gorm:"not null;index" json:"sender_id"`
	SenderUsername string        `gorm:"size:255;not null" json:"sender_username"`
	Text           string        `gorm:"type:text;not null" json:"text"`
	Status         MessageStatus `gorm:"size:20;not null;default:'sent'" json:"status"`
	CreatedAt      time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
