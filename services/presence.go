package services

import (
	"github.com/CUknot/chatflow_backend/events"
)

// PresenceService relays typing state. Nothing is stored and no timeout is
// kept; the client sends stop-typing itself.
type PresenceService struct {
	notifier Notifier
}

func NewPresenceService(notifier Notifier) *PresenceService {
	return &PresenceService{notifier: notifier}
}

// SetTyping tells every other connection in roomID that who started or
// stopped typing. The caller must already be joined to the room.
func (s *PresenceService) SetTyping(who Identity, connID string, roomID uint, typing bool) {
	s.notifier.BroadcastToRoomExcept(roomID, connID, events.UserTyping{
		RoomID:   roomID,
		UserID:   who.UserID,
		Username: who.Username,
		IsTyping: typing,
	})
}
