package services

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/CUknot/chatflow_backend/events"
	"github.com/CUknot/chatflow_backend/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100

	// maxHistoryOffset bounds page*limit so the offset cannot overflow.
	maxHistoryOffset = math.MaxInt32
)

type Pagination struct {
	CurrentPage   int   `json:"current_page"`
	TotalPages    int   `json:"total_pages"`
	TotalMessages int64 `json:"total_messages"`
	HasNext       bool  `json:"has_next"`
	HasPrev       bool  `json:"has_prev"`
}

type HistoryPage struct {
	Messages   []models.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// MessageService persists messages and fans them out to the room.
type MessageService struct {
	rooms    RoomStore
	messages MessageStore
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewMessageService(rooms RoomStore, messages MessageStore, notifier Notifier, log *slog.Logger) *MessageService {
	return &MessageService{rooms: rooms, messages: messages, notifier: notifier, log: log, now: time.Now}
}

func (s *MessageService) accessibleRoom(ctx context.Context, who Identity, roomID uint) (*models.Room, error) {
	room, err := s.rooms.FindRoom(ctx, roomID)
	if err != nil {
		return nil, fromStore(err, "room")
	}
	if !CanAccess(room, who.UserID) {
		return nil, ErrForbidden
	}
	return room, nil
}

// Send persists a message from who and broadcasts it to every connection
// joined to the room, the sender's own included.
func (s *MessageService) Send(ctx context.Context, who Identity, roomID uint, text string) (*models.Message, error) {
	room, err := s.accessibleRoom(ctx, who, roomID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return nil, validationf("message cannot exceed %d characters", models.MaxMessageLength)
	}

	msg := &models.Message{
		RoomID:         room.ID,
		SenderID:       who.UserID,
		SenderUsername: who.Username,
		Text:           text,
		Status:         models.MessageStatusSent,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fromStore(err, "message")
	}
	s.notifier.BroadcastToRoom(room.ID, events.ReceiveMessage{Message: *msg})

	// lastActivity is best effort and never holds up delivery
	if err := s.rooms.TouchRoom(ctx, room.ID, msg.CreatedAt); err != nil {
		s.log.Warn("Failed to update room activity", "room_id", room.ID, "error", err)
	}
	return msg, nil
}

// Recent returns the latest page of a room's history without an access check.
// Callers must have authorized the room already.
func (s *MessageService) Recent(ctx context.Context, roomID uint) ([]models.Message, error) {
	msgs, _, err := s.messages.ListMessages(ctx, roomID, 0, DefaultPageSize)
	return msgs, fromStore(err, "message")
}

// History returns one page of messages, page 1 being the newest.
func (s *MessageService) History(ctx context.Context, who Identity, roomID uint, page, limit int) (*HistoryPage, error) {
	if _, err := s.accessibleRoom(ctx, who, roomID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page-1 > maxHistoryOffset/limit {
		return nil, validationf("page %d is out of range", page)
	}

	msgs, total, err := s.messages.ListMessages(ctx, roomID, (page-1)*limit, limit)
	if err != nil {
		return nil, fromStore(err, "message")
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &HistoryPage{
		Messages: msgs,
		Pagination: Pagination{
			CurrentPage:   page,
			TotalPages:    totalPages,
			TotalMessages: total,
			HasNext:       page < totalPages,
			HasPrev:       page > 1,
		},
	}, nil
}

// UpdateStatus moves a message forward along sent -> delivered -> read.
// Repeating the current status is a no-op; moving backwards is rejected.
func (s *MessageService) UpdateStatus(ctx context.Context, who Identity, messageID uint, status models.MessageStatus) (*models.Message, error) {
	if !status.Valid() {
		return nil, validationf("unknown message status %q", status)
	}
	msg, err := s.messages.FindMessage(ctx, messageID)
	if err != nil {
		return nil, fromStore(err, "message")
	}
	if _, err := s.accessibleRoom(ctx, who, msg.RoomID); err != nil {
		return nil, err
	}

	updated, advanced, err := s.messages.AdvanceMessageStatus(ctx, msg.ID, status)
	if err != nil {
		return nil, fromStore(err, "message")
	}
	if !advanced {
		if updated.Status != status {
			return nil, validationf("message status cannot move from %s back to %s", updated.Status, status)
		}
		return updated, nil
	}

	s.notifier.BroadcastToRoom(updated.RoomID, events.MessageStatusChanged{
		MessageID: updated.ID,
		RoomID:    updated.RoomID,
		Status:    updated.Status,
	})
	return updated, nil
}

// Delete removes a message. Allowed for its author and the room's creator.
func (s *MessageService) Delete(ctx context.Context, who Identity, messageID uint) error {
	msg, err := s.messages.FindMessage(ctx, messageID)
	if err != nil {
		return fromStore(err, "message")
	}
	room, err := s.rooms.FindRoom(ctx, msg.RoomID)
	if err != nil {
		return fromStore(err, "room")
	}
	if msg.SenderID != who.UserID && room.CreatedBy != who.UserID {
		return ErrForbidden
	}
	if err := s.messages.DeleteMessage(ctx, msg.ID); err != nil {
		return fromStore(err, "message")
	}

	s.notifier.BroadcastToRoom(msg.RoomID, events.MessageDeleted{MessageID: msg.ID, RoomID: msg.RoomID})
	return nil
}
