package services

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/CUknot/chatflow_backend/models"
)

const PublicRoomLimit = 50

type RoomService struct {
	rooms RoomStore
	log   *slog.Logger
}

func NewRoomService(rooms RoomStore, log *slog.Logger) *RoomService {
	return &RoomService{rooms: rooms, log: log}
}

// Create makes a room owned by who, with who as its first participant.
func (s *RoomService) Create(ctx context.Context, who Identity, name string, private bool) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("room name is required")
	}
	if utf8.RuneCountInString(name) > models.MaxRoomNameLength {
		return nil, validationf("room name cannot exceed %d characters", models.MaxRoomNameLength)
	}

	room := &models.Room{Name: name, CreatedBy: who.UserID, IsPrivate: private}
	if err := s.rooms.CreateRoom(ctx, room, who.Username); err != nil {
		return nil, fromStore(err, "room")
	}
	s.log.Info("Room created", "room_id", room.ID, "user_id", who.UserID, "private", private)
	return room, nil
}

// Get returns the room if who may access it. The same guard covers history
// reads, message sends and live joins.
func (s *RoomService) Get(ctx context.Context, who Identity, roomID uint) (*models.Room, error) {
	room, err := s.rooms.FindRoom(ctx, roomID)
	if err != nil {
		return nil, fromStore(err, "room")
	}
	if !CanAccess(room, who.UserID) {
		return nil, ErrForbidden
	}
	return room, nil
}

func (s *RoomService) ListPublic(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.ListPublicRooms(ctx, PublicRoomLimit)
	return rooms, fromStore(err, "room")
}

func (s *RoomService) ListMine(ctx context.Context, who Identity) ([]models.Room, error) {
	rooms, err := s.rooms.ListRoomsForUser(ctx, who.UserID)
	return rooms, fromStore(err, "room")
}
