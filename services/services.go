package services

import (
	"context"
	"time"

	"github.com/CUknot/chatflow_backend/events"
	"github.com/CUknot/chatflow_backend/models"
)

// Identity is an authenticated user as resolved from a bearer token.
type Identity struct {
	UserID   uint
	Username string
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type RoomStore interface {
	CreateRoom(ctx context.Context, room *models.Room, creatorUsername string) error
	FindRoom(ctx context.Context, id uint) (*models.Room, error)
	ListPublicRooms(ctx context.Context, limit int) ([]models.Room, error)
	ListRoomsForUser(ctx context.Context, userID uint) ([]models.Room, error)
	TouchRoom(ctx context.Context, roomID uint, at time.Time) error
}

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	FindMessage(ctx context.Context, id uint) (*models.Message, error)
	ListMessages(ctx context.Context, roomID uint, offset, limit int) ([]models.Message, int64, error)
	AdvanceMessageStatus(ctx context.Context, id uint, to models.MessageStatus) (*models.Message, bool, error)
	DeleteMessage(ctx context.Context, id uint) error
}

type RequestStore interface {
	CreateRoomRequest(ctx context.Context, req *models.RoomRequest) error
	FindRoomRequest(ctx context.Context, id uint) (*models.RoomRequest, error)
	ListPendingRequestsForOwner(ctx context.Context, ownerID uint) ([]models.RoomRequest, error)
	ResolveRoomRequest(ctx context.Context, id uint, to models.RequestStatus, at time.Time) (*models.RoomRequest, error)
}

// Store is the full durable store. *database.Store implements it.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	RequestStore
}

// Notifier delivers events to live connections. Delivery is best effort:
// connections that are gone or full are skipped.
type Notifier interface {
	// BroadcastToRoom sends ev to every connection currently joined to roomID.
	BroadcastToRoom(roomID uint, ev events.Event)
	// BroadcastToRoomExcept is BroadcastToRoom minus the connection connID.
	BroadcastToRoomExcept(roomID uint, connID string, ev events.Event)
	// SendToUser sends ev to every live connection of userID, joined or not.
	SendToUser(userID uint, ev events.Event)
}

// CanAccess reports whether userID may read and write room.
func CanAccess(room *models.Room, userID uint) bool {
	return !room.IsPrivate || room.HasParticipant(userID)
}
