package database

import (
	"context"
	"time"

	"github.com/CUknot/chatflow_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the durable store for users, rooms, messages and room requests.
// Every method translates driver errors into the package sentinels.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate("create user", s.db.WithContext(ctx).Create(user).Error)
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate("find user", err)
	}
	return &user, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate("find user by email", err)
	}
	return &user, nil
}

// Rooms

// CreateRoom inserts the room and its creator's membership in one transaction.
func (s *Store) CreateRoom(ctx context.Context, room *models.Room, creatorUsername string) error {
	now := time.Now()
	if room.LastActivity.IsZero() {
		room.LastActivity = now
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participants := room.Participants
		room.Participants = nil
		if err := tx.Create(room).Error; err != nil {
			return err
		}

		creator := models.RoomParticipant{
			RoomID:   room.ID,
			UserID:   room.CreatedBy,
			Username: creatorUsername,
			JoinedAt: now,
		}
		if err := tx.Create(&creator).Error; err != nil {
			return err
		}
		room.Participants = append([]models.RoomParticipant{creator}, participants...)
		return nil
	})
	return translate("create room", err)
}

func (s *Store) FindRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).Preload("Participants").First(&room, id).Error; err != nil {
		return nil, translate("find room", err)
	}
	return &room, nil
}

// ListPublicRooms returns public rooms, most recently active first.
func (s *Store) ListPublicRooms(ctx context.Context, limit int) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).
		Where("is_private = ?", false).
		Preload("Participants").
		Order("last_activity DESC").
		Limit(limit).
		Find(&rooms).Error
	return rooms, translate("list public rooms", err)
}

// ListRoomsForUser returns every room userID participates in.
func (s *Store) ListRoomsForUser(ctx context.Context, userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).
		Where("id IN (?)", s.db.Model(&models.RoomParticipant{}).Select("room_id").Where("user_id = ?", userID)).
		Preload("Participants").
		Order("last_activity DESC").
		Find(&rooms).Error
	return rooms, translate("list rooms for user", err)
}

func (s *Store) TouchRoom(ctx context.Context, roomID uint, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("last_activity", at).Error
	return translate("touch room", err)
}

// Messages

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	return translate("create message", s.db.WithContext(ctx).Create(msg).Error)
}

func (s *Store) FindMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, translate("find message", err)
	}
	return &msg, nil
}

// ListMessages returns one page of a room's history, newest page first,
// in chronological order within the page, plus the room's total message count.
func (s *Store) ListMessages(ctx context.Context, roomID uint, offset, limit int) ([]models.Message, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).Where("room_id = ?", roomID).Count(&total).Error; err != nil {
		return nil, 0, translate("count messages", err)
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, translate("list messages", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, total, nil
}

// AdvanceMessageStatus moves a message forward to status `to`. The update is
// conditional on the current status ranking below `to`, so concurrent writers
// can never move a message backwards. advanced is false when the message was
// already at or past `to`.
func (s *Store) AdvanceMessageStatus(ctx context.Context, id uint, to models.MessageStatus) (msg *models.Message, advanced bool, err error) {
	if below := to.Below(); len(below) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("id = ? AND status IN ?", id, below).
			Update("status", to)
		if res.Error != nil {
			return nil, false, translate("advance message status", res.Error)
		}
		advanced = res.RowsAffected > 0
	}

	msg, err = s.FindMessage(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return msg, advanced, nil
}

func (s *Store) DeleteMessage(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Message{}, id)
	if res.Error != nil {
		return translate("delete message", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Room requests

// CreateRoomRequest inserts a pending request. ErrDuplicate means a pending
// request for the same (room, user) already exists; the partial unique index
// backs the in-transaction check against concurrent inserts.
func (s *Store) CreateRoomRequest(ctx context.Context, req *models.RoomRequest) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	req.Status = models.RequestStatusPending

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.RoomRequest{}).
			Where("room_id = ? AND user_id = ? AND status = ?", req.RoomID, req.UserID, models.RequestStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrDuplicate
		}
		return tx.Create(req).Error
	})
	return translate("create room request", err)
}

func (s *Store) FindRoomRequest(ctx context.Context, id uint) (*models.RoomRequest, error) {
	var req models.RoomRequest
	if err := s.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, translate("find room request", err)
	}
	return &req, nil
}

// ListPendingRequestsForOwner returns pending requests for rooms created by ownerID.
func (s *Store) ListPendingRequestsForOwner(ctx context.Context, ownerID uint) ([]models.RoomRequest, error) {
	var reqs []models.RoomRequest
	err := s.db.WithContext(ctx).
		Where("status = ?", models.RequestStatusPending).
		Where("room_id IN (?)", s.db.Model(&models.Room{}).Select("id").Where("created_by = ?", ownerID)).
		Preload("Room").
		Order("requested_at ASC").
		Find(&reqs).Error
	return reqs, translate("list pending requests", err)
}

// ResolveRoomRequest moves a pending request to `to` with a compare-and-swap on
// status. On approval the requester joins the room's participants in the same
// transaction. Returns ErrConflict when the request is no longer pending.
func (s *Store) ResolveRoomRequest(ctx context.Context, id uint, to models.RequestStatus, at time.Time) (*models.RoomRequest, error) {
	var req models.RoomRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RoomRequest{}).
			Where("id = ? AND status = ?", id, models.RequestStatusPending).
			Updates(map[string]any{"status": to, "responded_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.RoomRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrConflict
		}

		if err := tx.First(&req, id).Error; err != nil {
			return err
		}
		if to != models.RequestStatusApproved {
			return nil
		}

		participant := models.RoomParticipant{
			RoomID:   req.RoomID,
			UserID:   req.UserID,
			Username: req.Username,
			JoinedAt: at,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error
	})
	if err != nil {
		return nil, translate("resolve room request", err)
	}
	return &req, nil
}
