package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CUknot/chatflow_backend/database"
	"github.com/CUknot/chatflow_backend/events"
	"github.com/CUknot/chatflow_backend/models"
)

// RequestService runs the room access workflow:
// none -> pending -> approved | rejected.
type RequestService struct {
	rooms    RoomStore
	requests RequestStore
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewRequestService(rooms RoomStore, requests RequestStore, notifier Notifier, log *slog.Logger) *RequestService {
	return &RequestService{rooms: rooms, requests: requests, notifier: notifier, log: log, now: time.Now}
}

// RequestAccess opens a pending request for who on roomID and notifies every
// connection currently joined to the room.
func (s *RequestService) RequestAccess(ctx context.Context, who Identity, roomID uint) (*models.RoomRequest, error) {
	room, err := s.rooms.FindRoom(ctx, roomID)
	if err != nil {
		return nil, fromStore(err, "room")
	}
	if room.HasParticipant(who.UserID) {
		return nil, ErrAlreadyMember
	}
	if !room.IsPrivate {
		return nil, validationf("room is public and can be joined directly")
	}

	req := &models.RoomRequest{
		RoomID:      room.ID,
		UserID:      who.UserID,
		Username:    who.Username,
		RequestedAt: s.now(),
	}
	if err := s.requests.CreateRoomRequest(ctx, req); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrDuplicatePending
		}
		return nil, fromStore(err, "room request")
	}
	s.log.Info("Room access requested", "request_id", req.ID, "room_id", room.ID, "user_id", who.UserID)

	s.notifier.BroadcastToRoom(room.ID, events.RoomRequestNotification{
		RequestID:         req.ID,
		RoomID:            room.ID,
		RoomName:          room.Name,
		RequesterID:       who.UserID,
		RequesterUsername: who.Username,
		Message:           fmt.Sprintf("%s wants to join %s", who.Username, room.Name),
		Timestamp:         req.RequestedAt,
	})
	return req, nil
}

// Approve admits the requester. Only the room's creator may approve.
func (s *RequestService) Approve(ctx context.Context, who Identity, requestID uint) (*models.RoomRequest, error) {
	return s.resolve(ctx, who, requestID, models.RequestStatusApproved)
}

// Reject declines the request. Membership is untouched.
func (s *RequestService) Reject(ctx context.Context, who Identity, requestID uint) (*models.RoomRequest, error) {
	return s.resolve(ctx, who, requestID, models.RequestStatusRejected)
}

func (s *RequestService) resolve(ctx context.Context, who Identity, requestID uint, to models.RequestStatus) (*models.RoomRequest, error) {
	req, err := s.requests.FindRoomRequest(ctx, requestID)
	if err != nil {
		return nil, fromStore(err, "room request")
	}
	room, err := s.rooms.FindRoom(ctx, req.RoomID)
	if err != nil {
		return nil, fromStore(err, "room")
	}
	if room.CreatedBy != who.UserID {
		return nil, ErrForbidden
	}
	if !req.IsPending() {
		return nil, ErrAlreadyResolved
	}

	resolved, err := s.requests.ResolveRoomRequest(ctx, req.ID, to, s.now())
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrAlreadyResolved
		}
		return nil, fromStore(err, "room request")
	}
	s.log.Info("Room request resolved",
		"request_id", resolved.ID,
		"room_id", room.ID,
		"user_id", resolved.UserID,
		"status", resolved.Status,
	)

	if to == models.RequestStatusApproved {
		s.notifier.SendToUser(resolved.UserID, events.RoomAccessGranted{
			RequestID: resolved.ID,
			UserID:    resolved.UserID,
			RoomID:    room.ID,
			RoomName:  room.Name,
			Message:   fmt.Sprintf("Your request to join %s was approved", room.Name),
		})
	} else {
		s.notifier.SendToUser(resolved.UserID, events.RoomAccessDenied{
			RequestID: resolved.ID,
			UserID:    resolved.UserID,
			RoomID:    room.ID,
			RoomName:  room.Name,
			Message:   fmt.Sprintf("Your request to join %s was declined", room.Name),
		})
	}
	return resolved, nil
}

// ListPending returns pending requests for rooms created by who.
func (s *RequestService) ListPending(ctx context.Context, who Identity) ([]models.RoomRequest, error) {
	reqs, err := s.requests.ListPendingRequestsForOwner(ctx, who.UserID)
	return reqs, fromStore(err, "room request")
}
