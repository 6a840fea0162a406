package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CUknot/chatflow_backend/utils"
)

var (
	ErrMalformed      = errors.New("malformed frame")
	ErrUnknownKind    = errors.New("unknown event type")
	ErrInvalidPayload = errors.New("invalid payload")
)

type JoinRoom struct {
	RoomID uint `json:"room_id" validate:"required"`
}

type LeaveRoom struct {
	RoomID uint `json:"room_id" validate:"required"`
}

// RequestRoomAccess asks for membership. The requester is always the
// authenticated session user.
type RequestRoomAccess struct {
	RoomID uint `json:"room_id" validate:"required"`
}

type ApproveRoomRequest struct {
	RequestID uint `json:"request_id" validate:"required"`
	RoomID    uint `json:"room_id"`
}

type RejectRoomRequest struct {
	RequestID uint `json:"request_id" validate:"required"`
	RoomID    uint `json:"room_id"`
}

type SendMessage struct {
	RoomID uint   `json:"room_id" validate:"required"`
	Text   string `json:"text"`
}

type Typing struct {
	RoomID   uint   `json:"room_id" validate:"required"`
	Username string `json:"username,omitempty"`
}

type StopTyping struct {
	RoomID   uint   `json:"room_id" validate:"required"`
	Username string `json:"username,omitempty"`
}

func (JoinRoom) Kind() Kind           { return KindJoinRoom }
func (LeaveRoom) Kind() Kind          { return KindLeaveRoom }
func (RequestRoomAccess) Kind() Kind  { return KindRequestRoomAccess }
func (ApproveRoomRequest) Kind() Kind { return KindApproveRoomRequest }
func (RejectRoomRequest) Kind() Kind  { return KindRejectRoomRequest }
func (SendMessage) Kind() Kind        { return KindSendMessage }
func (Typing) Kind() Kind             { return KindTyping }
func (StopTyping) Kind() Kind         { return KindStopTyping }

func (JoinRoom) sealed()           {}
func (LeaveRoom) sealed()          {}
func (RequestRoomAccess) sealed()  {}
func (ApproveRoomRequest) sealed() {}
func (RejectRoomRequest) sealed()  {}
func (SendMessage) sealed()        {}
func (Typing) sealed()             {}
func (StopTyping) sealed()         {}

// Decode parses an inbound frame into its typed event and validates the payload.
// The returned Kind is set whenever the frame's type could be read, so callers
// can tag error replies even when decoding fails.
func Decode(data []byte) (Event, Kind, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case KindJoinRoom:
		ev, err := decodeInto[JoinRoom](env.Payload)
		return ev, env.Type, err
	case KindLeaveRoom:
		ev, err := decodeInto[LeaveRoom](env.Payload)
		return ev, env.Type, err
	case KindRequestRoomAccess:
		ev, err := decodeInto[RequestRoomAccess](env.Payload)
		return ev, env.Type, err
	case KindApproveRoomRequest:
		ev, err := decodeInto[ApproveRoomRequest](env.Payload)
		return ev, env.Type, err
	case KindRejectRoomRequest:
		ev, err := decodeInto[RejectRoomRequest](env.Payload)
		return ev, env.Type, err
	case KindSendMessage:
		ev, err := decodeInto[SendMessage](env.Payload)
		return ev, env.Type, err
	case KindTyping:
		ev, err := decodeInto[Typing](env.Payload)
		return ev, env.Type, err
	case KindStopTyping:
		ev, err := decodeInto[StopTyping](env.Payload)
		return ev, env.Type, err
	}
	return nil, env.Type, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
}

func decodeInto[T Event](payload json.RawMessage) (Event, error) {
	var v T
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidPayload)
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := utils.Validator().Struct(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}
