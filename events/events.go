// Package events defines every realtime event exchanged over a live connection.
// The set is closed: only types in this package satisfy Event.
package events

import (
	"encoding/json"
	"time"

	"github.com/CUknot/chatflow_backend/models"
)

type Kind string

// Client to server.
const (
	KindJoinRoom           Kind = "join-room"
	KindLeaveRoom          Kind = "leave-room"
	KindRequestRoomAccess  Kind = "request-room-access"
	KindApproveRoomRequest Kind = "approve-room-request"
	KindRejectRoomRequest  Kind = "reject-room-request"
	KindSendMessage        Kind = "send-message"
	KindTyping             Kind = "typing"
	KindStopTyping         Kind = "stop-typing"
)

// Server to client.
const (
	KindRoomRequestNotification Kind = "room-request-notification"
	KindRoomAccessGranted       Kind = "room-access-granted"
	KindRoomAccessDenied        Kind = "room-access-denied"
	KindReceiveMessage          Kind = "receive-message"
	KindUserTyping              Kind = "user-typing"
	KindUserJoined              Kind = "user-joined"
	KindUserLeft                Kind = "user-left"
	KindRoomJoined              Kind = "room-joined"
	KindRequestSent             Kind = "request-sent"
	KindRequestHandled          Kind = "request-handled"
	KindMessageStatus           Kind = "message-status"
	KindMessageDeleted          Kind = "message-deleted"
	KindError                   Kind = "error"
)

// Event is one member of the closed set of realtime events.
type Event interface {
	Kind() Kind
	sealed()
}

// Envelope is the wire frame: {"type": ..., "payload": {...}}.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode serializes an event into its wire frame.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(struct {
		Type    Kind  `json:"type"`
		Payload Event `json:"payload"`
	}{Type: e.Kind(), Payload: e})
}

type RoomRequestNotification struct {
	RequestID         uint      `json:"request_id"`
	RoomID            uint      `json:"room_id"`
	RoomName          string    `json:"room_name"`
	RequesterID       uint      `json:"requester_id"`
	RequesterUsername string    `json:"requester_username"`
	Message           string    `json:"message"`
	Timestamp         time.Time `json:"timestamp"`
}

type RoomAccessGranted struct {
	RequestID uint   `json:"request_id"`
	UserID    uint   `json:"user_id"`
	RoomID    uint   `json:"room_id"`
	RoomName  string `json:"room_name"`
	Message   string `json:"message"`
}

type RoomAccessDenied struct {
	RequestID uint   `json:"request_id"`
	UserID    uint   `json:"user_id"`
	RoomID    uint   `json:"room_id"`
	RoomName  string `json:"room_name"`
	Message   string `json:"message"`
}

// ReceiveMessage carries the full persisted message.
type ReceiveMessage struct {
	models.Message
}

type UserTyping struct {
	RoomID   uint   `json:"room_id"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type UserJoined struct {
	RoomID   uint   `json:"room_id"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

type UserLeft struct {
	RoomID   uint   `json:"room_id"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// RoomJoined confirms a join to the joining connection only.
type RoomJoined struct {
	Room     models.Room      `json:"room"`
	Messages []models.Message `json:"messages"`
}

type RequestSent struct {
	RequestID uint                 `json:"request_id"`
	RoomID    uint                 `json:"room_id"`
	Status    models.RequestStatus `json:"status"`
	Message   string               `json:"message"`
}

type RequestHandled struct {
	RequestID uint                 `json:"request_id"`
	RoomID    uint                 `json:"room_id"`
	UserID    uint                 `json:"user_id"`
	Status    models.RequestStatus `json:"status"`
}

type MessageStatusChanged struct {
	MessageID uint                 `json:"message_id"`
	RoomID    uint                 `json:"room_id"`
	Status    models.MessageStatus `json:"status"`
}

type MessageDeleted struct {
	MessageID uint `json:"message_id"`
	RoomID    uint `json:"room_id"`
}

// Error reports a failed intent back to the connection that sent it.
type Error struct {
	Event   Kind   `json:"event,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (RoomRequestNotification) Kind() Kind { return KindRoomRequestNotification }
func (RoomAccessGranted) Kind() Kind       { return KindRoomAccessGranted }
func (RoomAccessDenied) Kind() Kind        { return KindRoomAccessDenied }
func (ReceiveMessage) Kind() Kind          { return KindReceiveMessage }
func (UserTyping) Kind() Kind              { return KindUserTyping }
func (UserJoined) Kind() Kind              { return KindUserJoined }
func (UserLeft) Kind() Kind                { return KindUserLeft }
func (RoomJoined) Kind() Kind              { return KindRoomJoined }
func (RequestSent) Kind() Kind             { return KindRequestSent }
func (RequestHandled) Kind() Kind          { return KindRequestHandled }
func (MessageStatusChanged) Kind() Kind    { return KindMessageStatus }
func (MessageDeleted) Kind() Kind          { return KindMessageDeleted }
func (Error) Kind() Kind                   { return KindError }

func (RoomRequestNotification) sealed() {}
func (RoomAccessGranted) sealed()       {}
func (RoomAccessDenied) sealed()        {}
func (ReceiveMessage) sealed()          {}
func (UserTyping) sealed()              {}
func (UserJoined) sealed()              {}
func (UserLeft) sealed()                {}
func (RoomJoined) sealed()              {}
func (RequestSent) sealed()             {}
func (RequestHandled) sealed()          {}
func (MessageStatusChanged) sealed()    {}
func (MessageDeleted) sealed()          {}
func (Error) sealed()                   {}
