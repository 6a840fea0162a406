package events

import (
	"encoding/json"
	"testing"

	"github.com/CUknot/chatflow_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Envelope(t *testing.T) {
	data, err := Encode(UserTyping{RoomID: 3, UserID: 7, Username: "bob", IsTyping: true})
	require.NoError(t, err)

	var frame map[string]any
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "user-typing", frame["type"])

	payload := frame["payload"].(map[string]any)
	assert.Equal(t, "bob", payload["username"])
	assert.Equal(t, true, payload["is_typing"])
}

func TestEncode_ReceiveMessageFlattensMessage(t *testing.T) {
	data, err := Encode(ReceiveMessage{Message: models.Message{ID: 9, RoomID: 3, Text: "hi", Status: models.MessageStatusSent}})
	require.NoError(t, err)

	var frame struct {
		Type    Kind           `json:"type"`
		Payload models.Message `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, KindReceiveMessage, frame.Type)
	assert.Equal(t, uint(9), frame.Payload.ID)
	assert.Equal(t, "hi", frame.Payload.Text)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantKind Kind
		want     Event
		wantErr  error
	}{
		{
			name:     "join room",
			frame:    `{"type":"join-room","payload":{"room_id":4}}`,
			wantKind: KindJoinRoom,
			want:     JoinRoom{RoomID: 4},
		},
		{
			name:     "send message",
			frame:    `{"type":"send-message","payload":{"room_id":4,"text":"hello"}}`,
			wantKind: KindSendMessage,
			want:     SendMessage{RoomID: 4, Text: "hello"},
		},
		{
			name:     "approve",
			frame:    `{"type":"approve-room-request","payload":{"request_id":12,"room_id":4}}`,
			wantKind: KindApproveRoomRequest,
			want:     ApproveRoomRequest{RequestID: 12, RoomID: 4},
		},
		{
			name:     "missing room id",
			frame:    `{"type":"typing","payload":{}}`,
			wantKind: KindTyping,
			wantErr:  ErrInvalidPayload,
		},
		{
			name:     "missing payload",
			frame:    `{"type":"leave-room"}`,
			wantKind: KindLeaveRoom,
			wantErr:  ErrInvalidPayload,
		},
		{
			name:     "wrong field type",
			frame:    `{"type":"join-room","payload":{"room_id":"abc"}}`,
			wantKind: KindJoinRoom,
			wantErr:  ErrInvalidPayload,
		},
		{
			name:     "unknown type",
			frame:    `{"type":"dance","payload":{}}`,
			wantKind: "dance",
			wantErr:  ErrUnknownKind,
		},
		{
			name:    "not json",
			frame:   `hello`,
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, kind, err := Decode([]byte(tt.frame))
			assert.Equal(t, tt.wantKind, kind)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ev)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}
