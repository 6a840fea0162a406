package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/CUknot/chatflow_backend/database"
	"github.com/CUknot/chatflow_backend/events"
	"github.com/CUknot/chatflow_backend/logger"
	"github.com/CUknot/chatflow_backend/models"
	"github.com/CUknot/chatflow_backend/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	roomID uint
	userID uint
	except string
	event  events.Event
}

// recordingNotifier captures every event handed to it.
type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (n *recordingNotifier) BroadcastToRoom(roomID uint, ev events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{roomID: roomID, event: ev})
}

func (n *recordingNotifier) BroadcastToRoomExcept(roomID uint, connID string, ev events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{roomID: roomID, except: connID, event: ev})
}

func (n *recordingNotifier) SendToUser(userID uint, ev events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{userID: userID, event: ev})
}

func (n *recordingNotifier) ofKind(kind events.Kind) []delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []delivery
	for _, d := range n.deliveries {
		if d.event.Kind() == kind {
			out = append(out, d)
		}
	}
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.deliveries)
}

type fixture struct {
	store    *database.Store
	notifier *recordingNotifier
	auth     *AuthService
	rooms    *RoomService
	requests *RequestService
	messages *MessageService
	presence *PresenceService
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), logger.Discard())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store := database.NewStore(db)
	notifier := &recordingNotifier{}
	log := logger.Discard()
	return &fixture{
		store:    store,
		notifier: notifier,
		auth:     NewAuthService(store, utils.NewTokenManager("test-secret", time.Hour), log),
		rooms:    NewRoomService(store, log),
		requests: NewRequestService(store, store, notifier, log),
		messages: NewMessageService(store, store, notifier, log),
		presence: NewPresenceService(notifier),
	}
}

func (f *fixture) user(t *testing.T, name string) Identity {
	t.Helper()
	u, _, err := f.auth.Register(context.Background(), name, name+"@example.com", "password123")
	require.NoError(t, err)
	return Identity{UserID: u.ID, Username: u.Username}
}

func participantIDs(room *models.Room) []uint {
	ids := make([]uint, 0, len(room.Participants))
	for _, p := range room.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func TestCanAccess(t *testing.T) {
	private := &models.Room{IsPrivate: true, Participants: []models.RoomParticipant{{UserID: 1}}}
	public := &models.Room{IsPrivate: false}

	assert.True(t, CanAccess(private, 1))
	assert.False(t, CanAccess(private, 2))
	assert.True(t, CanAccess(public, 2))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "DuplicatePending", Code(fmt.Errorf("wrapped: %w", ErrDuplicatePending)))
	assert.Equal(t, "NotFound", Code(fromStore(database.ErrNotFound, "room")))
	assert.Equal(t, "StoreUnavailable", Code(fromStore(fmt.Errorf("x: %w", database.ErrUnavailable), "room")))
	assert.Equal(t, "Internal", Code(errors.New("boom")))
	assert.True(t, Retryable(fromStore(database.ErrUnavailable, "room")))
	assert.False(t, Retryable(ErrDuplicatePending))
}

func TestAuthService(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	user, token, err := f.auth.Register(ctx, "alice", "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	who, err := f.auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: user.ID, Username: "alice"}, who)

	_, _, err = f.auth.Register(ctx, "alice", "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, _, err = f.auth.Register(ctx, "bob", "not-an-email", "password123")
	assert.ErrorIs(t, err, ErrValidation)

	// Display-name forms are rejected, not stored
	_, _, err = f.auth.Register(ctx, "bob", "Bob <bob@example.com>", "password123")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.store.FindUserByEmail(ctx, "bob <bob@example.com>")
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, _, err = f.auth.Register(ctx, "bob", "bob@example.com", "password123")
	require.NoError(t, err)
	_, _, err = f.auth.Login(ctx, "bob@example.com", "password123")
	assert.NoError(t, err)

	_, _, err = f.auth.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, token, err = f.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = f.auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRoomService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	room, err := f.rooms.Create(ctx, alice, "  Ops  ", true)
	require.NoError(t, err)
	assert.Equal(t, "Ops", room.Name)
	assert.True(t, room.HasParticipant(alice.UserID))

	_, err = f.rooms.Create(ctx, alice, "   ", false)
	assert.ErrorIs(t, err, ErrValidation)

	long := make([]rune, models.MaxRoomNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = f.rooms.Create(ctx, alice, string(long), false)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRoomService_Get(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	private, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)
	public, err := f.rooms.Create(ctx, alice, "Lobby", false)
	require.NoError(t, err)

	_, err = f.rooms.Get(ctx, bob, private.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.rooms.Get(ctx, bob, public.ID)
	assert.NoError(t, err)

	_, err = f.rooms.Get(ctx, bob, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	rooms, err := f.rooms.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, public.ID, rooms[0].ID)

	mine, err := f.rooms.ListMine(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

// Scenario: A creates private Ops, B requests access, A approves, B is in;
// approving again reports AlreadyResolved.
func TestRequestWorkflow_OpsScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)

	req, err := f.requests.RequestAccess(ctx, bob, ops.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	notes := f.notifier.ofKind(events.KindRoomRequestNotification)
	require.Len(t, notes, 1)
	assert.Equal(t, ops.ID, notes[0].roomID)
	note := notes[0].event.(events.RoomRequestNotification)
	assert.Equal(t, req.ID, note.RequestID)
	assert.Equal(t, bob.UserID, note.RequesterID)
	assert.Equal(t, "bob", note.RequesterUsername)
	assert.NotEmpty(t, note.Message)

	approved, err := f.requests.Approve(ctx, alice, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, approved.Status)
	assert.NotNil(t, approved.RespondedAt)

	room, err := f.rooms.Get(ctx, bob, ops.ID)
	require.NoError(t, err)
	assert.True(t, room.HasParticipant(bob.UserID))

	granted := f.notifier.ofKind(events.KindRoomAccessGranted)
	require.Len(t, granted, 1)
	assert.Equal(t, bob.UserID, granted[0].userID)
	assert.Zero(t, granted[0].roomID)

	_, err = f.requests.Approve(ctx, alice, req.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	_, err = f.requests.Reject(ctx, alice, req.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Len(t, f.notifier.ofKind(events.KindRoomAccessGranted), 1)
}

func TestRequestWorkflow_Guards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)
	lobby, err := f.rooms.Create(ctx, alice, "Lobby", false)
	require.NoError(t, err)

	_, err = f.requests.RequestAccess(ctx, bob, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.requests.RequestAccess(ctx, alice, ops.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.requests.RequestAccess(ctx, bob, lobby.ID)
	assert.ErrorIs(t, err, ErrValidation)

	req, err := f.requests.RequestAccess(ctx, bob, ops.ID)
	require.NoError(t, err)
	_, err = f.requests.RequestAccess(ctx, bob, ops.ID)
	assert.ErrorIs(t, err, ErrDuplicatePending)

	_, err = f.requests.Approve(ctx, carol, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.requests.Approve(ctx, bob, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.requests.Approve(ctx, alice, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := f.requests.ListPending(ctx, alice)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
}

func TestRequestWorkflow_RejectKeepsMembership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)
	req, err := f.requests.RequestAccess(ctx, bob, ops.ID)
	require.NoError(t, err)

	rejected, err := f.requests.Reject(ctx, alice, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)

	room, err := f.store.FindRoom(ctx, ops.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.UserID}, participantIDs(room))

	denied := f.notifier.ofKind(events.KindRoomAccessDenied)
	require.Len(t, denied, 1)
	assert.Equal(t, bob.UserID, denied[0].userID)

	// A new cycle may start once nothing is pending
	again, err := f.requests.RequestAccess(ctx, bob, ops.ID)
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, again.ID)
}

func TestRequestWorkflow_ConcurrentApprove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)
	req, err := f.requests.RequestAccess(ctx, bob, ops.ID)
	require.NoError(t, err)

	const callers = 6
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.requests.Approve(ctx, alice, req.ID)
		}(i)
	}
	wg.Wait()

	var ok, resolved int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyResolved):
			resolved++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, resolved)
	assert.Len(t, f.notifier.ofKind(events.KindRoomAccessGranted), 1)

	room, err := f.store.FindRoom(ctx, ops.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{alice.UserID, bob.UserID}, participantIDs(room))
}

func TestRequestWorkflow_ConcurrentRequestAccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.requests.RequestAccess(ctx, bob, ops.ID)
		}(i)
	}
	wg.Wait()

	var ok, duplicate int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicatePending):
			duplicate++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, duplicate)
	assert.Len(t, f.notifier.ofKind(events.KindRoomRequestNotification), 1)

	pending, err := f.requests.ListPending(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMessageService_Send(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	carol := f.user(t, "carol")

	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)

	t.Run("stranger is forbidden and nothing happens", func(t *testing.T) {
		before := f.notifier.count()
		_, err := f.messages.Send(ctx, carol, ops.ID, "hi")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, before, f.notifier.count())

		_, total, err := f.store.ListMessages(ctx, ops.ID, 0, 10)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := f.messages.Send(ctx, alice, ops.ID, "   \n ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("too long", func(t *testing.T) {
		long := make([]byte, models.MaxMessageLength+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := f.messages.Send(ctx, alice, ops.ID, string(long))
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing room", func(t *testing.T) {
		_, err := f.messages.Send(ctx, alice, 9999, "hi")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("member sends", func(t *testing.T) {
		msg, err := f.messages.Send(ctx, alice, ops.ID, "  hello  ")
		require.NoError(t, err)
		assert.Equal(t, "hello", msg.Text)
		assert.Equal(t, models.MessageStatusSent, msg.Status)
		assert.Equal(t, "alice", msg.SenderUsername)

		received := f.notifier.ofKind(events.KindReceiveMessage)
		require.Len(t, received, 1)
		assert.Equal(t, ops.ID, received[0].roomID)
		assert.Empty(t, received[0].except)
		assert.Equal(t, msg.ID, received[0].event.(events.ReceiveMessage).ID)
	})
}

func TestMessageService_History(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := f.messages.Send(ctx, alice, ops.ID, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	page, err := f.messages.History(ctx, alice, ops.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "m2", page.Messages[0].Text)
	assert.Equal(t, "m3", page.Messages[1].Text)
	assert.Equal(t, Pagination{CurrentPage: 1, TotalPages: 2, TotalMessages: 3, HasNext: true}, page.Pagination)

	page, err = f.messages.History(ctx, alice, ops.ID, 0, 500)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 3)
	assert.Equal(t, 1, page.Pagination.CurrentPage)

	_, err = f.messages.History(ctx, bob, ops.ID, 1, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	page, err = f.messages.History(ctx, alice, ops.ID, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Equal(t, Pagination{CurrentPage: 5, TotalPages: 2, TotalMessages: 3, HasPrev: true}, page.Pagination)

	_, err = f.messages.History(ctx, alice, ops.ID, math.MaxInt, 50)
	assert.ErrorIs(t, err, ErrValidation)
}

// touchRecorder notes how many events had been delivered when lastActivity
// was written, and can fail the write.
type touchRecorder struct {
	*database.Store
	notifier         *recordingNotifier
	fail             bool
	deliveredAtTouch []int
}

func (r *touchRecorder) TouchRoom(ctx context.Context, roomID uint, at time.Time) error {
	r.deliveredAtTouch = append(r.deliveredAtTouch, r.notifier.count())
	if r.fail {
		return fmt.Errorf("touch room: %w", database.ErrUnavailable)
	}
	return r.Store.TouchRoom(ctx, roomID, at)
}

func TestMessageService_BroadcastsBeforeTouchingRoom(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)

	rooms := &touchRecorder{Store: f.store, notifier: f.notifier}
	messages := NewMessageService(rooms, f.store, f.notifier, logger.Discard())

	_, err = messages.Send(ctx, alice, ops.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, rooms.deliveredAtTouch)

	rooms.fail = true
	msg, err := messages.Send(ctx, alice, ops.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", msg.Text)

	received := f.notifier.ofKind(events.KindReceiveMessage)
	require.Len(t, received, 2)
	assert.Equal(t, msg.ID, received[1].event.(events.ReceiveMessage).ID)
}

func TestMessageService_StatusIsMonotonic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	ops, err := f.rooms.Create(ctx, alice, "Ops", true)
	require.NoError(t, err)
	msg, err := f.messages.Send(ctx, alice, ops.ID, "hello")
	require.NoError(t, err)

	updated, err := f.messages.UpdateStatus(ctx, alice, msg.ID, models.MessageStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusDelivered, updated.Status)

	updated, err = f.messages.UpdateStatus(ctx, alice, msg.ID, models.MessageStatusRead)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusRead, updated.Status)

	_, err = f.messages.UpdateStatus(ctx, alice, msg.ID, models.MessageStatusDelivered)
	assert.ErrorIs(t, err, ErrValidation)

	same, err := f.messages.UpdateStatus(ctx, alice, msg.ID, models.MessageStatusRead)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusRead, same.Status)

	_, err = f.messages.UpdateStatus(ctx, alice, msg.ID, "lost")
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := f.store.FindMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusRead, stored.Status)
	assert.Len(t, f.notifier.ofKind(events.KindMessageStatus), 2)
}

func TestMessageService_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")

	lobby, err := f.rooms.Create(ctx, alice, "Lobby", false)
	require.NoError(t, err)
	byBob, err := f.messages.Send(ctx, bob, lobby.ID, "from bob")
	require.NoError(t, err)
	byCarol, err := f.messages.Send(ctx, carol, lobby.ID, "from carol")
	require.NoError(t, err)

	assert.ErrorIs(t, f.messages.Delete(ctx, carol, byBob.ID), ErrForbidden)
	assert.NoError(t, f.messages.Delete(ctx, bob, byBob.ID))
	assert.NoError(t, f.messages.Delete(ctx, alice, byCarol.ID))
	assert.ErrorIs(t, f.messages.Delete(ctx, alice, byCarol.ID), ErrNotFound)
	assert.Len(t, f.notifier.ofKind(events.KindMessageDeleted), 2)
}

func TestPresenceService_ExcludesSender(t *testing.T) {
	f := setup(t)

	f.presence.SetTyping(Identity{UserID: 1, Username: "alice"}, "conn-1", 5, true)

	typing := f.notifier.ofKind(events.KindUserTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, uint(5), typing[0].roomID)
	assert.Equal(t, "conn-1", typing[0].except)
	assert.True(t, typing[0].event.(events.UserTyping).IsTyping)
}
