package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	usermodel "github.com/Kesh3805/job-portal/module/user/model"
	"github.com/Kesh3805/job-portal/tools/errs"
	security "github.com/Kesh3805/job-portal/tools/security"
	"github.com/stretchr/testify/require"
)

var testJwt = security.DefaultOptions([]byte("test-secret"))

// fakeStore is an in-memory MessageStore/NotificationSource covering
// exactly the store behavior the gateway depends on.
type fakeStore struct {
	mu    sync.Mutex
	conv  *chatmodel.Conversation
	seq   int64
	sent  []*chatmodel.Message
	read  []string // "conv/user" per MarkRead call
	notes []*chatmodel.Notification
}

func (f *fakeStore) FindConversation(ctx context.Context, id string) (*chatmodel.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conv == nil || f.conv.ConversationID != id {
		return nil, errs.ErrNotFound("conversation not found")
	}
	return f.conv, nil
}

func (f *fakeStore) Send(ctx context.Context, conversationID, senderID, content string, attachments []chatmodel.Attachment) (*chatmodel.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conv == nil || f.conv.ConversationID != conversationID {
		return nil, errs.ErrNotFound("conversation not found")
	}
	if !f.conv.HasParticipant(senderID) {
		return nil, errs.ErrForbidden("not a participant")
	}
	if content == "" && len(attachments) == 0 {
		return nil, errs.ErrValidation("empty message")
	}
	f.seq++
	m := &chatmodel.Message{
		MessageID:      "m" + content,
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     f.conv.PeerOf(senderID),
		Content:        content,
		Attachments:    attachments,
		Readers:        []string{senderID},
		Seq:            f.seq,
	}
	f.sent = append(f.sent, m)
	return m, nil
}

func (f *fakeStore) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read = append(f.read, conversationID+"/"+readerID)
	return 1, nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, recipientID string, page, pageSize int64) ([]*chatmodel.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*chatmodel.Notification
	for _, n := range f.notes {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) reads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.read...)
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*usermodel.User
}

func (f *fakeUsers) FindByID(ctx context.Context, userID string) (*usermodel.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, errs.ErrNotFound("user not found")
}

func (f *fakeUsers) UpdateOnlineStatus(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	return nil
}

type notifyCall struct {
	recipient, sender, conversation string
}

type fakeNotifier struct {
	calls chan notifyCall
}

func (f *fakeNotifier) NotifyNewMessage(ctx context.Context, recipientID, senderID, senderName, conversationID string) error {
	f.calls <- notifyCall{recipientID, senderID, conversationID}
	return nil
}

func testConversation(id string, a, b string) *chatmodel.Conversation {
	key, pair := chatmodel.PairKey(a, b)
	return &chatmodel.Conversation{
		ConversationID: id,
		ParticipantKey: key,
		Participants:   pair,
	}
}

func newTestServer(t *testing.T, st *fakeStore) *Server {
	t.Helper()
	users := &fakeUsers{users: map[string]*usermodel.User{
		"alice": {UserID: "alice", Name: "Alice"},
		"bob":   {UserID: "bob", Name: "Bob"},
	}}
	s := NewServer("gw-test", ServerConf{Typing: TypingConf{SweepEvery: time.Hour}}, st, st, users, testJwt)
	t.Cleanup(s.typing.Close)
	return s
}

// addTestConn registers a connection without a transport; handlers only
// touch the send queue.
func addTestConn(s *Server, connID string) *WsConn {
	w := &WsConn{ConnID: connID, Send: make(chan []byte, 32), CreatedAt: time.Now()}
	s.conns.mu.Lock()
	s.conns.byID[connID] = w
	s.conns.mu.Unlock()
	return w
}

func authConn(t *testing.T, s *Server, connID, userID string) *WsConn {
	t.Helper()
	w := addTestConn(s, connID)
	token, _, err := security.Generate(testJwt, userID)
	require.NoError(t, err)
	err = s.disp.Dispatch(context.Background(), EventAuthenticate, w, map[string]any{"token": token})
	require.NoError(t, err)
	return w
}

// drain empties a connection's queue; setup frames (own presence
// broadcast, snapshot) are not what the tests assert on.
func drain(w *WsConn) {
	for {
		select {
		case <-w.Send:
		default:
			return
		}
	}
}

func recvFrame(t *testing.T, w *WsConn) *Frame {
	t.Helper()
	select {
	case raw := <-w.Send:
		f, err := ParseFrame(raw)
		require.NoError(t, err)
		return f
	default:
		t.Fatalf("no frame queued for %s", w.ConnID)
		return nil
	}
}

func requireNoFrame(t *testing.T, w *WsConn) {
	t.Helper()
	select {
	case raw := <-w.Send:
		t.Fatalf("unexpected frame for %s: %s", w.ConnID, raw)
	default:
	}
}

func TestAuthenticate_BindsAndSnapshots(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, &fakeStore{})

	bob := authConn(t, s, "cb", "bob")
	drain(bob)

	alice := authConn(t, s, "ca", "alice")
	req.True(alice.Authorized)
	req.Equal("alice", alice.UserID)

	f := recvFrame(t, bob)
	req.Equal(EventPresenceStatus, f.Event)
	req.Equal("alice", f.Data["userId"])
	req.Equal(true, f.Data["isOnline"])

	// the new session sees its own presence broadcast, then the roster
	f = recvFrame(t, alice)
	req.Equal(EventPresenceStatus, f.Event)
	snap := recvFrame(t, alice)
	req.Equal(EventOnlineSnapshot, snap.Event)
	req.ElementsMatch([]any{"alice", "bob"}, snap.Data["userIds"])
}

func TestAuthenticate_RejectsBadToken(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, &fakeStore{})
	w := addTestConn(s, "c1")

	err := s.disp.Dispatch(context.Background(), EventAuthenticate, w, map[string]any{"token": "garbage"})
	req.True(errs.IsForbidden(err))
	req.False(w.Authorized)
}

func TestAuthenticate_SecondTabIsNotAnEdge(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, &fakeStore{})

	bob := authConn(t, s, "cb", "bob")
	drain(bob)

	authConn(t, s, "ca1", "alice")
	f := recvFrame(t, bob) // first tab: presence-status
	req.Equal(EventPresenceStatus, f.Event)

	authConn(t, s, "ca2", "alice")
	requireNoFrame(t, bob) // second tab: silence

	req.True(s.IsOnline("alice"))
}

func TestAuthenticate_IdentitySwitchTakesOldUserOffline(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, &fakeStore{})

	watcher := authConn(t, s, "cw", "watcher")
	drain(watcher)

	w := authConn(t, s, "c1", "alice")
	f := recvFrame(t, watcher)
	req.Equal(EventPresenceStatus, f.Event)
	req.Equal("alice", f.Data["userId"])

	// same connection re-authenticates as bob
	token, _, err := security.Generate(testJwt, "bob")
	req.NoError(err)
	req.NoError(s.disp.Dispatch(context.Background(), EventAuthenticate, w, map[string]any{"token": token}))

	req.False(s.IsOnline("alice"))
	req.True(s.IsOnline("bob"))
	req.Empty(s.presence.RouteTo("alice"))

	f = recvFrame(t, watcher)
	req.Equal(EventPresenceStatus, f.Event)
	req.Equal("alice", f.Data["userId"])
	req.Equal(false, f.Data["isOnline"])
	f = recvFrame(t, watcher)
	req.Equal(EventPresenceStatus, f.Event)
	req.Equal("bob", f.Data["userId"])

	// disconnect now resolves against bob only
	s.presence.Unbind("c1")
	req.False(s.IsOnline("bob"))
}

func TestEventsRequireAuthentication(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, &fakeStore{})
	w := addTestConn(s, "c1")

	for _, ev := range []string{
		EventJoinConversation, EventLeaveConversation, EventSendMessage,
		EventTypingStart, EventTypingStop, EventMarkRead, EventRequestNotifyPush,
	} {
		err := s.disp.Dispatch(context.Background(), ev, w, map[string]any{"conversationId": "x"})
		req.True(errs.IsForbidden(err), "event %s", ev)
	}
}

func TestDispatch_UnknownEventIsValidationError(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t, &fakeStore{})
	w := addTestConn(s, "c1")

	err := s.disp.Dispatch(context.Background(), "no-such-event", w, nil)
	req.True(errs.IsValidation(err))
}

func TestJoinConversation_ChecksMembership(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)

	carol := authConn(t, s, "cc", "carol")
	drain(carol)

	err := s.disp.Dispatch(context.Background(), EventJoinConversation, carol, map[string]any{"conversationId": "conv1"})
	req.True(errs.IsForbidden(err))
	req.False(s.rooms.Contains("conv1", "cc"))

	err = s.disp.Dispatch(context.Background(), EventJoinConversation, carol, map[string]any{"conversationId": "missing"})
	req.True(errs.IsNotFound(err))
}

func TestJoinConversation_MarksReadAndNotifiesPeer(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)

	bob := authConn(t, s, "cb", "bob")
	drain(bob)
	s.rooms.Join("conv1", "cb")

	alice := authConn(t, s, "ca", "alice")
	drain(bob)
	drain(alice)

	err := s.disp.Dispatch(context.Background(), EventJoinConversation, alice, map[string]any{"conversationId": "conv1"})
	req.NoError(err)
	req.True(s.rooms.Contains("conv1", "ca"))
	req.Equal([]string{"conv1/alice"}, st.reads())

	f := recvFrame(t, bob)
	req.Equal(EventMessagesRead, f.Event)
	req.Equal("alice", f.Data["userId"])

	// the reader never sees their own receipt
	requireNoFrame(t, alice)
}

func TestSendMessage_BroadcastsToRoomExceptOrigin(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)

	bob := authConn(t, s, "cb", "bob")
	tab1 := authConn(t, s, "ca1", "alice")
	tab2 := authConn(t, s, "ca2", "alice")
	drain(bob)
	drain(tab1)
	drain(tab2)

	for _, id := range []string{"cb", "ca1", "ca2"} {
		s.rooms.Join("conv1", id)
	}

	err := s.disp.Dispatch(context.Background(), EventSendMessage, tab1, map[string]any{
		"conversationId": "conv1",
		"content":        "hello",
	})
	req.NoError(err)

	for _, w := range []*WsConn{bob, tab2} {
		f := recvFrame(t, w)
		req.Equal(EventMessageReceived, f.Event)
		req.Equal("conv1", f.Data["conversationId"])
	}
	// origin connection already has the message locally
	requireNoFrame(t, tab1)
}

func TestSendMessage_StopsTypingImplicitly(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)

	bob := authConn(t, s, "cb", "bob")
	alice := authConn(t, s, "ca", "alice")
	drain(bob)
	drain(alice)
	s.rooms.Join("conv1", "cb")
	s.rooms.Join("conv1", "ca")

	err := s.disp.Dispatch(context.Background(), EventTypingStart, alice, map[string]any{"conversationId": "conv1"})
	req.NoError(err)
	f := recvFrame(t, bob)
	req.Equal(EventTypingStart, f.Event)
	req.True(s.typing.IsTyping("conv1", "alice"))

	err = s.disp.Dispatch(context.Background(), EventSendMessage, alice, map[string]any{
		"conversationId": "conv1",
		"content":        "done typing",
	})
	req.NoError(err)
	req.False(s.typing.IsTyping("conv1", "alice"))

	f = recvFrame(t, bob)
	req.Equal(EventTypingStop, f.Event)
	f = recvFrame(t, bob)
	req.Equal(EventMessageReceived, f.Event)
}

func TestSendMessage_NotifiesReceiverOutsideRoom(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)
	fn := &fakeNotifier{calls: make(chan notifyCall, 1)}
	s.SetNotifier(fn)

	alice := authConn(t, s, "ca", "alice")
	drain(alice)
	s.rooms.Join("conv1", "ca")

	err := s.disp.Dispatch(context.Background(), EventSendMessage, alice, map[string]any{
		"conversationId": "conv1",
		"content":        "knock knock",
	})
	req.NoError(err)

	select {
	case call := <-fn.calls:
		req.Equal(notifyCall{"bob", "alice", "conv1"}, call)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never dispatched")
	}
}

func TestSendMessage_NoNotificationWhenReceiverInRoom(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)
	fn := &fakeNotifier{calls: make(chan notifyCall, 1)}
	s.SetNotifier(fn)

	bob := authConn(t, s, "cb", "bob")
	alice := authConn(t, s, "ca", "alice")
	drain(bob)
	drain(alice)
	s.rooms.Join("conv1", "cb")
	s.rooms.Join("conv1", "ca")

	err := s.disp.Dispatch(context.Background(), EventSendMessage, alice, map[string]any{
		"conversationId": "conv1",
		"content":        "hi",
	})
	req.NoError(err)

	select {
	case call := <-fn.calls:
		t.Fatalf("unexpected notification: %+v", call)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSendMessage_RejectsEmptyPayload(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)

	alice := authConn(t, s, "ca", "alice")
	drain(alice)

	err := s.disp.Dispatch(context.Background(), EventSendMessage, alice, map[string]any{
		"conversationId": "conv1",
		"content":        "",
	})
	req.True(errs.IsValidation(err))
	req.Empty(st.sent)
}

func TestTyping_BroadcastExcludesEveryConnOfTheTypist(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)

	bob := authConn(t, s, "cb", "bob")
	tab1 := authConn(t, s, "ca1", "alice")
	tab2 := authConn(t, s, "ca2", "alice")
	drain(bob)
	drain(tab1)
	drain(tab2)

	for _, id := range []string{"cb", "ca1", "ca2"} {
		s.rooms.Join("conv1", id)
	}

	err := s.disp.Dispatch(context.Background(), EventTypingStart, tab1, map[string]any{"conversationId": "conv1"})
	req.NoError(err)

	f := recvFrame(t, bob)
	req.Equal(EventTypingStart, f.Event)
	requireNoFrame(t, tab1)
	requireNoFrame(t, tab2)
}

func TestTyping_RequiresJoinedConversation(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{conv: testConversation("conv1", "alice", "bob")}
	s := newTestServer(t, st)

	bob := authConn(t, s, "cb", "bob")
	drain(bob)
	s.rooms.Join("conv1", "cb")

	carol := authConn(t, s, "cc", "carol")
	drain(bob)
	drain(carol)

	err := s.disp.Dispatch(context.Background(), EventTypingStart, carol, map[string]any{"conversationId": "conv1"})
	req.True(errs.IsForbidden(err))
	req.False(s.typing.IsTyping("conv1", "carol"))
	requireNoFrame(t, bob)

	err = s.disp.Dispatch(context.Background(), EventTypingStop, carol, map[string]any{"conversationId": "conv1"})
	req.True(errs.IsForbidden(err))
	requireNoFrame(t, bob)
}

func TestRequestNotificationPush_ReplaysUnreadOnly(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{notes: []*chatmodel.Notification{
		{NotificationID: "n1", RecipientID: "alice", Type: chatmodel.NotifyNewMessage},
		{NotificationID: "n2", RecipientID: "alice", Type: chatmodel.NotifyJobApproved, IsRead: true},
		{NotificationID: "n3", RecipientID: "bob", Type: chatmodel.NotifyNewMessage},
	}}
	s := newTestServer(t, st)

	alice := authConn(t, s, "ca", "alice")
	drain(alice)

	err := s.disp.Dispatch(context.Background(), EventRequestNotifyPush, alice, nil)
	req.NoError(err)

	f := recvFrame(t, alice)
	req.Equal(EventNewNotification, f.Event)
	req.Equal("n1", f.Data["notificationId"])
	requireNoFrame(t, alice)
}
