package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/Kesh3805/job-portal/logger"
	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	usermodel "github.com/Kesh3805/job-portal/module/user/model"
	"github.com/Kesh3805/job-portal/service/storage"
	"github.com/Kesh3805/job-portal/tools/ids"
	"github.com/Kesh3805/job-portal/tools/safe"
	security "github.com/Kesh3805/job-portal/tools/security"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// MessageStore is the persistence collaborator for conversations and
// messages.
type MessageStore interface {
	FindConversation(ctx context.Context, conversationID string) (*chatmodel.Conversation, error)
	Send(ctx context.Context, conversationID, senderID, content string, attachments []chatmodel.Attachment) (*chatmodel.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string) (int64, error)
}

// NotificationSource is the pull side of the notification store used by
// the explicit request-notification-push event.
type NotificationSource interface {
	ListNotifications(ctx context.Context, recipientID string, page, pageSize int64) ([]*chatmodel.Notification, error)
}

// MessageNotifier raises the new-message notification for a recipient
// who is not viewing the conversation. Wired after construction since
// the notification dispatcher pushes back through this server.
type MessageNotifier interface {
	NotifyNewMessage(ctx context.Context, recipientID, senderID, senderName, conversationID string) error
}

// UserDirectory is the user collaborator (lookup + presence persist).
type UserDirectory interface {
	FindByID(ctx context.Context, userID string) (*usermodel.User, error)
	UpdateOnlineStatus(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error
}

type ServerConf struct {
	ReadLimit   int64         // max inbound frame size (default 1MB)
	PongWait    time.Duration // keepalive window (default 60s)
	PingEvery   time.Duration // ping interval (default 30s)
	WriteWait   time.Duration // per-write deadline (default 5s)
	SendQueue   int           // per-connection outbound queue (default 256)
	PresenceTTL time.Duration // redis mirror TTL (default 2m)
	Typing      TypingConf
}

func (c *ServerConf) norm() {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 1 << 20
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingEvery <= 0 {
		c.PingEvery = 30 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
	if c.PresenceTTL <= 0 {
		c.PresenceTTL = 2 * time.Minute
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the realtime gateway: it owns every live connection, the
// presence/typing/room registries, and routes inbound events to the
// stores and outbound broadcasts to rooms and users.
type Server struct {
	conf ServerConf

	conns    *ConnManager
	presence *PresenceRegistry
	typing   *TypingTracker
	rooms    *RoomRegistry
	disp     *Dispatcher

	store    MessageStore
	notifs   NotificationSource
	users    UserDirectory
	notifier MessageNotifier
	jwt      security.Options
}

func NewServer(gwID string, conf ServerConf, st MessageStore, notifs NotificationSource, users UserDirectory, jwtOpts security.Options) *Server {
	conf.norm()
	s := &Server{
		conf:   conf,
		conns:  NewConnManager(gwID, conf.SendQueue),
		rooms:  NewRoomRegistry(),
		disp:   NewDispatcher(),
		store:  st,
		notifs: notifs,
		users:  users,
		jwt:    jwtOpts,
	}

	s.presence = NewPresenceRegistry(PresenceHooks{
		OnFirstOnline: s.onFirstOnline,
		OnLastOffline: s.onLastOffline,
	})
	s.typing = NewTypingTracker(conf.Typing, s.onTypingExpired)

	s.registerHandlers()
	return s
}

// SetNotifier installs the new-message notifier. Safe to leave unset;
// the gateway then skips message notifications.
func (s *Server) SetNotifier(n MessageNotifier) { s.notifier = n }

func (s *Server) Presence() *PresenceRegistry { return s.presence }
func (s *Server) GwID() string                { return s.conns.GwID() }
func (s *Server) Typing() *TypingTracker     { return s.typing }
func (s *Server) Rooms() *RoomRegistry       { return s.rooms }
func (s *Server) Conns() *ConnManager        { return s.conns }

// Close tears the gateway down: sweep timer first, then every socket.
func (s *Server) Close() {
	s.typing.Close()
	s.conns.Close()
}

// ---- presence side effects ----

func (s *Server) onFirstOnline(userID string) {
	s.conns.BroadcastAll(EncodeFrame(EventPresenceStatus, PresenceStatusPayload{
		UserID:   userID,
		IsOnline: true,
	}))
	// best-effort persists; a failed write never reaches any client
	s.persistPresence(userID, true)
}

func (s *Server) onLastOffline(userID string) {
	now := time.Now()
	s.conns.BroadcastAll(EncodeFrame(EventPresenceStatus, PresenceStatusPayload{
		UserID:   userID,
		IsOnline: false,
		LastSeen: &now,
	}))
	s.persistPresence(userID, false)
}

func (s *Server) persistPresence(userID string, online bool) {
	gwID := s.conns.GwID()
	ttl := s.conf.PresenceTTL
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := s.users.UpdateOnlineStatus(ctx, userID, online, time.Now()); err != nil {
			logger.Warnf("[presence] user status persist failed user=%s online=%v: %v", userID, online, err)
		}
		if online {
			if err := storage.PresenceOnline(ctx, userID, gwID, ttl); err != nil {
				logger.Warnf("[presence] redis mirror set failed user=%s: %v", userID, err)
			}
		} else {
			if err := storage.PresenceOffline(ctx, userID); err != nil {
				logger.Warnf("[presence] redis mirror del failed user=%s: %v", userID, err)
			}
		}
	})
}

func (s *Server) onTypingExpired(conversationID, userID string) {
	s.broadcastRoomExceptUser(conversationID, EncodeFrame(EventTypingStop, TypingPayload{
		ConversationID: conversationID,
		UserID:         userID,
	}), userID)
}

// ---- broadcast plumbing ----

// broadcastRoom fans a frame to every connection joined to the
// conversation, optionally excluding one connection id.
func (s *Server) broadcastRoom(conversationID string, data []byte, exceptConnID string) {
	for _, connID := range s.rooms.Conns(conversationID) {
		if connID == exceptConnID {
			continue
		}
		_ = s.conns.SendTo(connID, data)
	}
}

// broadcastRoomExceptUser excludes every connection of one user
// (typing and read-receipt events are invisible to their author).
func (s *Server) broadcastRoomExceptUser(conversationID string, data []byte, exceptUserID string) {
	for _, connID := range s.rooms.Conns(conversationID) {
		if w, ok := s.conns.Get(connID); ok && w.UserID == exceptUserID {
			continue
		}
		_ = s.conns.SendTo(connID, data)
	}
}

// roomHasUser reports whether any of the user's connections is joined
// to the conversation.
func (s *Server) roomHasUser(conversationID, userID string) bool {
	for _, connID := range s.rooms.Conns(conversationID) {
		if w, ok := s.conns.Get(connID); ok && w.UserID == userID {
			return true
		}
	}
	return false
}

// PushToUser delivers a frame to every live connection of the user.
// Satisfies the notification dispatcher's push contract.
func (s *Server) PushToUser(userID string, data []byte) {
	for _, connID := range s.presence.RouteTo(userID) {
		_ = s.conns.SendTo(connID, data)
	}
}

// IsOnline reports in-process presence.
func (s *Server) IsOnline(userID string) bool {
	return s.presence.IsOnline(userID)
}

// ---- connection lifecycle ----

// HandleWS upgrades the HTTP request and runs the connection until the
// transport closes. New connections start unauthenticated and idle
// until an authenticate event or the keepalive window runs out.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	connID := ids.GenerateString()
	w, err := s.conns.AddUnauth(connID, ws)
	if err != nil {
		logger.Errorf("[ws] register conn failed id=%s: %v", connID, err)
		_ = ws.Close()
		return
	}

	ws.SetReadLimit(s.conf.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.conf.PongWait))
	})

	go s.writeLoop(w)
	s.readLoop(w)
	s.teardown(connID)
}

func (s *Server) readLoop(w *WsConn) {
	for {
		mt, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", w.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] keepalive timeout conn=%s", w.ConnID)
			} else {
				logger.Infof("[ws] read err conn=%s: %v", w.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", w.ConnID, perr, sample)
			continue
		}

		if err := s.disp.Dispatch(context.Background(), frame.Event, w, frame.Data); err != nil {
			// scoped to the origin connection; rooms never observe it
			_ = s.conns.SendTo(w.ConnID, BuildError(frame.Event, err))
		}
	}
}

func (s *Server) writeLoop(w *WsConn) {
	ticker := time.NewTicker(s.conf.PingEvery)
	defer func() {
		ticker.Stop()
		_ = w.Conn.Close()
	}()
	for {
		select {
		case data, ok := <-w.Send:
			if !ok {
				_ = w.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(s.conf.WriteWait))
				return
			}
			_ = w.Conn.SetWriteDeadline(time.Now().Add(s.conf.WriteWait))
			if err := w.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := w.Conn.WriteControl(websocket.PingMessage, []byte("ping"),
				time.Now().Add(s.conf.WriteWait)); err != nil {
				return
			}
		}
	}
}

// teardown is the single disconnect path; a second call for the same
// connection id is a no-op.
func (s *Server) teardown(connID string) {
	w, ok := s.conns.Remove(connID)
	if !ok {
		return
	}
	_ = w.Conn.Close()

	s.rooms.LeaveAll(connID)

	if w.Authorized && w.UserID != "" {
		// typing survives a single tab closing; it clears only when
		// the user's last connection goes away
		if last := s.presence.Unbind(connID); last {
			for _, conversationID := range s.typing.ClearUser(w.UserID) {
				s.onTypingExpired(conversationID, w.UserID)
			}
		}
	}
}
