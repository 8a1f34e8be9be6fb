package chat

import (
	"context"
	"time"

	"github.com/Kesh3805/job-portal/logger"
	"github.com/Kesh3805/job-portal/tools/decode"
	"github.com/Kesh3805/job-portal/tools/errs"
	"github.com/Kesh3805/job-portal/tools/safe"
	security "github.com/Kesh3805/job-portal/tools/security"
)

func (s *Server) registerHandlers() {
	s.disp.Register(EventAuthenticate, s.handleAuthenticate)
	s.disp.Register(EventJoinConversation, s.authed(s.handleJoinConversation))
	s.disp.Register(EventLeaveConversation, s.authed(s.handleLeaveConversation))
	s.disp.Register(EventSendMessage, s.authed(s.handleSendMessage))
	s.disp.Register(EventTypingStart, s.authed(s.handleTypingStart))
	s.disp.Register(EventTypingStop, s.authed(s.handleTypingStop))
	s.disp.Register(EventMarkRead, s.authed(s.handleMarkRead))
	s.disp.Register(EventRequestNotifyPush, s.authed(s.handleRequestNotifyPush))
}

// authed gates an event behind a completed authenticate.
func (s *Server) authed(h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, conn *WsConn, data map[string]any) error {
		if !conn.Authorized || conn.UserID == "" {
			return errs.ErrForbidden("authenticate first")
		}
		return h(ctx, conn, data)
	}
}

// handleAuthenticate binds the connection to a user. A signed token is
// the normal path; a bare userId is accepted for trusted internal
// callers when no token is supplied.
func (s *Server) handleAuthenticate(ctx context.Context, conn *WsConn, data map[string]any) error {
	p, err := decode.DecodePayload[AuthenticatePayload](data)
	if err != nil {
		return errs.ErrValidation("bad authenticate payload")
	}

	userID := p.UserID
	if p.Token != "" {
		uid, verr := security.Verify(s.jwt, p.Token)
		if verr != nil {
			return errs.ErrForbidden("invalid token")
		}
		userID = uid
	}
	if userID == "" {
		return errs.ErrValidation("token or userId required")
	}

	if err := s.conns.BindUser(conn.ConnID, userID); err != nil {
		return err
	}
	s.presence.Bind(conn.ConnID, userID)
	logger.Infof("[ws] authenticated conn=%s user=%s", conn.ConnID, userID)

	// the new session gets the current roster; everyone else already
	// heard presence-status if this was the user's first connection
	_ = s.conns.SendTo(conn.ConnID, EncodeFrame(EventOnlineSnapshot, OnlineSnapshotPayload{
		UserIDs: s.presence.ActiveUserIDs(),
	}))
	return nil
}

// handleJoinConversation subscribes the connection to a conversation
// room. Joining implies the member has the thread on screen, so unread
// state is settled as part of the join.
func (s *Server) handleJoinConversation(ctx context.Context, conn *WsConn, data map[string]any) error {
	p, err := decode.DecodePayload[ConversationPayload](data)
	if err != nil || p.ConversationID == "" {
		return errs.ErrValidation("conversationId required")
	}

	cv, err := s.store.FindConversation(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	if !cv.HasParticipant(conn.UserID) {
		return errs.ErrForbidden("not a participant of this conversation")
	}

	s.rooms.Join(p.ConversationID, conn.ConnID)
	return s.markReadAndBroadcast(ctx, p.ConversationID, conn.UserID)
}

func (s *Server) handleLeaveConversation(ctx context.Context, conn *WsConn, data map[string]any) error {
	p, err := decode.DecodePayload[ConversationPayload](data)
	if err != nil || p.ConversationID == "" {
		return errs.ErrValidation("conversationId required")
	}
	s.rooms.Leave(p.ConversationID, conn.ConnID)
	return nil
}

// handleSendMessage persists the message and fans it out to the room.
// The sender identity is always the bound user; any sender field in
// the payload is ignored.
func (s *Server) handleSendMessage(ctx context.Context, conn *WsConn, data map[string]any) error {
	p, err := decode.DecodePayload[SendMessagePayload](data)
	if err != nil {
		return errs.ErrValidation("bad send-message payload")
	}
	if p.ConversationID == "" {
		return errs.ErrValidation("conversationId required")
	}

	msg, err := s.store.Send(ctx, p.ConversationID, conn.UserID, p.Content, p.Attachments)
	if err != nil {
		return err
	}

	// sending ends the typing state without a separate event
	if s.typing.Stop(p.ConversationID, conn.UserID) {
		s.onTypingExpired(p.ConversationID, conn.UserID)
	}

	view := &MessageView{Message: msg}
	if u, uerr := s.users.FindByID(ctx, conn.UserID); uerr == nil {
		view.Sender = u.Summary()
	} else {
		logger.Warnf("[chat] sender lookup failed user=%s: %v", conn.UserID, uerr)
	}

	// the origin connection already has the message; the sender's
	// other tabs still receive it and dedupe by messageId
	s.broadcastRoom(p.ConversationID, EncodeFrame(EventMessageReceived, MessageReceivedPayload{
		ConversationID: p.ConversationID,
		Message:        view,
	}), conn.ConnID)

	// a receiver with the thread open saw the message already; anyone
	// else gets a notification instead
	if s.notifier != nil && msg.ReceiverID != "" && !s.roomHasUser(p.ConversationID, msg.ReceiverID) {
		senderName := conn.UserID
		if view.Sender != nil && view.Sender.Name != "" {
			senderName = view.Sender.Name
		}
		recipient, senderID, conversationID := msg.ReceiverID, conn.UserID, p.ConversationID
		safe.Go(func() {
			nctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if nerr := s.notifier.NotifyNewMessage(nctx, recipient, senderID, senderName, conversationID); nerr != nil {
				logger.Warnf("[chat] message notification failed to=%s conv=%s: %v", recipient, conversationID, nerr)
			}
		})
	}
	return nil
}

func (s *Server) handleTypingStart(ctx context.Context, conn *WsConn, data map[string]any) error {
	p, err := decode.DecodePayload[ConversationPayload](data)
	if err != nil || p.ConversationID == "" {
		return errs.ErrValidation("conversationId required")
	}
	if !s.rooms.Contains(p.ConversationID, conn.ConnID) {
		return errs.ErrForbidden("join the conversation first")
	}
	s.typing.Start(p.ConversationID, conn.UserID)
	s.broadcastRoomExceptUser(p.ConversationID, EncodeFrame(EventTypingStart, TypingPayload{
		ConversationID: p.ConversationID,
		UserID:         conn.UserID,
	}), conn.UserID)
	return nil
}

func (s *Server) handleTypingStop(ctx context.Context, conn *WsConn, data map[string]any) error {
	p, err := decode.DecodePayload[ConversationPayload](data)
	if err != nil || p.ConversationID == "" {
		return errs.ErrValidation("conversationId required")
	}
	if !s.rooms.Contains(p.ConversationID, conn.ConnID) {
		return errs.ErrForbidden("join the conversation first")
	}
	// broadcast even when no entry existed; stop is idempotent and a
	// duplicate stop is harmless to peers
	s.typing.Stop(p.ConversationID, conn.UserID)
	s.onTypingExpired(p.ConversationID, conn.UserID)
	return nil
}

func (s *Server) handleMarkRead(ctx context.Context, conn *WsConn, data map[string]any) error {
	p, err := decode.DecodePayload[ConversationPayload](data)
	if err != nil || p.ConversationID == "" {
		return errs.ErrValidation("conversationId required")
	}
	return s.markReadAndBroadcast(ctx, p.ConversationID, conn.UserID)
}

// markReadAndBroadcast settles the reader's unread state and tells the
// other participants. The reader's own connections are excluded.
func (s *Server) markReadAndBroadcast(ctx context.Context, conversationID, readerID string) error {
	if _, err := s.store.MarkRead(ctx, conversationID, readerID); err != nil {
		return err
	}
	s.broadcastRoomExceptUser(conversationID, EncodeFrame(EventMessagesRead, MessagesReadPayload{
		ConversationID: conversationID,
		UserID:         readerID,
	}), readerID)
	return nil
}

// handleRequestNotifyPush replays the caller's pending notifications to
// the requesting connection only. Used by clients recovering from a
// reconnect.
func (s *Server) handleRequestNotifyPush(ctx context.Context, conn *WsConn, data map[string]any) error {
	list, err := s.notifs.ListNotifications(ctx, conn.UserID, 1, 50)
	if err != nil {
		return err
	}
	for _, n := range list {
		if n.IsRead {
			continue
		}
		_ = s.conns.SendTo(conn.ConnID, EncodeFrame(EventNewNotification, n))
	}
	return nil
}
