package store

import (
	"context"
	"strings"
	"time"

	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	"github.com/Kesh3805/job-portal/tools/errs"
	"github.com/Kesh3805/job-portal/tools/ids"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Send persists a message into the conversation. The reader set starts
// as {sender}; the peer's unread counter goes up by one. A disconnect
// mid-call never rolls the inserted document back.
func (s *Store) Send(ctx context.Context, conversationID, senderID, content string, attachments []chatmodel.Attachment) (*chatmodel.Message, error) {
	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return nil, errs.ErrValidation("message content is required")
	}

	conv, err := s.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, errs.ErrForbidden("sender is not a participant")
	}

	seq, err := s.nextSeq(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	m := &chatmodel.Message{
		MessageID:      ids.GenerateString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     conv.PeerOf(senderID),
		Content:        content,
		Attachments:    attachments,
		Readers:        []string{senderID},
		Seq:            seq,
		CreateTime:     time.Now().UnixMilli(),
	}

	if _, err := s.MsgColl.InsertOne(ctx, m); err != nil {
		return nil, errs.ErrTransient("message insert failed", err)
	}

	if err := s.bumpAfterSend(ctx, conv, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages pages a conversation's history. Storage order is
// newest-first; the returned page is reversed so callers always read
// chronologically.
func (s *Store) ListMessages(ctx context.Context, conversationID, requesterID string, page, pageSize int64) ([]*chatmodel.Message, error) {
	conv, err := s.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, errs.ErrForbidden("requester is not a participant")
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	cur, err := s.MsgColl.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().
			SetSort(bson.D{{Key: "seq", Value: -1}}).
			SetSkip((page-1)*pageSize).
			SetLimit(pageSize),
	)
	if err != nil {
		return nil, errs.ErrTransient("message list failed", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var newestFirst []*chatmodel.Message
	for cur.Next(ctx) {
		var m chatmodel.Message
		if err := cur.Decode(&m); err != nil {
			return nil, errs.ErrTransient("message decode failed", err)
		}
		newestFirst = append(newestFirst, &m)
	}

	// reverse to oldest-to-newest
	out := make([]*chatmodel.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}

// MarkRead adds readerID to every message it has not read and did not
// send, then zeroes its unread counter. Calling it twice is a no-op the
// second time. Returns how many messages were newly marked.
func (s *Store) MarkRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	conv, err := s.FindConversation(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if !conv.HasParticipant(readerID) {
		return 0, errs.ErrForbidden("reader is not a participant")
	}

	res, err := s.MsgColl.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": readerID},
			"readers":         bson.M{"$ne": readerID},
		},
		bson.M{"$addToSet": bson.M{"readers": readerID}},
	)
	if err != nil {
		return 0, errs.ErrTransient("read receipt update failed", err)
	}

	if err := s.ResetUnread(ctx, conversationID, readerID); err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
