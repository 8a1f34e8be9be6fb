package store

import (
	"context"
	"time"

	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	"github.com/Kesh3805/job-portal/tools/errs"
	"github.com/Kesh3805/job-portal/tools/ids"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRefs are the optional job-board anchors stored on create.
type ConversationRefs struct {
	JobID         string
	ApplicationID string
}

// GetOrCreate returns the one conversation for the unordered pair,
// creating it with zero unread counters when absent. The upsert races
// safely against itself: losers of the unique-index race re-read the
// winner's document.
func (s *Store) GetOrCreate(ctx context.Context, userA, userB string, refs ConversationRefs) (*chatmodel.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, errs.ErrValidation("both participants are required")
	}
	if userA == userB {
		return nil, errs.ErrValidation("cannot start a conversation with yourself")
	}

	key, pair := chatmodel.PairKey(userA, userB)

	res := s.ConvColl.FindOneAndUpdate(ctx,
		bson.M{"participant_key": key},
		getOrCreateUpdate(key, pair, refs, time.Now()),
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var out chatmodel.Conversation
	if err := res.Decode(&out); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost the upsert race; the pair's document exists now
			return s.findByPairKey(ctx, key)
		}
		return nil, errs.ErrTransient("conversation upsert failed", err)
	}
	return &out, nil
}

// getOrCreateUpdate builds the upsert document. Everything lives under
// $setOnInsert so an existing conversation passes through untouched; a
// lookup is a read, not a write.
func getOrCreateUpdate(key string, pair []string, refs ConversationRefs, now time.Time) bson.M {
	setOnInsert := bson.M{
		"conversation_id": ids.GenerateString(),
		"participant_key": key,
		"participants":    pair,
		"unread_counts":   map[string]int64{pair[0]: 0, pair[1]: 0},
		"message_seq":     int64(0),
		"create_time":     now,
		"updated_at":      now.UnixMilli(),
	}
	if refs.JobID != "" {
		setOnInsert["job_id"] = refs.JobID
	}
	if refs.ApplicationID != "" {
		setOnInsert["application_id"] = refs.ApplicationID
	}
	return bson.M{"$setOnInsert": setOnInsert}
}

func (s *Store) findByPairKey(ctx context.Context, key string) (*chatmodel.Conversation, error) {
	var out chatmodel.Conversation
	err := s.ConvColl.FindOne(ctx, bson.M{"participant_key": key}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound("conversation not found")
	}
	if err != nil {
		return nil, errs.ErrTransient("conversation lookup failed", err)
	}
	return &out, nil
}

// FindConversation looks a conversation up by id.
func (s *Store) FindConversation(ctx context.Context, conversationID string) (*chatmodel.Conversation, error) {
	var out chatmodel.Conversation
	err := s.ConvColl.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound("conversation not found").WithDetail(conversationID)
	}
	if err != nil {
		return nil, errs.ErrTransient("conversation lookup failed", err)
	}
	return &out, nil
}

// ListConversations returns the user's threads, most recent first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]*chatmodel.Conversation, error) {
	cur, err := s.ConvColl.Find(ctx,
		bson.M{"participants": userID},
		options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}}),
	)
	if err != nil {
		return nil, errs.ErrTransient("conversation list failed", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*chatmodel.Conversation
	for cur.Next(ctx) {
		var c chatmodel.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, errs.ErrTransient("conversation decode failed", err)
		}
		out = append(out, &c)
	}
	return out, nil
}

// nextSeq atomically assigns the next conversation-scoped sequence.
func (s *Store) nextSeq(ctx context.Context, conversationID string) (int64, error) {
	res := s.ConvColl.FindOneAndUpdate(ctx,
		bson.M{"conversation_id": conversationID},
		bson.M{"$inc": bson.M{"message_seq": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var out chatmodel.Conversation
	if err := res.Decode(&out); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, errs.ErrNotFound("conversation not found").WithDetail(conversationID)
		}
		return 0, errs.ErrTransient("seq assignment failed", err)
	}
	return out.MessageSeq, nil
}

// bumpAfterSend advances the last-message pointer and the other
// participants' unread counters; only grows the pointer forward.
func (s *Store) bumpAfterSend(ctx context.Context, conv *chatmodel.Conversation, m *chatmodel.Message) error {
	inc := bson.M{}
	for _, p := range conv.Participants {
		if p != m.SenderID {
			inc["unread_counts."+p] = int64(1)
		}
	}

	_, err := s.ConvColl.UpdateOne(ctx,
		bson.M{"conversation_id": conv.ConversationID},
		bson.M{
			"$set": bson.M{
				"last_message_id":   m.MessageID,
				"last_message_text": m.Content,
				"last_message_at":   time.UnixMilli(m.CreateTime),
				"updated_at":        time.Now().UnixMilli(),
			},
			"$inc": inc,
		},
	)
	if err != nil {
		return errs.ErrTransient("conversation bump failed", err)
	}
	return nil
}

// ResetUnread zeroes one participant's unread counter.
func (s *Store) ResetUnread(ctx context.Context, conversationID, userID string) error {
	_, err := s.ConvColl.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID},
		bson.M{"$set": bson.M{
			"unread_counts." + userID: int64(0),
			"updated_at":              time.Now().UnixMilli(),
		}},
	)
	if err != nil {
		return errs.ErrTransient("unread reset failed", err)
	}
	return nil
}
