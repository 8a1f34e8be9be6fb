package store

import (
	"context"

	"github.com/Kesh3805/job-portal/data/database"
	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	ConvColl  *mongo.Collection // conversation
	MsgColl   *mongo.Collection // message
	NotifColl *mongo.Collection // notification
}

func collFor(db *mongo.Database, t database.Table) *mongo.Collection {
	return db.Collection(t.GetTableName())
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		ConvColl:  collFor(db, &chatmodel.Conversation{}),
		MsgColl:   collFor(db, &chatmodel.Message{}),
		NotifColl: collFor(db, &chatmodel.Notification{}),
	}
}

// EnsureIndexes creates the indexes the invariants rely on. The unique
// participant_key index is what makes concurrent GetOrCreate calls for
// the same pair collapse to one document.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.ConvColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participant_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_message_at", Value: -1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = s.MsgColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "seq", Value: -1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "readers", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = s.NotifColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "notification_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "create_time", Value: -1}},
		},
	})
	return err
}
