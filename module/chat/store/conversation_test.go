package store

import (
	"testing"
	"time"

	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestGetOrCreateUpdate_InsertOnlyNoWriteOnLookup(t *testing.T) {
	req := require.New(t)

	key, pair := chatmodel.PairKey("bob", "alice")
	now := time.Now()
	update := getOrCreateUpdate(key, pair, ConversationRefs{}, now)

	// a repeat lookup must not touch the existing document
	req.NotContains(update, "$set")
	req.NotContains(update, "$inc")
	req.Len(update, 1)

	ins, ok := update["$setOnInsert"].(bson.M)
	req.True(ok)
	req.Equal(key, ins["participant_key"])
	req.Equal([]string{"alice", "bob"}, ins["participants"])
	req.Equal(now.UnixMilli(), ins["updated_at"])
	req.NotEmpty(ins["conversation_id"])
	req.Equal(int64(0), ins["message_seq"])
	req.Equal(map[string]int64{"alice": 0, "bob": 0}, ins["unread_counts"])

	req.NotContains(ins, "job_id")
	req.NotContains(ins, "application_id")
}

func TestGetOrCreateUpdate_CarriesJobRefs(t *testing.T) {
	req := require.New(t)

	key, pair := chatmodel.PairKey("alice", "bob")
	update := getOrCreateUpdate(key, pair, ConversationRefs{JobID: "j1", ApplicationID: "app1"}, time.Now())

	ins := update["$setOnInsert"].(bson.M)
	req.Equal("j1", ins["job_id"])
	req.Equal("app1", ins["application_id"])
}
