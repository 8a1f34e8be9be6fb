package model

import (
	"sort"
	"time"

	mgo "github.com/Kesh3805/job-portal/service/mgo"
	"go.mongodb.org/mongo-driver/mongo"
)

// Conversation is a durable two-party thread between a seeker and an
// employer, optionally anchored to the job/application that started it.
type Conversation struct {
	ConversationID string `bson:"conversation_id" json:"conversationId"` // PK

	// ParticipantKey is the canonical unordered-pair key ("a|b" with the
	// ids sorted). A unique index on it is what enforces at most one
	// conversation per pair, racing creators included.
	ParticipantKey string   `bson:"participant_key" json:"-"`
	Participants   []string `bson:"participants" json:"participants"` // exactly two, sorted

	// UnreadCounts maps participant id -> messages not yet marked read.
	// Kept as an explicit typed map so it round-trips uniformly.
	UnreadCounts map[string]int64 `bson:"unread_counts" json:"unreadCounts"`

	// MessageSeq is the last server-assigned sequence number; $inc on it
	// makes message ordering deterministic across racing senders.
	MessageSeq int64 `bson:"message_seq" json:"messageSeq"`

	LastMessageID   string    `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastMessageText string    `bson:"last_message_text,omitempty" json:"lastMessageText,omitempty"` // list-page preview
	LastMessageAt   time.Time `bson:"last_message_at,omitempty" json:"lastMessageAt,omitempty"`

	// Linking references for context; never interpreted by the core.
	JobID         string `bson:"job_id,omitempty" json:"jobId,omitempty"`
	ApplicationID string `bson:"application_id,omitempty" json:"applicationId,omitempty"`

	CreateTime time.Time `bson:"create_time" json:"createTime"`
	UpdatedAt  int64     `bson:"updated_at" json:"updatedAt"` // unix ms
}

func (c *Conversation) GetTableName() string {
	return "conversation"
}

func (c *Conversation) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(c.GetTableName())
}

// HasParticipant reports whether userID is one of the two parties.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// PeerOf returns the other participant, or "" if userID is not a party.
func (c *Conversation) PeerOf(userID string) string {
	if len(c.Participants) != 2 || !c.HasParticipant(userID) {
		return ""
	}
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// PairKey canonicalizes an unordered participant pair.
func PairKey(userA, userB string) (key string, sorted []string) {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1], pair
}
