package model

import (
	mgo "github.com/Kesh3805/job-portal/service/mgo"
	"go.mongodb.org/mongo-driver/mongo"
)

// Attachment is an immutable reference to an uploaded file. The core
// never touches the bytes, only the pointer.
type Attachment struct {
	URL         string `bson:"url" json:"url"`
	Name        string `bson:"name,omitempty" json:"name,omitempty"`
	ContentType string `bson:"content_type,omitempty" json:"contentType,omitempty"`
	Size        int64  `bson:"size,omitempty" json:"size,omitempty"`
}

// Message belongs to exactly one conversation. Content is immutable once
// created; only the reader set grows.
type Message struct {
	MessageID      string `bson:"message_id" json:"messageId"`
	ConversationID string `bson:"conversation_id" json:"conversationId"`
	SenderID       string `bson:"sender_id" json:"senderId"`
	ReceiverID     string `bson:"receiver_id,omitempty" json:"receiverId,omitempty"`

	Content     string       `bson:"content" json:"content"`
	Attachments []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`

	// Readers grows monotonically; the sender is a reader from birth.
	Readers []string `bson:"readers" json:"readers"`

	// Seq is the conversation-scoped monotonic sequence assigned at send.
	Seq int64 `bson:"seq" json:"seq"`

	CreateTime int64 `bson:"create_time" json:"createTime"` // unix ms
}

func (m *Message) GetTableName() string {
	return "message"
}

func (m *Message) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}

// ReadBy reports whether userID is in the reader set.
func (m *Message) ReadBy(userID string) bool {
	for _, r := range m.Readers {
		if r == userID {
			return true
		}
	}
	return false
}
