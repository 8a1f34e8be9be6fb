package model

import (
	"time"

	mgo "github.com/Kesh3805/job-portal/service/mgo"
	"go.mongodb.org/mongo-driver/mongo"
)

// Notification type tags (closed set).
const (
	NotifyApplicationReceived = "application-received"
	NotifyInterviewScheduled  = "interview-scheduled"
	NotifyNewMessage          = "new-message"
	NotifyJobApproved         = "job-approved"
)

// RelatedRefs carries optional related-entity references. Explicit
// fields instead of a dynamic key bag so they serialize uniformly.
type RelatedRefs struct {
	JobID          string `bson:"job_id,omitempty" json:"jobId,omitempty"`
	ApplicationID  string `bson:"application_id,omitempty" json:"applicationId,omitempty"`
	InterviewID    string `bson:"interview_id,omitempty" json:"interviewId,omitempty"`
	ConversationID string `bson:"conversation_id,omitempty" json:"conversationId,omitempty"`
}

// Notification is a one-way event for a single recipient. Read state is
// mutated by the recipient only.
type Notification struct {
	NotificationID string `bson:"notification_id" json:"notificationId"`
	RecipientID    string `bson:"recipient_id" json:"recipientId"`
	SenderID       string `bson:"sender_id,omitempty" json:"senderId,omitempty"`

	Type    string `bson:"type" json:"type"`
	Title   string `bson:"title" json:"title"`
	Message string `bson:"message,omitempty" json:"message,omitempty"`

	Related *RelatedRefs `bson:"related,omitempty" json:"related,omitempty"`

	IsRead bool       `bson:"is_read" json:"isRead"`
	ReadAt *time.Time `bson:"read_at,omitempty" json:"readAt,omitempty"`

	CreateTime time.Time `bson:"create_time" json:"createTime"`
}

func (n *Notification) GetTableName() string {
	return "notification"
}

func (n *Notification) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(n.GetTableName())
}

// ValidType reports whether t is one of the closed set of tags.
func ValidType(t string) bool {
	switch t {
	case NotifyApplicationReceived, NotifyInterviewScheduled, NotifyNewMessage, NotifyJobApproved:
		return true
	}
	return false
}
