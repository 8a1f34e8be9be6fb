package store

import (
	"context"
	"time"

	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	"github.com/Kesh3805/job-portal/tools/errs"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertNotification persists a notification record. Durability never
// depends on whether the recipient is online.
func (s *Store) InsertNotification(ctx context.Context, n *chatmodel.Notification) error {
	if n.RecipientID == "" {
		return errs.ErrValidation("recipient is required")
	}
	if !chatmodel.ValidType(n.Type) {
		return errs.ErrValidation("unknown notification type").WithDetail(n.Type)
	}
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	if n.CreateTime.IsZero() {
		n.CreateTime = time.Now()
	}
	if _, err := s.NotifColl.InsertOne(ctx, n); err != nil {
		return errs.ErrTransient("notification insert failed", err)
	}
	return nil
}

// MarkNotificationRead flips the read flag; only the recipient may.
func (s *Store) MarkNotificationRead(ctx context.Context, notificationID, requesterID string) error {
	var n chatmodel.Notification
	err := s.NotifColl.FindOne(ctx, bson.M{"notification_id": notificationID}).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return errs.ErrNotFound("notification not found").WithDetail(notificationID)
	}
	if err != nil {
		return errs.ErrTransient("notification lookup failed", err)
	}
	if n.RecipientID != requesterID {
		return errs.ErrForbidden("not the notification recipient")
	}

	now := time.Now()
	_, err = s.NotifColl.UpdateOne(ctx,
		bson.M{"notification_id": notificationID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}},
	)
	if err != nil {
		return errs.ErrTransient("notification update failed", err)
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification of the
// recipient. Returns how many were flipped.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	now := time.Now()
	res, err := s.NotifColl.UpdateMany(ctx,
		bson.M{"recipient_id": recipientID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}},
	)
	if err != nil {
		return 0, errs.ErrTransient("notification update failed", err)
	}
	return res.ModifiedCount, nil
}

// ListNotifications returns the recipient's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, recipientID string, page, pageSize int64) ([]*chatmodel.Notification, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	cur, err := s.NotifColl.Find(ctx,
		bson.M{"recipient_id": recipientID},
		options.Find().
			SetSort(bson.D{{Key: "create_time", Value: -1}}).
			SetSkip((page-1)*pageSize).
			SetLimit(pageSize),
	)
	if err != nil {
		return nil, errs.ErrTransient("notification list failed", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*chatmodel.Notification
	for cur.Next(ctx) {
		var n chatmodel.Notification
		if err := cur.Decode(&n); err != nil {
			return nil, errs.ErrTransient("notification decode failed", err)
		}
		out = append(out, &n)
	}
	return out, nil
}
