// Package notify bridges the notification store and the realtime
// gateway: every notification is persisted first, then pushed to the
// recipient when they have a live connection.
package notify

import (
	"context"

	"github.com/Kesh3805/job-portal/logger"
	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	"github.com/Kesh3805/job-portal/service/chat"
)

// Store is the persistence side of the dispatcher.
type Store interface {
	InsertNotification(ctx context.Context, n *chatmodel.Notification) error
	MarkNotificationRead(ctx context.Context, notificationID, requesterID string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)
	ListNotifications(ctx context.Context, recipientID string, page, pageSize int64) ([]*chatmodel.Notification, error)
}

// Pusher is the realtime side; *chat.Server satisfies it.
type Pusher interface {
	PushToUser(userID string, data []byte)
	IsOnline(userID string) bool
}

type Dispatcher struct {
	store  Store
	pusher Pusher
}

func NewDispatcher(store Store, pusher Pusher) *Dispatcher {
	return &Dispatcher{store: store, pusher: pusher}
}

// Dispatch persists the notification and, when the recipient is
// online, pushes it over the socket. Persistence is unconditional;
// the push is best effort and an offline recipient is not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, n *chatmodel.Notification) error {
	if err := d.store.InsertNotification(ctx, n); err != nil {
		return err
	}
	if d.pusher != nil && d.pusher.IsOnline(n.RecipientID) {
		d.pusher.PushToUser(n.RecipientID, chat.EncodeFrame(chat.EventNewNotification, n))
		logger.Infof("[notify] pushed id=%s to=%s type=%s", n.NotificationID, n.RecipientID, n.Type)
	}
	return nil
}

// NotifyNewMessage raises the standard new-message notification for a
// conversation peer who is not in the room.
func (d *Dispatcher) NotifyNewMessage(ctx context.Context, recipientID, senderID, senderName, conversationID string) error {
	return d.Dispatch(ctx, &chatmodel.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        chatmodel.NotifyNewMessage,
		Title:       "New message",
		Message:     senderName + " sent you a message",
		Related:     &chatmodel.RelatedRefs{ConversationID: conversationID},
	})
}

func (d *Dispatcher) MarkRead(ctx context.Context, notificationID, requesterID string) error {
	return d.store.MarkNotificationRead(ctx, notificationID, requesterID)
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return d.store.MarkAllNotificationsRead(ctx, recipientID)
}

func (d *Dispatcher) List(ctx context.Context, recipientID string, page, pageSize int64) ([]*chatmodel.Notification, error) {
	return d.store.ListNotifications(ctx, recipientID, page, pageSize)
}
