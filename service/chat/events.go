package chat

import (
	"encoding/json"
	"time"

	chatmodel "github.com/Kesh3805/job-portal/module/chat/model"
	usermodel "github.com/Kesh3805/job-portal/module/user/model"
	"github.com/Kesh3805/job-portal/tools/errs"
)

// Canonical event names. Hyphenated everywhere; no colon-namespaced
// aliases.
const (
	// client -> server
	EventAuthenticate      = "authenticate"
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventSendMessage       = "send-message"
	EventTypingStart       = "typing-start"
	EventTypingStop        = "typing-stop"
	EventMarkRead          = "mark-read"
	EventRequestNotifyPush = "request-notification-push"

	// server -> client
	EventPresenceStatus  = "presence-status"
	EventOnlineSnapshot  = "online-users-snapshot"
	EventMessageReceived = "message-received"
	EventMessagesRead    = "messages-read"
	EventNewNotification = "new-notification"
	EventMessageError    = "message-error"
)

// Frame is the wire envelope for both directions.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.Wrap(err, "unmarshal frame")
	}
	if f.Event == "" {
		return nil, errs.New("frame missing event")
	}
	return &f, nil
}

// EncodeFrame builds an outbound frame from a typed payload. Outbound
// payloads are marshaled straight into the data object.
func EncodeFrame(event string, payload any) []byte {
	var data json.RawMessage
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	b, _ := json.Marshal(struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data,omitempty"`
	}{Event: event, Data: data})
	return b
}

// ---- inbound payloads ----

type AuthenticatePayload struct {
	Token  string `json:"token,omitempty"`
	UserID string `json:"userId,omitempty"`
}

type ConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type SendMessagePayload struct {
	ConversationID string                 `json:"conversationId"`
	Content        string                 `json:"content"`
	Attachments    []chatmodel.Attachment `json:"attachments,omitempty"`
}

// ---- outbound payloads ----

type PresenceStatusPayload struct {
	UserID   string     `json:"userId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type OnlineSnapshotPayload struct {
	UserIDs []string `json:"userIds"`
}

// MessageView is a message with its sender resolved for display.
type MessageView struct {
	*chatmodel.Message
	Sender *usermodel.Summary `json:"sender,omitempty"`
}

type MessageReceivedPayload struct {
	ConversationID string       `json:"conversationId"`
	Message        *MessageView `json:"message"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

type MessagesReadPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

type ErrorPayload struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	Event string `json:"event,omitempty"` // event that failed
}

// BuildError maps an error onto the scoped message-error frame.
func BuildError(sourceEvent string, err error) []byte {
	return EncodeFrame(EventMessageError, ErrorPayload{
		Code:  errs.CodeOf(err),
		Msg:   errs.MsgOf(err),
		Event: sourceEvent,
	})
}
