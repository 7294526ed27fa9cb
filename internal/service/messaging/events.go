package messaging

import (
	"time"

	"github.com/emberdating/ember-backend/internal/db"
)

// Event type discriminators pushed over live sessions.
const (
	EventNewMessage    = "newMessage"
	EventMessageEdited = "messageEdited"
	EventError         = "error"
)

// NewMessageEvent carries a freshly persisted message to both
// participants' live sessions. The sender receives it as the echo/ack
// with the server-assigned id and timestamp.
type NewMessageEvent struct {
	Type        string    `json:"type"`
	ID          uint64    `json:"id"`
	ChatID      string    `json:"chatId"`
	SenderID    uint64    `json:"senderId"`
	Text        string    `json:"text"`
	MessageType string    `json:"messageType"`
	Timestamp   time.Time `json:"timestamp"`
	ReplyToID   *uint64   `json:"replyToId,omitempty"`
}

// MessageEditedEvent announces an in-place edit of an existing message.
type MessageEditedEvent struct {
	Type     string    `json:"type"`
	ID       uint64    `json:"id"`
	ChatID   string    `json:"chatId"`
	Text     string    `json:"text"`
	IsEdited bool      `json:"isEdited"`
	EditedAt time.Time `json:"editedAt"`
}

// ErrorEvent reports a failed socket action back to the issuing session.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newMessageEvent(msg *db.Message) NewMessageEvent {
	return NewMessageEvent{
		Type:        EventNewMessage,
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		Text:        msg.Text,
		MessageType: msg.Type,
		Timestamp:   msg.CreatedAt,
		ReplyToID:   msg.ReplyToID,
	}
}
