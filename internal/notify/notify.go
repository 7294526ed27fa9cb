package notify

import (
	"context"
	"log/slog"
)

// Notification is the payload handed to the external channel when a user
// has no live session (or delivery to it failed), and for match/like
// announcements.
type Notification struct {
	Kind       string `json:"kind"` // "newMessage", "messageEdited", "like", "match"
	Body       string `json:"body,omitempty"`
	ChatID     string `json:"chatId,omitempty"`
	FromUserID uint64 `json:"fromUserId,omitempty"`
}

// Notifier is the capability interface for the external notification
// channel (push service, bot platform, email — whatever ops wired up).
// Implementations are fire-and-forget: callers log errors and move on,
// never treating a notify failure as a failure of their own operation.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, n Notification) error
}

// LogNotifier is the default sink when no push transport is configured:
// it records the notification and succeeds.
type LogNotifier struct {
	Logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, userID uint64, n Notification) error {
	l.Logger.Info("notification dispatched",
		"user_id", userID,
		"kind", n.Kind,
		"chat_id", n.ChatID,
	)
	return nil
}
