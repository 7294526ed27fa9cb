package messaging

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/emberdating/ember-backend/internal/app"
	"github.com/emberdating/ember-backend/internal/db"
	svcErr "github.com/emberdating/ember-backend/internal/errors"
	"github.com/emberdating/ember-backend/internal/notify"
	"github.com/emberdating/ember-backend/internal/repository"
	"github.com/emberdating/ember-backend/internal/utils/chatid"
)

// Transport pushes an event payload to a live session handle. The
// realtime gateway implements it in-process; tests substitute fakes.
type Transport interface {
	Push(ctx context.Context, handle string, payload []byte) error
}

// Service implements the message store access layer and the delivery
// pipeline on top of the connection registry.
type Service struct {
	appCtx       *app.AppContext
	messageRepo  *repository.MessageRepository
	connRepo     *repository.ConnectionRepository
	decisionRepo *repository.DecisionRepository
	userRepo     *repository.UserRepository
	transport    Transport
	notifier     notify.Notifier
}

// NewService creates the messaging service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, transport Transport, notifier notify.Notifier) *Service {
	return &Service{
		appCtx:       appCtx,
		messageRepo:  repository.NewMessageRepository(appCtx.DB),
		connRepo:     repository.NewConnectionRepository(appCtx.DB),
		decisionRepo: repository.NewDecisionRepository(appCtx.DB),
		userRepo:     repository.NewUserRepository(appCtx.DB),
		transport:    transport,
		notifier:     notifier,
	}
}

// ChatSummary is one entry in the caller's chat list.
type ChatSummary struct {
	ChatID          string     `json:"chatId"`
	CounterpartID   uint64     `json:"counterpartId"`
	CounterpartName string     `json:"counterpartName"`
	LastMessage     string     `json:"lastMessage,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
	UnreadCount     int64      `json:"unreadCount"`
}

// Connect binds a fresh session handle to the user in the registry and
// mirrors it into the cache. Prior rows for the user are replaced
// (last-writer-wins); calling it again with the same handle is harmless.
func (s *Service) Connect(ctx context.Context, userID uint64, handle string) error {
	if err := s.connRepo.Register(ctx, userID, handle); err != nil {
		return err
	}
	if err := s.appCtx.RedisCache.SetConnection(ctx, userID, handle); err != nil {
		s.appCtx.Logger.Warn("failed to cache connection handle", "user_id", userID, "err", err)
	}
	return nil
}

// SendMessage validates, persists and best-effort-delivers one chat
// message. The send succeeds or fails solely on the persistence outcome;
// both delivery attempts (recipient, then sender echo) are isolated from
// it and from each other.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID uint64, text string, replyToID *uint64) (*db.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, svcErr.Invalid("message text must not be empty")
	}
	if recipientID == 0 || recipientID == senderID {
		return nil, svcErr.Invalid("invalid recipient")
	}

	id := chatid.For(senderID, recipientID)

	if replyToID != nil {
		parent, err := s.messageRepo.GetByID(ctx, *replyToID)
		if err != nil {
			return nil, svcErr.Invalid("replied-to message not found")
		}
		if parent.ChatID != id {
			return nil, svcErr.Invalid("replied-to message belongs to another chat")
		}
	}

	msg := &db.Message{
		ChatID:    id,
		SenderID:  senderID,
		Text:      text,
		Type:      db.MessageTypeText,
		ReplyToID: replyToID,
	}
	if err := s.messageRepo.InsertWithSummary(ctx, msg); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(newMessageEvent(msg))

	s.Deliver(ctx, recipientID, payload, &notify.Notification{
		Kind:       EventNewMessage,
		Body:       "You have a new message",
		ChatID:     id,
		FromUserID: senderID,
	})
	// Echo so the sender's own session sees the server-assigned id and
	// timestamp. No notification fallback: an offline sender needs no push
	// about their own message, and the message is already committed.
	s.Deliver(ctx, senderID, payload, nil)

	return msg, nil
}

// EditMessage rewrites a message's text in place. Only the stored sender
// may edit — the check runs server-side against the persisted row, the
// caller's claim is never trusted.
func (s *Service) EditMessage(ctx context.Context, editorID, messageID uint64, newText string) error {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return svcErr.Invalid("message text must not be empty")
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return svcErr.NotFound("message not found")
	}
	if msg.SenderID != editorID {
		return svcErr.Forbidden("only the sender can edit a message")
	}

	editedAt := time.Now().UTC()
	if err := s.messageRepo.ApplyEdit(ctx, messageID, newText, editedAt); err != nil {
		return err
	}

	event := MessageEditedEvent{
		Type:     EventMessageEdited,
		ID:       msg.ID,
		ChatID:   msg.ChatID,
		Text:     newText,
		IsEdited: true,
		EditedAt: editedAt,
	}
	payload, _ := json.Marshal(event)

	if counterpart, ok := chatid.Other(msg.ChatID, editorID); ok {
		s.Deliver(ctx, counterpart, payload, &notify.Notification{
			Kind:       EventMessageEdited,
			ChatID:     msg.ChatID,
			FromUserID: editorID,
		})
	}
	s.Deliver(ctx, editorID, payload, nil)

	return nil
}

// GetHistory returns the chat's ordered message log. Callers only see
// chats they participate in.
func (s *Service) GetHistory(ctx context.Context, userID uint64, chatID string) ([]db.Message, error) {
	if _, ok := chatid.Other(chatID, userID); !ok {
		return nil, svcErr.NotFound("chat not found")
	}
	return s.messageRepo.GetHistory(ctx, chatID)
}

// MarkRead flags everything the counterpart sent in the chat as read.
func (s *Service) MarkRead(ctx context.Context, userID uint64, chatID string) error {
	if _, ok := chatid.Other(chatID, userID); !ok {
		return svcErr.NotFound("chat not found")
	}
	return s.messageRepo.MarkRead(ctx, chatID, userID)
}

// ListChats derives the caller's chat list from their mutual matches and
// decorates each entry with the denormalized last-message summary and an
// unread count. Chats with recent activity sort first.
func (s *Service) ListChats(ctx context.Context, userID uint64) ([]ChatSummary, error) {
	mutualIDs, err := s.decisionRepo.GetMutualIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(mutualIDs) == 0 {
		return []ChatSummary{}, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, mutualIDs)
	if err != nil {
		return nil, err
	}
	usersByID := make(map[uint64]db.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	chatIDs := make([]string, 0, len(mutualIDs))
	for _, other := range mutualIDs {
		chatIDs = append(chatIDs, chatid.For(userID, other))
	}
	chats, err := s.messageRepo.GetChats(ctx, chatIDs)
	if err != nil {
		return nil, err
	}
	chatsByID := make(map[string]db.Chat, len(chats))
	for _, c := range chats {
		chatsByID[c.ID] = c
	}

	summaries := make([]ChatSummary, 0, len(mutualIDs))
	for _, other := range mutualIDs {
		id := chatid.For(userID, other)
		summary := ChatSummary{
			ChatID:        id,
			CounterpartID: other,
		}
		if u, ok := usersByID[other]; ok {
			summary.CounterpartName = u.Username
		}
		if c, ok := chatsByID[id]; ok && !c.LastMessageAt.IsZero() {
			t := c.LastMessageAt
			summary.LastMessage = c.LastMessage
			summary.LastMessageTime = &t
		}
		unread, err := s.messageRepo.CountUnread(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		ti, tj := summaries[i].LastMessageTime, summaries[j].LastMessageTime
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})

	return summaries, nil
}
