package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberdating/ember-backend/internal/db"
	"github.com/emberdating/ember-backend/internal/utils/chatid"
)

// MessageRepository provides data access for chat messages and the
// per-chat denormalized summary.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// InsertWithSummary persists a new message and updates the chat's
// "last message" summary in the same transaction. The message's ID and
// CreatedAt are populated by the insert; callers read them back off msg.
// Nothing is delivered from here — persistence always happens before any
// delivery side effect.
func (r *MessageRepository) InsertWithSummary(ctx context.Context, msg *db.Message) error {
	a, b, ok := chatid.Participants(msg.ChatID)
	if !ok {
		return gorm.ErrInvalidData
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		summary := db.Chat{
			ID:            msg.ChatID,
			UserAID:       a,
			UserBID:       b,
			LastMessage:   msg.Text,
			LastMessageAt: msg.CreatedAt,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_message", "last_message_at"}),
		}).Create(&summary).Error
	})
}

// EnsureChat creates the chat summary row for a pair if it does not
// exist yet, e.g. when a match forms before any message is sent. It
// reports whether the row was actually created this call.
func (r *MessageRepository) EnsureChat(ctx context.Context, userA, userB uint64) (bool, error) {
	id := chatid.For(userA, userB)
	a, b, _ := chatid.Participants(id)
	chat := db.Chat{ID: id, UserAID: a, UserBID: b}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&chat)
	return res.RowsAffected > 0, res.Error
}

// GetByID fetches one message.
func (r *MessageRepository) GetByID(ctx context.Context, id uint64) (*db.Message, error) {
	var msg db.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetHistory returns the full message log for a chat in non-decreasing
// timestamp order; the auto-increment id breaks timestamp ties in
// generation order.
func (r *MessageRepository) GetHistory(ctx context.Context, chatID string) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// ApplyEdit stores the edited text and edit markers for a message.
// Authorization (editor == sender) is the service layer's job.
func (r *MessageRepository) ApplyEdit(ctx context.Context, id uint64, text string, editedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"text":      text,
			"is_edited": true,
			"edited_at": editedAt,
		}).Error
}

// MarkRead flags every message in the chat not sent by the reader as read.
func (r *MessageRepository) MarkRead(ctx context.Context, chatID string, readerID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, readerID, false).
		Update("is_read", true).Error
}

// CountUnread returns how many messages in the chat the given user has
// not read yet.
func (r *MessageRepository) CountUnread(ctx context.Context, chatID string, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, userID, false).
		Count(&count).Error
	return count, err
}

// GetChats fetches chat summary rows by id, preserving no particular order.
func (r *MessageRepository) GetChats(ctx context.Context, ids []string) ([]db.Chat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chats []db.Chat
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&chats).Error
	return chats, err
}
