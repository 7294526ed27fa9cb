package db

import (
	"time"
)

// Message types.
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// User table. Profile CRUD happens elsewhere; matching and discovery only
// read these fields. Tag sets are stored as JSON columns via the gorm
// serializer.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true"`
	Gender       string `gorm:"size:16;not null"`
	Age          int    `gorm:"not null"`

	// Location
	City      string `gorm:"size:64"`
	Latitude  *float64
	Longitude *float64

	// Culture attributes read by the compatibility scorer
	MacroGroups   []string `gorm:"serializer:json"`
	EthnicityText string   `gorm:"size:128"`
	Religions     []string `gorm:"serializer:json"`
	Interests     []string `gorm:"serializer:json"`
	Zodiac        string   `gorm:"size:16"`
	Bio           string   `gorm:"type:text"`
	CulturalBio   string   `gorm:"type:text"`

	ProfileComplete bool      `gorm:"default:false"`
	LastLoginAt     time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// Decision represents an actor's like/pass decision on a recipient.
// This table IS the like graph: a row with Liked=true is a directed
// like edge, Liked=false records a rejection that only discovery and
// the liked-you exclusions care about. A match is never stored — it is
// the derived condition "liked(A→B) and liked(B→A)", evaluated on read.
//
// Composite PK: (ActorID, RecipientID)
//   - Ensures a single row per pair (overwrite guarantee, idempotent likes).
//
// Indexes:
//   - idx_recipient_liked_updated_actor(recipient_id, liked, updated_at DESC, actor_id)
//     Optimizes "who liked me" lists with pagination.
//   - idx_actor_recipient_liked(actor_id, recipient_id, liked)
//     Optimizes O(1) lookup for mutual like checks.
type Decision struct {
	ActorID     uint64    `gorm:"primaryKey;index:idx_actor_recipient_liked,priority:1"`
	RecipientID uint64    `gorm:"primaryKey;index:idx_recipient_liked_updated_actor,priority:1;index:idx_actor_recipient_liked,priority:2"`
	Liked       bool      `gorm:"not null;type:tinyint(1);index:idx_recipient_liked_updated_actor,priority:2;index:idx_actor_recipient_liked,priority:3"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;index:idx_recipient_liked_updated_actor,priority:3,sort:desc"`
}

// Chat is the denormalized per-conversation summary. ID is the
// deterministic chat id (participant ids sorted and joined), so the row
// can always be re-derived from a pair of users. LastMessage fields are
// updated in the same transaction as the message insert.
type Chat struct {
	ID            string `gorm:"primaryKey;size:48"`
	UserAID       uint64 `gorm:"index;not null"`
	UserBID       uint64 `gorm:"index;not null"`
	LastMessage   string `gorm:"type:text"`
	LastMessageAt time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// Message is one entry in a chat's time-ordered log. IDs are
// auto-increment so insertion order breaks timestamp ties. Only the
// sender may edit; edits set IsEdited and EditedAt, nothing else mutates
// a stored message in the delivery path.
type Message struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ChatID    string `gorm:"size:48;not null;index:idx_chat_created,priority:1"`
	SenderID  uint64 `gorm:"not null"`
	Text      string `gorm:"type:text;not null"`
	Type      string `gorm:"size:16;not null;default:text"`
	ReplyToID *uint64
	IsRead    bool `gorm:"not null;default:false"`
	IsEdited  bool `gorm:"not null;default:false"`
	EditedAt  *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_chat_created,priority:2"`
}

// Connection maps a user to their last known live session handle.
// At most one live entry per user: registration deletes then inserts
// (two statements, deliberately not atomic — last write wins). Rows are
// retained on disconnect and pruned lazily when a delivery against the
// handle reports it gone.
type Connection struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"index;not null"`
	Handle    string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
