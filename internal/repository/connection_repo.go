package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/emberdating/ember-backend/internal/db"
)

// ConnectionRepository provides data access for the connection registry:
// the durable user → last-known-session-handle table.
type ConnectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new repository bound to the given DB connection.
func NewConnectionRepository(database *gorm.DB) *ConnectionRepository {
	return &ConnectionRepository{db: database}
}

// Register records the user's current session handle using the
// delete-then-insert pattern: any prior row for the user is removed first
// so the table never accumulates duplicates for one user. The two
// statements are intentionally not wrapped in a transaction — concurrent
// reconnects race and the last write the store observes wins; an orphaned
// handle from the loser is pruned on its next failed delivery.
func (r *ConnectionRepository) Register(ctx context.Context, userID uint64, handle string) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.Connection{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Create(&db.Connection{UserID: userID, Handle: handle}).Error
}

// Resolve returns the user's last known handle, or "" when no row exists.
func (r *ConnectionRepository) Resolve(ctx context.Context, userID uint64) (string, error) {
	var conn db.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return conn.Handle, nil
}

// PruneHandle deletes the registry row for a handle the transport
// reported gone. Safe to call for handles that no longer exist.
func (r *ConnectionRepository) PruneHandle(ctx context.Context, handle string) error {
	return r.db.WithContext(ctx).
		Where("handle = ?", handle).
		Delete(&db.Connection{}).Error
}
