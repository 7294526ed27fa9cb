package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberdating/ember-backend/internal/db"
	"github.com/emberdating/ember-backend/internal/utils/pagination"
)

// DecisionRepository provides data access for the like graph.
// It encapsulates all queries related to likes/passes between users.
type DecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new repository bound to the given DB connection.
func NewDecisionRepository(database *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: database}
}

// CreateOrUpdateDecision inserts or updates a decision made by actor -> recipient.
//
// Behavior:
//   - If (actor_id, recipient_id) pair exists → the row is updated with the new "liked" value.
//   - If it doesn’t exist → a new row is inserted.
//   - Composite PK ensures overwrite guarantee, which makes repeated likes
//     idempotent: no duplicate edges, same observable outcome.
func (r *DecisionRepository) CreateOrUpdateDecision(
	ctx context.Context,
	actorID, recipientID uint64,
	liked bool,
) error {
	decision := db.Decision{
		ActorID:     actorID,
		RecipientID: recipientID,
		Liked:       liked,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked"}),
		}).
		Create(&decision).Error
}

// HasLiked checks whether an actor has liked a recipient.
// Used for the mutual-like check after a new like lands: liked(B→A)
// together with the edge just written means the pair is a match.
func (r *DecisionRepository) HasLiked(
	ctx context.Context,
	actorID, recipientID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.actor_id = ? AND d.recipient_id = ? AND d.liked = true", actorID, recipientID).
		Count(&count).Error
	return count > 0, err
}

// GetMutualIDs returns every user the given user has a mutual like with.
// Match state is always derived from the two directed edges at read time,
// never cached.
func (r *DecisionRepository) GetMutualIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("decisions d").
		Select("d.recipient_id").
		Where("d.actor_id = ? AND d.liked = true", userID).
		Where(`EXISTS (
			SELECT 1 FROM decisions d2
			WHERE d2.actor_id = d.recipient_id
			  AND d2.recipient_id = d.actor_id
			  AND d2.liked = true
		)`).
		Order("d.updated_at DESC, d.recipient_id DESC").
		Scan(&ids).Error
	return ids, err
}

// GetNewLikers returns users who liked the recipient but have not been liked back.
//
// Behavior:
//   - Only decisions where recipient_id = X and liked = true are considered.
//   - Excludes mutual likes (recipient already liked them back).
//   - Excludes users the recipient explicitly passed.
//   - Ordered by updated_at DESC, actor_id DESC.
//   - Supports cursor-based pagination.
func (r *DecisionRepository) GetNewLikers(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Decision, *string, error) {
	var decisions []db.Decision

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	// subquery to exclude mutual likes
	subQuery := r.db.
		Table("decisions").
		Select("1").
		Where("actor_id = d.recipient_id AND recipient_id = d.actor_id AND liked = true")

	query := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.recipient_id = ? AND d.liked = true AND NOT EXISTS (?)", recipientID, subQuery).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM decisions d2
				WHERE d2.actor_id = ?
				  AND d2.recipient_id = d.actor_id
				  AND d2.liked = false
			)`, recipientID).
		Order("d.updated_at DESC, d.actor_id DESC").
		Limit(limit + 1)

	if cursor.UserID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		query = query.Where(
			"(d.updated_at < ? OR (d.updated_at = ? AND d.actor_id < ?))",
			ts, ts, cursor.UserID,
		)
	}

	if err := query.Find(&decisions).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(decisions) > limit {
		last := decisions[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			UserID:      last.ActorID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		decisions = decisions[:limit]
	}

	return decisions, nextToken, nil
}

// GetPendingLikes is the symmetric complement of GetNewLikers: users the
// actor liked who have not reciprocated yet. Explicit passes from the
// other side are not surfaced to the actor, so no exclusion is applied.
func (r *DecisionRepository) GetPendingLikes(
	ctx context.Context,
	actorID uint64,
	paginationToken *string,
	limit int,
) ([]db.Decision, *string, error) {
	var decisions []db.Decision

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	subQuery := r.db.
		Table("decisions").
		Select("1").
		Where("actor_id = d.recipient_id AND recipient_id = d.actor_id AND liked = true")

	query := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.actor_id = ? AND d.liked = true AND NOT EXISTS (?)", actorID, subQuery).
		Order("d.updated_at DESC, d.recipient_id DESC").
		Limit(limit + 1)

	if cursor.UserID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		query = query.Where(
			"(d.updated_at < ? OR (d.updated_at = ? AND d.recipient_id < ?))",
			ts, ts, cursor.UserID,
		)
	}

	if err := query.Find(&decisions).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(decisions) > limit {
		last := decisions[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			UserID:      last.RecipientID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		decisions = decisions[:limit]
	}

	return decisions, nextToken, nil
}

// CountLikers returns how many users liked the given recipient.
//
// Behavior:
//   - Counts only decisions where recipient_id = X and liked = true.
//   - Excludes users that recipient explicitly passed.
//   - Used in conjunction with Redis cache (DB is fallback).
func (r *DecisionRepository) CountLikers(
	ctx context.Context,
	recipientID uint64,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.recipient_id = ? AND d.liked = true", recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM decisions d2
				WHERE d2.actor_id = ?
				  AND d2.recipient_id = d.actor_id
				  AND d2.liked = false
			)`, recipientID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
