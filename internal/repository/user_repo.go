package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/emberdating/ember-backend/internal/db"
)

// DiscoveryFilters narrows the discovery candidate set. Zero values mean
// "not specified".
type DiscoveryFilters struct {
	Gender    string
	MinAge    int
	MaxAge    int
	Ethnicity string
	Religion  string
}

// UserRepository provides read access to user profiles. Profile CRUD is
// owned by another system; this repo only serves matching and discovery.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByID fetches one user.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs fetches users by id. Result order is unspecified; callers that
// care reorder against their own id list.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []uint64) ([]db.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []db.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// FindCandidates returns the discovery candidate set for a user:
// profile-complete active users, excluding the requester and anyone the
// requester has already decided on (liked or passed), narrowed by the
// filter predicates. Gender is an exact match unless "any"; age bounds
// are inclusive; ethnicity is a case-insensitive trimmed equality.
//
// The religion tag filter is applied in Go because tags live in a JSON
// column; the candidate set is already small after the SQL predicates.
// Results are ordered by id for a deterministic incoming order — the
// ranking layer re-sorts with a stable sort.
func (r *UserRepository) FindCandidates(
	ctx context.Context,
	userID uint64,
	f DiscoveryFilters,
) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("profile_complete = ? AND active = ?", true, true).
		Where("id <> ?", userID).
		Where(`NOT EXISTS (
			SELECT 1 FROM decisions d
			WHERE d.actor_id = ? AND d.recipient_id = users.id
		)`, userID).
		Order("id ASC")

	if g := strings.ToLower(strings.TrimSpace(f.Gender)); g != "" && g != "any" {
		query = query.Where("LOWER(gender) = ?", g)
	}
	if f.MinAge > 0 {
		query = query.Where("age >= ?", f.MinAge)
	}
	if f.MaxAge > 0 {
		query = query.Where("age <= ?", f.MaxAge)
	}
	if e := strings.ToLower(strings.TrimSpace(f.Ethnicity)); e != "" {
		query = query.Where("LOWER(TRIM(ethnicity_text)) = ?", e)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}

	if rel := strings.ToLower(strings.TrimSpace(f.Religion)); rel != "" {
		filtered := users[:0]
		for _, u := range users {
			for _, tag := range u.Religions {
				if strings.ToLower(strings.TrimSpace(tag)) == rel {
					filtered = append(filtered, u)
					break
				}
			}
		}
		users = filtered
	}

	return users, nil
}
