package matching

import (
	"context"
	"time"

	"github.com/emberdating/ember-backend/internal/app"
	"github.com/emberdating/ember-backend/internal/db"
	svcErr "github.com/emberdating/ember-backend/internal/errors"
	"github.com/emberdating/ember-backend/internal/notify"
	"github.com/emberdating/ember-backend/internal/repository"
	"github.com/emberdating/ember-backend/internal/utils/chatid"
)

// Outcomes of a like action.
const (
	OutcomeLike  = "like"
	OutcomeMatch = "match"
)

const listPageSize = 20

// Service implements the matching engine: it mutates the like graph and
// answers the derived match/liked-you/your-likes queries. Match state is
// always computed from the two directed edges on read, never cached.
type Service struct {
	appCtx       *app.AppContext
	decisionRepo *repository.DecisionRepository
	userRepo     *repository.UserRepository
	messageRepo  *repository.MessageRepository
	notifier     notify.Notifier
}

// NewService creates the matching service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, notifier notify.Notifier) *Service {
	return &Service{
		appCtx:       appCtx,
		decisionRepo: repository.NewDecisionRepository(appCtx.DB),
		userRepo:     repository.NewUserRepository(appCtx.DB),
		messageRepo:  repository.NewMessageRepository(appCtx.DB),
		notifier:     notifier,
	}
}

// LikeResult reports whether a like completed a mutual pair.
type LikeResult struct {
	Outcome string `json:"type"`
	ChatID  string `json:"chatId,omitempty"`
}

// Profile is the public slice of a user surfaced in match lists.
type Profile struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	City     string `json:"city,omitempty"`
	Bio      string `json:"bio,omitempty"`
	ChatID   string `json:"chatId,omitempty"`
}

// Like records a like edge actor→target and reports the outcome.
// Liking the same user twice is idempotent: the edge is upserted, no
// duplicate rows, same outcome. On a mutual like both users are notified
// through the external channel and the chat summary row is created; on a
// one-way like only the target is told someone likes them — the liker's
// identity is never revealed at that stage.
func (s *Service) Like(ctx context.Context, actorID, targetID uint64) (*LikeResult, error) {
	if err := s.validatePair(ctx, actorID, targetID); err != nil {
		return nil, err
	}

	alreadyLiked, err := s.decisionRepo.HasLiked(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.decisionRepo.CreateOrUpdateDecision(ctx, actorID, targetID, true); err != nil {
		return nil, err
	}

	// like count cache: +1 with TTL refresh, skipped on repeat likes
	if !alreadyLiked {
		key := s.appCtx.RedisCache.KeyForLikeCount(targetID)
		_, _ = s.appCtx.RedisCache.Incr(ctx, key)
		_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()
	}

	mutual, err := s.decisionRepo.HasLiked(ctx, targetID, actorID)
	if err != nil {
		return nil, err
	}

	if !mutual {
		if !alreadyLiked {
			s.notify(ctx, targetID, notify.Notification{
				Kind: OutcomeLike,
				Body: "Someone likes you",
			})
		}
		return &LikeResult{Outcome: OutcomeLike}, nil
	}

	id := chatid.For(actorID, targetID)
	created, err := s.messageRepo.EnsureChat(ctx, actorID, targetID)
	if err != nil {
		s.appCtx.Logger.Warn("failed to ensure chat for match", "chat_id", id, "err", err)
	}
	if created {
		opener := &db.Message{
			ChatID: id,
			Text:   "It's a match! Say hello.",
			Type:   db.MessageTypeSystem,
		}
		if err := s.messageRepo.InsertWithSummary(ctx, opener); err != nil {
			s.appCtx.Logger.Warn("failed to insert match opener", "chat_id", id, "err", err)
		}
	}

	// repeat likes on an already-matched pair must not re-notify
	if !alreadyLiked {
		s.notify(ctx, actorID, notify.Notification{
			Kind:       OutcomeMatch,
			Body:       "You have a new match",
			ChatID:     id,
			FromUserID: targetID,
		})
		s.notify(ctx, targetID, notify.Notification{
			Kind:       OutcomeMatch,
			Body:       "You have a new match",
			ChatID:     id,
			FromUserID: actorID,
		})
	}

	return &LikeResult{Outcome: OutcomeMatch, ChatID: id}, nil
}

// Dislike records a rejection. It never produces a match and removes the
// target from the actor's future discovery results.
func (s *Service) Dislike(ctx context.Context, actorID, targetID uint64) error {
	if err := s.validatePair(ctx, actorID, targetID); err != nil {
		return err
	}

	hadLiked, err := s.decisionRepo.HasLiked(ctx, actorID, targetID)
	if err != nil {
		return err
	}

	if err := s.decisionRepo.CreateOrUpdateDecision(ctx, actorID, targetID, false); err != nil {
		return err
	}

	// a like downgraded to a pass takes the cached counter with it
	if hadLiked {
		key := s.appCtx.RedisCache.KeyForLikeCount(targetID)
		_, _ = s.appCtx.RedisCache.Decr(ctx, key)
		_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()
	}

	return nil
}

// ListMatches returns every user with a mutual like, enriched with
// public profile fields and the derived chat id.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]Profile, error) {
	ids, err := s.decisionRepo.GetMutualIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, userID, ids, true)
}

// ListLikedYou returns users who liked the caller without reciprocation
// yet (pending, not mutual). Cursor pagination over updated_at.
func (s *Service) ListLikedYou(ctx context.Context, userID uint64, pageToken *string) ([]Profile, *string, error) {
	decisions, next, err := s.decisionRepo.GetNewLikers(ctx, userID, pageToken, listPageSize)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uint64, 0, len(decisions))
	for _, d := range decisions {
		ids = append(ids, d.ActorID)
	}
	profiles, err := s.enrich(ctx, userID, ids, false)
	if err != nil {
		return nil, nil, err
	}
	return profiles, next, nil
}

// ListYourLikes is the symmetric complement: users the caller liked who
// have not liked back.
func (s *Service) ListYourLikes(ctx context.Context, userID uint64, pageToken *string) ([]Profile, *string, error) {
	decisions, next, err := s.decisionRepo.GetPendingLikes(ctx, userID, pageToken, listPageSize)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uint64, 0, len(decisions))
	for _, d := range decisions {
		ids = append(ids, d.RecipientID)
	}
	profiles, err := s.enrich(ctx, userID, ids, false)
	if err != nil {
		return nil, nil, err
	}
	return profiles, next, nil
}

// CountLikedYou returns how many users liked the caller.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID), refreshing the TTL.
//  2. On cache miss or cache error, falls back to DB.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, userID uint64) (uint64, error) {
	if n, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, userID); err == nil && ok && n >= 0 {
		return uint64(n), nil
	}

	count, err := s.decisionRepo.CountLikers(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.appCtx.RedisCache.UpdateLikeCount(ctx, userID, count); err != nil {
		s.appCtx.Logger.Warn("failed to cache like count", "user_id", userID, "err", err)
	}

	return uint64(count), nil
}

func (s *Service) validatePair(ctx context.Context, actorID, targetID uint64) error {
	if targetID == 0 {
		return svcErr.Invalid("targetUserId is required")
	}
	if actorID == targetID {
		return svcErr.Invalid("cannot decide on yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return svcErr.NotFound("target user not found")
	}
	return nil
}

// enrich resolves ids to public profiles, preserving the incoming order.
func (s *Service) enrich(ctx context.Context, userID uint64, ids []uint64, withChatID bool) ([]Profile, error) {
	if len(ids) == 0 {
		return []Profile{}, nil
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]db.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	profiles := make([]Profile, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		p := Profile{
			UserID:   u.ID,
			Username: u.Username,
			Age:      u.Age,
			Gender:   u.Gender,
			City:     u.City,
			Bio:      u.Bio,
		}
		if withChatID {
			p.ChatID = chatid.For(userID, u.ID)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *Service) notify(ctx context.Context, userID uint64, n notify.Notification) {
	if err := s.notifier.Notify(ctx, userID, n); err != nil {
		s.appCtx.Logger.Warn("notification failed", "user_id", userID, "kind", n.Kind, "err", err)
	}
}
