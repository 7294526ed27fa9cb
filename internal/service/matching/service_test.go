package matching_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emberdating/ember-backend/internal/app"
	"github.com/emberdating/ember-backend/internal/cache"
	"github.com/emberdating/ember-backend/internal/config"
	"github.com/emberdating/ember-backend/internal/db"
	"github.com/emberdating/ember-backend/internal/notify"
	"github.com/emberdating/ember-backend/internal/service/matching"
	"github.com/emberdating/ember-backend/internal/utils/chatid"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[uint64][]notify.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: map[uint64][]notify.Notification{}}
}

func (r *recordingNotifier) Notify(ctx context.Context, userID uint64, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[userID] = append(r.sent[userID], n)
	return nil
}

func (r *recordingNotifier) forUser(userID uint64) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[userID]
}

// setupService spins up an in-memory SQLite DB, applies migrations,
// seeds three users, starts a miniredis, and wires a matching Service.
func setupService(t *testing.T) (*matching.Service, *gorm.DB, *recordingNotifier) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(&db.User{}, &db.Decision{}, &db.Chat{}, &db.Message{}, &db.Connection{}))

	users := []db.User{
		{ID: 1, Username: "user1", Email: "u1@test.com", PasswordHash: "x", Gender: "male", Age: 30},
		{ID: 2, Username: "user2", Email: "u2@test.com", PasswordHash: "x", Gender: "female", Age: 28},
		{ID: 3, Username: "user3", Email: "u3@test.com", PasswordHash: "x", Gender: "female", Age: 26},
	}
	require.NoError(t, dbase.Create(&users).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	notifier := newRecordingNotifier()
	appCtx := app.New(dbase, redisCache, logger)
	return matching.NewService(appCtx, notifier), dbase, notifier
}

func TestLike_OneWayOutcome(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()

	result, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeLike, result.Outcome)
	assert.Empty(t, result.ChatID)

	// only the liked user hears about it, without the liker's identity
	notifications := notifier.forUser(2)
	require.Len(t, notifications, 1)
	assert.Equal(t, matching.OutcomeLike, notifications[0].Kind)
	assert.Zero(t, notifications[0].FromUserID)
	assert.Empty(t, notifier.forUser(1))
}

func TestLike_MutualBecomesMatch(t *testing.T) {
	svc, dbase, notifier := setupService(t)
	ctx := context.Background()

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	result, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeMatch, result.Outcome)
	assert.Equal(t, chatid.For(1, 2), result.ChatID)

	// both sides notified about the match
	assert.NotEmpty(t, notifier.forUser(1))

	// chat summary row exists with the system opener as its first message
	var chat db.Chat
	assert.NoError(t, dbase.First(&chat, "id = ?", result.ChatID).Error)

	var openers []db.Message
	require.NoError(t, dbase.Where("chat_id = ?", result.ChatID).Find(&openers).Error)
	require.Len(t, openers, 1)
	assert.Equal(t, db.MessageTypeSystem, openers[0].Type)

	// a repeated mutual like must not duplicate the opener
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	var count int64
	dbase.Model(&db.Message{}).Where("chat_id = ?", result.ChatID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestLike_RepeatOnMatchedPairDoesNotRenotify(t *testing.T) {
	svc, _, notifier := setupService(t)
	ctx := context.Background()

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	sent1 := len(notifier.forUser(1))
	sent2 := len(notifier.forUser(2))

	result, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeMatch, result.Outcome, "outcome stays match")

	assert.Len(t, notifier.forUser(1), sent1, "no repeat match notification")
	assert.Len(t, notifier.forUser(2), sent2, "no repeat match notification")
}

func TestLike_Idempotent(t *testing.T) {
	svc, dbase, notifier := setupService(t)
	ctx := context.Background()

	r1, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	r2, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, r1.Outcome, r2.Outcome)

	var count int64
	dbase.Model(&db.Decision{}).Where("actor_id = ? AND recipient_id = ?", 1, 2).Count(&count)
	assert.Equal(t, int64(1), count, "no duplicate edges")

	// repeat like does not re-notify
	assert.Len(t, notifier.forUser(2), 1)
}

func TestLike_SelfAndUnknownRejected(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Like(ctx, 1, 1)
	assert.Error(t, err)

	_, err = svc.Like(ctx, 1, 999)
	assert.Error(t, err)
}

func TestDislike_NeverMatches(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	// 2 likes 1 first
	_, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	// 1 passes on 2: no match may form in either direction
	require.NoError(t, svc.Dislike(ctx, 1, 2))

	matches, err := svc.ListMatches(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)
	matches, err = svc.ListMatches(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestListMatches_SymmetricWithChatID(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, _ = svc.Like(ctx, 1, 2)
	_, _ = svc.Like(ctx, 2, 1)
	_, _ = svc.Like(ctx, 1, 3) // one-way

	matches1, err := svc.ListMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, matches1, 1)
	assert.Equal(t, uint64(2), matches1[0].UserID)
	assert.Equal(t, "user2", matches1[0].Username)
	assert.Equal(t, chatid.For(1, 2), matches1[0].ChatID)

	matches2, err := svc.ListMatches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, matches2, 1)
	assert.Equal(t, uint64(1), matches2[0].UserID)
}

func TestListLikedYouAndYourLikes(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, _ = svc.Like(ctx, 2, 1) // pending for user1
	_, _ = svc.Like(ctx, 1, 3) // user1's own pending like

	likedYou, _, err := svc.ListLikedYou(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, likedYou, 1)
	assert.Equal(t, uint64(2), likedYou[0].UserID)

	yourLikes, _, err := svc.ListYourLikes(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, yourLikes, 1)
	assert.Equal(t, uint64(3), yourLikes[0].UserID)

	// reciprocation moves the pair out of both pending lists
	_, _ = svc.Like(ctx, 1, 2)
	likedYou, _, err = svc.ListLikedYou(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, likedYou)
}

func TestCountLikedYou_CacheFirst(t *testing.T) {
	svc, dbase, _ := setupService(t)
	ctx := context.Background()

	_, _ = svc.Like(ctx, 2, 1)
	_, _ = svc.Like(ctx, 3, 1)

	count, err := svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	// poke the DB behind the cache's back: the cached value still serves
	require.NoError(t, dbase.Exec("DELETE FROM decisions").Error)
	count, err = svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count, "cache-first read")
}
