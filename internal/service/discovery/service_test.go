package discovery_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
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
	"github.com/emberdating/ember-backend/internal/repository"
	"github.com/emberdating/ember-backend/internal/service/discovery"
)

func ptr(f float64) *float64 { return &f }

// setupService wires a discovery Service over an in-memory SQLite DB.
//
// Dataset (requester is user 1, male, London):
//   - user 2: female, 28, London with coords          → same city bucket
//   - user 3: female, 30, Manchester with coords      → other city, ~262km
//   - user 4: female, 26, no coordinates              → sorts last by distance
//   - user 5: female, 29, Birmingham, culture overlap → compat winner
//   - user 6: male, 27                                → filtered out by gender=female
//   - user 7: female, 45                              → filtered out by age
func setupService(t *testing.T) (*discovery.Service, *gorm.DB) {
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
		{ID: 1, Username: "requester", Email: "u1@test.com", PasswordHash: "x", Gender: "male", Age: 28,
			City: "London", Latitude: ptr(51.5074), Longitude: ptr(-0.1278),
			MacroGroups: []string{"slavic"}, EthnicityText: "Russian", Religions: []string{"christianity"},
			Interests: []string{"travel"}, Zodiac: "leo",
			Active: true, ProfileComplete: true},
		{ID: 2, Username: "londoner", Email: "u2@test.com", PasswordHash: "x", Gender: "female", Age: 28,
			City: "london", Latitude: ptr(51.52), Longitude: ptr(-0.10),
			Active: true, ProfileComplete: true},
		{ID: 3, Username: "mancunian", Email: "u3@test.com", PasswordHash: "x", Gender: "female", Age: 30,
			City: "Manchester", Latitude: ptr(53.4808), Longitude: ptr(-2.2426),
			Active: true, ProfileComplete: true},
		{ID: 4, Username: "nowhere", Email: "u4@test.com", PasswordHash: "x", Gender: "female", Age: 26,
			Active: true, ProfileComplete: true},
		{ID: 5, Username: "kindred", Email: "u5@test.com", PasswordHash: "x", Gender: "female", Age: 29,
			City: "Birmingham", Latitude: ptr(52.4862), Longitude: ptr(-1.8904),
			MacroGroups: []string{"slavic"}, EthnicityText: "russian", Religions: []string{"christianity"},
			Interests: []string{"travel", "music"}, Zodiac: "aries",
			Active: true, ProfileComplete: true},
		{ID: 6, Username: "fellow", Email: "u6@test.com", PasswordHash: "x", Gender: "male", Age: 27,
			Active: true, ProfileComplete: true},
		{ID: 7, Username: "older", Email: "u7@test.com", PasswordHash: "x", Gender: "female", Age: 45,
			Active: true, ProfileComplete: true},
	}
	require.NoError(t, dbase.Create(&users).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	appCtx := app.New(dbase, cache.NewRedisCache(cfg), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return discovery.NewService(appCtx), dbase
}

func TestDiscover_DefaultGeoOrdering(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	profiles, err := svc.Discover(ctx, 1, discovery.Query{})
	require.NoError(t, err)
	require.Len(t, profiles, 6)

	// same-city bucket first, then ascending distance (Birmingham ~163km
	// before Manchester ~262km), missing coordinates last in stable order
	ids := make([]uint64, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	assert.Equal(t, []uint64{2, 5, 3, 4, 6, 7}, ids)

	assert.NotNil(t, profiles[1].DistanceKm)
	assert.InDelta(t, 163, *profiles[1].DistanceKm, 15)
	assert.Nil(t, profiles[3].DistanceKm, "no coordinates, no distance")
}

func TestDiscover_CompatOrdering(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	profiles, err := svc.Discover(ctx, 1, discovery.Query{Sort: discovery.SortCompat})
	require.NoError(t, err)
	require.NotEmpty(t, profiles)

	// the culture-overlapping profile wins with the reference score
	assert.Equal(t, uint64(5), profiles[0].UserID)
	assert.Equal(t, 32, profiles[0].Score)

	// non-increasing scores; equal scores keep id order (stable sort over
	// the id-ordered candidate set)
	for i := 1; i < len(profiles); i++ {
		if profiles[i].Score == profiles[i-1].Score {
			assert.Less(t, profiles[i-1].UserID, profiles[i].UserID)
		} else {
			assert.Less(t, profiles[i].Score, profiles[i-1].Score)
		}
	}
}

func TestDiscover_FilterPredicates(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	profiles, err := svc.Discover(ctx, 1, discovery.Query{
		Filters: repository.DiscoveryFilters{Gender: "female", MinAge: 25, MaxAge: 35},
	})
	require.NoError(t, err)
	require.NotEmpty(t, profiles)

	for _, p := range profiles {
		assert.Equal(t, "female", p.Gender)
		assert.GreaterOrEqual(t, p.Age, 25)
		assert.LessOrEqual(t, p.Age, 35)
	}
}

func TestDiscover_ExcludesDecidedUsers(t *testing.T) {
	svc, dbase := setupService(t)
	ctx := context.Background()

	decisions := repository.NewDecisionRepository(dbase)
	require.NoError(t, decisions.CreateOrUpdateDecision(ctx, 1, 2, true))
	require.NoError(t, decisions.CreateOrUpdateDecision(ctx, 1, 3, false))

	profiles, err := svc.Discover(ctx, 1, discovery.Query{})
	require.NoError(t, err)

	for _, p := range profiles {
		assert.NotEqual(t, uint64(1), p.UserID, "never the requester")
		assert.NotEqual(t, uint64(2), p.UserID, "already liked")
		assert.NotEqual(t, uint64(3), p.UserID, "already passed")
	}
}

func TestDiscover_Pagination(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	page1, err := svc.Discover(ctx, 1, discovery.Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := svc.Discover(ctx, 1, discovery.Query{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].UserID, page2[0].UserID)

	empty, err := svc.Discover(ctx, 1, discovery.Query{Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDiscover_InvalidQuery(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Discover(ctx, 1, discovery.Query{
		Filters: repository.DiscoveryFilters{MinAge: 40, MaxAge: 20},
	})
	assert.Error(t, err)

	_, err = svc.Discover(ctx, 1, discovery.Query{Sort: "bogus"})
	assert.Error(t, err)
}
