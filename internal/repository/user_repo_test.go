package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emberdating/ember-backend/internal/db"
	"github.com/emberdating/ember-backend/internal/repository"
)

func seedCandidateUsers(t *testing.T, dbase *gorm.DB) {
	t.Helper()
	users := []db.User{
		{ID: 1, Username: "requester", Email: "r@test.com", PasswordHash: "x", Gender: "male", Age: 30, Active: true, ProfileComplete: true},
		{ID: 2, Username: "anna", Email: "a@test.com", PasswordHash: "x", Gender: "female", Age: 28, Active: true, ProfileComplete: true, EthnicityText: " Russian ", Religions: []string{"christianity"}},
		{ID: 3, Username: "beth", Email: "b@test.com", PasswordHash: "x", Gender: "female", Age: 40, Active: true, ProfileComplete: true},
		{ID: 4, Username: "carl", Email: "c@test.com", PasswordHash: "x", Gender: "male", Age: 29, Active: true, ProfileComplete: true},
		{ID: 5, Username: "dina", Email: "d@test.com", PasswordHash: "x", Gender: "female", Age: 27, Active: true, ProfileComplete: false},
		{ID: 6, Username: "eva", Email: "e@test.com", PasswordHash: "x", Gender: "female", Age: 26, Active: true, ProfileComplete: true, Religions: []string{"islam"}},
	}
	require.NoError(t, dbase.Create(&users).Error)
}

func TestFindCandidates_Exclusions(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedCandidateUsers(t, dbase)

	decisions := repository.NewDecisionRepository(dbase)
	users := repository.NewUserRepository(dbase)

	// requester already liked 2 and passed 6
	require.NoError(t, decisions.CreateOrUpdateDecision(ctx, 1, 2, true))
	require.NoError(t, decisions.CreateOrUpdateDecision(ctx, 1, 6, false))

	got, err := users.FindCandidates(ctx, 1, repository.DiscoveryFilters{})
	require.NoError(t, err)

	ids := idsOf(got)
	assert.NotContains(t, ids, uint64(1), "never the requester")
	assert.NotContains(t, ids, uint64(2), "already liked")
	assert.NotContains(t, ids, uint64(6), "already passed")
	assert.NotContains(t, ids, uint64(5), "incomplete profile")
	assert.Contains(t, ids, uint64(3))
	assert.Contains(t, ids, uint64(4))
}

func TestFindCandidates_GenderAndAge(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedCandidateUsers(t, dbase)
	users := repository.NewUserRepository(dbase)

	got, err := users.FindCandidates(ctx, 1, repository.DiscoveryFilters{
		Gender: "female",
		MinAge: 25,
		MaxAge: 35,
	})
	require.NoError(t, err)

	for _, u := range got {
		assert.Equal(t, "female", u.Gender)
		assert.GreaterOrEqual(t, u.Age, 25)
		assert.LessOrEqual(t, u.Age, 35)
	}
	assert.Contains(t, idsOf(got), uint64(2))
	assert.NotContains(t, idsOf(got), uint64(3), "age 40 outside range")
}

func TestFindCandidates_EthnicityAndReligion(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	seedCandidateUsers(t, dbase)
	users := repository.NewUserRepository(dbase)

	// case-insensitive, trimmed ethnicity equality
	got, err := users.FindCandidates(ctx, 1, repository.DiscoveryFilters{Ethnicity: "russian"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, idsOf(got))

	got, err = users.FindCandidates(ctx, 1, repository.DiscoveryFilters{Religion: "islam"})
	require.NoError(t, err)
	assert.Equal(t, []uint64{6}, idsOf(got))
}

func idsOf(users []db.User) []uint64 {
	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
