package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberdating/ember-backend/internal/db"
	"github.com/emberdating/ember-backend/internal/repository"
)

func TestRegister_ReplacesPriorEntry(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConnectionRepository(dbase)

	require.NoError(t, repo.Register(ctx, 1, "handle-a"))
	require.NoError(t, repo.Register(ctx, 1, "handle-b"))

	// at most one row per user, last writer wins
	var count int64
	dbase.Model(&db.Connection{}).Where("user_id = ?", 1).Count(&count)
	assert.Equal(t, int64(1), count)

	handle, err := repo.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "handle-b", handle)
}

func TestResolve_AbsentUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewConnectionRepository(setupTestDB(t))

	handle, err := repo.Resolve(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "", handle)
}

func TestPruneHandle(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConnectionRepository(dbase)

	require.NoError(t, repo.Register(ctx, 1, "stale-handle"))
	require.NoError(t, repo.PruneHandle(ctx, "stale-handle"))

	handle, err := repo.Resolve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "", handle)

	// pruning an unknown handle is a no-op
	assert.NoError(t, repo.PruneHandle(ctx, "never-existed"))
}
