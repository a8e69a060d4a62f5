package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProject(id, ownerID string) *Project {
	now := time.Now().UTC().Truncate(time.Second)
	return &Project{
		ID:        id,
		OwnerID:   ownerID,
		Name:      "Website redesign",
		Color:     "#4f46e5",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_CreateProject(t *testing.T) {
	store, account := setupTaskStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, testProject("proj-1", account.ID)))

	retrieved, err := store.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "Website redesign", retrieved.Name)
	assert.Equal(t, "#4f46e5", retrieved.Color)
	assert.False(t, retrieved.Archived)
}

func TestStore_UpdateProject_Archive(t *testing.T) {
	store, account := setupTaskStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, testProject("proj-1", account.ID)))

	archived := true
	updated, err := store.UpdateProject(ctx, "proj-1", ProjectPatch{Archived: &archived})
	require.NoError(t, err)
	assert.True(t, updated.Archived)
	assert.Equal(t, "Website redesign", updated.Name)
}

func TestStore_UpdateProject_ReturnsStoredRecord(t *testing.T) {
	store, account := setupTaskStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, testProject("proj-1", account.ID)))

	name := "Website relaunch"
	updated, err := store.UpdateProject(ctx, "proj-1", ProjectPatch{Name: &name})
	require.NoError(t, err)

	// The returned record matches what a subsequent read sees, at stored
	// RFC3339 precision
	retrieved, err := store.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, retrieved, updated)
	assert.Zero(t, updated.UpdatedAt.Nanosecond())
}

func TestStore_DeleteProject_Idempotent(t *testing.T) {
	store, account := setupTaskStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, testProject("proj-1", account.ID)))
	require.NoError(t, store.DeleteProject(ctx, "proj-1"))
	assert.NoError(t, store.DeleteProject(ctx, "proj-1"))
}

func TestStore_ListProjectsByOwner(t *testing.T) {
	store, account := setupTaskStore(t)
	ctx := context.Background()

	other := testAccount("owner-2", "other@example.com")
	require.NoError(t, store.CreateAccount(ctx, other))

	require.NoError(t, store.CreateProject(ctx, testProject("p1", account.ID)))
	require.NoError(t, store.CreateProject(ctx, testProject("p2", account.ID)))
	require.NoError(t, store.CreateProject(ctx, testProject("p3", other.ID)))

	projects, err := store.ListProjectsByOwner(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}
