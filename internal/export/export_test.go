package export

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/store"
)

func setupExport(t *testing.T) (*Service, *store.SQLiteStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return NewService(s), s
}

func seedAccount(t *testing.T, s *store.SQLiteStore, id, email string) *store.Account {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	account := &store.Account{
		ID:                 id,
		Email:              email,
		PasswordHash:       "hash-" + id,
		DisplayName:        "Owner " + id,
		SubscriptionTier:   store.TierFree,
		SubscriptionStatus: store.SubscriptionActive,
		Preferences: store.Preferences{
			Theme:           "dark",
			DefaultPriority: store.PriorityMedium,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateAccount(context.Background(), account))
	return account
}

func seedTask(t *testing.T, s *store.SQLiteStore, id, ownerID string) *store.Task {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	due := now.Add(48 * time.Hour)
	task := &store.Task{
		ID:        id,
		OwnerID:   ownerID,
		Title:     "Task " + id,
		Status:    store.TaskStatusTodo,
		Priority:  store.PriorityHigh,
		Tags:      []string{"export", "test"},
		DueDate:   &due,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

func seedProject(t *testing.T, s *store.SQLiteStore, id, ownerID string) *store.Project {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	project := &store.Project{
		ID:        id,
		OwnerID:   ownerID,
		Name:      "Project " + id,
		Color:     "#0ea5e9",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateProject(context.Background(), project))
	return project
}

func TestExport_FullGraph(t *testing.T) {
	svc, s := setupExport(t)
	ctx := context.Background()

	account := seedAccount(t, s, "acct-1", "ann@example.com")
	seedTask(t, s, "task-1", account.ID)
	seedTask(t, s, "task-2", account.ID)
	seedProject(t, s, "proj-1", account.ID)

	// Another account's data stays out of the snapshot
	other := seedAccount(t, s, "acct-2", "bob@example.com")
	seedTask(t, s, "task-other", other.ID)

	snapshot, err := svc.Export(ctx, account.ID)
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, snapshot.SchemaVersion)
	assert.Equal(t, account.ID, snapshot.Account.ID)
	assert.Len(t, snapshot.Tasks, 2)
	assert.Len(t, snapshot.Projects, 1)
	assert.WithinDuration(t, time.Now(), snapshot.ExportedAt, time.Minute)
}

func TestExport_UnknownAccount(t *testing.T) {
	svc, _ := setupExport(t)

	_, err := svc.Export(context.Background(), "never-registered")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExport_SnapshotOmitsPasswordHash(t *testing.T) {
	svc, s := setupExport(t)
	ctx := context.Background()

	account := seedAccount(t, s, "acct-1", "ann@example.com")

	snapshot, err := svc.Export(ctx, account.ID)
	require.NoError(t, err)

	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash-acct-1")
}

func TestImport_RoundTrip(t *testing.T) {
	source, s1 := setupExport(t)
	ctx := context.Background()

	account := seedAccount(t, s1, "acct-1", "ann@example.com")
	seedTask(t, s1, "task-1", account.ID)
	seedTask(t, s1, "task-2", account.ID)
	seedProject(t, s1, "proj-1", account.ID)

	snapshot, err := source.Export(ctx, account.ID)
	require.NoError(t, err)

	// Import into a completely empty store
	target, s2 := setupExport(t)
	require.NoError(t, target.Import(ctx, account.ID, snapshot))

	restored, err := target.Export(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.DisplayName, restored.Account.DisplayName)
	assert.Equal(t, "dark", restored.Account.Preferences.Theme)
	assert.Len(t, restored.Tasks, 2)
	assert.Len(t, restored.Projects, 1)

	tasks, err := s2.ListTasksByOwner(ctx, account.ID, store.TaskFilter{})
	require.NoError(t, err)
	ids := []string{tasks[0].ID, tasks[1].ID}
	assert.ElementsMatch(t, []string{"task-1", "task-2"}, ids)
}

func TestImport_ReplacesExistingData(t *testing.T) {
	svc, s := setupExport(t)
	ctx := context.Background()

	account := seedAccount(t, s, "acct-1", "ann@example.com")
	seedTask(t, s, "task-old", account.ID)
	seedProject(t, s, "proj-old", account.ID)

	// Snapshot built elsewhere, with different records
	now := time.Now().UTC().Truncate(time.Second)
	snapshot := &Snapshot{
		SchemaVersion: SchemaVersion,
		ExportedAt:    now,
		Account:       account,
		Tasks: []*store.Task{{
			ID:        "task-new",
			OwnerID:   "someone-else",
			Title:     "Imported task",
			Status:    store.TaskStatusTodo,
			Priority:  store.PriorityLow,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}

	require.NoError(t, svc.Import(ctx, account.ID, snapshot))

	tasks, err := s.ListTasksByOwner(ctx, account.ID, store.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-new", tasks[0].ID)
	assert.Equal(t, account.ID, tasks[0].OwnerID, "ownership is rewritten to the target account")

	projects, err := s.ListProjectsByOwner(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, projects, "records absent from the snapshot are gone")
}

func TestImport_PreservesCredentialHash(t *testing.T) {
	svc, s := setupExport(t)
	ctx := context.Background()

	account := seedAccount(t, s, "acct-1", "ann@example.com")

	snapshot, err := svc.Export(ctx, account.ID)
	require.NoError(t, err)
	snapshot.Account.DisplayName = "Renamed"

	require.NoError(t, svc.Import(ctx, account.ID, snapshot))

	kept, err := s.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", kept.DisplayName)
	assert.Equal(t, "hash-acct-1", kept.PasswordHash, "import never touches the stored credential")
}

func TestImport_CreatedAccountHasNoCredential(t *testing.T) {
	source, s1 := setupExport(t)
	ctx := context.Background()

	account := seedAccount(t, s1, "acct-1", "ann@example.com")
	snapshot, err := source.Export(ctx, account.ID)
	require.NoError(t, err)

	// Serialize through JSON, as a snapshot file would travel
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	target, s2 := setupExport(t)
	require.NoError(t, target.Import(ctx, account.ID, &decoded))

	created, err := s2.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, created.PasswordHash, "snapshots never carry credentials")
}

func TestImport_SchemaVersionMismatch(t *testing.T) {
	svc, s := setupExport(t)
	ctx := context.Background()

	account := seedAccount(t, s, "acct-1", "ann@example.com")
	seedTask(t, s, "task-1", account.ID)

	snapshot, err := svc.Export(ctx, account.ID)
	require.NoError(t, err)
	snapshot.SchemaVersion = SchemaVersion + 1

	err = svc.Import(ctx, account.ID, snapshot)
	assert.ErrorIs(t, err, ErrSchemaVersion)

	// Nothing was touched
	tasks, err := s.ListTasksByOwner(ctx, account.ID, store.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestImport_NilSnapshot(t *testing.T) {
	svc, _ := setupExport(t)

	err := svc.Import(context.Background(), "acct-1", nil)
	assert.Error(t, err)
}
