// ABOUTME: Portable account snapshots - export the full data graph and reload it
// ABOUTME: Import rejects schema-version mismatches and otherwise replaces all records

package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskdeck/taskdeck/internal/store"
)

// SchemaVersion identifies the snapshot format written by Export. Import
// refuses snapshots carrying any other version.
const SchemaVersion = 1

// ErrSchemaVersion is returned by Import when the snapshot's schema
// version does not match SchemaVersion.
var ErrSchemaVersion = errors.New("unsupported snapshot schema version")

// Snapshot is the portable serialization of one account's data graph. It
// contains every task and project the account owns at export time - no
// pagination, no sampling. Guest accounts never appear in snapshots
// because they never reach the accounts collection.
type Snapshot struct {
	SchemaVersion int              `json:"schemaVersion"`
	ExportedAt    time.Time        `json:"exportedAt"`
	Account       *store.Account   `json:"account"`
	Tasks         []*store.Task    `json:"tasks"`
	Projects      []*store.Project `json:"projects"`
}

// Service implements account export and import over the storage engine.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates an export service backed by the given store.
func NewService(s store.Store) *Service {
	return &Service{
		store:  s,
		logger: slog.Default().With("component", "export"),
	}
}

// Export builds a snapshot of the account and everything it owns. Returns
// store.ErrNotFound if the account does not exist (guests included, since
// they are never persisted).
func (s *Service) Export(ctx context.Context, accountID string) (*Snapshot, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.store.ListTasksByOwner(ctx, accountID, store.TaskFilter{})
	if err != nil {
		return nil, err
	}

	projects, err := s.store.ListProjectsByOwner(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("exported account", "id", accountID, "tasks", len(tasks), "projects", len(projects))
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		ExportedAt:    time.Now().UTC(),
		Account:       account,
		Tasks:         tasks,
		Projects:      projects,
	}, nil
}

// Import applies a snapshot to the target account with replace-all
// semantics: the account's existing tasks and projects are deleted, then
// the snapshot's records are inserted with their ownership rewritten to
// accountID. The account record itself is created if missing and patched
// otherwise, so an existing credential hash survives the import.
//
// Snapshots never carry credentials, so an account created by Import has
// no password hash and cannot log in until one is set.
//
// Returns ErrSchemaVersion if the snapshot was written by a different
// schema version.
func (s *Service) Import(ctx context.Context, accountID string, snapshot *Snapshot) error {
	if snapshot == nil || snapshot.Account == nil {
		return fmt.Errorf("snapshot has no account")
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrSchemaVersion, snapshot.SchemaVersion, SchemaVersion)
	}

	if err := s.applyAccount(ctx, accountID, snapshot.Account); err != nil {
		return err
	}

	if err := s.clearOwned(ctx, accountID); err != nil {
		return err
	}

	for _, project := range snapshot.Projects {
		p := *project
		p.OwnerID = accountID
		if err := s.store.CreateProject(ctx, &p); err != nil {
			return fmt.Errorf("importing project %s: %w", p.ID, err)
		}
	}

	for _, task := range snapshot.Tasks {
		t := *task
		t.OwnerID = accountID
		if err := s.store.CreateTask(ctx, &t); err != nil {
			return fmt.Errorf("importing task %s: %w", t.ID, err)
		}
	}

	s.logger.Info("imported snapshot", "account", accountID,
		"tasks", len(snapshot.Tasks), "projects", len(snapshot.Projects))
	return nil
}

// applyAccount creates the target account from the snapshot if it does not
// exist, or patches its profile fields if it does.
func (s *Service) applyAccount(ctx context.Context, accountID string, from *store.Account) error {
	_, err := s.store.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		account := *from
		account.ID = accountID
		return s.store.CreateAccount(ctx, &account)
	}
	if err != nil {
		return err
	}

	patch := store.AccountPatch{
		DisplayName: &from.DisplayName,
		Preferences: &from.Preferences,
	}
	if from.AvatarURL != "" {
		patch.AvatarURL = &from.AvatarURL
	}
	_, err = s.store.UpdateAccount(ctx, accountID, patch)
	return err
}

// clearOwned deletes every task and project currently owned by the account.
func (s *Service) clearOwned(ctx context.Context, accountID string) error {
	tasks, err := s.store.ListTasksByOwner(ctx, accountID, store.TaskFilter{})
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if err := s.store.DeleteTask(ctx, task.ID); err != nil {
			return err
		}
	}

	projects, err := s.store.ListProjectsByOwner(ctx, accountID)
	if err != nil {
		return err
	}
	for _, project := range projects {
		if err := s.store.DeleteProject(ctx, project.ID); err != nil {
			return err
		}
	}

	return nil
}
