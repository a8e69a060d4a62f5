// ABOUTME: Projects collection methods for SQLiteStore
// ABOUTME: CRUD plus the owner_id index scan

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateProject inserts a new project. Returns ErrAlreadyExists if the id
// is already present.
func (s *SQLiteStore) CreateProject(ctx context.Context, project *Project) error {
	query := `
		INSERT INTO projects (id, owner_id, name, description, color, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		project.ID,
		project.OwnerID,
		project.Name,
		nullString(project.Description),
		nullString(project.Color),
		boolToInt(project.Archived),
		project.CreatedAt.UTC().Format(time.RFC3339),
		project.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting project: %w", err)
	}

	s.logger.Debug("created project", "id", project.ID, "owner", project.OwnerID)
	return nil
}

// GetProject retrieves a project by id. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, projectSelect+` WHERE id = ?`, id)
	return scanProjectRow(row.Scan)
}

// UpdateProject merges the patch into the existing project, stamps
// updated_at, and returns the full updated record. Returns ErrNotFound if
// the id is absent.
func (s *SQLiteStore) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		project.Name = *patch.Name
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}
	if patch.Color != nil {
		project.Color = *patch.Color
	}
	if patch.Archived != nil {
		project.Archived = *patch.Archived
	}
	project.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE projects
		SET name = ?, description = ?, color = ?, archived = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		project.Name,
		nullString(project.Description),
		nullString(project.Color),
		boolToInt(project.Archived),
		project.UpdatedAt.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated project", "id", id)
	// Re-read so the returned record reflects stored precision
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project. Deleting an absent id is not an error.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}

// ListProjectsByOwner returns all projects owned by ownerID. Order is
// unspecified.
func (s *SQLiteStore) ListProjectsByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, projectSelect+` WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*Project
	for rows.Next() {
		project, err := scanProjectRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project rows: %w", err)
	}

	return projects, nil
}

const projectSelect = `
	SELECT id, owner_id, name, description, color, archived, created_at, updated_at
	FROM projects
`

func scanProjectRow(scan func(dest ...any) error) (*Project, error) {
	var project Project
	var description, color sql.NullString
	var archived int
	var createdAtStr, updatedAtStr string

	err := scan(
		&project.ID,
		&project.OwnerID,
		&project.Name,
		&description,
		&color,
		&archived,
		&createdAtStr,
		&updatedAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	project.Description = description.String
	project.Color = color.String
	project.Archived = archived != 0

	if project.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if project.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &project, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
