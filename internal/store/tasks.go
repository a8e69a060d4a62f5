// ABOUTME: Tasks collection methods for SQLiteStore
// ABOUTME: CRUD plus index lookups on owner_id, status, and due_date

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CreateTask inserts a new task. Returns ErrAlreadyExists if the id is
// already present.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *Task) error {
	tags, err := marshalStrings(task.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	attachments, err := marshalStrings(task.Attachments)
	if err != nil {
		return fmt.Errorf("encoding attachments: %w", err)
	}

	query := `
		INSERT INTO tasks (id, owner_id, title, description, status, priority, due_date,
			completed_at, tags_json, category, estimate_minutes, actual_minutes,
			attachments_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		nullString(task.Description),
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		nullTime(task.CompletedAt),
		tags,
		nullString(task.Category),
		nullInt(task.EstimateMinutes),
		nullInt(task.ActualMinutes),
		attachments,
		task.CreatedAt.UTC().Format(time.RFC3339),
		task.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting task: %w", err)
	}

	s.logger.Debug("created task", "id", task.ID, "owner", task.OwnerID)
	return nil
}

// GetTask retrieves a task by id. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id)
	task, err := scanTaskRow(row.Scan)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask merges the patch into the existing task, stamps updated_at,
// and returns the full updated record. Returns ErrNotFound if the id is
// absent.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	}
	if patch.CompletedAt != nil {
		task.CompletedAt = patch.CompletedAt
	}
	if patch.ClearCompleted {
		task.CompletedAt = nil
	}
	if patch.Tags != nil {
		task.Tags = *patch.Tags
	}
	if patch.Category != nil {
		task.Category = *patch.Category
	}
	if patch.EstimateMinutes != nil {
		task.EstimateMinutes = *patch.EstimateMinutes
	}
	if patch.ActualMinutes != nil {
		task.ActualMinutes = *patch.ActualMinutes
	}
	if patch.Attachments != nil {
		task.Attachments = *patch.Attachments
	}
	task.UpdatedAt = time.Now().UTC()

	tags, err := marshalStrings(task.Tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	attachments, err := marshalStrings(task.Attachments)
	if err != nil {
		return nil, fmt.Errorf("encoding attachments: %w", err)
	}

	query := `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, priority = ?, due_date = ?,
			completed_at = ?, tags_json = ?, category = ?, estimate_minutes = ?,
			actual_minutes = ?, attachments_json = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		nullString(task.Description),
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		nullTime(task.CompletedAt),
		tags,
		nullString(task.Category),
		nullInt(task.EstimateMinutes),
		nullInt(task.ActualMinutes),
		attachments,
		task.UpdatedAt.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated task", "id", id)
	// Re-read so the returned record reflects stored precision
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task. Deleting an absent id is not an error.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// ListTasksByOwner returns all tasks owned by ownerID, optionally narrowed
// by status and priority. Order is unspecified.
func (s *SQLiteStore) ListTasksByOwner(ctx context.Context, ownerID string, filter TaskFilter) ([]*Task, error) {
	query := taskSelect + ` WHERE owner_id = ?`
	args := []any{ownerID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, filter.Priority)
	}

	return s.queryTasks(ctx, query, args...)
}

// ListTasksByStatus returns all tasks with the given status, across owners.
func (s *SQLiteStore) ListTasksByStatus(ctx context.Context, status string) ([]*Task, error) {
	return s.queryTasks(ctx, taskSelect+` WHERE status = ?`, status)
}

// ListTasksDueBefore returns all tasks with a due date strictly before the
// cutoff. Tasks without a due date are never returned.
func (s *SQLiteStore) ListTasksDueBefore(ctx context.Context, cutoff time.Time) ([]*Task, error) {
	return s.queryTasks(ctx,
		taskSelect+` WHERE due_date IS NOT NULL AND due_date < ?`,
		cutoff.UTC().Format(time.RFC3339))
}

const taskSelect = `
	SELECT id, owner_id, title, description, status, priority, due_date,
		completed_at, tags_json, category, estimate_minutes, actual_minutes,
		attachments_json, created_at, updated_at
	FROM tasks
`

func (s *SQLiteStore) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTaskRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}

	return tasks, nil
}

// scanTaskRow scans one task from either a *sql.Row or *sql.Rows scan func.
func scanTaskRow(scan func(dest ...any) error) (*Task, error) {
	var task Task
	var description, category, tagsJSON, attachmentsJSON sql.NullString
	var dueDate, completedAt sql.NullString
	var estimate, actual sql.NullInt64
	var createdAtStr, updatedAtStr string

	err := scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&description,
		&task.Status,
		&task.Priority,
		&dueDate,
		&completedAt,
		&tagsJSON,
		&category,
		&estimate,
		&actual,
		&attachmentsJSON,
		&createdAtStr,
		&updatedAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	task.Description = description.String
	task.Category = category.String
	task.EstimateMinutes = int(estimate.Int64)
	task.ActualMinutes = int(actual.Int64)

	if task.DueDate, err = parseNullTime(dueDate); err != nil {
		return nil, fmt.Errorf("parsing due_date: %w", err)
	}
	if task.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parsing completed_at: %w", err)
	}

	if task.Tags, err = unmarshalStrings(tagsJSON); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if task.Attachments, err = unmarshalStrings(attachmentsJSON); err != nil {
		return nil, fmt.Errorf("decoding attachments: %w", err)
	}

	if task.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if task.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &task, nil
}

// marshalStrings encodes a string slice as a JSON column, nil when empty
func marshalStrings(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// unmarshalStrings decodes a JSON string-array column
func unmarshalStrings(col sql.NullString) ([]string, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(col.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// nullInt returns nil for zero, otherwise the value
func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
