// ABOUTME: Sessions collection methods for SQLiteStore
// ABOUTME: Expiry is never evaluated here; reads return expired rows unchanged

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession inserts a new session. Returns ErrAlreadyExists if the id
// is already present.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, owner_id, device, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.OwnerID,
		nullString(session.Device),
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "id", session.ID, "owner", session.OwnerID)
	return nil
}

// GetSession retrieves a session by id, expired or not. Returns
// ErrNotFound if absent. Validity against the expiry time is the identity
// service's responsibility.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, owner_id, device, created_at, expires_at
		FROM sessions
		WHERE id = ?
	`

	var session Session
	var device sql.NullString
	var createdAtStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.OwnerID,
		&device,
		&createdAtStr,
		&expiresAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.Device = device.String

	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	return &session, nil
}

// DeleteSession removes a session. Deleting an absent id is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ListSessionsByOwner returns all sessions owned by ownerID, including
// expired ones still occupying storage.
func (s *SQLiteStore) ListSessionsByOwner(ctx context.Context, ownerID string) ([]*Session, error) {
	query := `
		SELECT id, owner_id, device, created_at, expires_at
		FROM sessions
		WHERE owner_id = ?
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		var session Session
		var device sql.NullString
		var createdAtStr, expiresAtStr string

		if err := rows.Scan(&session.ID, &session.OwnerID, &device, &createdAtStr, &expiresAtStr); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}

		session.Device = device.String
		if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
			return nil, fmt.Errorf("parsing expires_at: %w", err)
		}
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	return sessions, nil
}

// DeleteExpiredSessions removes all sessions past their expiry. This is an
// explicit operator action; expired sessions are otherwise reaped lazily,
// one at a time, when a validation read discovers them.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Debug("deleted expired sessions", "count", rowsAffected)
	}
	return nil
}
