// ABOUTME: Accounts collection methods for SQLiteStore
// ABOUTME: Insert with unique email index, key/index lookups, patch-style update

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateAccount inserts a new account. Returns ErrDuplicateEmail if the
// email is already indexed, ErrAlreadyExists if the id is taken. It never
// silently overwrites.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *Account) error {
	prefs, err := json.Marshal(account.Preferences)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	query := `
		INSERT INTO accounts (id, email, display_name, avatar_url, password_hash, prefs_json,
			subscription_tier, subscription_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		nullString(account.AvatarURL),
		nullString(account.PasswordHash),
		string(prefs),
		account.SubscriptionTier,
		account.SubscriptionStatus,
		account.CreatedAt.UTC().Format(time.RFC3339),
		account.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			// The driver names the violated column, which tells apart an
			// email collision from an id collision
			if strings.Contains(err.Error(), "accounts.email") {
				return ErrDuplicateEmail
			}
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	s.logger.Info("created account", "id", account.ID, "email", account.Email)
	return nil
}

// GetAccount retrieves an account by id. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, accountSelect+` WHERE id = ?`, id)
	return scanAccount(row)
}

// GetAccountByEmail retrieves an account via the unique email index.
// Returns ErrNotFound if no account holds the email.
func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, accountSelect+` WHERE email = ?`, email)
	return scanAccount(row)
}

const accountSelect = `
	SELECT id, email, display_name, avatar_url, password_hash, prefs_json,
		subscription_tier, subscription_status, created_at, updated_at
	FROM accounts
`

func scanAccount(row *sql.Row) (*Account, error) {
	var account Account
	var avatarURL, passwordHash, prefsJSON sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&avatarURL,
		&passwordHash,
		&prefsJSON,
		&account.SubscriptionTier,
		&account.SubscriptionStatus,
		&createdAtStr,
		&updatedAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}

	account.AvatarURL = avatarURL.String
	account.PasswordHash = passwordHash.String

	if prefsJSON.Valid && prefsJSON.String != "" {
		if err := json.Unmarshal([]byte(prefsJSON.String), &account.Preferences); err != nil {
			return nil, fmt.Errorf("decoding preferences: %w", err)
		}
	}

	account.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	account.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &account, nil
}

// UpdateAccount merges the patch into the existing account, stamps
// updated_at, and returns the full updated record. Returns ErrNotFound if
// the id is absent.
func (s *SQLiteStore) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.DisplayName != nil {
		account.DisplayName = *patch.DisplayName
	}
	if patch.AvatarURL != nil {
		account.AvatarURL = *patch.AvatarURL
	}
	if patch.PasswordHash != nil {
		account.PasswordHash = *patch.PasswordHash
	}
	if patch.Preferences != nil {
		account.Preferences = *patch.Preferences
	}
	if patch.SubscriptionTier != nil {
		account.SubscriptionTier = *patch.SubscriptionTier
	}
	if patch.SubscriptionStatus != nil {
		account.SubscriptionStatus = *patch.SubscriptionStatus
	}
	account.UpdatedAt = time.Now().UTC()

	prefs, err := json.Marshal(account.Preferences)
	if err != nil {
		return nil, fmt.Errorf("encoding preferences: %w", err)
	}

	query := `
		UPDATE accounts
		SET display_name = ?, avatar_url = ?, password_hash = ?, prefs_json = ?,
			subscription_tier = ?, subscription_status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		account.DisplayName,
		nullString(account.AvatarURL),
		nullString(account.PasswordHash),
		string(prefs),
		account.SubscriptionTier,
		account.SubscriptionStatus,
		account.UpdatedAt.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated account", "id", id)
	// Re-read so the returned record reflects stored precision
	return s.GetAccount(ctx, id)
}
