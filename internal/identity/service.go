// ABOUTME: Identity service for taskdeck - registration, login, and session lifecycle
// ABOUTME: Sessions are opaque server-side records; expiry is reaped lazily on read

package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdeck/taskdeck/internal/store"
)

// ErrDuplicateAccount is returned by Register when the email is taken.
var ErrDuplicateAccount = errors.New("account already exists")

// ErrInvalidCredentials is returned by Login for both an unknown email and
// a wrong password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrSessionInvalid is returned by ValidateSession when the session does
// not exist or has expired.
var ErrSessionInvalid = errors.New("session expired or invalid")

// ErrInvalidInput is returned when required registration fields are empty.
var ErrInvalidInput = errors.New("email, name, and password are required")

// DefaultSessionTTL is the session lifetime used when none is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// dummyHash is compared against when no account matches the email, so a
// login attempt costs the same whether or not the account exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Config holds identity service tuning knobs.
type Config struct {
	// SessionTTL is the absolute session lifetime. Zero means
	// DefaultSessionTTL.
	SessionTTL time.Duration
	// BcryptCost is the credential hashing cost. Zero means
	// bcrypt.DefaultCost.
	BcryptCost int
}

// Service implements registration, authentication, and session management
// on top of the storage engine. Construct one per store; there is no
// process-wide instance.
type Service struct {
	store      store.Store
	logger     *slog.Logger
	sessionTTL time.Duration
	bcryptCost int

	guests *guestRegistry
}

// NewService creates an identity service backed by the given store.
func NewService(s store.Store, cfg Config) *Service {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	return &Service{
		store:      s,
		logger:     slog.Default().With("component", "identity"),
		sessionTTL: ttl,
		bcryptCost: cost,
		guests:     newGuestRegistry(),
	}
}

// Register creates a new account and immediately opens a session for it -
// registration implies login. Returns ErrDuplicateAccount if the email is
// already indexed.
func (s *Service) Register(ctx context.Context, email, name, password, device string) (*store.Account, string, error) {
	email = normalizeEmail(email)
	if email == "" || name == "" || password == "" {
		return nil, "", ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	account := &store.Account{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hash),
		Preferences: store.Preferences{
			DefaultPriority: store.PriorityMedium,
		},
		SubscriptionTier:   store.TierFree,
		SubscriptionStatus: store.SubscriptionActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, "", ErrDuplicateAccount
		}
		return nil, "", err
	}

	// Account and session are two independent writes, not a transaction; a
	// crash between them leaves an account without a session, which the
	// next login repairs.
	sessionID, err := s.createSession(ctx, account.ID, device)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("registered account", "id", account.ID, "email", account.Email)
	return account, sessionID, nil
}

// Login authenticates an email/password pair and opens a new session.
// Returns ErrInvalidCredentials whether the email is unknown or the
// password is wrong.
func (s *Service) Login(ctx context.Context, email, password, device string) (*store.Account, string, error) {
	account, err := s.store.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a compare so timing doesn't reveal whether the email exists
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if account.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	sessionID, err := s.createSession(ctx, account.ID, device)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("login successful", "account", account.ID)
	return account, sessionID, nil
}

// Logout deletes the session. Logging out an unknown or already-gone
// session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if s.guests.deleteSession(sessionID) {
		return nil
	}
	return s.store.DeleteSession(ctx, sessionID)
}

// ValidateSession resolves a session id to its owning account. A session
// is valid iff now < expiresAt. An expired session is deleted on the read
// that discovers it; there is no background sweep, so an expired session
// that is never validated stays in storage until explicitly purged.
func (s *Service) ValidateSession(ctx context.Context, sessionID string) (*store.Account, error) {
	if account, ok, expired := s.guests.resolve(sessionID, time.Now()); ok {
		if expired {
			return nil, ErrSessionInvalid
		}
		return account, nil
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	if !time.Now().Before(session.ExpiresAt) {
		// Lazy reap: first access past expiry removes the record
		if err := s.store.DeleteSession(ctx, sessionID); err != nil {
			s.logger.Warn("failed to reap expired session", "id", sessionID, "error", err)
		}
		return nil, ErrSessionInvalid
	}

	account, err := s.store.GetAccount(ctx, session.OwnerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.store.DeleteSession(ctx, sessionID)
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	return account, nil
}

// UpdateProfile changes an account's display name and avatar. Empty
// arguments leave the corresponding field untouched.
func (s *Service) UpdateProfile(ctx context.Context, accountID, displayName, avatarURL string) (*store.Account, error) {
	if account, ok := s.guests.updateProfile(accountID, displayName, avatarURL); ok {
		return account, nil
	}

	var patch store.AccountPatch
	if displayName != "" {
		patch.DisplayName = &displayName
	}
	if avatarURL != "" {
		patch.AvatarURL = &avatarURL
	}
	return s.store.UpdateAccount(ctx, accountID, patch)
}

// UpdatePreferences replaces an account's preference bag.
func (s *Service) UpdatePreferences(ctx context.Context, accountID string, prefs store.Preferences) (*store.Account, error) {
	if account, ok := s.guests.updatePreferences(accountID, prefs); ok {
		return account, nil
	}
	return s.store.UpdateAccount(ctx, accountID, store.AccountPatch{Preferences: &prefs})
}

// createSession opens a new session for the account and returns its id.
func (s *Service) createSession(ctx context.Context, accountID, device string) (string, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	session := &store.Session{
		ID:        sessionID,
		OwnerID:   accountID,
		Device:    device,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	return sessionID, nil
}

// newSessionID generates an unguessable opaque session token.
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
