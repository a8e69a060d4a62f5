// ABOUTME: In-memory guest identities - throwaway accounts that never touch storage
// ABOUTME: Guests bypass the unique-email index and are invisible to export

package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/store"
)

// guestRegistry holds guest accounts and their sessions. Everything here
// lives and dies with the process; nothing is persisted.
type guestRegistry struct {
	mu       sync.Mutex
	accounts map[string]*store.Account // keyed by account id
	sessions map[string]*store.Session // keyed by session id
}

func newGuestRegistry() *guestRegistry {
	return &guestRegistry{
		accounts: make(map[string]*store.Account),
		sessions: make(map[string]*store.Session),
	}
}

// StartGuestSession synthesizes a throwaway account and session entirely
// in memory. The guest account has no email and no credential hash, never
// reaches the accounts collection, and is excluded from export.
func (s *Service) StartGuestSession(ctx context.Context, device string) (*store.Account, string, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	account := &store.Account{
		ID:          uuid.New().String(),
		DisplayName: "Guest",
		Preferences: store.Preferences{
			DefaultPriority: store.PriorityMedium,
		},
		SubscriptionTier:   store.TierFree,
		SubscriptionStatus: store.SubscriptionActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	session := &store.Session{
		ID:        sessionID,
		OwnerID:   account.ID,
		Device:    device,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	s.guests.mu.Lock()
	s.guests.accounts[account.ID] = account
	s.guests.sessions[sessionID] = session
	s.guests.mu.Unlock()

	s.logger.Info("started guest session", "account", account.ID)
	return cloneAccount(account), sessionID, nil
}

// IsGuest reports whether the account id belongs to a guest identity.
func (s *Service) IsGuest(accountID string) bool {
	s.guests.mu.Lock()
	defer s.guests.mu.Unlock()
	_, ok := s.guests.accounts[accountID]
	return ok
}

// resolve looks up a guest session. ok reports whether the session id is a
// guest session at all; expired reports whether it was past its expiry, in
// which case the guest identity has been dropped.
func (g *guestRegistry) resolve(sessionID string, now time.Time) (account *store.Account, ok, expired bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	session, found := g.sessions[sessionID]
	if !found {
		return nil, false, false
	}

	if !now.Before(session.ExpiresAt) {
		delete(g.sessions, sessionID)
		delete(g.accounts, session.OwnerID)
		return nil, true, true
	}

	return cloneAccount(g.accounts[session.OwnerID]), true, false
}

// deleteSession removes a guest session and its account. Returns false if
// the id is not a guest session.
func (g *guestRegistry) deleteSession(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	session, found := g.sessions[sessionID]
	if !found {
		return false
	}
	delete(g.sessions, sessionID)
	delete(g.accounts, session.OwnerID)
	return true
}

func (g *guestRegistry) updateProfile(accountID, displayName, avatarURL string) (*store.Account, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	account, found := g.accounts[accountID]
	if !found {
		return nil, false
	}
	if displayName != "" {
		account.DisplayName = displayName
	}
	if avatarURL != "" {
		account.AvatarURL = avatarURL
	}
	account.UpdatedAt = time.Now().UTC()
	return cloneAccount(account), true
}

func (g *guestRegistry) updatePreferences(accountID string, prefs store.Preferences) (*store.Account, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	account, found := g.accounts[accountID]
	if !found {
		return nil, false
	}
	account.Preferences = prefs
	account.UpdatedAt = time.Now().UTC()
	return cloneAccount(account), true
}

// cloneAccount copies a guest account so callers can't mutate registry
// state through the returned pointer.
func cloneAccount(a *store.Account) *store.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}
